package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/services"
)

type LikeHandler struct {
	likeService *services.LikeService
}

func NewLikeHandler(likeService *services.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

func (h *LikeHandler) LikeTweet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.like(c, models.TweetTarget(id))
}

func (h *LikeHandler) UnlikeTweet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.unlike(c, models.TweetTarget(id))
}

func (h *LikeHandler) LikeComment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.like(c, models.CommentTarget(id))
}

func (h *LikeHandler) UnlikeComment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.unlike(c, models.CommentTarget(id))
}

func (h *LikeHandler) like(c *gin.Context, target models.LikeTarget) {
	like, err := h.likeService.Like(c.Request.Context(), target)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Liked successfully",
		"like":    like,
	})
}

func (h *LikeHandler) unlike(c *gin.Context, target models.LikeTarget) {
	if err := h.likeService.Unlike(c.Request.Context(), target); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unliked successfully"})
}

func (h *LikeHandler) GetTweetLikes(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.likers(c, models.TweetTarget(id))
}

func (h *LikeHandler) GetCommentLikes(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.likers(c, models.CommentTarget(id))
}

func (h *LikeHandler) likers(c *gin.Context, target models.LikeTarget) {
	offset, limit := pagination(c)

	likes, err := h.likeService.GetLikers(c.Request.Context(), target, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likes":  likes,
		"offset": offset,
		"limit":  limit,
	})
}
