package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/social-system/social-system/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	tweetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), tweetID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment created successfully",
		"comment": comment,
	})
}

func (h *CommentHandler) GetTweetComments(c *gin.Context) {
	tweetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	offset, limit := pagination(c)

	comments, err := h.commentService.GetTweetComments(c.Request.Context(), tweetID, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"offset":   offset,
		"limit":    limit,
	})
}

func (h *CommentHandler) GetReplies(c *gin.Context) {
	commentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	replies, err := h.commentService.GetReplies(c.Request.Context(), commentID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	commentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), commentID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment updated successfully",
		"comment": comment,
	})
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), commentID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
