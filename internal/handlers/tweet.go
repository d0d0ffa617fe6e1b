package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/services"
)

type TweetHandler struct {
	tweetService *services.TweetService
}

func NewTweetHandler(tweetService *services.TweetService) *TweetHandler {
	return &TweetHandler{tweetService: tweetService}
}

func (h *TweetHandler) CreateTweet(c *gin.Context) {
	var req services.CreateTweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tweet, err := h.tweetService.CreateTweet(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tweet created successfully",
		"tweet":   tweet,
	})
}

func (h *TweetHandler) GetTweet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	tweet, err := h.tweetService.GetTweetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tweet": tweet})
}

func (h *TweetHandler) GetTweets(c *gin.Context) {
	offset, limit := pagination(c)

	var genreID *uuid.UUID
	if raw := c.Query("genre_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid genre_id"})
			return
		}
		genreID = &id
	}

	tweets, err := h.tweetService.GetTweets(c.Request.Context(), genreID, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tweets": tweets,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *TweetHandler) GetProfileTweets(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	offset, limit := pagination(c)

	tweets, err := h.tweetService.GetProfileTweets(c.Request.Context(), id, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tweets": tweets,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *TweetHandler) UpdateTweet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateTweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tweet, err := h.tweetService.UpdateTweet(c.Request.Context(), id, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tweet updated successfully",
		"tweet":   tweet,
	})
}

func (h *TweetHandler) DeleteTweet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.tweetService.DeleteTweet(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tweet deleted successfully"})
}

func (h *TweetHandler) CreateGenre(c *gin.Context) {
	var req services.CreateGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	genre, err := h.tweetService.CreateGenre(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"genre": genre})
}

func (h *TweetHandler) GetGenres(c *gin.Context) {
	genres, err := h.tweetService.GetGenres(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"genres": genres})
}
