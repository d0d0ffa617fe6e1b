package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/social-system/social-system/internal/middleware"
	"github.com/social-system/social-system/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	followService  *services.FollowService
	jwtSecret      string
	jwtExpire      int64
}

func NewProfileHandler(profileService *services.ProfileService, followService *services.FollowService, jwtSecret string, jwtExpireSeconds int64) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		followService:  followService,
		jwtSecret:      jwtSecret,
		jwtExpire:      jwtExpireSeconds,
	}
}

func (h *ProfileHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.Register(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Profile registered successfully",
		"profile": profile,
	})
}

func (h *ProfileHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.Login(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	token, err := middleware.GenerateToken(profile.ID.String(), profile.Username, h.jwtSecret, h.jwtExpire)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"profile": profile,
	})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := h.profileService.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

func (h *ProfileHandler) Follow(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.followService.Follow(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Followed successfully"})
}

func (h *ProfileHandler) Unfollow(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.followService.Unfollow(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed successfully"})
}

func (h *ProfileHandler) GetFollowers(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	offset, limit := pagination(c)

	followers, err := h.followService.GetFollowers(c.Request.Context(), id, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"followers": followers,
		"offset":    offset,
		"limit":     limit,
	})
}

func (h *ProfileHandler) GetFollowing(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	offset, limit := pagination(c)

	following, err := h.followService.GetFollowing(c.Request.Context(), id, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"following": following,
		"offset":    offset,
		"limit":     limit,
	})
}
