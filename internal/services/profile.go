package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type ProfileService struct {
	actor       *ActorResolver
	profileRepo *repository.ProfileRepository
	logger      *logger.Logger
}

func NewProfileService(
	actor *ActorResolver,
	profileRepo *repository.ProfileRepository,
	logger *logger.Logger,
) *ProfileService {
	return &ProfileService{
		actor:       actor,
		profileRepo: profileRepo,
		logger:      logger,
	}
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=50"`
	DisplayName string `json:"display_name" binding:"max=50"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=50"`
	Avatar      *string `json:"avatar"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
}

func (s *ProfileService) Register(ctx context.Context, req *RegisterRequest) (*models.Profile, error) {
	// 检查用户名是否已存在
	existing, err := s.profileRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("username already exists: %w", ErrConflict)
	}

	// 检查邮箱是否已存在
	existing, err = s.profileRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email already exists: %w", ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	profile := &models.Profile{
		ID:          uuid.New(),
		Username:    req.Username,
		Email:       req.Email,
		Password:    string(hashedPassword),
		DisplayName: req.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.WithField("profile_id", profile.ID).Info("Profile registered successfully")
	return profile, nil
}

func (s *ProfileService) Login(ctx context.Context, req *LoginRequest) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
	}

	s.logger.WithField("profile_id", profile.ID).Info("Profile logged in successfully")
	return profile, nil
}

func (s *ProfileService) GetByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	return profile, nil
}

func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %q: %w", username, ErrNotFound)
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, req *UpdateProfileRequest) (*models.Profile, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		profile.DisplayName = *req.DisplayName
	}
	if req.Avatar != nil {
		profile.Avatar = *req.Avatar
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	profile.UpdatedAt = time.Now()

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.WithField("profile_id", profile.ID).Info("Profile updated successfully")
	return profile, nil
}
