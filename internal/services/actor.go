package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
)

type actorKey struct{}

// WithActor 把已认证的资料ID注入上下文（认证中间件调用）
func WithActor(ctx context.Context, profileID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, profileID)
}

// ActorID 取出上下文中的资料ID；未认证时ok为false
func ActorID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}

// ActorResolver 把调用身份解析成Profile
type ActorResolver struct {
	profileRepo *repository.ProfileRepository
}

func NewActorResolver(profileRepo *repository.ProfileRepository) *ActorResolver {
	return &ActorResolver{profileRepo: profileRepo}
}

func (r *ActorResolver) CurrentProfile(ctx context.Context) (*models.Profile, error) {
	id, ok := ActorID(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated actor: %w", ErrUnauthorized)
	}

	profile, err := r.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("actor profile not found: %w", ErrUnauthorized)
	}
	return profile, nil
}

// CurrentProfileIfAny 与CurrentProfile相同，但未认证时返回nil而不报错，
// 给只读路径做可选的观察者标注
func (r *ActorResolver) CurrentProfileIfAny(ctx context.Context) (*models.Profile, error) {
	if _, ok := ActorID(ctx); !ok {
		return nil, nil
	}
	return r.CurrentProfile(ctx)
}
