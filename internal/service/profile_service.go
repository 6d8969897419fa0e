package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/pronia/internal/cache"
	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
)

// ProfilePatch 资料局部更新，nil 字段不修改
type ProfilePatch struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Bio         *string `json:"bio" binding:"omitempty,max=2000"`
	Instrument  *string `json:"instrument" binding:"omitempty,max=64"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,url,max=512"`
}

func (p ProfilePatch) fields() map[string]interface{} {
	m := map[string]interface{}{}
	if p.DisplayName != nil {
		m["display_name"] = strings.TrimSpace(*p.DisplayName)
	}
	if p.Bio != nil {
		m["bio"] = *p.Bio
	}
	if p.Instrument != nil {
		m["instrument"] = strings.TrimSpace(*p.Instrument)
	}
	if p.AvatarURL != nil {
		m["avatar_url"] = *p.AvatarURL
	}
	return m
}

type ProfileService interface {
	Get(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, id string, patch ProfilePatch) (*model.User, error)
	Search(ctx context.Context, prefix string, limit int) ([]*model.User, error)
}

type profileService struct {
	users repository.UserRepository
	cache *cache.Store
}

func NewProfileService(users repository.UserRepository, store *cache.Store) ProfileService {
	return &profileService{users: users, cache: store}
}

// Get 先读 Redis 镜像，未命中回源并回填
func (s *profileService) Get(ctx context.Context, id string) (*model.User, error) {
	if u, ok := s.cache.GetProfile(ctx, id); ok {
		return u, nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetProfile(ctx, u)
	return u, nil
}

func (s *profileService) Update(ctx context.Context, id string, patch ProfilePatch) (*model.User, error) {
	if fields := patch.fields(); len(fields) > 0 {
		if err := s.users.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.cache.InvalidateProfiles(ctx, id)
	}
	return s.Get(ctx, id)
}

func (s *profileService) Search(ctx context.Context, prefix string, limit int) ([]*model.User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []*model.User{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.users.Search(ctx, prefix, limit)
}
