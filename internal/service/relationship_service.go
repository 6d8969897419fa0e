package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/pronia/internal/cache"
	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/pkg/logger"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	// ReconcileCounts 以 follows 表为准重算冗余计数
	ReconcileCounts(ctx context.Context, userID string) (*model.User, error)
}

type relationshipService struct {
	followRepo    repository.FollowRepository
	userRepo      repository.UserRepository
	replicator    *CounterReplicator
	cache         *cache.Store
	notifications NotificationService
}

// NewRelationshipService replicator 为 nil 时计数同步写入；cache、notifications 可为 nil
func NewRelationshipService(followRepo repository.FollowRepository, userRepo repository.UserRepository, replicator *CounterReplicator, store *cache.Store, notifications NotificationService) RelationshipService {
	return &relationshipService{followRepo: followRepo, userRepo: userRepo, replicator: replicator, cache: store, notifications: notifications}
}

// Follow 重复关注返回 repository.ErrDuplicate，计数不变
func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if _, err := s.userRepo.GetByID(ctx, toUserID); err != nil {
		return err
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.adjustCounters(ctx, fromUserID, toUserID, 1)
	s.cache.InvalidateFollowers(ctx, toUserID)
	if s.notifications != nil {
		s.notifications.Notify(ctx, toUserID, fromUserID, model.NotificationFollow, nil)
	}
	return nil
}

// Unfollow 未关注时返回 repository.ErrNotFound
func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.adjustCounters(ctx, fromUserID, toUserID, -1)
	s.cache.InvalidateFollowers(ctx, toUserID)
	return nil
}

// adjustCounters 两个计数分开写，不在同一事务
func (s *relationshipService) adjustCounters(ctx context.Context, fromUserID, toUserID string, delta int64) {
	if s.replicator != nil {
		s.replicator.EnqueueFollowers(toUserID, delta)
		s.replicator.EnqueueFollowing(fromUserID, delta)
		return
	}
	if err := s.userRepo.IncrFollowers(ctx, toUserID, delta); err != nil {
		logger.Warn("incr followers failed", zap.String("user", toUserID), zap.Error(err))
	}
	if err := s.userRepo.IncrFollowing(ctx, fromUserID, delta); err != nil {
		logger.Warn("incr following failed", zap.String("user", fromUserID), zap.Error(err))
	}
	s.cache.InvalidateProfiles(ctx, fromUserID, toUserID)
}

func (s *relationshipService) IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	return s.followRepo.Exists(ctx, fromUserID, toUserID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	page, pageSize = normalizePage(page, pageSize)
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

// ListFollowers 走 Redis 粉丝 ID 索引，未命中时整表加载
func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.cache.FollowerPage(ctx, userID, page, pageSize, func(ctx context.Context) ([]string, error) {
		return s.followRepo.FollowerIDs(ctx, userID)
	})
}

func (s *relationshipService) ReconcileCounts(ctx context.Context, userID string) (*model.User, error) {
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetCounters(ctx, userID, followers, following); err != nil {
		return nil, err
	}
	s.cache.InvalidateProfiles(ctx, userID)
	logger.Info("counters reconciled", zap.String("user", userID), zap.Int64("followers", followers), zap.Int64("following", following))
	return s.userRepo.GetByID(ctx, userID)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
