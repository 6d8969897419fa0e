package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/pronia/internal/model"
)

// Store caches profile mirrors and follower id indexes in Redis.
// A nil *Store is valid and caches nothing.
type Store struct {
	client *redis.Client
	ttl    time.Duration

	hits       atomic.Int64
	misses     atomic.Int64
	indexLoads atomic.Int64
}

// Counters summarises cache effectiveness since the last reset.
type Counters struct {
	Hits       int64
	Misses     int64
	IndexLoads int64
}

func New(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

func profileKey(id string) string       { return fmt.Sprintf("profile:%s", id) }
func followerIndexKey(id string) string { return fmt.Sprintf("followers:index:%s", id) }

// GetProfile returns the cached mirror of a profile.
func (s *Store) GetProfile(ctx context.Context, id string) (*model.User, bool) {
	if s == nil {
		return nil, false
	}
	data, err := s.client.Get(ctx, profileKey(id)).Bytes()
	if err != nil {
		s.misses.Add(1)
		return nil, false
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return &u, true
}

func (s *Store) SetProfile(ctx context.Context, u *model.User) {
	if s == nil || u == nil {
		return
	}
	if payload, err := json.Marshal(u); err == nil {
		_ = s.client.Set(ctx, profileKey(u.ID), payload, s.ttl).Err()
	}
}

func (s *Store) InvalidateProfiles(ctx context.Context, ids ...string) {
	if s == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}
	_ = s.client.Del(ctx, keys...).Err()
}

// FollowerPage serves one page of follower ids from the Redis list index,
// loading and caching the whole index through load on a miss.
func (s *Store) FollowerPage(ctx context.Context, userID string, page, size int, load func(context.Context) ([]string, error)) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if s == nil {
		all, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return window(all, start, size), nil
	}

	key := followerIndexKey(userID)
	if exists, _ := s.client.Exists(ctx, key).Result(); exists > 0 {
		ids, err := s.client.LRange(ctx, key, int64(start), int64(start+size-1)).Result()
		if err == nil {
			s.hits.Add(1)
			return ids, nil
		}
	}
	s.misses.Add(1)

	all, err := load(ctx)
	if err != nil {
		return nil, err
	}
	s.indexLoads.Add(1)
	if len(all) > 0 {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, interfaceSlice(all)...)
		pipe.Expire(ctx, key, s.ttl)
		_, _ = pipe.Exec(ctx)
	}
	return window(all, start, size), nil
}

func (s *Store) InvalidateFollowers(ctx context.Context, userID string) {
	if s == nil {
		return
	}
	_ = s.client.Del(ctx, followerIndexKey(userID)).Err()
}

func (s *Store) ResetCounters() {
	if s == nil {
		return
	}
	s.hits.Store(0)
	s.misses.Store(0)
	s.indexLoads.Store(0)
}

func (s *Store) Counters() Counters {
	if s == nil {
		return Counters{}
	}
	return Counters{Hits: s.hits.Load(), Misses: s.misses.Load(), IndexLoads: s.indexLoads.Load()}
}

func window(ids []string, start, size int) []string {
	if start >= len(ids) {
		return []string{}
	}
	end := min(start+size, len(ids))
	return ids[start:end]
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
