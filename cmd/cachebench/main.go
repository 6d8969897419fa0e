// cachebench 对比粉丝列表与资料读取在直接读库和 Redis 镜像两种模式下的延迟。
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/pronia/config"
	"github.com/d60-Lab/pronia/internal/cache"
	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/internal/service"
	rediscli "github.com/d60-Lab/pronia/pkg/cache"
	"github.com/d60-Lab/pronia/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	k = max(0, min(k, len(xs)-1))
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

type request struct {
	userID string
	page   int
	size   int
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	client := must(rediscli.NewRedis(ctx, cfg.Redis))
	defer client.Close()

	userCount := envInt("USERS", 20000)
	reqCount := envInt("REQS", 9000)

	// 3 个明星用户，粉丝集合两两重叠一半
	stars := []string{"star1", "star2", "star3"}
	for _, id := range stars {
		u := model.User{ID: id, Username: id, Email: id + "@example.com", Password: "p"}
		_ = db.Where("id = ?", id).FirstOrCreate(&u).Error
	}
	fans := make([]model.User, userCount)
	for i := range fans {
		id := uuid.NewString()
		fans[i] = model.User{ID: id, Username: fmt.Sprintf("fan_%s", id[:8]), Email: id[:8] + "@example.com", Password: "p"}
	}
	_ = db.CreateInBatches(&fans, 1000).Error
	half := userCount / 2
	edges := make([]model.Follow, 0, 3*half)
	base := time.Now()
	for s, star := range stars {
		for i := 0; i < half; i++ {
			fan := fans[(i+s*userCount/4)%userCount]
			edges = append(edges, model.Follow{ID: uuid.NewString(), FollowerID: fan.ID, FolloweeID: star, CreatedAt: base.Add(-time.Duration(i) * time.Second)})
		}
	}
	_ = db.CreateInBatches(&edges, 1000).Error
	fmt.Printf("seeded %d users, %d follow edges\n", userCount, len(edges))

	rng := rand.New(rand.NewSource(42))
	reqs := make([]request, reqCount)
	for i := range reqs {
		// 80% 的请求落在前 5 页
		page := 1 + rng.Intn(5)
		if rng.Float64() > 0.8 {
			page = 6 + rng.Intn(50)
		}
		reqs[i] = request{userID: stars[rng.Intn(len(stars))], page: page, size: 20}
	}

	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)

	run := func(name string, store *cache.Store) {
		_ = client.FlushDB(ctx).Err()
		store.ResetCounters()
		rel := service.NewRelationshipService(follows, users, nil, store, nil)
		profiles := service.NewProfileService(users, store)

		pageLat := make([]time.Duration, 0, len(reqs))
		profileLat := make([]time.Duration, 0, len(reqs))
		for _, r := range reqs {
			st := time.Now()
			ids := must(rel.ListFollowers(ctx, r.userID, r.page, r.size))
			pageLat = append(pageLat, time.Since(st))
			if len(ids) > 0 {
				st = time.Now()
				_, _ = profiles.Get(ctx, ids[0])
				profileLat = append(profileLat, time.Since(st))
			}
		}
		c := store.Counters()
		keys, _ := client.DBSize(ctx).Result()
		fmt.Printf("%-10s followers avg=%v p95=%v p99=%v | profile avg=%v p95=%v | hits=%d misses=%d index_loads=%d keys=%d\n",
			name, avg(pageLat), pct(pageLat, 0.95), pct(pageLat, 0.99),
			avg(profileLat), pct(profileLat, 0.95), c.Hits, c.Misses, c.IndexLoads, keys)
	}

	fmt.Printf("\n%d requests across %d stars\n", len(reqs), len(stars))
	run("no cache", nil)
	run("redis", cache.New(client, cfg.Redis.CacheTTL))
}
