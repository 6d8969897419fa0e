// timelinebench 压测发布 -> outbox 扇出 -> 时间线读取的完整链路。
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/pronia/config"
	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/internal/service"
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

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	n := envInt("N", 20000)
	posts := envInt("POSTS", 100)
	workers := envInt("WORKERS", 8)
	batch := envInt("BATCH", 1000)
	claim := envInt("CLAIM", 64)

	followRepo := repository.NewFollowRepository(db)
	notify := service.NewNotificationService(repository.NewNotificationRepository(db))
	postSvc := service.NewPostService(service.NewPublisher(db), repository.NewPostRepository(db),
		repository.NewLikeRepository(db), repository.NewFeedRepository(db), notify)

	// 一个作者 + N 个粉丝
	author := model.User{ID: "author0", Username: "author0", Email: "author0@example.com", Password: "p"}
	_ = db.Where("id = ?", author.ID).FirstOrCreate(&author).Error
	users := make([]model.User, n)
	edges := make([]model.Follow, n)
	for i := range users {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com", Password: "p"}
		edges[i] = model.Follow{ID: uuid.New().String(), FollowerID: id, FolloweeID: author.ID, CreatedAt: time.Now()}
	}
	_ = db.CreateInBatches(&users, 1000).Error
	_ = db.CreateInBatches(&edges, 1000).Error

	worker := service.NewFanoutWorker(db, followRepo, workers, batch, claim, 20*time.Millisecond)
	stop := worker.Start()
	defer func() { _ = stop(context.Background()) }()

	pubLat := make([]time.Duration, 0, posts)
	for i := 0; i < posts; i++ {
		st := time.Now()
		_ = must(postSvc.Publish(ctx, author.ID, service.PostInput{Content: fmt.Sprintf("practice log #%d", i)}))
		pubLat = append(pubLat, time.Since(st))
	}

	land := make([]time.Duration, 0, posts)
	timeout := time.After(2 * time.Minute)
collect:
	for len(land) < posts {
		select {
		case d := <-worker.Metrics():
			land = append(land, d)
		case <-timeout:
			fmt.Printf("timeout while waiting for fanout metrics: got=%d want=%d\n", len(land), posts)
			break collect
		}
	}

	readLat := make([]time.Duration, 0, 100)
	for i := 0; i < min(100, n); i++ {
		st := time.Now()
		_, _ = postSvc.Feed(ctx, users[i].ID, 1, 50)
		readLat = append(readLat, time.Since(st))
	}

	fmt.Printf("N=%d POSTS=%d WORKERS=%d BATCH=%d CLAIM=%d\n", n, posts, workers, batch, claim)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n", avg(pubLat), pct(pubLat, 0.95), pct(pubLat, 0.99))
	fmt.Printf("Fanout landing (outbox->done): samples=%d avg=%v p95=%v p99=%v\n", len(land), avg(land), pct(land, 0.95), pct(land, 0.99))
	fmt.Printf("Feed read (page_size=50): avg=%v p95=%v p99=%v\n", avg(readLat), pct(readLat, 0.95), pct(readLat, 0.99))
}
