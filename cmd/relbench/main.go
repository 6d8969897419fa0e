// relbench 压测关注写入：接口延迟、计数异步落地延迟，以及停机丢弃后的计数漂移与修复。
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
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

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	n := envInt("N", 10000)
	conc := envInt("CONC", 8)
	queue := envInt("QUEUE", 100000)

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	replicator := service.NewCounterReplicator(userRepo, queue)
	stop := replicator.Start(cfg.Relation.Workers)
	relSvc := service.NewRelationshipService(followRepo, userRepo, replicator, nil, nil)

	// u0 是明星用户，其余用户全部关注 u0
	celeb := model.User{ID: "u0", Username: "u0", Email: "u0@example.com", Password: "p"}
	_ = db.Where("id = ?", celeb.ID).FirstOrCreate(&celeb).Error
	users := make([]model.User, n)
	for i := range users {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com", Password: "p"}
	}
	_ = db.CreateInBatches(&users, 1000).Error

	landing := make([]time.Duration, 0, n)
	doneRep := make(chan struct{})
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for {
			select {
			case d := <-replicator.Metrics():
				landing = append(landing, d)
			case <-doneRep:
				return
			}
		}
	}()

	maxQ := 0
	quitSample := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				maxQ = max(maxQ, replicator.QueueLen())
			case <-quitSample:
				return
			}
		}
	}()

	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)
	latCh := make(chan time.Duration, n)
	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < min(conc, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				_ = relSvc.Follow(ctx, users[i].ID, celeb.ID)
				latCh <- time.Since(st)
			}
		}()
	}
	wg.Wait()
	close(latCh)
	followDur := time.Since(t0)
	close(quitSample)
	<-sampled
	lat := make([]time.Duration, 0, n)
	for d := range latCh {
		lat = append(lat, d)
	}

	drainStart := time.Now()
	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	drainErr := stop(stopCtx)
	cancel()
	drainDur := time.Since(drainStart)
	close(doneRep)
	<-collected

	before := must(userRepo.GetByID(ctx, celeb.ID))
	r0 := time.Now()
	after := must(relSvc.ReconcileCounts(ctx, celeb.ID))
	reconcileDur := time.Since(r0)

	q0 := time.Now()
	_, _ = relSvc.ListFollowers(ctx, celeb.ID, 1, 50)
	followersDur := time.Since(q0)

	fmt.Printf("N=%d CONC=%d QUEUE=%d\n", n, conc, queue)
	fmt.Printf("Follow latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(max(n, 1)), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Counter landing: samples=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d, drain=%v (err=%v)\n",
		len(landing), pct(landing, 0.50), pct(landing, 0.95), pct(landing, 0.99), maxQ, drainDur, drainErr)
	fmt.Printf("Followers counter before reconcile: %d, after: %d (drift %d), reconcile took %v\n",
		before.FollowersCount, after.FollowersCount, after.FollowersCount-before.FollowersCount, reconcileDur)
	fmt.Printf("Query followers(50) latency: %v\n", followersDur)
}
