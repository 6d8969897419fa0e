package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/pkg/logger"
)

type counterColumn int

const (
	columnFollowers counterColumn = iota + 1
	columnFollowing
)

type counterJob struct {
	column counterColumn
	userID string
	delta  int64
	enqAt  time.Time
}

// CounterReplicator 关注计数的本地异步写入器。
// followers_count 与 following_count 分两条独立写入，彼此之间、与 follows 表之间都没有事务，
// 并发关注/取关或队列丢弃都会造成漂移，由 ReconcileCounts 修复。
type CounterReplicator struct {
	users     repository.UserRepository
	ch        chan counterJob
	metricsCh chan time.Duration
	onApplied func(ctx context.Context, userID string)
	pending   sync.WaitGroup // 已入队未落地的任务
}

func NewCounterReplicator(users repository.UserRepository, queueSize int) *CounterReplicator {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &CounterReplicator{users: users, ch: make(chan counterJob, queueSize), metricsCh: make(chan time.Duration, 65536)}
}

// OnApplied 每条计数落地后回调（用于失效资料缓存）
func (r *CounterReplicator) OnApplied(fn func(ctx context.Context, userID string)) { r.onApplied = fn }

// Start 启动 workers 个消费者；返回的停止函数会先等待队列排空（最多到 ctx 截止），再停止消费者。
func (r *CounterReplicator) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-r.ch:
					r.apply(job)
					r.pending.Done()
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		drained := make(chan struct{})
		go func() {
			r.pending.Wait()
			close(drained)
		}()
		var err error
		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
		}
		close(stopCh)
		wg.Wait()
		return err
	}
}

func (r *CounterReplicator) apply(job counterJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	switch job.column {
	case columnFollowers:
		err = r.users.IncrFollowers(ctx, job.userID, job.delta)
	case columnFollowing:
		err = r.users.IncrFollowing(ctx, job.userID, job.delta)
	}
	if err != nil {
		logger.Warn("counter replication failed", zap.String("user", job.userID), zap.Int64("delta", job.delta), zap.Error(err))
		return
	}
	if r.onApplied != nil {
		r.onApplied(ctx, job.userID)
	}
	if !job.enqAt.IsZero() {
		select {
		case r.metricsCh <- time.Since(job.enqAt):
		default:
		}
	}
}

func (r *CounterReplicator) EnqueueFollowers(userID string, delta int64) {
	r.enqueue(counterJob{column: columnFollowers, userID: userID, delta: delta, enqAt: time.Now()})
}

func (r *CounterReplicator) EnqueueFollowing(userID string, delta int64) {
	r.enqueue(counterJob{column: columnFollowing, userID: userID, delta: delta, enqAt: time.Now()})
}

func (r *CounterReplicator) enqueue(job counterJob) {
	r.pending.Add(1)
	select {
	case r.ch <- job:
	default:
		r.pending.Done()
		logger.Warn("counter queue full, drop", zap.String("user", job.userID), zap.Int64("delta", job.delta))
	}
}

// Metrics 返回计数落地耗时的只读通道（每处理一条发送一次 duration）。
func (r *CounterReplicator) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (r *CounterReplicator) QueueLen() int { return len(r.ch) }
