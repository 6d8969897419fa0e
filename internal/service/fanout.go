package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/pkg/logger"
)

// FanoutWorker 从 outbox 拉取发布事件，写入作者本人及全部粉丝的 inbox
type FanoutWorker struct {
	db           *gorm.DB
	followRepo   repository.FollowRepository
	batchSize    int
	claimLimit   int
	pollInterval time.Duration
	workers      int
	metricsCh    chan time.Duration // outbox->processed latency
}

func NewFanoutWorker(db *gorm.DB, followRepo repository.FollowRepository, workers, batchSize, claimLimit int, pollInterval time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 2
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &FanoutWorker{db: db, followRepo: followRepo, workers: workers, batchSize: batchSize, claimLimit: claimLimit, pollInterval: pollInterval, metricsCh: make(chan time.Duration, 65536)}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动若干 worker 轮询处理 outbox；返回停止函数，等待当前批次结束。
func (w *FanoutWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(stop)
		}()
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *FanoutWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(context.Background()); err != nil {
				logger.Warn("fanout batch failed", zap.Error(err))
			}
		}
	}
}

type claimed struct {
	ID        string
	PostID    string
	AuthorID  string
	CreatedAt time.Time
}

// ProcessOnce claim 一批 pending outbox 并扇出，返回处理条数
func (w *FanoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	var batch []claimed
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.Outbox{}).
			Select("id", "post_id", "author_id", "created_at").
			Where("status = ?", model.OutboxPending).
			Order("created_at").
			Limit(w.claimLimit)
		// sqlite 不支持行锁，单写者下直接读取
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Update("status", model.OutboxProcessing).Error
	})
	if err != nil {
		return 0, err
	}

	for _, b := range batch {
		written := w.fanout(ctx, b)
		now := time.Now()
		if err := w.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{"status": model.OutboxDone, "processed_at": now, "fanout_count": written}).Error; err != nil {
			logger.Warn("mark outbox done failed", zap.String("outbox", b.ID), zap.Error(err))
		}
		if !b.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(b.CreatedAt):
			default:
			}
		}
	}
	return len(batch), nil
}

// fanout 作者本人 + 分页拉取粉丝写 inbox，重复项忽略
func (w *FanoutWorker) fanout(ctx context.Context, b claimed) int64 {
	score := b.CreatedAt.UnixNano()
	written := w.writeInbox(ctx, b.PostID, score, []string{b.AuthorID})
	offset := 0
	for {
		fans, err := w.followRepo.ListFollowers(ctx, b.AuthorID, offset, w.batchSize)
		if err != nil {
			logger.Warn("list followers for fanout failed", zap.String("author", b.AuthorID), zap.Error(err))
			break
		}
		if len(fans) == 0 {
			break
		}
		ids := make([]string, len(fans))
		for i, f := range fans {
			ids[i] = f.FollowerID
		}
		written += w.writeInbox(ctx, b.PostID, score, ids)
		if len(fans) < w.batchSize {
			break
		}
		offset += w.batchSize
	}
	return written
}

func (w *FanoutWorker) writeInbox(ctx context.Context, postID string, score int64, userIDs []string) int64 {
	now := time.Now()
	records := make([]model.Inbox, len(userIDs))
	for i, uid := range userIDs {
		records[i] = model.Inbox{ID: uuid.New().String(), UserID: uid, PostID: postID, Score: score, CreatedAt: now}
	}
	res := w.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
	if res.Error != nil {
		logger.Warn("write inbox failed", zap.String("post", postID), zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}
