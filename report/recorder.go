// Package report persists finished battles and answers queries about them.
package report

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/dungeonfighter/model"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
	queueSize            = 1024
)

// RecorderConfig tunes batching.
type RecorderConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Recorder writes battle reports asynchronously in batches.
type Recorder struct {
	db        *gorm.DB
	ch        chan *model.BattleReport
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
}

// NewRecorder creates a Recorder and starts its background worker.
func NewRecorder(db *gorm.DB, cfg RecorderConfig, logger *zap.Logger) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		db:        db,
		ch:        make(chan *model.BattleReport, queueSize),
		stopCh:    make(chan struct{}),
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
		logger:    logger,
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues a report for async DB write. It reports false when the
// queue is full and the report was dropped.
func (r *Recorder) Record(rep *model.BattleReport) bool {
	select {
	case r.ch <- rep:
		return true
	default:
		r.logger.Warn("report queue full, dropping battle",
			zap.String("battle_id", rep.ID))
		return false
	}
}

// Stop flushes remaining reports and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (r *Recorder) Stop(_ context.Context) {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]*model.BattleReport, 0, r.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.db.Create(&batch).Error; err != nil {
			r.logger.Error("report batch write failed",
				zap.Int("count", len(batch)), zap.Error(err))
		} else {
			r.logger.Debug("report batch written", zap.Int("count", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rep := <-r.ch:
			batch = append(batch, rep)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.stopCh:
			// Drain remaining entries.
			for {
				select {
				case rep := <-r.ch:
					batch = append(batch, rep)
				default:
					flush()
					return
				}
			}
		}
	}
}
