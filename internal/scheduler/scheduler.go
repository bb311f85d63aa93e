package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 定期実行する掃除
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (usecase.SweepResult, error)
}

type Scheduler struct {
	jobs []Job
	log  *zap.Logger
}

func New(log *zap.Logger, jobs ...Job) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{jobs: jobs, log: log}
}

// Run は ctx が終わるまで各ジョブを間隔ごとに回す。
// 前回がまだ走っていれば今回は飛ばす。
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.log.Warn("scheduler job disabled", zap.String("job", job.Name))
			continue
		}
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	t := time.NewTicker(job.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	res, err := job.Run(ctx)
	switch {
	case errors.Is(err, usecase.ErrSweepRunning):
		s.log.Info("scheduler job skipped, previous run still in progress", zap.String("job", job.Name))
	case err != nil && ctx.Err() == nil:
		s.log.Error("scheduler job failed", zap.String("job", job.Name), zap.Error(err))
	case err == nil:
		s.log.Debug("scheduler job done",
			zap.String("job", job.Name),
			zap.Int("total", res.Total),
			zap.Int("failed", res.Failed),
		)
	}
}
