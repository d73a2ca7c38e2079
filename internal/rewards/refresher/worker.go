package refresher

import (
	"context"
	"time"

	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Refresher is the part of the rewards service the worker drives.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.Evaluation, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Service Refresher
	Config  Config `optional:"true"`
}

type Worker struct {
	log     *zap.Logger
	service Refresher
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:     p.Log.Named("rewards.refresher"),
		service: p.Service,
		cfg:     p.Config.withDefaults(),
	}
}

// Enabled reports whether the loop should run at all.
func (w *Worker) Enabled() bool {
	return w.cfg.Interval > 0
}

func (w *Worker) RunForever(ctx context.Context) {
	if !w.Enabled() {
		return
	}
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("rewards refresh run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	_, err := w.service.Refresh(ctx)
	return err
}
