package retention

import (
	"context"
	"time"

	"github.com/channelpass/channelpass/internal/clock"
	"github.com/channelpass/channelpass/internal/config"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   config.Config
	Repo  paymentdomain.Repository
}

// Sweeper deletes terminal payments past the retention window.
type Sweeper struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     paymentdomain.Repository
	window   time.Duration
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(p Params) *Sweeper {
	return &Sweeper{
		db:       p.DB,
		log:      p.Log.Named("payment.retention"),
		clock:    p.Clock,
		repo:     p.Repo,
		window:   p.Cfg.RetentionWindow,
		interval: p.Cfg.RetentionSweep,
	}
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.window)
	removed, err := s.repo.DeleteTerminalBefore(ctx, s.db, cutoff)
	if err != nil {
		s.log.Warn("retention sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.log.Info("terminal payments removed", zap.Int64("count", removed))
	}
}

// Module runs the sweeper for the application lifetime.
var Module = fx.Module("payment.retention",
	fx.Provide(NewSweeper),
	fx.Invoke(func(lc fx.Lifecycle, sweeper *Sweeper) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				sweeper.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				sweeper.Stop()
				return nil
			},
		})
	}),
)
