package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib/feed"
	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/asitisdev/noticewatch/lib/store"
	"github.com/asitisdev/noticewatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Syncer owns the fetch-diff-deliver-persist cycle. One Sync call handles
// one subscription; the sweep runs Sync over every subscription on a timer.
type Syncer struct {
	log     *zap.Logger
	store   *store.Store
	feed    *feed.Client
	senders senders.Registry

	concurrency int
	interval    time.Duration
	cancel      context.CancelFunc
}

func New(cfg *config.Config, log *zap.Logger, st *store.Store, fd *feed.Client, sd senders.Registry) *Syncer {
	concurrency := 5
	return &Syncer{log, st, fd, sd, concurrency, cfg.SweepInterval(), nil}
}

func NewSyncer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store, fd *feed.Client, sd senders.Registry) *Syncer {
	s := New(cfg, log, st, fd, sd)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})

	return s
}

func (s *Syncer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Sugar().Info("Syncer stopped")
			return

		case wakeupTime := <-ticker.C:
			s.sweep(ctx, wakeupTime.UTC())
		}
	}
}

func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Report summarizes one sync of one subscription.
type Report struct {
	Endpoint  string `json:"endpoint"`
	Delivered int    `json:"delivered"`
	LatestID  int64  `json:"latest_id"`
}

// Sync fetches the subscription's slice of the board, delivers every notice
// newer than the watermark oldest-first, and advances the persisted
// watermark after each delivered notice. Dispatch is strictly sequential so
// the endpoint sees notices in publication order; a dispatch failure stops
// the sync with the watermark at the last delivered notice, leaving the
// remainder for the next sync.
func (s *Syncer) Sync(ctx context.Context, sub *models.Subscription) (*Report, error) {
	report := &Report{Endpoint: sub.Endpoint}

	notices, err := s.feed.Fetch(ctx, sub.Filter())
	if err != nil {
		return report, err
	}
	report.LatestID = notices.LatestID()

	sender := s.senders["webhook"]
	for _, notice := range notices.After(sub.Watermark) {
		if err := sender.SendNotice(ctx, sub.Endpoint, notice); err != nil {
			return report, fmt.Errorf("dispatching notice %d to %s: %w", notice.ID, sub.Endpoint, err)
		}
		if err := s.store.UpdateWatermark(ctx, sub.Endpoint, notice.ID); err != nil {
			return report, err
		}
		sub.Watermark = notice.ID
		report.Delivered++
	}

	if err := s.store.TouchLastSync(ctx, sub.Endpoint, time.Now().UTC()); err != nil {
		return report, err
	}
	return report, nil
}
