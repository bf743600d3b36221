package lib

import (
	"context"

	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib/feed"
	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/asitisdev/noticewatch/lib/store"
	"github.com/asitisdev/noticewatch/lib/syncer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *store.Store
	feed   *feed.Client
	syncer *syncer.Syncer
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store, fd *feed.Client, sy *syncer.Syncer) *Service {
	return &Service{cfg, log, st, fd, sy}
}

// CreateSubscription registers an endpoint with the feed's current newest id
// as its initial watermark, so a new subscriber only receives notices
// published after registration, never the backlog. An empty feed registers
// with watermark 0.
func (svc *Service) CreateSubscription(ctx context.Context, endpoint string, filter models.Filter) (*models.Subscription, error) {
	notices, err := svc.feed.Fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		Endpoint:   endpoint,
		Category:   filter.Category,
		Department: filter.Department,
		Search:     filter.Search,
		Watermark:  notices.LatestID(),
	}
	if err := svc.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	svc.log.Sugar().Infof("Registered webhook %s at watermark %d", endpoint, sub.Watermark)
	return sub, nil
}

func (svc *Service) GetSubscription(ctx context.Context, endpoint string) (*models.Subscription, error) {
	return svc.store.Get(ctx, endpoint)
}

func (svc *Service) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := svc.store.Delete(ctx, endpoint); err != nil {
		return err
	}
	svc.log.Sugar().Infof("Deleted webhook %s", endpoint)
	return nil
}

// RefreshSubscription runs one on-demand sync for the endpoint.
func (svc *Service) RefreshSubscription(ctx context.Context, endpoint string) (*syncer.Report, error) {
	sub, err := svc.store.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return svc.syncer.Sync(ctx, sub)
}
