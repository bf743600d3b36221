package senders

import (
	"context"
	"net/http"

	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	SendNotice(ctx context.Context, endpoint string, notice models.Notice) error
}

type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return Registry{
		"webhook": &webhookSender{base},
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
