package main

import (
	"net/http"
	"os"
	"time"

	"github.com/asitisdev/noticewatch/app"
	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib"
	"github.com/asitisdev/noticewatch/lib/feed"
	"github.com/asitisdev/noticewatch/lib/store"
	"github.com/asitisdev/noticewatch/lib/syncer"
	"github.com/asitisdev/noticewatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),

		fx.Provide(store.NewStore),
		fx.Provide(feed.NewClient),
		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(syncer.NewSyncer),
		fx.Provide(lib.NewService),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server) {}),
		fx.Invoke(func(*syncer.Syncer) {}),
	).Run()
}
