package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env          string `env:"ENVIRONMENT"`
	ServerPort   int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DB_PATH" envDefault:"noticewatch.sqlite"`

	FeedBaseURL string `env:"FEED_BASE_URL" envDefault:"https://www.ajou.ac.kr/kr/ajou/notice.do"`
	AvatarURL   string `env:"AVATAR_URL" envDefault:"https://www.ajou.ac.kr/_res/ajou/kr/img/intro/img-symbol.png"`

	SweepIntervalSecs   int `env:"SWEEP_INTERVAL_SECS" envDefault:"600"`
	OutboundTimeoutSecs int `env:"OUTBOUND_TIMEOUT_SECS" envDefault:"10"`

	log *zap.Logger
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panicf("failed to parse config from environment: %v", err)
	}
	return cfg
}

func (cfg *Config) SweepInterval() time.Duration {
	return time.Duration(cfg.SweepIntervalSecs) * time.Second
}

func (cfg *Config) OutboundTimeout() time.Duration {
	return time.Duration(cfg.OutboundTimeoutSecs) * time.Second
}
