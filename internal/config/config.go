package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	TokenSecret string        `env:"TOKEN_AUTH_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// How often the background sweeper expires overdue invitations.
	InvitationSweepInterval time.Duration `env:"INVITATION_SWEEP_INTERVAL" envDefault:"1h"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}
