// Package server parses whispden server flags and starts the game runtime.
package server

import (
	"context"
	"flag"

	app "github.com/perttula/whispden/internal/app"
	entrypoint "github.com/perttula/whispden/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Port int    `env:"WHISPDEN_PORT" envDefault:"8080"`
	Addr string `env:"WHISPDEN_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The whispden server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The whispden server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the whispden HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(context.Context) error {
		if cfg.Addr != "" {
			return app.RunWithAddr(ctx, cfg.Addr)
		}
		return app.Run(ctx, cfg.Port)
	})
}
