package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wanctl/wanctl/pkg/logging"
	"github.com/wanctl/wanctl/pkg/routerclient"
	"github.com/wanctl/wanctl/pkg/wanconfig"
)

func buildLogger(cfg *wanconfig.Config) zerolog.Logger {
	level := logging.Level(cfg.LogLevel)
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: logging.Format(cfg.LogFormat),
	})
}

func loadConfig(log zerolog.Logger) (*wanconfig.Config, error) {
	if cfgPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := wanconfig.Load(cfgPath, log)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRouterClient wires the primary transport (SSH by default, REST
// when router.type is "rest") behind the retry/breaker wrapper.
func buildRouterClient(cfg *wanconfig.Config) (routerclient.Client, error) {
	var inner routerclient.Client
	var err error

	switch cfg.Router.Type {
	case "rest":
		inner = routerclient.NewRESTClient(routerclient.RESTConfig{
			BaseURL:        cfg.Router.Host,
			User:           cfg.Router.User,
			CommandTimeout: 10 * time.Second,
		})
	default:
		inner, err = routerclient.DialSSH(routerclient.SSHConfig{
			Host:           cfg.Router.Host,
			User:           cfg.Router.User,
			KeyPath:        cfg.Router.SSHKey,
			ConnectTimeout: 10 * time.Second,
			CommandTimeout: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("dialing router %s: %w", cfg.Router.Host, err)
		}
	}

	return routerclient.NewBreakerClient(inner, cfg.WANName, 5, 30*time.Second), nil
}
