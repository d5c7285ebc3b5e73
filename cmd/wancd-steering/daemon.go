package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wanctl/wanctl/pkg/audit"
	"github.com/wanctl/wanctl/pkg/control"
	"github.com/wanctl/wanctl/pkg/health"
	"github.com/wanctl/wanctl/pkg/lockfile"
	"github.com/wanctl/wanctl/pkg/logging"
	"github.com/wanctl/wanctl/pkg/metrics"
	"github.com/wanctl/wanctl/pkg/procctl"
	"github.com/wanctl/wanctl/pkg/routerclient"
	"github.com/wanctl/wanctl/pkg/wanconfig"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Args:  cobra.NoArgs,
	Short: "Run the steering loop until signalled to stop (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var oneshotCmd = &cobra.Command{
	Use:   "oneshot",
	Args:  cobra.NoArgs,
	Short: "Run exactly one scoring/FSM cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneshot()
	},
}

type rig struct {
	log    zerolog.Logger
	cfg    *wanconfig.SteeringConfig
	lock   *lockfile.Lock
	mw     *metrics.Writer
	router routerclient.Client
	loop   *control.SteeringLoop
	health *health.Server
}

func setUp() (*rig, error) {
	bootLog := logging.New(logging.Config{Level: logging.LevelInfo, Format: logging.FormatText})
	cfg, err := loadConfig(bootLog)
	if err != nil {
		return nil, fail(exitConfigError, err)
	}

	log := buildLogger(cfg)
	log = logging.WAN(log, cfg.WANName)

	lock, err := lockfile.Acquire(cfg.LockFile, time.Duration(cfg.LockTimeoutS*float64(time.Second)))
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			return nil, fail(exitLockHeld, err)
		}
		return nil, fail(exitConfigError, err)
	}

	mw, err := metrics.Open(cfg.MetricsDB, logging.Component(log, "metrics"))
	if err != nil {
		lock.Release()
		return nil, fail(exitConfigError, fmt.Errorf("opening metrics store: %w", err))
	}

	now := time.Now()
	if err := mw.ApplyRetention(context.Background(), now, cfg.RetentionDays); err != nil {
		log.Warn().Err(err).Msg("metrics retention cleanup failed")
	}
	if err := mw.DownsampleAll(context.Background(), now); err != nil {
		log.Warn().Err(err).Msg("metrics downsampling failed")
	}

	router, err := buildRouterClient(cfg)
	if err != nil {
		mw.Close()
		lock.Release()
		return nil, fail(exitConfigError, err)
	}

	exporter := metrics.NewExporter()
	auditLog := audit.New(logging.Component(log, "audit"), 200)

	loop := control.NewSteeringLoop(cfg, logging.Component(log, "steering"), router, mw, exporter, auditLog)

	healthSrv := health.New(cfg.HealthListen, version, loop, exporter)

	return &rig{
		log:    log,
		cfg:    cfg,
		lock:   lock,
		mw:     mw,
		router: router,
		loop:   loop,
		health: healthSrv,
	}, nil
}

func (r *rig) tearDown() {
	if err := r.router.Close(); err != nil {
		r.log.Warn().Err(err).Msg("error closing router client")
	}
	if err := r.mw.Close(); err != nil {
		r.log.Warn().Err(err).Msg("error closing metrics store")
	}
	if err := r.lock.Release(); err != nil {
		r.log.Warn().Err(err).Msg("error releasing lock")
	}
}

func runDaemon() error {
	r, err := setUp()
	if err != nil {
		return err
	}
	defer r.tearDown()

	ctx := context.Background()
	ctl := procctl.New()
	interrupted := false
	ctl.OnStop(func(reason string) {
		if reason != "explicit stop" {
			interrupted = true
		}
	})
	ctl.Start(ctx)

	go func() {
		if err := r.health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Warn().Err(err).Msg("health server stopped unexpectedly")
		}
	}()
	defer func() {
		_ = r.health.Shutdown(5 * time.Second)
	}()

	watcher, err := wanconfig.WatchFile(cfgPath, r.log, func() {
		newCfg, err := loadConfig(r.log)
		if err != nil {
			r.log.Warn().Err(err).Msg("config hot reload: new config invalid, keeping current")
			return
		}
		r.loop.ApplyHotConfig(newCfg)
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to start config watcher, hot reload disabled")
	} else {
		defer watcher.Close()
	}

	r.log.Info().Str("wan", r.cfg.WANName).Msg("wancd-steering starting")
	if err := r.loop.Run(ctx, ctl); err != nil {
		return fail(exitConfigError, err)
	}
	if ctl.Stopped() {
		r.log.Info().Msg("wancd-steering stopped")
	}
	if interrupted {
		return fail(exitInterrupted, fmt.Errorf("interrupted"))
	}
	return nil
}

func runOneshot() error {
	r, err := setUp()
	if err != nil {
		return err
	}
	defer r.tearDown()

	ctx := context.Background()
	if err := r.loop.RunOnce(ctx); err != nil {
		return fail(exitConfigError, err)
	}
	return nil
}
