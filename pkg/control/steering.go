package control

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wanctl/wanctl/pkg/audit"
	"github.com/wanctl/wanctl/pkg/classifier"
	"github.com/wanctl/wanctl/pkg/health"
	"github.com/wanctl/wanctl/pkg/metrics"
	"github.com/wanctl/wanctl/pkg/probe"
	"github.com/wanctl/wanctl/pkg/procctl"
	"github.com/wanctl/wanctl/pkg/queuestats"
	"github.com/wanctl/wanctl/pkg/routerclient"
	"github.com/wanctl/wanctl/pkg/sdnotify"
	"github.com/wanctl/wanctl/pkg/steering"
	"github.com/wanctl/wanctl/pkg/wanconfig"
)

// SteeringLoop runs the confidence-score/timer/FSM cycle that toggles a
// secondary-WAN mangle rule when the primary sustains congestion.
type SteeringLoop struct {
	Config *wanconfig.SteeringConfig
	Logger zerolog.Logger

	Router      routerclient.Client
	Prober      *probe.Prober
	TCPFallback *probe.TCPFallback
	QueueStats  *queuestats.Reader
	Thresholds  classifier.SteeringThresholds
	Weights     steering.ScoreWeights
	FSM         *steering.FSM

	Metrics  *metrics.Writer
	Exporter *metrics.Exporter
	Audit    *audit.Log

	mu                    sync.Mutex
	sustainedYellowStreak int
	consecutiveFailures   int
}

// NewSteeringLoop builds a SteeringLoop from a steering config,
// resuming the FSM at PRIMARY_GOOD (fresh process state; the FSM is not
// persisted, only steering_enabled is reflected via the enable/disable
// rule calls themselves and the wanctl_steering_enabled metric).
func NewSteeringLoop(cfg *wanconfig.SteeringConfig, logger zerolog.Logger, router routerclient.Client, mw *metrics.Writer, exporter *metrics.Exporter, auditLog *audit.Log) *SteeringLoop {
	fsm := &steering.FSM{
		State:             steering.PrimaryGood,
		SteerThreshold:    cfg.SteerThreshold,
		RecoveryThreshold: cfg.RecoveryThreshold,
		RuleComment:       cfg.SecondaryRuleComment,
		DryRun:            cfg.DryRun,
		DegradeTimer:      steering.NewTimer(cfg.Timers.DegradeDurationS),
		HoldDownTimer:     steering.NewTimer(cfg.Timers.HoldDownDurationS),
		RecoveryTimer:     steering.NewTimer(cfg.Timers.RecoveryDurationS),
		Flap:              steering.NewFlapDetector(cfg.Flap.WindowMinutes, cfg.Flap.MaxToggles, cfg.Flap.PenaltyThresholdAdd, cfg.Flap.PenaltyDurationS),
		Toggler:           router,
	}

	l := &SteeringLoop{
		Config: cfg,
		Logger: logger,
		Router: router,
		Prober: &probe.Prober{
			Pinger:  probe.SystemPinger{},
			Hosts:   cfg.Measurement.PingHosts,
			Timeout: time.Duration(cfg.Measurement.PingTimeoutS * float64(time.Second)),
			Policy:  probe.AggregateAverage,
		},
		TCPFallback: probe.NewTCPFallback(cfg.Measurement.PingHosts, "443", time.Duration(cfg.Measurement.PingTimeoutS*float64(time.Second))),
		QueueStats:  queuestats.NewReader(cfg.QueueName),
		Thresholds: classifier.SteeringThresholds{
			GreenRTTMs:     cfg.Thresholds.TargetBloatMs,
			YellowRTTMs:    cfg.Thresholds.WarnBloatMs,
			RedRTTMs:       cfg.Thresholds.HardRedBloatMs,
			MinDropsRed:    1,
			MinQueueRed:    1,
			MinQueueYellow: 1,
		},
		Weights:  steering.DefaultScoreWeights(),
		FSM:      fsm,
		Metrics:  mw,
		Exporter: exporter,
		Audit:    auditLog,
	}

	fsm.OnTransition = func(from, to steering.State) {
		if l.Audit != nil {
			l.Audit.SteeringTransition(string(from), string(to), cfg.DryRun)
		}
		l.Logger.Info().Str("from", string(from)).Str("to", string(to)).Bool("dry_run", cfg.DryRun).Msg("steering transition")

		now := time.Now()
		sample := metrics.Sample{
			Metric: metrics.MetricSteeringTransition,
			WAN:    cfg.WANName,
			Value:  float64(now.Unix()),
			Labels: map[string]interface{}{"from": string(from), "to": string(to)},
		}
		if l.Exporter != nil {
			l.Exporter.Observe(sample)
		}
		if l.Metrics != nil {
			if err := l.Metrics.WriteBatch(context.Background(), now, []metrics.Sample{sample}); err != nil {
				l.Logger.Warn().Err(err).Msg("failed to write steering transition metric")
			}
		}
	}

	return l
}

// measureRTT returns the current load RTT. When AutorateStateFile is
// set, steering is colocated with an autorate daemon on the same WAN
// and reads its persisted load RTT read-only instead of running its own
// probe; a missing or unreadable state file falls back to probing.
func (l *SteeringLoop) measureRTT(ctx context.Context) (float64, bool) {
	if l.Config.AutorateStateFile != "" {
		state, err := LoadState(l.Config.AutorateStateFile)
		if err != nil {
			l.Logger.Warn().Err(err).Msg("failed to read colocated autorate state, falling back to own probe")
		} else if state != nil {
			return state.LoadRTTMs, true
		}
	}

	sample, ok := l.Prober.Run(ctx)
	if !ok {
		sample, ok = l.TCPFallback.Run(ctx)
	}
	if !ok {
		return 0, false
	}
	return sample.RTTMs, true
}

// ApplyHotConfig swaps the threshold and FSM entry/exit score fields a
// fresh config carries. The secondary rule comment, router credentials
// and file paths are not applied here; those require a restart.
func (l *SteeringLoop) ApplyHotConfig(cfg *wanconfig.SteeringConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Thresholds = classifier.SteeringThresholds{
		GreenRTTMs:     cfg.Thresholds.TargetBloatMs,
		YellowRTTMs:    cfg.Thresholds.WarnBloatMs,
		RedRTTMs:       cfg.Thresholds.HardRedBloatMs,
		MinDropsRed:    1,
		MinQueueRed:    1,
		MinQueueYellow: 1,
	}
	l.FSM.SteerThreshold = cfg.SteerThreshold
	l.FSM.RecoveryThreshold = cfg.RecoveryThreshold
	l.Config = cfg

	l.Logger.Info().Msg("config hot-reloaded")
	l.writeConfigSnapshot()
}

func (l *SteeringLoop) writeConfigSnapshot() {
	sample := metrics.Sample{Metric: metrics.MetricConfigSnapshot, WAN: l.Config.WANName, Value: float64(time.Now().Unix())}
	if l.Exporter != nil {
		l.Exporter.Observe(sample)
	}
	if l.Metrics != nil {
		if err := l.Metrics.WriteBatch(context.Background(), time.Now(), []metrics.Sample{sample}); err != nil {
			l.Logger.Warn().Err(err).Msg("failed to write config snapshot metric")
		}
	}
}

// RunOnce executes one steering cycle: probe, classify, score, tick
// timers and the FSM, and write metrics.
func (l *SteeringLoop) RunOnce(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	rttMs, ok := l.measureRTT(ctx)
	if !ok {
		l.consecutiveFailures++
		l.Logger.Warn().Msg("steering cycle invalid: RTT measurement failed")
		return nil
	}

	stats, err := l.Router.GetQueueStats(ctx, l.Config.QueueName)
	var delta queuestats.Delta
	if err != nil {
		l.Logger.Warn().Err(err).Msg("steering queue stats read failed")
	} else {
		delta, _ = l.QueueStats.Observe(queuestats.Cumulative{
			Packets:       stats.Packets,
			Bytes:         stats.Bytes,
			Dropped:       stats.Dropped,
			QueuedPackets: stats.QueuedPackets,
			QueuedBytes:   stats.QueuedBytes,
		})
	}

	zone := l.Thresholds.ClassifySteering(rttMs, delta)
	if zone == classifier.YELLOW {
		l.sustainedYellowStreak++
	} else {
		l.sustainedYellowStreak = 0
	}
	sustained := classifier.GREEN
	if l.sustainedYellowStreak >= l.Config.Thresholds.GreenSamplesRequired {
		sustained = classifier.YELLOW
	}

	score, contributors := steering.Score(steering.Signals{
		Zone:          zone,
		SustainedZone: sustained,
		DropCount:     delta.Dropped,
		QueueDepth:    delta.QueuedPackets,
	}, l.Weights)

	cakeClean := zone == classifier.GREEN && delta.Dropped == 0

	if tickErr := l.FSM.Tick(ctx, l.Config.Measurement.CycleIntervalS, score, cakeClean); tickErr != nil {
		l.Logger.Warn().Err(tickErr).Msg("steering rule toggle failed")
	}

	l.writeCycleMetrics(ctx, now, rttMs, score, contributors)
	l.consecutiveFailures = 0
	sdnotify.Watchdog()
	return nil
}

func (l *SteeringLoop) writeCycleMetrics(ctx context.Context, ts time.Time, rttMs float64, score int, contributors []steering.Contributor) {
	enabled := 0.0
	if l.FSM.State == steering.PrimaryDegraded {
		enabled = 1.0
	}

	labels := map[string]interface{}{"score": score}
	if len(contributors) > 0 {
		names := make([]string, len(contributors))
		for i, c := range contributors {
			names[i] = c.Name
		}
		labels["contributors"] = names
	}

	samples := []metrics.Sample{
		{Metric: metrics.MetricSteeringEnabled, WAN: l.Config.WANName, Value: enabled, Labels: labels},
	}
	if l.Config.AutorateStateFile == "" {
		samples = append(samples, metrics.Sample{Metric: metrics.MetricRTTMs, WAN: l.Config.WANName, Value: rttMs})
	}
	if l.Exporter != nil {
		l.Exporter.ObserveBatch(samples)
	}
	if l.Metrics != nil {
		if err := l.Metrics.WriteBatch(ctx, ts, samples); err != nil {
			l.Logger.Warn().Err(err).Msg("failed to write steering metrics batch")
		}
	}
}

// HealthSnapshot implements health.Provider.
func (l *SteeringLoop) HealthSnapshot() health.Snapshot {
	status := "healthy"
	if l.consecutiveFailures >= maxConsecutiveCycleFailures {
		status = "degraded"
	}
	return health.Snapshot{
		Status:              status,
		ConsecutiveFailures: l.consecutiveFailures,
		WANCount:            1,
		WANs: []health.WANStatus{{
			Name: l.Config.WANName,
		}},
	}
}

// Run drives the steering daemon loop until ctl signals shutdown.
func (l *SteeringLoop) Run(ctx context.Context, ctl *procctl.Controller) error {
	interval := time.Duration(l.Config.Measurement.CycleIntervalS * float64(time.Second))
	sdnotify.Ready()
	defer sdnotify.Stopping()

	for {
		if ctl.Stopped() {
			return nil
		}
		if err := l.RunOnce(ctx); err != nil {
			l.Logger.Warn().Err(err).Msg("steering cycle failed")
			if l.consecutiveFailures >= maxConsecutiveCycleFailures {
				sdnotify.Degraded(l.consecutiveFailures)
			}
		}
		if !ctl.Sleep(afterDuration(interval)) {
			return nil
		}
	}
}
