package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wanctl/wanctl/pkg/audit"
	"github.com/wanctl/wanctl/pkg/baseline"
	"github.com/wanctl/wanctl/pkg/classifier"
	"github.com/wanctl/wanctl/pkg/controller"
	"github.com/wanctl/wanctl/pkg/health"
	"github.com/wanctl/wanctl/pkg/metrics"
	"github.com/wanctl/wanctl/pkg/pending"
	"github.com/wanctl/wanctl/pkg/probe"
	"github.com/wanctl/wanctl/pkg/procctl"
	"github.com/wanctl/wanctl/pkg/queuestats"
	"github.com/wanctl/wanctl/pkg/ratelimiter"
	"github.com/wanctl/wanctl/pkg/routerclient"
	"github.com/wanctl/wanctl/pkg/sdnotify"
	"github.com/wanctl/wanctl/pkg/wanconfig"
)

const maxConsecutiveCycleFailures = 3

// AutorateLoop runs the per-WAN autorate control cycle described by the
// probe -> classify -> baseline -> controller -> rate-limit -> metrics
// -> state pipeline.
type AutorateLoop struct {
	Config *wanconfig.Config
	Logger zerolog.Logger

	Router        routerclient.Client
	Prober        *probe.Prober
	TCPFallback   *probe.TCPFallback
	DownloadStats *queuestats.Reader
	UploadStats   *queuestats.Reader
	Classify      classifier.Thresholds
	Baseline      *baseline.Estimator
	Download      *controller.Direction
	Upload        *controller.Direction
	RateLimit     *ratelimiter.Limiter
	Pending       *pending.Buffer

	Metrics  *metrics.Writer
	Exporter *metrics.Exporter
	Audit    *audit.Log

	Connectivity routerclient.Connectivity

	mu                  sync.Mutex
	lastRTTMs           float64
	lastRTTAt           time.Time
	haveLastRTT         bool
	consecutiveFailures int
}

// NewAutorateLoop builds a loop for cfg, seeding controller/baseline
// state from a previously persisted State when provided.
func NewAutorateLoop(cfg *wanconfig.Config, logger zerolog.Logger, router routerclient.Client, mw *metrics.Writer, exporter *metrics.Exporter, auditLog *audit.Log, prior *State) *AutorateLoop {
	l := &AutorateLoop{
		Config: cfg,
		Logger: logger,
		Router: router,
		Prober: &probe.Prober{
			Pinger:  probe.SystemPinger{},
			Hosts:   cfg.Measurement.PingHosts,
			Timeout: time.Duration(cfg.Measurement.PingTimeoutS * float64(time.Second)),
			Policy:  probe.AggregateAverage,
		},
		TCPFallback:   probe.NewTCPFallback(cfg.Measurement.PingHosts, "443", time.Duration(cfg.Measurement.PingTimeoutS*float64(time.Second))),
		DownloadStats: queuestats.NewReader(cfg.Queues.Download),
		UploadStats:   queuestats.NewReader(cfg.Queues.Upload),
		Classify: classifier.Thresholds{
			TargetBloatMs:  cfg.Thresholds.TargetBloatMs,
			WarnBloatMs:    cfg.Thresholds.WarnBloatMs,
			HardRedBloatMs: cfg.Thresholds.HardRedBloatMs,
		},
		RateLimit: ratelimiter.New(6, 60),
		Pending:   pending.New(time.Duration(cfg.FallbackMaxAgeS * float64(time.Second))),
		Metrics:   mw,
		Exporter:  exporter,
		Audit:     auditLog,
	}

	baselineInit := cfg.BaselineRTTInitialMs
	downloadRate := cfg.Autorate.Download.CeilingMbps
	uploadRate := cfg.Autorate.Upload.CeilingMbps
	if prior != nil {
		baselineInit = prior.BaselineRTTMs
		if prior.DownloadRateBps > 0 {
			downloadRate = prior.DownloadRateBps
		}
		if prior.UploadRateBps > 0 {
			uploadRate = prior.UploadRateBps
		}
	}

	l.Baseline = baseline.New(baselineInit, cfg.BaselineRTTMinMs, cfg.BaselineRTTMaxMs, 0.05, 0.3, 2.0, 20)
	l.Download = controller.NewDirection(downloadRate, directionFloors(cfg.Autorate.Download), cfg.Autorate.Download.StepUpMbps,
		cfg.Autorate.Download.FactorDown, cfg.Autorate.Download.FactorSoftRed,
		cfg.Thresholds.RedSamplesRequired, 1, cfg.Thresholds.GreenSamplesRequired)
	l.Upload = controller.NewDirection(uploadRate, directionFloors(cfg.Autorate.Upload), cfg.Autorate.Upload.StepUpMbps,
		cfg.Autorate.Upload.FactorDown, cfg.Autorate.Upload.FactorSoftRed,
		cfg.Thresholds.RedSamplesRequired, 1, cfg.Thresholds.GreenSamplesRequired)

	return l
}

func directionFloors(d wanconfig.DirectionRates) controller.Floors {
	return controller.Floors{
		Red:     d.FloorRedMbps,
		SoftRed: d.FloorSoftRedMbps,
		Yellow:  d.FloorYellowMbps,
		Green:   d.FloorGreenMbps,
		Ceiling: d.CeilingMbps,
	}
}

// ApplyHotConfig swaps the threshold, floor, ceiling and step-size
// fields a fresh config carries without rebuilding the loop's probe,
// router client or persisted baseline/rate state. Router credentials
// and file paths are not applied here; those require a restart.
func (l *AutorateLoop) ApplyHotConfig(cfg *wanconfig.Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Classify = classifier.Thresholds{
		TargetBloatMs:  cfg.Thresholds.TargetBloatMs,
		WarnBloatMs:    cfg.Thresholds.WarnBloatMs,
		HardRedBloatMs: cfg.Thresholds.HardRedBloatMs,
	}
	l.Download.Floors = directionFloors(cfg.Autorate.Download)
	l.Download.StepUp = cfg.Autorate.Download.StepUpMbps
	l.Download.FactorDown = cfg.Autorate.Download.FactorDown
	l.Download.FactorSoftRed = cfg.Autorate.Download.FactorSoftRed
	l.Upload.Floors = directionFloors(cfg.Autorate.Upload)
	l.Upload.StepUp = cfg.Autorate.Upload.StepUpMbps
	l.Upload.FactorDown = cfg.Autorate.Upload.FactorDown
	l.Upload.FactorSoftRed = cfg.Autorate.Upload.FactorSoftRed
	l.Config = cfg

	l.Logger.Info().Msg("config hot-reloaded")
	l.writeConfigSnapshot()
}

func (l *AutorateLoop) writeConfigSnapshot() {
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

// RunOnce executes exactly one control cycle.
func (l *AutorateLoop) RunOnce(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	rtt, source, ok := l.measureRTT(ctx, now)
	if !ok {
		l.consecutiveFailures++
		l.Logger.Warn().Msg("cycle invalid: no RTT sample within fallback window")
		return fmt.Errorf("control: no valid RTT sample")
	}

	downloadDelta := l.readQueueDelta(ctx, l.DownloadStats, l.Config.Queues.Download)
	_ = l.readQueueDelta(ctx, l.UploadStats, l.Config.Queues.Upload)

	baselineResult := l.Baseline.Observe(rtt, downloadDelta.Dropped, downloadDelta.QueuedPackets)
	deltaMs := rtt - l.Baseline.BaselineMs()
	rawZone := l.Classify.Classify(deltaMs)

	newDL, dlZone, dlChanged := l.Download.Apply(rawZone)
	newUL, ulZone, ulChanged := l.Upload.Apply(rawZone)
	changed := dlChanged || ulChanged

	l.flushPending(ctx)
	if changed {
		l.applyRateDecision(ctx, newDL, newUL)
	}

	worstZone := dlZone
	if ulZone > worstZone {
		worstZone = ulZone
	}

	l.writeCycleMetrics(ctx, now, rtt, deltaMs, worstZone)

	state := &State{
		BaselineRTTMs:   l.Baseline.BaselineMs(),
		LoadRTTMs:       l.Baseline.LoadRTTMs(),
		DownloadRateBps: l.Download.CurrentRate,
		UploadRateBps:   l.Upload.CurrentRate,
		Zone:            worstZone,
		LastCycleTS:     now.Unix(),
	}
	if err := SaveState(l.Config.StateFile, state); err != nil {
		l.Logger.Warn().Err(err).Msg("failed to persist state file")
	}

	l.consecutiveFailures = 0
	sdnotify.Watchdog()

	l.Logger.Debug().
		Str("rtt_source", source).
		Float64("rtt_ms", rtt).
		Float64("delta_ms", deltaMs).
		Bool("baseline_idle", baselineResult.Idle).
		Str("zone", worstZone.String()).
		Float64("download_mbps", l.Download.CurrentRate).
		Float64("upload_mbps", l.Upload.CurrentRate).
		Msg("cycle complete")

	return nil
}

func (l *AutorateLoop) measureRTT(ctx context.Context, now time.Time) (float64, string, bool) {
	if sample, ok := l.Prober.Run(ctx); ok {
		l.lastRTTMs, l.lastRTTAt, l.haveLastRTT = sample.RTTMs, now, true
		return sample.RTTMs, sample.Source, true
	}
	if sample, ok := l.TCPFallback.Run(ctx); ok {
		l.lastRTTMs, l.lastRTTAt, l.haveLastRTT = sample.RTTMs, now, true
		return sample.RTTMs, sample.Source, true
	}
	if l.haveLastRTT && now.Sub(l.lastRTTAt).Seconds() <= l.Config.FallbackMaxAgeS {
		return l.lastRTTMs, "cache", true
	}
	return 0, "", false
}

func (l *AutorateLoop) readQueueDelta(ctx context.Context, reader *queuestats.Reader, queueName string) queuestats.Delta {
	stats, err := l.Router.GetQueueStats(ctx, queueName)
	if err != nil {
		l.recordRouterFailure("get_queue_stats", queueName, err)
		return queuestats.Delta{}
	}
	l.Connectivity.Record(nil)
	delta, _ := reader.Observe(queuestats.Cumulative{
		Packets:       stats.Packets,
		Bytes:         stats.Bytes,
		Dropped:       stats.Dropped,
		QueuedPackets: stats.QueuedPackets,
		QueuedBytes:   stats.QueuedBytes,
	})
	return delta
}

func (l *AutorateLoop) flushPending(ctx context.Context) {
	if l.Pending.Empty() {
		return
	}
	r, ok := l.Pending.Take()
	if !ok {
		l.Logger.Warn().Msg("dropped stale pending rate")
		return
	}
	if err := l.writeRates(ctx, r.DownloadBps, r.UploadBps); err != nil {
		l.Pending.Queue(r.DownloadBps, r.UploadBps)
	}
}

func (l *AutorateLoop) applyRateDecision(ctx context.Context, dl, ul float64) {
	if !l.RateLimit.CanChange() {
		l.Pending.Queue(dl, ul)
		l.Logger.Warn().Msg("rate change suppressed by rate limiter, queued pending")
		return
	}
	if err := l.writeRates(ctx, dl, ul); err != nil {
		l.Pending.Queue(dl, ul)
		return
	}
	l.RateLimit.RecordChange()
	l.Pending.Clear()
}

func (l *AutorateLoop) writeRates(ctx context.Context, dl, ul float64) error {
	dlErr := l.setMaxLimit(ctx, l.Config.Queues.Download, dl)
	ulErr := l.setMaxLimit(ctx, l.Config.Queues.Upload, ul)
	if dlErr != nil {
		return dlErr
	}
	return ulErr
}

func (l *AutorateLoop) setMaxLimit(ctx context.Context, queueName string, mbps float64) error {
	bps := uint64(mbps * 1_000_000)
	err := l.Router.SetMaxLimit(ctx, queueName, bps)
	if l.Audit != nil {
		l.Audit.RouterWrite("set_max_limit", queueName, err)
	}
	if err != nil {
		l.recordRouterFailure("set_max_limit", queueName, err)
	} else {
		l.Connectivity.Record(nil)
	}
	return err
}

func (l *AutorateLoop) recordRouterFailure(command, target string, err error) {
	l.Connectivity.Record(err)
	l.Logger.Warn().Err(err).Str("command", command).Str("target", target).
		Str("failure_kind", string(l.Connectivity.LastFailureKind)).
		Msg("router command failed")
}

func (l *AutorateLoop) writeCycleMetrics(ctx context.Context, ts time.Time, rtt, deltaMs float64, zone classifier.Zone) {
	samples := []metrics.Sample{
		{Metric: metrics.MetricRTTMs, WAN: l.Config.WANName, Value: rtt},
		{Metric: metrics.MetricRTTBaselineMs, WAN: l.Config.WANName, Value: l.Baseline.BaselineMs()},
		{Metric: metrics.MetricRTTDeltaMs, WAN: l.Config.WANName, Value: deltaMs},
		{Metric: metrics.MetricRateDownloadMbps, WAN: l.Config.WANName, Value: l.Download.CurrentRate},
		{Metric: metrics.MetricRateUploadMbps, WAN: l.Config.WANName, Value: l.Upload.CurrentRate},
		{Metric: metrics.MetricState, WAN: l.Config.WANName, Value: zone.MetricValue()},
	}
	if l.Exporter != nil {
		l.Exporter.ObserveBatch(samples)
	}
	if l.Metrics != nil {
		if err := l.Metrics.WriteBatch(ctx, ts, samples); err != nil {
			l.Logger.Warn().Err(err).Msg("failed to write metrics batch")
		}
	}
}

// HealthSnapshot implements health.Provider.
func (l *AutorateLoop) HealthSnapshot() health.Snapshot {
	status := "healthy"
	if l.consecutiveFailures >= maxConsecutiveCycleFailures {
		status = "degraded"
	}
	return health.Snapshot{
		Status:              status,
		ConsecutiveFailures: l.consecutiveFailures,
		WANCount:            1,
		WANs: []health.WANStatus{{
			Name:          l.Config.WANName,
			BaselineRTTMs: l.Baseline.BaselineMs(),
			LoadRTTMs:     l.Baseline.LoadRTTMs(),
			Download: health.DirectionStatus{
				CurrentRateMbps: l.Download.CurrentRate,
			},
			Upload: health.DirectionStatus{
				CurrentRateMbps: l.Upload.CurrentRate,
			},
		}},
	}
}

// Run drives the daemon loop at the configured cycle interval until ctl
// signals shutdown.
func (l *AutorateLoop) Run(ctx context.Context, ctl *procctl.Controller) error {
	interval := time.Duration(l.Config.Measurement.CycleIntervalS * float64(time.Second))
	sdnotify.Ready()
	defer sdnotify.Stopping()

	for {
		if ctl.Stopped() {
			return nil
		}
		if err := l.RunOnce(ctx); err != nil {
			l.Logger.Warn().Err(err).Msg("cycle failed")
			if l.consecutiveFailures >= maxConsecutiveCycleFailures {
				sdnotify.Degraded(l.consecutiveFailures)
			}
		}

		if !ctl.Sleep(afterDuration(interval)) {
			return nil
		}
	}
}

// afterDuration adapts time.After into the struct{} channel shape
// procctl.Controller.Sleep selects on.
func afterDuration(d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		<-time.After(d)
		close(ch)
	}()
	return ch
}
