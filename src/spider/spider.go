package spider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jom-io/gorig-crawlstat/src/clean"
	"github.com/jom-io/gorig-crawlstat/src/config"
	"github.com/jom-io/gorig-crawlstat/src/host"
	"github.com/jom-io/gorig-crawlstat/src/push"
	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

var ErrMissingCallback = errors.New("spider: base and hosts callbacks are required")

// BaseFunc returns the identity stamped on each report. It must be fast and infallible.
type BaseFunc func() reqstat.StatsBase

// HostsFunc returns the hosts to probe this cycle.
type HostsFunc func() ([]string, error)

// CleanFunc removes expired files from one directory.
type CleanFunc = clean.Func

// ReportHook observes every report after it has been pushed.
type ReportHook func(ctx context.Context, r *reqstat.Report)

// Prober measures connect latency per host.
type Prober interface {
	Probe(ctx context.Context, hosts []string, port uint16, timeout time.Duration) map[string]time.Duration
}

// Spider owns everything one reporting loop needs. All fields are set by New
// and only read afterwards.
type Spider struct {
	cfg         config.RequestStatsConfig
	stats       *reqstat.Serv
	prober      Prober
	sink        push.Sink
	getBase     BaseFunc
	getHosts    HostsFunc
	clean       CleanFunc
	pingTimeout time.Duration
	hooks       []ReportHook

	latest atomic.Pointer[reqstat.Report]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Spider)

func WithStats(stats *reqstat.Serv) Option {
	return func(s *Spider) {
		s.stats = stats
	}
}

// WithSink replaces the broadcast built from cfg.Target.
func WithSink(sink push.Sink) Option {
	return func(s *Spider) {
		s.sink = sink
	}
}

func WithProber(p Prober) Option {
	return func(s *Spider) {
		s.prober = p
	}
}

func WithCleaner(fn CleanFunc) Option {
	return func(s *Spider) {
		s.clean = fn
	}
}

func WithPingTimeout(d time.Duration) Option {
	return func(s *Spider) {
		s.pingTimeout = d
	}
}

func WithReportHook(fn ReportHook) Option {
	return func(s *Spider) {
		s.hooks = append(s.hooks, fn)
	}
}

func New(cfg config.RequestStatsConfig, getBase BaseFunc, getHosts HostsFunc, opts ...Option) (*Spider, error) {
	if getBase == nil || getHosts == nil {
		return nil, ErrMissingCallback
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.HostTestPort == 0 {
		cfg.HostTestPort = config.DefaultHostTestPort
	}

	s := &Spider{
		cfg:         cfg,
		getBase:     getBase,
		getHosts:    getHosts,
		clean:       clean.OldFiles,
		pingTimeout: host.DefaultPingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = reqstat.New(reqstat.WithMetrics(reqstat.NewMetrics(nil)))
	}
	if s.prober == nil {
		s.prober = host.NewProber()
	}
	if s.sink == nil {
		sink, err := push.LoadBroadcast(cfg.Target)
		if err != nil {
			return nil, err
		}
		s.sink = sink
	}
	return s, nil
}

func (s *Spider) Stats() *reqstat.Serv {
	return s.stats
}

func (s *Spider) Config() config.RequestStatsConfig {
	return s.cfg
}

// Latest returns the last report produced, or nil before the first cycle.
func (s *Spider) Latest() *reqstat.Report {
	return s.latest.Load()
}

// Start runs the reporting loop on its own goroutine. Calling it again while
// the loop is running does nothing.
func (s *Spider) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop cancels the loop started by Start and waits for the current cycle to finish.
func (s *Spider) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops the loop and releases the push sink.
func (s *Spider) Close() error {
	s.Stop()
	return s.sink.Close()
}

// Run waits one reporting cycle, reports, and repeats until ctx is done. The
// wait starts after a cycle completes, so cycles never overlap.
func (s *Spider) Run(ctx context.Context) {
	logger.Info(ctx, "Spider stats loop started", zap.Duration("cycle", s.cfg.ReportingCycle))
	timer := time.NewTimer(s.cfg.ReportingCycle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Spider stats loop stopped")
			return
		case <-timer.C:
			s.RunCycle(ctx)
			timer.Reset(s.cfg.ReportingCycle)
		}
	}
}

// RunCycle executes one reporting cycle. Every failure is logged and the
// remaining steps still run.
func (s *Spider) RunCycle(ctx context.Context) {
	cycle := xid.New().String()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Spider stats cycle panicked", zap.String("cycle", cycle), zap.Any("panic", r))
		}
	}()

	hosts, err := s.getHosts()
	if err != nil {
		logger.Error(ctx, "Get hosts failed", zap.String("cycle", cycle), zap.Error(err))
		hosts = nil
	}

	base := s.getBase()
	s.send(ctx, cycle, base, hosts)

	if s.cfg.CleanEnabled() {
		clean.Paths(ctx, s.cfg.CleanPaths, s.cfg.CleanMaxAge, s.clean)
	}
}

// SendStats probes hosts, snapshots the counters and pushes the report now,
// outside the regular cycle.
func (s *Spider) SendStats(ctx context.Context, base reqstat.StatsBase, hosts []string) *reqstat.Report {
	return s.send(ctx, xid.New().String(), base, hosts)
}

func (s *Spider) send(ctx context.Context, cycle string, base reqstat.StatsBase, hosts []string) *reqstat.Report {
	pings := map[string]float64{}
	if len(hosts) > 0 {
		pings = host.DelaysMs(s.prober.Probe(ctx, hosts, s.cfg.HostTestPort, s.pingTimeout))
	}

	report := s.stats.SnapshotAndReset(ctx, base, pings)
	s.latest.Store(&report)

	msg, err := report.Encode()
	if err != nil {
		logger.Error(ctx, "Encode stats failed", zap.String("cycle", cycle), zap.Error(err))
		return &report
	}
	if err := s.sink.Send(msg); err != nil {
		logger.Warn(ctx, "Send stats failed", zap.String("cycle", cycle), zap.Error(err))
	}
	logger.Info(ctx, "Send stats", zap.String("cycle", cycle), zap.String("report", report.Pretty()))
	for _, hook := range s.hooks {
		hook(ctx, &report)
	}
	return &report
}
