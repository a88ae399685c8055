package reqstat

import (
	"context"
	"sync"
	"time"

	"github.com/jom-io/gorig-crawlstat/src/host"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

// Sampler provides the system resource section of a report.
type Sampler interface {
	Sample(ctx context.Context) host.SystemResources
}

// Serv aggregates request outcomes from any number of goroutines and turns them
// into one Report per cycle. All access to the counters goes through mu.
type Serv struct {
	mu    sync.Mutex
	inner *counter

	sampler Sampler
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Serv)

// WithSampler replaces the gopsutil backed sampler.
func WithSampler(s Sampler) Option {
	return func(serv *Serv) {
		serv.sampler = s
	}
}

// WithMetrics mirrors every recorded outcome into m.
func WithMetrics(m *Metrics) Option {
	return func(serv *Serv) {
		serv.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(serv *Serv) {
		serv.now = now
	}
}

func New(opts ...Option) *Serv {
	s := &Serv{
		sampler: host.Host(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inner = newCounter(s.nowMillis())
	return s
}

func (s *Serv) nowMillis() int64 {
	return s.now().UnixMilli()
}

// Record adds one completed request. requestTime and responseTime are ms timestamps.
// Status code 0 means unknown and is left out of the histogram. An outcome
// outside the declared set is dropped.
func (s *Serv) Record(outcome Outcome, requestTime, responseTime int64, statusCode uint16) {
	s.mu.Lock()
	ok := s.inner.add(outcome, requestTime, responseTime, statusCode)
	s.mu.Unlock()

	if !ok {
		logger.Warn(context.Background(), "Record dropped unknown outcome", zap.Int("outcome", int(outcome)))
		return
	}
	if s.metrics != nil {
		s.metrics.observe(outcome, responseTime-requestTime, statusCode)
	}
}

// SnapshotAndReset builds the report for the current cycle and clears the
// counters in the same critical section. pingDelays is host -> ms.
func (s *Serv) SnapshotAndReset(ctx context.Context, base StatsBase, pingDelays map[string]float64) Report {
	resources := s.sample(ctx)

	s.mu.Lock()
	now := s.nowMillis()
	report := s.inner.report(base, now)
	s.inner.reset(now)
	s.mu.Unlock()

	if pingDelays != nil {
		report.HostsPingDelay = pingDelays
	}
	report.SystemResources = resources

	if s.metrics != nil {
		s.metrics.snapshot(&report)
	}
	return report
}

// Peek returns the derived view of the running cycle without clearing it.
func (s *Serv) Peek(ctx context.Context, base StatsBase) Report {
	resources := s.sample(ctx)

	s.mu.Lock()
	report := s.inner.report(base, s.nowMillis())
	s.mu.Unlock()

	report.SystemResources = resources
	return report
}

func (s *Serv) sample(ctx context.Context) host.SystemResources {
	if s.sampler == nil {
		return host.SystemResources{CpuUsage: host.FormatCPU(0)}
	}
	return s.sampler.Sample(ctx)
}

func (s *Serv) Metrics() *Metrics {
	return s.metrics
}
