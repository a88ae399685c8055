package reqstat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jom-io/gorig-crawlstat/src/host"
)

type fixedSampler struct{}

func (fixedSampler) Sample(context.Context) host.SystemResources {
	return host.SystemResources{
		CpuUsage:    host.FormatCPU(12.5),
		MemoryUsage: host.Usage{Used: 1024, Total: 4096},
		DiskUsage:   host.Usage{Used: 10, Total: 100},
	}
}

func newTestServ(opts ...Option) *Serv {
	return New(append([]Option{WithSampler(fixedSampler{})}, opts...)...)
}

var testBase = StatsBase{
	ServerName:       "srv-1",
	ScraperName:      "books",
	ProjectCode:      "p01",
	ScraperType:      "list",
	RequestFrequency: 5,
}

func TestSnapshotScenario(t *testing.T) {
	s := newTestServ()
	for i := 0; i < 7; i++ {
		s.Record(Success, 50, 100, 0)
	}
	s.Record(SuccessCached, 50, 100, 0)
	s.Record(TimeoutError, 50, 100, 0)
	s.Record(StatusCodeError, 50, 100, 500)

	r := s.SnapshotAndReset(context.Background(), testBase, nil)

	if r.TotalRequests != 10 {
		t.Fatalf("totalRequests = %d, want 10", r.TotalRequests)
	}
	if r.SuccessfulRequests() != 8 {
		t.Fatalf("successfulRequests = %d, want 8", r.SuccessfulRequests())
	}
	if r.CacheHit != 1 {
		t.Fatalf("cacheHit = %d, want 1", r.CacheHit)
	}
	if r.CacheHitRate != 0.125 {
		t.Fatalf("cacheHitRate = %v, want 0.125", r.CacheHitRate)
	}
	if r.ErrorRate != 0.2 {
		t.Fatalf("errorRate = %v, want 0.2", r.ErrorRate)
	}
	if r.AverageRequestLatency != 50 {
		t.Fatalf("averageRequestLatency = %v, want 50", r.AverageRequestLatency)
	}
	if r.HttpStatusCodes["500"] != 1 || len(r.HttpStatusCodes) != 1 {
		t.Fatalf("unexpected status codes: %v", r.HttpStatusCodes)
	}
	if r.ExceptionTypes.TimeoutError != 1 || r.ExceptionTypes.StatusCodeError != 1 {
		t.Fatalf("unexpected exception types: %+v", r.ExceptionTypes)
	}
	if r.StatsBase != testBase {
		t.Fatalf("identity not copied: %+v", r.StatsBase)
	}
	if r.SystemResources.CpuUsage != "12.50%" {
		t.Fatalf("unexpected cpu usage: %s", r.SystemResources.CpuUsage)
	}
}

func TestSnapshotStatusCodeHistogram(t *testing.T) {
	s := newTestServ()
	for i := 0; i < 3; i++ {
		s.Record(StatusCodeError, 0, 1, 404)
	}
	s.Record(ConnectionError, 0, 1, 0)
	s.Record(ParseError, 0, 1, 0)

	r := s.SnapshotAndReset(context.Background(), testBase, nil)
	if _, ok := r.HttpStatusCodes["0"]; ok {
		t.Fatalf("status code 0 must not be reported: %v", r.HttpStatusCodes)
	}
	if r.HttpStatusCodes["404"] != 3 {
		t.Fatalf("404 count = %d, want 3", r.HttpStatusCodes["404"])
	}
	if r.ErrorRate != 1 {
		t.Fatalf("errorRate = %v, want 1", r.ErrorRate)
	}
	if r.CacheHitRate != 0 {
		t.Fatalf("cacheHitRate = %v, want 0 with no successes", r.CacheHitRate)
	}
}

func TestSnapshotResetIsIdempotent(t *testing.T) {
	s := newTestServ()
	s.Record(Success, 0, 30, 200)
	s.Record(ParseError, 0, 30, 200)
	_ = s.SnapshotAndReset(context.Background(), testBase, nil)

	r := s.SnapshotAndReset(context.Background(), testBase, nil)
	if r.TotalRequests != 0 || r.ErrorRate != 0 || r.CacheHitRate != 0 || r.AverageRequestLatency != 0 {
		t.Fatalf("second snapshot not empty: %+v", r)
	}
	if len(r.HttpStatusCodes) != 0 {
		t.Fatalf("histogram not cleared: %v", r.HttpStatusCodes)
	}
	if r.HostsPingDelay == nil {
		t.Fatalf("hostsPingDelay should be an empty map, not nil")
	}
}

func TestSnapshotRounding(t *testing.T) {
	s := newTestServ()
	s.Record(Success, 0, 1, 200)
	s.Record(SuccessCached, 0, 1, 200)
	s.Record(SuccessCached, 0, 2, 200)
	s.Record(TimeoutError, 0, 0, 0)
	s.Record(Success, 0, 0, 200)
	s.Record(Success, 0, 0, 200)

	r := s.SnapshotAndReset(context.Background(), testBase, nil)
	// 1/6, 2/5 and 4/6
	if r.ErrorRate != 0.167 {
		t.Fatalf("errorRate = %v, want 0.167", r.ErrorRate)
	}
	if r.CacheHitRate != 0.4 {
		t.Fatalf("cacheHitRate = %v, want 0.4", r.CacheHitRate)
	}
	if r.AverageRequestLatency != 0.667 {
		t.Fatalf("averageRequestLatency = %v, want 0.667", r.AverageRequestLatency)
	}
	if r.ErrorRate < 0 || r.ErrorRate > 1 || r.CacheHitRate < 0 || r.CacheHitRate > 1 {
		t.Fatalf("rates out of range: %v %v", r.ErrorRate, r.CacheHitRate)
	}
}

func TestSnapshotTimePeriod(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	now := base
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	s := newTestServ(WithClock(clock))
	advance(90 * time.Second)
	r1 := s.SnapshotAndReset(context.Background(), testBase, nil)
	if r1.TimePeriod.Start != base.UnixMilli() || r1.TimePeriod.End != base.Add(90*time.Second).UnixMilli() {
		t.Fatalf("unexpected first period: %+v", r1.TimePeriod)
	}
	if r1.RuntimeDuration != 90 {
		t.Fatalf("runtimeDuration = %d, want 90", r1.RuntimeDuration)
	}

	advance(30 * time.Second)
	r2 := s.SnapshotAndReset(context.Background(), testBase, nil)
	if r2.TimePeriod.Start != r1.TimePeriod.End {
		t.Fatalf("second period should start where the first ended: %+v %+v", r1.TimePeriod, r2.TimePeriod)
	}
	// runtime counts from creation, not from the cycle start
	if r2.RuntimeDuration != 120 {
		t.Fatalf("runtimeDuration = %d, want 120", r2.RuntimeDuration)
	}
}

func TestSnapshotPingDelays(t *testing.T) {
	s := newTestServ()
	pings := map[string]float64{"10.0.0.1": 0.6, "10.0.0.2": 3000}
	r := s.SnapshotAndReset(context.Background(), testBase, pings)
	if len(r.HostsPingDelay) != 2 || r.HostsPingDelay["10.0.0.2"] != 3000 {
		t.Fatalf("unexpected ping delays: %v", r.HostsPingDelay)
	}
}

func TestRecordConcurrentWithSnapshot(t *testing.T) {
	s := newTestServ()
	const perProducer = 1000

	var producers sync.WaitGroup
	half := make(chan struct{}, 2)
	for p := 0; p < 2; p++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for i := 0; i < perProducer; i++ {
				s.Record(Success, 0, 10, 200)
				if i == perProducer/2 {
					half <- struct{}{}
				}
			}
		}()
	}

	<-half
	<-half
	first := s.SnapshotAndReset(context.Background(), testBase, nil)
	producers.Wait()
	second := s.SnapshotAndReset(context.Background(), testBase, nil)

	total := first.TotalRequests + second.TotalRequests
	if total != 2*perProducer {
		t.Fatalf("lost or duplicated records: %d + %d = %d, want %d", first.TotalRequests, second.TotalRequests, total, 2*perProducer)
	}
	if first.TotalRequests == 0 {
		t.Fatalf("first snapshot should include the records made before it")
	}
	if first.HttpStatusCodes["200"]+second.HttpStatusCodes["200"] != 2*perProducer {
		t.Fatalf("histogram split incorrectly: %v %v", first.HttpStatusCodes, second.HttpStatusCodes)
	}
}

func TestCategoryInvariant(t *testing.T) {
	s := newTestServ()
	outcomes := []Outcome{Success, SuccessCached, ParseError, TimeoutError, ConnectionError, StatusCodeError}
	var wg sync.WaitGroup
	for i, o := range outcomes {
		wg.Add(1)
		go func(i int, o Outcome) {
			defer wg.Done()
			for n := 0; n <= i*10; n++ {
				s.Record(o, 0, 5, uint16(200+i))
			}
		}(i, o)
	}
	wg.Wait()

	s.mu.Lock()
	c := *s.inner
	s.mu.Unlock()
	sum := c.successfulRequests + c.parseErrors + c.timeoutErrors + c.connectionErrors + c.statusCodeErrors
	if sum != c.totalRequests {
		t.Fatalf("categories sum %d != total %d", sum, c.totalRequests)
	}
	if c.cacheHit > c.successfulRequests {
		t.Fatalf("cacheHit %d > successful %d", c.cacheHit, c.successfulRequests)
	}
}

func TestPeekDoesNotReset(t *testing.T) {
	s := newTestServ()
	s.Record(Success, 0, 10, 200)
	p := s.Peek(context.Background(), testBase)
	if p.TotalRequests != 1 {
		t.Fatalf("peek total = %d, want 1", p.TotalRequests)
	}
	r := s.SnapshotAndReset(context.Background(), testBase, nil)
	if r.TotalRequests != 1 {
		t.Fatalf("snapshot after peek total = %d, want 1", r.TotalRequests)
	}
}

func TestRecordDropsUnknownOutcome(t *testing.T) {
	s := newTestServ()
	s.Record(Outcome(42), 0, 10, 200)
	s.Record(Outcome(-1), 0, 10, 0)
	s.Record(ParseError, 0, 10, 0)

	r := s.SnapshotAndReset(context.Background(), testBase, nil)
	if r.TotalRequests != 1 || r.ExceptionTypes.ParseError != 1 {
		t.Fatalf("unknown outcomes should be dropped: %+v", r)
	}
	if r.SuccessfulRequests() != 0 || r.ErrorRate != 1 {
		t.Fatalf("successful = %d, errorRate = %v", r.SuccessfulRequests(), r.ErrorRate)
	}
	if len(r.HttpStatusCodes) != 0 || r.AverageRequestLatency != 10 {
		t.Fatalf("dropped outcome leaked into the report: %v %v", r.HttpStatusCodes, r.AverageRequestLatency)
	}
}
