package spider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jom-io/gorig-crawlstat/src/config"
	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
)

func resetDefault(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		defaultMu.Lock()
		s := defaultSpider
		defaultSpider = nil
		defaultMu.Unlock()
		if s != nil {
			_ = s.Close()
		}
		spiderStats.SnapshotAndReset(context.Background(), reqstat.StatsBase{}, nil)
	})
}

func TestDefaultBeforeInit(t *testing.T) {
	resetDefault(t)
	if _, err := Default(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := SendStats(context.Background(), testBase, nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, e := LatestReport(context.Background()); e == nil {
		t.Fatalf("expected an error before init")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustDefault should panic before init")
		}
	}()
	MustDefault()
}

func TestInit(t *testing.T) {
	resetDefault(t)
	sink := &memSink{}
	cfg := config.RequestStatsConfig{ReportingCycle: time.Hour}
	hosts := func() ([]string, error) { return nil, nil }

	// records made before Init are kept
	UpdateStats(0, 25, 200, reqstat.Success)

	if err := Init(cfg, baseFn, hosts, WithSink(sink), WithProber(&stubProber{})); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Init(cfg, baseFn, hosts, WithSink(sink)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if MustDefault().Stats() != Stats() {
		t.Fatalf("the default spider must share the process-wide aggregator")
	}

	UpdateStats(0, 35, 404, reqstat.StatusCodeError)
	cur, e := CurrentReport(context.Background())
	if e != nil || cur.TotalRequests != 2 {
		t.Fatalf("current report = %+v, %v", cur, e)
	}

	r, err := SendStats(context.Background(), testBase, nil)
	if err != nil {
		t.Fatalf("SendStats failed: %v", err)
	}
	if r.TotalRequests != 2 || r.AverageRequestLatency != 30 || r.HttpStatusCodes["404"] != 1 {
		t.Fatalf("unexpected report: %+v", r)
	}
	latest, e := LatestReport(context.Background())
	if e != nil || latest.TotalRequests != 2 {
		t.Fatalf("latest report = %+v, %v", latest, e)
	}
	if len(sink.sent()) != 1 {
		t.Fatalf("expected one push, got %d", len(sink.sent()))
	}
}

func TestInitKeepsProcessStats(t *testing.T) {
	resetDefault(t)
	own := reqstat.New(reqstat.WithSampler(stubSampler{}))
	cfg := config.RequestStatsConfig{ReportingCycle: time.Hour}

	if err := Init(cfg, baseFn, func() ([]string, error) { return nil, nil }, WithStats(own), WithSink(&memSink{}), WithProber(&stubProber{})); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if MustDefault().Stats() != Stats() {
		t.Fatalf("Init must report the process-wide aggregator")
	}

	UpdateStats(0, 10, 200, reqstat.Success)
	r, err := SendStats(context.Background(), testBase, nil)
	if err != nil || r.TotalRequests != 1 {
		t.Fatalf("UpdateStats records were not reported: %+v, %v", r, err)
	}
}
