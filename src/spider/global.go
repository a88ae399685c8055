package spider

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/jom-io/gorig-crawlstat/src/config"
	"github.com/jom-io/gorig-crawlstat/src/stat/cyclestat"
	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
)

var (
	ErrAlreadyInitialized = errors.New("spider: already initialized")
	ErrNotInitialized     = errors.New("spider: not initialized")
)

var (
	// spiderStats exists from process start so crawlers can record before Init.
	spiderStats = reqstat.New(reqstat.WithMetrics(reqstat.NewMetrics(nil)))

	defaultMu     sync.RWMutex
	defaultSpider *Spider
)

// Init wires the process-wide spider and starts its reporting loop. It may
// only succeed once per process.
func Init(cfg config.RequestStatsConfig, getBase BaseFunc, getHosts HostsFunc, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSpider != nil {
		return ErrAlreadyInitialized
	}

	// the process-wide aggregator goes last so UpdateStats always feeds the reported one
	s, err := New(cfg, getBase, getHosts, append(append([]Option{}, opts...), WithStats(spiderStats))...)
	if err != nil {
		return err
	}
	s.Start(context.Background())
	defaultSpider = s
	return nil
}

// InitFromConfig is Init with the configuration read from the gorig config
// file. Every report is also kept in the cycle stat store for the OM charts.
func InitFromConfig(getBase BaseFunc, getHosts HostsFunc, opts ...Option) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store := cyclestat.S()
	if err := Init(cfg, getBase, getHosts, append([]Option{WithReportHook(store.Record)}, opts...)...); err != nil {
		return err
	}
	store.StartClear(context.Background())
	return nil
}

func Default() (*Spider, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultSpider == nil {
		return nil, ErrNotInitialized
	}
	return defaultSpider, nil
}

// MustDefault panics when Init has not been called.
func MustDefault() *Spider {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Stats is the process-wide aggregator.
func Stats() *reqstat.Serv {
	return spiderStats
}

// UpdateStats records one completed request on the process-wide aggregator.
func UpdateStats(requestTime, responseTime int64, statusCode uint16, outcome reqstat.Outcome) {
	spiderStats.Record(outcome, requestTime, responseTime, statusCode)
}

// SendStats reports immediately through the process-wide spider.
func SendStats(ctx context.Context, base reqstat.StatsBase, hosts []string) (*reqstat.Report, error) {
	s, err := Default()
	if err != nil {
		return nil, err
	}
	return s.SendStats(ctx, base, hosts), nil
}

// LogResponse logs one crawled response at the configured outRespInfo level.
// It does nothing before Init.
func LogResponse(ctx context.Context, url string, status int, header http.Header, body []byte) {
	s, err := Default()
	if err != nil {
		return
	}
	reqstat.LogResponse(ctx, s.cfg.OutRespInfo, url, status, header, body)
}
