package cyclestat

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
	"github.com/jom-io/gorig/cache"
	configure "github.com/jom-io/gorig/utils/cofigure"
	"github.com/jom-io/gorig/utils/errors"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

var (
	serv     *Serv
	servOnce sync.Once

	maxPeriod = 30 * 24 * time.Hour
)

type Serv struct {
	storage cache.Pager[CycleStat]
}

func S() *Serv {
	servOnce.Do(func() {
		serv = &Serv{
			storage: cache.NewPager[CycleStat](context.Background(), cache.Sqlite, "spider_cycle_stat"),
		}
		loadMaxPeriod()
	})
	return serv
}

func loadMaxPeriod() {
	v := configure.GetString("om.stat.spider.max_period", "720h")
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Error(context.Background(), "Failed to parse spider stat MaxPeriod", zap.String("value", v), zap.Error(err))
		return
	}
	maxPeriod = d
}

// Record stores the summary of a pushed report.
func (s *Serv) Record(ctx context.Context, r *reqstat.Report) {
	if r == nil {
		return
	}
	if err := s.storage.Put(fromReport(r)); err != nil {
		logger.Error(ctx, "Save spider cycle stat failed", zap.Error(err))
	}
}

// TimeRange buckets one field between start and end (unix seconds). Counts
// are summed per bucket, rates and latency are averaged.
func (s *Serv) TimeRange(ctx context.Context, start, end int64, granularity cache.Granularity, field Field) ([]*cache.PageTimeItem, *errors.Error) {
	from := time.Unix(start, 0)
	to := time.Unix(end, 0)
	if start <= 0 || end <= 0 || from.After(to) {
		return nil, errors.Verify("Invalid time range")
	}
	if !field.Valid() {
		return nil, errors.Verify("Invalid field: " + field.String())
	}
	if granularity == "" {
		granularity = cache.GranularityMinute
	}

	agg := cache.AggAvg
	if field.IsCount() {
		agg = cache.AggSum
	}
	result, err := s.storage.GroupByTime(nil, from, to, granularity, agg, field.String())
	if err != nil {
		logger.Error(ctx, "GroupByTime spider cycle stat failed", zap.Error(err))
		return nil, errors.Sys("GroupByTime failed", err)
	}
	for _, item := range result {
		if item == nil || item.Value == nil {
			continue
		}
		if val, ok := item.Value[field.String()]; ok {
			item.Value[field.String()] = roundFor(field, val)
		}
	}
	return result, nil
}

func roundFor(f Field, v float64) float64 {
	if f.IsCount() {
		return math.Round(v)
	}
	return math.Round(v*1000) / 1000
}

func (s *Serv) Clear(ctx context.Context) error {
	expiration := time.Now().Add(-maxPeriod).Unix()
	if err := s.storage.Delete(map[string]any{"at": map[string]any{"$lt": expiration}}); err != nil {
		logger.Error(ctx, "Clear spider cycle stat failed", zap.Error(err))
		return err
	}
	return nil
}

// StartClear drops expired rows every minute until ctx is done.
func (s *Serv) StartClear(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Clear(ctx)
			}
		}
	}()
}
