package spider

import (
	"context"

	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
	"github.com/jom-io/gorig/utils/errors"
	"github.com/jom-io/gorig/utils/logger"
)

// LatestReport is the last report pushed by the process-wide spider.
func LatestReport(ctx context.Context) (*reqstat.Report, *errors.Error) {
	s, err := Default()
	if err != nil {
		return nil, errors.Verify("Spider stats not initialized", err)
	}
	r := s.Latest()
	if r == nil {
		logger.Info(ctx, "Spider stats latest called before first cycle")
		return nil, errors.Verify("No report yet")
	}
	return r, nil
}

// CurrentReport derives the running cycle's figures without resetting them.
func CurrentReport(ctx context.Context) (*reqstat.Report, *errors.Error) {
	s, err := Default()
	if err != nil {
		return nil, errors.Verify("Spider stats not initialized", err)
	}
	r := s.Stats().Peek(ctx, s.getBase())
	return &r, nil
}
