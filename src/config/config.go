package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	configure "github.com/jom-io/gorig/utils/cofigure"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultHostTestPort   uint16 = 443
	DefaultReportingCycle        = 30 * time.Second
)

var ErrInvalidCycle = errors.New("reporting cycle must be positive")

// RequestStatsConfig is read once at startup; the cycle cannot change while running.
type RequestStatsConfig struct {
	// push destinations, ws://, wss:// or redis://
	Target []string `json:"target"`
	// reporting period
	ReportingCycle time.Duration `json:"reportingCycle"`
	// port used for bare-IP hosts when probing
	HostTestPort uint16 `json:"hostTestPort"`
	// how much of each response the crawler logs
	OutRespInfo RespInfo `json:"outRespInfo"`

	// directories swept each cycle, by file creation time
	CleanPaths  []string      `json:"cleanPaths"`
	CleanMaxAge time.Duration `json:"cleanMaxAge"`
}

// CleanEnabled reports whether the retention sweep runs each cycle.
func (c RequestStatsConfig) CleanEnabled() bool {
	return len(c.CleanPaths) > 0 && c.CleanMaxAge > 0
}

func (c RequestStatsConfig) Validate() error {
	if c.ReportingCycle <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCycle, c.ReportingCycle)
	}
	return nil
}

// Load reads the om.stat.spider.* keys of the gorig configuration.
func Load() (RequestStatsConfig, error) {
	cfg := RequestStatsConfig{
		ReportingCycle: DefaultReportingCycle,
		HostTestPort:   DefaultHostTestPort,
	}

	cfg.Target = parseList(configure.GetString("om.stat.spider.target", ""))
	cfg.CleanPaths = parseList(configure.GetString("om.stat.spider.clean_paths", ""))

	if v := configure.GetString("om.stat.spider.reporting_cycle", "30s"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("om.stat.spider.reporting_cycle: %w", err)
		}
		cfg.ReportingCycle = d
	}

	if v := configure.GetString("om.stat.spider.host_test_port", ""); v != "" {
		port, err := cast.ToUint16E(v)
		if err != nil {
			logger.Error(context.Background(), "Failed to parse host test port", zap.String("value", v), zap.Error(err))
		} else if port != 0 {
			cfg.HostTestPort = port
		}
	}

	if v := configure.GetString("om.stat.spider.clean_max_age", ""); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			logger.Error(context.Background(), "Failed to parse clean max age", zap.String("value", v), zap.Error(err))
		} else {
			cfg.CleanMaxAge = d
		}
	}

	info, err := ParseRespInfo(configure.GetString("om.stat.spider.out_resp_info", "none"))
	if err != nil {
		logger.Error(context.Background(), "Failed to parse out resp info", zap.Error(err))
	}
	cfg.OutRespInfo = info

	return cfg, cfg.Validate()
}

// Parse decodes the JSON form of the configuration.
func Parse(data []byte) (RequestStatsConfig, error) {
	var cfg RequestStatsConfig
	err := cfg.UnmarshalJSON(data)
	return cfg, err
}

func (c *RequestStatsConfig) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid request stats config json")
	}
	doc := gjson.ParseBytes(data)

	cfg := RequestStatsConfig{HostTestPort: DefaultHostTestPort}
	for _, t := range doc.Get("target").Array() {
		cfg.Target = append(cfg.Target, t.String())
	}

	cycle := doc.Get("reportingCycle")
	if !cycle.Exists() {
		return errors.New("reportingCycle is required")
	}
	d, err := ParseDuration(cycle.String())
	if err != nil {
		return fmt.Errorf("reportingCycle: %w", err)
	}
	cfg.ReportingCycle = d

	if port := doc.Get("hostTestPort"); port.Exists() {
		p, err := cast.ToUint16E(port.Value())
		if err != nil {
			return fmt.Errorf("hostTestPort: %w", err)
		}
		cfg.HostTestPort = p
	}

	if info := doc.Get("outRespInfo"); info.Exists() {
		if err := cfg.OutRespInfo.UnmarshalJSON([]byte(info.Raw)); err != nil {
			return err
		}
	}

	for _, p := range doc.Get("cleanPaths").Array() {
		cfg.CleanPaths = append(cfg.CleanPaths, p.String())
	}
	if age := doc.Get("cleanMaxAge"); age.Exists() {
		d, err := ParseDuration(age.String())
		if err != nil {
			return fmt.Errorf("cleanMaxAge: %w", err)
		}
		cfg.CleanMaxAge = d
	}

	*c = cfg
	return nil
}

// ParseDuration accepts Go duration strings such as "30s" or "1h30m".
// A bare number is read as seconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
	if v == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return cast.ToDurationE(v)
}

// parseList accepts a JSON array or a comma separated string.
func parseList(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	var out []string
	if strings.HasPrefix(v, "[") && gjson.Valid(v) {
		for _, item := range gjson.Parse(v).Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	for _, item := range strings.Split(v, ",") {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
