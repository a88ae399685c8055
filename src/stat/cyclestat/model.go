package cyclestat

import "github.com/jom-io/gorig-crawlstat/src/stat/reqstat"

// CycleStat is the persisted summary of one pushed report.
type CycleStat struct {
	At            int64   `json:"at"` // end of the reporting period, unix seconds
	Server        string  `json:"server"`
	Scraper       string  `json:"scraper"`
	Total         int64   `json:"total"`
	Success       int64   `json:"success"`
	CacheHit      int64   `json:"cacheHit"`
	ParseErr      int64   `json:"parseErr"`
	TimeoutErr    int64   `json:"timeoutErr"`
	ConnectionErr int64   `json:"connectionErr"`
	StatusCodeErr int64   `json:"statusCodeErr"`
	ErrorRate     float64 `json:"errorRate"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	AvgLatency    float64 `json:"avgLatency"`
}

type Field string

const (
	FieldTotal         Field = "total"
	FieldSuccess       Field = "success"
	FieldCacheHit      Field = "cacheHit"
	FieldParseErr      Field = "parseErr"
	FieldTimeoutErr    Field = "timeoutErr"
	FieldConnectionErr Field = "connectionErr"
	FieldStatusCodeErr Field = "statusCodeErr"
	FieldErrorRate     Field = "errorRate"
	FieldCacheHitRate  Field = "cacheHitRate"
	FieldAvgLatency    Field = "avgLatency"
)

func (f Field) String() string {
	return string(f)
}

// IsCount is true for fields summed across a bucket; the rest are averaged.
func (f Field) IsCount() bool {
	switch f {
	case FieldTotal, FieldSuccess, FieldCacheHit, FieldParseErr, FieldTimeoutErr, FieldConnectionErr, FieldStatusCodeErr:
		return true
	}
	return false
}

func (f Field) Valid() bool {
	switch f {
	case FieldErrorRate, FieldCacheHitRate, FieldAvgLatency:
		return true
	}
	return f.IsCount()
}

func fromReport(r *reqstat.Report) CycleStat {
	e := r.ExceptionTypes
	return CycleStat{
		At:            r.TimePeriod.End / 1000,
		Server:        r.ServerName,
		Scraper:       r.ScraperName,
		Total:         r.TotalRequests,
		Success:       r.SuccessfulRequests(),
		CacheHit:      r.CacheHit,
		ParseErr:      e.ParseError,
		TimeoutErr:    e.TimeoutError,
		ConnectionErr: e.ConnectionError,
		StatusCodeErr: e.StatusCodeError,
		ErrorRate:     r.ErrorRate,
		CacheHitRate:  r.CacheHitRate,
		AvgLatency:    r.AverageRequestLatency,
	}
}
