package reqstat

import "github.com/jom-io/gorig-crawlstat/src/host"

// Outcome is the terminal classification of one completed request.
type Outcome int

const (
	Success         Outcome = iota // request and processing succeeded, cache missed
	SuccessCached                  // request and processing succeeded, cache hit
	ParseError                     // response could not be parsed
	TimeoutError                   // request timed out
	ConnectionError                // connection could not be established
	StatusCodeError                // unexpected HTTP status
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SuccessCached:
		return "successCached"
	case ParseError:
		return "parseError"
	case TimeoutError:
		return "timeoutError"
	case ConnectionError:
		return "connectionError"
	case StatusCodeError:
		return "statusCodeError"
	default:
		return "unknown"
	}
}

// StatsBase identifies the crawler a report belongs to.
type StatsBase struct {
	ServerName       string `json:"serverName"`
	ScraperName      string `json:"scraperName"`
	ProjectCode      string `json:"projectCode"`
	ScraperType      string `json:"scraperType"`
	RequestFrequency int64  `json:"requestFrequency"` // requests per second
}

type TimePeriod struct {
	Start int64 `json:"start"` // ms timestamp
	End   int64 `json:"end"`   // ms timestamp
}

type ExceptionTypes struct {
	ConnectionError int64 `json:"connectionError"`
	TimeoutError    int64 `json:"timeoutError"`
	ParseError      int64 `json:"parseError"`
	StatusCodeError int64 `json:"statusCodeError"`
}

// Report is one reporting cycle's snapshot. Field names are consumed verbatim downstream.
type Report struct {
	StatsBase

	TimePeriod            TimePeriod           `json:"timePeriod"`
	ErrorRate             float64              `json:"errorRate"`
	ExceptionTypes        ExceptionTypes       `json:"exceptionTypes"`
	RuntimeDuration       int64                `json:"runtimeDuration"` // seconds since aggregator creation
	TotalRequests         int64                `json:"totalRequests"`
	CacheHitRate          float64              `json:"cacheHitRate"`
	CacheHit              int64                `json:"cacheHit"`
	HttpStatusCodes       map[string]int64     `json:"httpStatusCodes"`
	AverageRequestLatency float64              `json:"averageRequestLatency"` // ms
	HostsPingDelay        map[string]float64   `json:"hostsPingDelay"`        // host -> ms
	SystemResources       host.SystemResources `json:"systemResources"`
}

// SuccessfulRequests is not on the wire; it is derived for callers and tests.
func (r *Report) SuccessfulRequests() int64 {
	e := r.ExceptionTypes
	return r.TotalRequests - e.ConnectionError - e.TimeoutError - e.ParseError - e.StatusCodeError
}
