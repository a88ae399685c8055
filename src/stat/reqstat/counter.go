package reqstat

import (
	"math"
	"strconv"
)

// counter accumulates request outcomes. It has no locking of its own; Serv guards it.
type counter struct {
	initTime  int64 // ms, fixed for the process lifetime
	startTime int64 // ms, start of the current cycle

	totalRequests      int64
	successfulRequests int64
	cacheHit           int64 // only counted on success
	parseErrors        int64
	timeoutErrors      int64
	connectionErrors   int64
	statusCodeErrors   int64
	httpStatusCodes    map[uint16]int64
	totalLatency       int64 // ms
}

func newCounter(now int64) *counter {
	return &counter{
		initTime:        now,
		startTime:       now,
		httpStatusCodes: make(map[uint16]int64),
	}
}

// add returns false and leaves every counter untouched for an unknown outcome.
func (c *counter) add(outcome Outcome, requestTime, responseTime int64, statusCode uint16) bool {
	switch outcome {
	case Success:
		c.successfulRequests++
	case SuccessCached:
		c.successfulRequests++
		c.cacheHit++
	case ParseError:
		c.parseErrors++
	case TimeoutError:
		c.timeoutErrors++
	case ConnectionError:
		c.connectionErrors++
	case StatusCodeError:
		c.statusCodeErrors++
	default:
		return false
	}

	c.totalRequests++
	c.totalLatency += responseTime - requestTime

	// many crawlers report 0 when the status is unknown
	if statusCode != 0 {
		c.httpStatusCodes[statusCode]++
	}
	return true
}

func (c *counter) errors() int64 {
	return c.parseErrors + c.timeoutErrors + c.connectionErrors + c.statusCodeErrors
}

// report derives the wire view of the counters for the period ending at now.
func (c *counter) report(base StatsBase, now int64) Report {
	var errorRate, cacheHitRate, avgLatency float64
	if c.totalRequests > 0 {
		errorRate = float64(c.errors()) / float64(c.totalRequests)
		avgLatency = float64(c.totalLatency) / float64(c.totalRequests)
	}
	if c.successfulRequests > 0 {
		cacheHitRate = float64(c.cacheHit) / float64(c.successfulRequests)
	}

	codes := make(map[string]int64, len(c.httpStatusCodes))
	for code, n := range c.httpStatusCodes {
		codes[strconv.Itoa(int(code))] = n
	}

	return Report{
		StatsBase:  base,
		TimePeriod: TimePeriod{Start: c.startTime, End: now},
		ErrorRate:  round3(errorRate),
		ExceptionTypes: ExceptionTypes{
			ConnectionError: c.connectionErrors,
			TimeoutError:    c.timeoutErrors,
			ParseError:      c.parseErrors,
			StatusCodeError: c.statusCodeErrors,
		},
		RuntimeDuration:       (now - c.initTime) / 1000,
		TotalRequests:         c.totalRequests,
		CacheHitRate:          round3(cacheHitRate),
		CacheHit:              c.cacheHit,
		HttpStatusCodes:       codes,
		AverageRequestLatency: round3(avgLatency),
		HostsPingDelay:        map[string]float64{},
	}
}

// reset clears the accumulated values and opens a new cycle at now.
func (c *counter) reset(now int64) {
	initTime := c.initTime
	*c = counter{
		initTime:        initTime,
		startTime:       now,
		httpStatusCodes: make(map[uint16]int64),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
