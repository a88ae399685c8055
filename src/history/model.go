package history

import (
	"time"

	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
)

const timeLayout = "2006-01-02 15:04:05"

// Options narrows a search over the reports kept in the log files.
type Options struct {
	RootDir     string   `json:"rootDir" form:"rootDir"`
	Categories  []string `json:"categories" form:"categories"`
	ServerName  string   `json:"serverName" form:"serverName"`
	ScraperName string   `json:"scraperName" form:"scraperName"`
	StartTime   string   `json:"startTime" form:"startTime"`
	EndTime     string   `json:"endTime" form:"endTime"`
	Size        int      `json:"size" form:"size"`
}

// Entry is one pushed report found in a log file.
type Entry struct {
	Path   string          `json:"path"`
	Line   int64           `json:"line"`
	Cycle  string          `json:"cycle"`
	Report *reqstat.Report `json:"report"`
}

type bounds struct {
	start, end int64
}

// bounds converts the local-time range to report milliseconds; 0 means open.
func (o Options) bounds() bounds {
	var b bounds
	if t, err := time.ParseInLocation(timeLayout, o.StartTime, time.Local); err == nil {
		b.start = t.UnixMilli()
	}
	if t, err := time.ParseInLocation(timeLayout, o.EndTime, time.Local); err == nil {
		b.end = t.UnixMilli()
	}
	return b
}

func (o Options) match(r *reqstat.Report, b bounds) bool {
	if o.ServerName != "" && r.ServerName != o.ServerName {
		return false
	}
	if o.ScraperName != "" && r.ScraperName != o.ScraperName {
		return false
	}
	if b.start > 0 && r.TimePeriod.End < b.start {
		return false
	}
	if b.end > 0 && r.TimePeriod.End > b.end {
		return false
	}
	return true
}
