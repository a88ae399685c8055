package om

import (
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig-crawlstat/src/auth"
	"github.com/jom-io/gorig-crawlstat/src/history"
	"github.com/jom-io/gorig-crawlstat/src/spider"
	"github.com/jom-io/gorig-crawlstat/src/stat/cyclestat"
	"github.com/jom-io/gorig/global/variable"
	"github.com/jom-io/gorig/httpx"
)

func init() {
	Setup()
}

// Setup exposes the spider stats on the gorig OM router when an OM key is configured.
func Setup() {
	if variable.OMKey == "" {
		return
	}
	httpx.RegisterRouter(func(groupRouter *gin.RouterGroup) {
		om := groupRouter.Group("om")

		a := om.Group("auth")
		a.POST("connect", auth.Connect)

		s := om.Group("stat/spider")
		s.Use(auth.Guard())
		s.GET("latest", spider.Latest)
		s.GET("current", spider.Current)
		s.GET("metrics", spider.Metrics)
		s.GET("history", history.SearchReports)
		s.GET("history/monitor", history.MonitorReports)
		s.GET("time", cyclestat.TimeRange)
	})
}
