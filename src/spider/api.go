package spider

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/global/consts"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Latest(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	data, e := LatestReport(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Current(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	data, e := CurrentReport(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Metrics(ctx *gin.Context) {
	m := Stats().Metrics()
	if m == nil {
		ctx.Status(http.StatusNoContent)
		return
	}
	promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}).ServeHTTP(ctx.Writer, ctx.Request)
}
