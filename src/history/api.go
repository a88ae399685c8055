package history

import (
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/global/consts"
	"github.com/jom-io/gorig/utils/errors"
)

func SearchReports(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	opts := Options{}
	if e := apix.BindParams(ctx, &opts); e != nil {
		return
	}
	result, err := Search(opts)
	apix.HandleData(ctx, consts.CurdSelectFailCode, &result, err)
}

// MonitorReports streams new reports as server-sent events.
func MonitorReports(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	opts := Options{}
	if e := apix.BindParams(ctx, &opts); e != nil {
		return
	}

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.SSEvent("message", "monitoring started")
	ctx.Writer.Flush()

	err := Watch(ctx.Request.Context(), opts, func(e Entry) {
		ctx.SSEvent("report", e)
		ctx.Writer.Flush()
	})
	if err != nil {
		apix.HandleData(ctx, consts.CurdSelectFailCode, nil, errors.Verify(err.Error()))
		return
	}
	ctx.SSEvent("message", "monitoring stopped")
	ctx.Writer.Flush()
}
