package reqstat

import (
	"context"
	"net/http"

	"github.com/jom-io/gorig-crawlstat/src/config"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

const maxBodyLog = 64 * 1024

// LogResponse writes one crawled response to the log at the detail the level allows.
func LogResponse(ctx context.Context, level config.RespInfo, url string, status int, header http.Header, body []byte) {
	if !level.Includes(config.RespInfoUrl) {
		return
	}
	fields := []zap.Field{zap.String("url", url), zap.Int("status", status)}
	if level.Includes(config.RespInfoHead) {
		fields = append(fields, zap.Any("header", header))
	}
	if level.Includes(config.RespInfoBody) {
		if len(body) > maxBodyLog {
			body = body[:maxBodyLog]
		}
		fields = append(fields, zap.ByteString("body", body))
	}
	logger.Info(ctx, "Spider response", fields...)
}
