package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nao1215/careerlens/pkg/httpclient"
)

// HeaderRequestID はリクエストIDを受け渡すHTTPヘッダー。
const HeaderRequestID = "X-Request-ID"

// ginKeyRequestID はGinコンテキストにリクエストIDを格納するキー。
const ginKeyRequestID = "request_id"

// RequestLogger はリクエストごとにIDを割り当て、処理結果をログに出力するGinミドルウェアを返す。
// クライアントがUUID形式のX-Request-IDを送ってきた場合はそれを引き継ぐ。
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(ginKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(httpclient.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("APIリクエスト")
		case status >= 400:
			entry.Warn("APIリクエスト")
		default:
			entry.Info("APIリクエスト")
		}
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
// RequestLoggerミドルウェアが事前に適用されていない場合は空文字列を返す。
func GetRequestID(c *gin.Context) string {
	return c.GetString(ginKeyRequestID)
}
