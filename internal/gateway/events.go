package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/careerlens/internal/eventlog"
	"github.com/nao1215/careerlens/pkg/event"
	"github.com/nao1215/careerlens/pkg/middleware"
)

// handleListEvents は直近のイベントを新しい順に返すハンドラを返す。
// クエリパラメータlimitで件数を指定できる（デフォルト20、最大100）。
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := eventlog.DefaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > eventlog.MaxLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 100"})
				return
			}
			limit = n
		}

		if s.events == nil {
			c.JSON(http.StatusOK, gin.H{"events": []*event.Event{}})
			return
		}

		events, err := s.events.Recent(c.Request.Context(), limit)
		if err != nil {
			s.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("イベントの取得に失敗しました")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}
