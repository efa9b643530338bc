package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/careerlens/pkg/event"
)

const (
	jobSourceStub   = "stub"
	jobSourceAdzuna = "adzuna"
)

// jobKeywords は求人検索のレスポンスに含める固定のキーワード。
var jobKeywords = []string{"React", "Node.js", "AWS"}

// jobSearchRequest は求人検索のリクエストボディ。どちらも空文字列を許容する。
type jobSearchRequest struct {
	Company string `json:"company"`
	Role    string `json:"role"`
}

// jobSearchResponse は求人検索のレスポンス。
type jobSearchResponse struct {
	Jobs     []json.RawMessage `json:"jobs"`
	Keywords []string          `json:"keywords"`
}

// handleSearchJobs は求人検索を処理するハンドラを返す。
// Adzunaが設定されていない場合は入力によらず空の求人一覧を返す。
func (s *Server) handleSearchJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jobSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request body: %v", err)})
			return
		}

		subject := strings.TrimSpace(req.Role + " " + req.Company)

		jobs := []json.RawMessage{}
		source := jobSourceStub
		if s.jobs != nil {
			source = jobSourceAdzuna
			found, err := s.jobs.Search(c.Request.Context(), req.Company, req.Role)
			if err != nil {
				s.logUpstreamError(c, err).Error("求人検索に失敗しました")
				s.record(c, subject, event.SubjectTypeJobQuery, event.TypeJobSearchFailed, failedData(err))
				c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
				return
			}
			jobs = append(jobs, found...)
		}

		s.record(c, subject, event.SubjectTypeJobQuery, event.TypeJobsSearched, event.JobsSearchedData{
			Company:  req.Company,
			Role:     req.Role,
			Source:   source,
			JobCount: len(jobs),
		})

		keywords := make([]string, len(jobKeywords))
		copy(keywords, jobKeywords)
		c.JSON(http.StatusOK, jobSearchResponse{Jobs: jobs, Keywords: keywords})
	}
}
