package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v39/github"
	"github.com/sirupsen/logrus"

	"github.com/nao1215/careerlens/pkg/event"
	"github.com/nao1215/careerlens/pkg/githubapi"
	"github.com/nao1215/careerlens/pkg/middleware"
	"github.com/nao1215/careerlens/pkg/upstream"
)

const (
	// insightSummary は分析結果として返す固定の要約。
	insightSummary = "Expert developer with strong open source presence."
	// insightEvidence は分析結果として返す固定の根拠。
	insightEvidence = "Consistent contributor with 50+ repos."

	// maxResponseRepos はfetchのレスポンスに含めるリポジトリ数。
	maxResponseRepos = 10
	// maxTopLanguages はfetchのレスポンスに含める言語数。
	maxTopLanguages = 3

	msgFetchFailed     = "Failed to fetch GitHub profile"
	msgBadCredentials  = "GitHub API authentication failed ('Bad credentials'). Please update GITHUB_TOKEN in your .env file with a valid Personal Access Token."
	msgRateLimited     = "GitHub API rate limit exceeded. Please provide a GITHUB_TOKEN in .env for higher limits."
	msgUserNotFoundFmt = "GitHub user %q not found. Please check the spelling."
)

// insightStrengths は分析結果として返す固定の強み。
var insightStrengths = []string{"Python", "Cloud Architecture", "API Design"}

// profileRequest はanalyzeとfetchのリクエストボディ。
type profileRequest struct {
	Username string `json:"username" binding:"required"`
}

// insights は分析結果。
type insights struct {
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Evidence  string   `json:"evidence"`
}

// analyzeResponse はanalyzeのレスポンス。
type analyzeResponse struct {
	Username string   `json:"username"`
	Insights insights `json:"insights"`
}

// profileResponse はfetchのレスポンス。
type profileResponse struct {
	Username     string               `json:"username"`
	User         *github.User         `json:"user"`
	Repos        []*github.Repository `json:"repos"`
	TopLanguages []string             `json:"topLanguages"`
	TotalStars   int                  `json:"totalStars"`
}

// handleAnalyzeProfile はGitHubプロフィールを取得し、固定のインサイトを返すハンドラを返す。
// 取得したデータは現時点では分析に使用しない。
func (s *Server) handleAnalyzeProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request body: %v", err)})
			return
		}
		if err := githubapi.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid username: %q", req.Username)})
			return
		}

		profile, err := s.profiles.FetchProfile(c.Request.Context(), req.Username)
		if err != nil {
			s.logUpstreamError(c, err).Error("GitHubプロフィールの分析に失敗しました")
			s.record(c, req.Username, event.SubjectTypeGitHubUser, event.TypeProfileAnalysisFailed, failedData(err))
			// 失敗の種類によらず500にまとめ、エラーメッセージをそのまま返す
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		s.record(c, req.Username, event.SubjectTypeGitHubUser, event.TypeProfileAnalyzed, event.ProfileAnalyzedData{
			RepoCount:     len(profile.Repos),
			Authenticated: s.profiles.Authenticated(),
		})

		c.JSON(http.StatusOK, analyzeResponse{
			Username: req.Username,
			Insights: fixedInsights(),
		})
	}
}

// fixedInsights は固定のインサイトを返す。呼び出しごとに新しいスライスを生成する。
func fixedInsights() insights {
	strengths := make([]string, len(insightStrengths))
	copy(strengths, insightStrengths)
	return insights{
		Summary:   insightSummary,
		Strengths: strengths,
		Evidence:  insightEvidence,
	}
}

// handleFetchProfile はGitHubプロフィールを取得し、言語とスター数を集計して返すハンドラを返す。
func (s *Server) handleFetchProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
			return
		}
		if err := githubapi.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid username: %q", req.Username)})
			return
		}

		profile, err := s.profiles.FetchProfile(c.Request.Context(), req.Username)
		if err != nil {
			s.logUpstreamError(c, err).Error("GitHubプロフィールの取得に失敗しました")
			s.record(c, req.Username, event.SubjectTypeGitHubUser, event.TypeProfileFetchFailed, failedData(err))
			status, message := fetchError(req.Username, err)
			c.JSON(status, gin.H{"error": message})
			return
		}

		resp := summarizeProfile(req.Username, profile)
		s.record(c, req.Username, event.SubjectTypeGitHubUser, event.TypeProfileFetched, event.ProfileFetchedData{
			RepoCount:    len(profile.Repos),
			TopLanguages: resp.TopLanguages,
			TotalStars:   resp.TotalStars,
		})

		c.JSON(http.StatusOK, resp)
	}
}

// summarizeProfile はリポジトリ一覧から使用言語の上位とスター数の合計を集計する。
func summarizeProfile(username string, profile *githubapi.Profile) profileResponse {
	repos := profile.Repos
	if repos == nil {
		repos = []*github.Repository{}
	}

	stars := 0
	for _, r := range repos {
		stars += r.GetStargazersCount()
	}

	head := repos
	if len(head) > maxResponseRepos {
		head = head[:maxResponseRepos]
	}

	return profileResponse{
		Username:     username,
		User:         profile.User,
		Repos:        head,
		TopLanguages: topLanguages(repos, maxTopLanguages),
		TotalStars:   stars,
	}
}

// topLanguages はリポジトリ数の多い言語を最大n件返す。
// 同数の場合は先に出現した言語を優先する。言語が空のリポジトリは数えない。
func topLanguages(repos []*github.Repository, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range repos {
		lang := r.GetLanguage()
		if lang == "" {
			continue
		}
		if _, ok := counts[lang]; !ok {
			order = append(order, lang)
		}
		counts[lang]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

// fetchError は外部APIのエラーをfetchのレスポンスのステータスとメッセージに変換する。
func fetchError(username string, err error) (int, string) {
	if upstream.KindOf(err) != upstream.KindRejected {
		return http.StatusInternalServerError, msgFetchFailed
	}

	status := upstream.StatusOf(err)
	switch status {
	case http.StatusNotFound:
		return status, fmt.Sprintf(msgUserNotFoundFmt, username)
	case http.StatusUnauthorized:
		return status, msgBadCredentials
	case http.StatusForbidden:
		return status, msgRateLimited
	}

	var ue *upstream.Error
	if errors.As(err, &ue) && ue.Message != "" {
		return status, ue.Message
	}
	return status, msgFetchFailed
}

// failedData はエラーから失敗イベントのデータを組み立てる。
func failedData(err error) event.UpstreamFailedData {
	data := event.UpstreamFailedData{Reason: err.Error()}
	var ue *upstream.Error
	if errors.As(err, &ue) {
		data.Upstream = ue.Upstream
		data.Kind = string(ue.Kind)
		data.StatusCode = ue.StatusCode
	}
	return data
}

// logUpstreamError は外部APIエラーの分類をフィールドに含めたログエントリを返す。
func (s *Server) logUpstreamError(c *gin.Context, err error) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"kind":       upstream.KindOf(err),
		"status":     upstream.StatusOf(err),
	}).WithError(err)
}
