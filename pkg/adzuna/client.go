// Package adzuna はAdzuna求人検索APIのクライアントを提供する。
package adzuna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/careerlens/pkg/httpclient"
)

const (
	// DefaultBaseURL はAdzuna APIのベースURL。
	DefaultBaseURL = "https://api.adzuna.com"
	// DefaultCountry は検索対象の国コード。
	DefaultCountry = "us"
	// DefaultResultsPerPage は1回の検索で取得する求人数。
	DefaultResultsPerPage = 5
)

// Config はAdzunaクライアントの設定。
type Config struct {
	// AppID はAdzunaのアプリケーションID。
	AppID string
	// AppKey はAdzunaのAPIキー。
	AppKey string
	// BaseURL はAPIのベースURL。空ならDefaultBaseURL。
	BaseURL string
	// Country は検索対象の国コード。空ならDefaultCountry。
	Country string
	// ResultsPerPage は取得件数。0以下ならDefaultResultsPerPage。
	ResultsPerPage int
	// Timeout はリクエスト全体のタイムアウト。0ならhttpclientのデフォルト。
	Timeout time.Duration
}

// Client はAdzuna求人検索APIクライアント。
type Client struct {
	http           *httpclient.Client
	appID          string
	appKey         string
	country        string
	resultsPerPage int
}

// searchResponse は検索APIのレスポンスのうち使用する部分。
type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

// New はAdzunaクライアントを生成する。AppIDとAppKeyは必須。
func New(cfg Config) (*Client, error) {
	if cfg.AppID == "" || cfg.AppKey == "" {
		return nil, errors.New("adzuna: app id と app key は必須です")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = DefaultResultsPerPage
	}

	opts := []httpclient.Option{httpclient.WithName("adzuna")}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}

	return &Client{
		http:           httpclient.New(strings.TrimSuffix(cfg.BaseURL, "/"), opts...),
		appID:          cfg.AppID,
		appKey:         cfg.AppKey,
		country:        cfg.Country,
		resultsPerPage: cfg.ResultsPerPage,
	}, nil
}

// Search は職種と会社名で求人を検索する。
// 求人レコードはAdzunaの形式のまま返す。
func (c *Client) Search(ctx context.Context, company, role string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	q.Set("what", strings.TrimSpace(role+" "+company))
	q.Set("results_per_page", strconv.Itoa(c.resultsPerPage))

	path := fmt.Sprintf("/v1/api/jobs/%s/search/1?%s", url.PathEscape(c.country), q.Encode())

	var resp searchResponse
	if err := c.http.GetJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []json.RawMessage{}, nil
	}
	return resp.Results, nil
}
