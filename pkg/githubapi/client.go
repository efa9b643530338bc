package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/careerlens/pkg/upstream"
)

const (
	// upstreamName はエラー分類に使う接続先の名前。
	upstreamName = "github"
	// DefaultTimeout はGitHub API呼び出しのデフォルトタイムアウト。
	DefaultTimeout = 30 * time.Second
	// reposPerPage はリポジトリ一覧で取得する件数。ページングは行わない。
	reposPerPage = 100
)

// ErrInvalidUsername はユーザー名として受け付けられない値が渡された場合に返される。
var ErrInvalidUsername = errors.New("ユーザー名が不正です")

// ValidateUsername はユーザー名がURLパスの1セグメントとして扱えるかを検証する。
// 空文字列と"."・".."はパスの解決で別のエンドポイントを指してしまうため拒否する。
func ValidateUsername(username string) error {
	switch username {
	case "", ".", "..":
		return fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return nil
}

// Profile はGitHubから取得したユーザー情報とリポジトリ一覧。
type Profile struct {
	// User はユーザー情報。
	User *github.User
	// Repos は更新日時の新しい順に並んだリポジトリ一覧（最大100件）。
	Repos []*github.Repository
}

// Client はGitHub REST APIクライアント。
type Client struct {
	gh            *github.Client
	authenticated bool
}

type options struct {
	baseURL string
	timeout time.Duration
}

// Option はClientの設定を変更する関数。
type Option func(*options)

// WithBaseURL はAPIのベースURLを差し替える。GitHub Enterpriseやテスト用サーバーに使う。
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithTimeout はリクエスト全体のタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// New はGitHub APIクライアントを生成する。
// tokenが空の場合は未認証で呼び出す（GitHub側のレート制限が低くなる）。
func New(token string, opts ...Option) (*Client, error) {
	o := &options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = o.timeout

	gh := github.NewClient(httpClient)
	if o.baseURL != "" {
		u, err := parseBaseURL(o.baseURL)
		if err != nil {
			return nil, err
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, authenticated: token != ""}, nil
}

// Authenticated はトークン付きで呼び出すかどうかを返す。
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// FetchProfile はユーザー情報とリポジトリ一覧を並行して取得する。
// どちらか一方でも失敗した場合はもう一方をキャンセルし、最初のエラーを返す。
func (c *Client) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	// go-githubはパスをエスケープしないため、"/"を含む名前で別のエンドポイントに届かないようにする
	escaped := url.PathEscape(username)

	var (
		user  *github.User
		repos []*github.Repository
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, _, err := c.gh.Users.Get(gctx, escaped)
		if err != nil {
			return translate(err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		r, _, err := c.gh.Repositories.List(gctx, escaped, &github.RepositoryListOptions{
			Sort:        "updated",
			ListOptions: github.ListOptions{PerPage: reposPerPage},
		})
		if err != nil {
			return translate(err)
		}
		repos = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Profile{User: user, Repos: repos}, nil
}

// translate はgo-githubのエラーをupstream.Errorに変換する。
func translate(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &upstream.Error{
			Kind:       upstream.KindRejected,
			Upstream:   upstreamName,
			StatusCode: statusOf(rateErr.Response, http.StatusForbidden),
			Message:    rateErr.Message,
			Err:        err,
		}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &upstream.Error{
			Kind:       upstream.KindRejected,
			Upstream:   upstreamName,
			StatusCode: statusOf(abuseErr.Response, http.StatusForbidden),
			Message:    abuseErr.Message,
			Err:        err,
		}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return &upstream.Error{
			Kind:       upstream.KindRejected,
			Upstream:   upstreamName,
			StatusCode: statusOf(respErr.Response, http.StatusBadGateway),
			Message:    respErr.Message,
			Err:        err,
		}
	}
	return upstream.Classify(upstreamName, err)
}

func statusOf(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}

// parseBaseURL はベースURLを解析する。go-githubは末尾のスラッシュを要求する。
func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("GitHub APIのURLが不正です: %w", err)
	}
	return u, nil
}
