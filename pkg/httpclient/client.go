package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/careerlens/pkg/upstream"
)

// DefaultTimeout は外部API呼び出しのデフォルトタイムアウト。
const DefaultTimeout = 30 * time.Second

// maxErrorBody はエラーレスポンスから読み取るボディの上限（バイト）。
const maxErrorBody = 4 << 10

// Client は外部API呼び出し用のHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先APIのベースURL。
	baseURL string
	// name はエラー分類に使う接続先の名前。
	name string
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithTimeout はリクエスト全体のタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithName はエラー分類に使う接続先の名前を設定する。
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先APIのベースURL（例: "https://api.adzuna.com"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
		name:    "upstream",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON は指定パスにGETリクエストを送信し、レスポンスボディをresultにデシリアライズする。
// pathにはクエリ文字列を含めてよい。送信後の失敗はすべて *upstream.Error として返す。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if requestID := RequestIDFrom(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &upstream.Error{
			Kind:     upstream.KindUnavailable,
			Upstream: c.name,
			Err:      fmt.Errorf("HTTPリクエストの送信に失敗: %w", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &upstream.Error{
			Kind:       upstream.KindRejected,
			Upstream:   c.name,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
			Err:        fmt.Errorf("HTTPエラー: status=%d, body=%s", resp.StatusCode, string(respBody)),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &upstream.Error{
				Kind:     upstream.KindMalformed,
				Upstream: c.name,
				Err:      fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err),
			}
		}
	}
	return nil
}

// errorMessage はエラーレスポンスのJSONから "message" または "error" を取り出す。
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 外部API呼び出しのログと受信リクエストを突き合わせるために使用する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFrom はコンテキストからリクエストIDを取り出す。
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
