// Package config はゲートウェイの設定を環境変数と任意のconfig.yamlから読み込む。
//
// 環境変数はconfig.yamlより優先される。.envファイルの読み込みは呼び出し側
// （cmd/gateway）がgodotenvで行い、本パッケージは環境変数のみを参照する。
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/careerlens/pkg/paramstore"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// 設定キー。環境変数名はキーを大文字にし"."を"_"に置き換えたものになる。
const (
	keyPort               = "port"
	keyGitHubToken        = "github_token"
	keyGitHubTokenParam   = "github_token_parameter"
	keyGitHubAPIURL       = "github_api_url"
	keyUpstreamTimeout    = "upstream_timeout"
	keyAdzunaAppID        = "adzuna_app_id"
	keyAdzunaAPIKey       = "adzuna_api_key"
	keyAdzunaAPIURL       = "adzuna_api_url"
	keyAdzunaCountry      = "adzuna_country"
	keyCORSAllowedOrigins = "cors_allowed_origins"
	keyDatabasePath       = "database_path"
	keyLogLevel           = "log_level"
	keyLogFormat          = "log_format"
)

// placeholders はサンプルの.envに記載されている値。未設定として扱う。
var placeholders = map[string]struct{}{
	"your_github_personal_access_token": {},
	"your_adzuna_app_id":                {},
	"your_adzuna_api_key":               {},
}

// Config はゲートウェイの設定を表す。起動時に一度だけ構築し、以降は読み取り専用。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// GitHubToken はGitHub APIのアクセストークン。空なら匿名で呼び出す。
	GitHubToken string
	// GitHubTokenParameter はトークンを格納したSSMパラメータ名。
	GitHubTokenParameter string
	// GitHubAPIURL はGitHub APIのベースURL。
	GitHubAPIURL string
	// UpstreamTimeout は外部API呼び出しのタイムアウト。
	UpstreamTimeout time.Duration
	// AdzunaAppID はAdzuna APIのアプリケーションID。
	AdzunaAppID string
	// AdzunaAPIKey はAdzuna APIのキー。
	AdzunaAPIKey string
	// AdzunaAPIURL はAdzuna APIのベースURL。
	AdzunaAPIURL string
	// AdzunaCountry は求人検索の対象国コード。
	AdzunaCountry string
	// CORSAllowedOrigins はCORSで許可するオリジン。
	CORSAllowedOrigins []string
	// DatabasePath はイベントログのSQLiteファイルパス。
	DatabasePath string
	// LogLevel はログレベル。
	LogLevel string
	// LogFormat はログの出力形式（text または json）。
	LogFormat string
}

// AdzunaEnabled はAdzunaの認証情報が揃っているかを返す。
func (c *Config) AdzunaEnabled() bool {
	return c.AdzunaAppID != "" && c.AdzunaAPIKey != ""
}

// Load は環境変数と任意のconfig.yamlから設定を読み込む。
// searchPathsはconfig.yamlを探すディレクトリで、省略時はカレントディレクトリ。
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	cfg := &Config{
		Port:                 strings.TrimSpace(v.GetString(keyPort)),
		GitHubToken:          credential(v.GetString(keyGitHubToken)),
		GitHubTokenParameter: strings.TrimSpace(v.GetString(keyGitHubTokenParam)),
		GitHubAPIURL:         strings.TrimSpace(v.GetString(keyGitHubAPIURL)),
		AdzunaAppID:          credential(v.GetString(keyAdzunaAppID)),
		AdzunaAPIKey:         credential(v.GetString(keyAdzunaAPIKey)),
		AdzunaAPIURL:         strings.TrimSpace(v.GetString(keyAdzunaAPIURL)),
		AdzunaCountry:        strings.TrimSpace(v.GetString(keyAdzunaCountry)),
		CORSAllowedOrigins:   splitList(v.GetString(keyCORSAllowedOrigins)),
		DatabasePath:         strings.TrimSpace(v.GetString(keyDatabasePath)),
		LogLevel:             strings.TrimSpace(v.GetString(keyLogLevel)),
		LogFormat:            strings.TrimSpace(v.GetString(keyLogFormat)),
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString(keyUpstreamTimeout)))
	if err != nil {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT の値が不正です: %w", err)
	}
	cfg.UpstreamTimeout = timeout

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, "8000")
	v.SetDefault(keyGitHubToken, "")
	v.SetDefault(keyGitHubTokenParam, "")
	v.SetDefault(keyGitHubAPIURL, "https://api.github.com/")
	v.SetDefault(keyUpstreamTimeout, "30s")
	v.SetDefault(keyAdzunaAppID, "")
	v.SetDefault(keyAdzunaAPIKey, "")
	v.SetDefault(keyAdzunaAPIURL, "https://api.adzuna.com")
	v.SetDefault(keyAdzunaCountry, "us")
	v.SetDefault(keyCORSAllowedOrigins, "http://localhost:5173,http://localhost:3000")
	v.SetDefault(keyDatabasePath, "careerlens.db")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("PORT が空です")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT は正の値である必要があります: %s", c.UpstreamTimeout)
	}
	if c.GitHubAPIURL == "" {
		return errors.New("GITHUB_API_URL が空です")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH が空です")
	}
	return nil
}

// credential は前後の空白を取り除き、プレースホルダーなら空文字を返す。
func credential(raw string) string {
	s := strings.TrimSpace(raw)
	if IsPlaceholder(s) {
		return ""
	}
	return s
}

// IsPlaceholder はサンプル.envのプレースホルダー値かどうかを返す。
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.TrimSpace(s)]
	return ok
}

// splitList はカンマ区切りの文字列を分割し、空要素を除外する。
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ResolveGitHubToken はGITHUB_TOKENが未設定でGITHUB_TOKEN_PARAMETERが設定されている場合に、
// Parameter Storeからトークンを取得してcfgに設定する。
func ResolveGitHubToken(ctx context.Context, cfg *Config, getter paramstore.Getter) error {
	if cfg.GitHubToken != "" || cfg.GitHubTokenParameter == "" {
		return nil
	}
	if getter == nil {
		return errors.New("パラメータストアのクライアントが設定されていません")
	}

	token, err := getter.GetParameter(ctx, cfg.GitHubTokenParameter)
	if err != nil {
		return fmt.Errorf("GitHubトークンの取得に失敗: %w", err)
	}
	cfg.GitHubToken = credential(token)
	return nil
}

// NeedsParameterStore はトークンをParameter Storeから取得する必要があるかを返す。
func (c *Config) NeedsParameterStore() bool {
	return c.GitHubToken == "" && c.GitHubTokenParameter != ""
}

// LogCredentials は認証情報の読み込み状況をログに出力する。値そのものは出力しない。
func LogCredentials(logger logrus.FieldLogger, cfg *Config) {
	if cfg.GitHubToken != "" {
		logger.Info("GITHUB_TOKEN: 読み込み済み")
	} else {
		logger.Warn("GITHUB_TOKEN: 未設定（GitHub APIは未認証のレート制限で呼び出されます）")
	}

	if cfg.AdzunaEnabled() {
		logger.Info("ADZUNA_APP_ID / ADZUNA_API_KEY: 読み込み済み")
	} else {
		logger.Warn("ADZUNA_APP_ID / ADZUNA_API_KEY: 未設定（求人検索は固定レスポンスを返します）")
	}
}
