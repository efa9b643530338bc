// Package event はゲートウェイが記録するイベントの型とシリアライズ処理を提供する。
//
// イベントは外部API呼び出しの結果を運用者が追跡するための不変のレコードであり、
// リクエスト処理の結果には影響しない。
package event

import (
	"encoding/json"
	"time"
)

// SubjectType はイベントの対象の種類を表す。
type SubjectType string

const (
	// SubjectTypeGitHubUser はGitHubユーザーを表す。
	SubjectTypeGitHubUser SubjectType = "GitHubUser"
	// SubjectTypeJobQuery は求人検索の条件を表す。
	SubjectTypeJobQuery SubjectType = "JobQuery"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeProfileAnalyzed はGitHubプロフィールの分析に成功したことを表す。
	TypeProfileAnalyzed Type = "ProfileAnalyzed"
	// TypeProfileAnalysisFailed はGitHubプロフィールの分析に失敗したことを表す。
	TypeProfileAnalysisFailed Type = "ProfileAnalysisFailed"
	// TypeProfileFetched はGitHubプロフィールの取得に成功したことを表す。
	TypeProfileFetched Type = "ProfileFetched"
	// TypeProfileFetchFailed はGitHubプロフィールの取得に失敗したことを表す。
	TypeProfileFetchFailed Type = "ProfileFetchFailed"
	// TypeJobsSearched は求人検索が完了したことを表す。
	TypeJobsSearched Type = "JobsSearched"
	// TypeJobSearchFailed は求人検索に失敗したことを表す。
	TypeJobSearchFailed Type = "JobSearchFailed"
)

// Event はゲートウェイが記録する不変のイベントレコードを表す。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Subject は対象の識別子（GitHubユーザー名、検索条件など）。
	Subject string `json:"subject"`
	// SubjectType は対象の種類。
	SubjectType SubjectType `json:"subject_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// RequestID はイベントを発生させたリクエストのID。
	RequestID string `json:"request_id,omitempty"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// ProfileAnalyzedData はProfileAnalyzedイベントのデータ。
type ProfileAnalyzedData struct {
	// RepoCount は取得したリポジトリ数。
	RepoCount int `json:"repo_count"`
	// Authenticated はトークン付きで呼び出したかどうか。
	Authenticated bool `json:"authenticated"`
}

// ProfileFetchedData はProfileFetchedイベントのデータ。
type ProfileFetchedData struct {
	// RepoCount は取得したリポジトリ数。
	RepoCount int `json:"repo_count"`
	// TopLanguages は使用頻度の高い言語。
	TopLanguages []string `json:"top_languages"`
	// TotalStars はスター数の合計。
	TotalStars int `json:"total_stars"`
}

// UpstreamFailedData は外部API呼び出しの失敗を表すイベントのデータ。
// ProfileAnalysisFailed、ProfileFetchFailed、JobSearchFailedで共通に使用する。
type UpstreamFailedData struct {
	// Upstream は呼び出し先の名前。
	Upstream string `json:"upstream,omitempty"`
	// Kind は失敗の種類（unavailable, rejected, malformed）。
	Kind string `json:"kind,omitempty"`
	// StatusCode は外部APIが返したHTTPステータス。
	StatusCode int `json:"status_code,omitempty"`
	// Reason はエラーメッセージ。
	Reason string `json:"reason"`
}

// JobsSearchedData はJobsSearchedイベントのデータ。
type JobsSearchedData struct {
	// Company は検索した会社名。
	Company string `json:"company"`
	// Role は検索した職種。
	Role string `json:"role"`
	// Source は求人の取得元（"stub" または "adzuna"）。
	Source string `json:"source"`
	// JobCount は返した求人数。
	JobCount int `json:"job_count"`
}
