package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind は外部API呼び出しの失敗の種類を表す。
type Kind string

const (
	// KindUnavailable は通信失敗・タイムアウト等で外部APIに到達できなかったことを表す。
	KindUnavailable Kind = "unavailable"
	// KindRejected は外部APIが2xx以外のステータスを返したことを表す。
	KindRejected Kind = "rejected"
	// KindMalformed は外部APIのレスポンスを解釈できなかったことを表す。
	KindMalformed Kind = "malformed"
)

// Error は外部API呼び出しの失敗を表す。
type Error struct {
	// Kind は失敗の種類。
	Kind Kind
	// Upstream は呼び出し先の名前（例: "github"）。
	Upstream string
	// StatusCode は外部APIが返したHTTPステータス。KindRejected以外では0。
	StatusCode int
	// Message は外部APIがレスポンスに含めたメッセージ。無ければ空。
	Message string
	// Err は元のエラー。
	Err error
}

// Error はエラーメッセージを返す。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status=%d): %v", e.Upstream, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Upstream, e.Kind, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify は汎用的なエラーを分類して*Errorに変換する。
// errが既に*Errorを含む場合はそれをそのまま返す。
func Classify(name string, err error) *Error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformed, Upstream: name, Err: err}
	}
	// 通信失敗・タイムアウト・コンテキストのキャンセルはすべて到達不能として扱う
	return &Error{Kind: KindUnavailable, Upstream: name, Err: err}
}

// KindOf はエラーの種類を返す。*Errorでなければ空文字列を返す。
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}

// StatusOf は外部APIが返したHTTPステータスを返す。不明な場合は0。
func StatusOf(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
