// Package httpclient は外部APIとのJSON通信を行うHTTPクライアントを提供する。
//
// タイムアウト付きのGET/POSTと、失敗を upstream.Error として分類する処理を
// 一箇所にまとめる。Adzuna等、専用SDKを持たない外部APIの呼び出しに使用する。
package httpclient
