// Package eventlog はゲートウェイが発行したイベントをSQLiteに追記・参照するストアを提供する。
//
// イベントは追記専用で、更新や削除は行わない。
// スキーマはmigrationsディレクトリのSQLファイルで管理し、起動時に自動適用する。
package eventlog
