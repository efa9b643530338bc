// Package githubapi はGitHub REST APIからユーザープロフィールとリポジトリ一覧を取得する。
//
// go-githubをラップし、トークンが設定されていればOAuth2のBearer認証で呼び出す。
// 失敗は upstream.Error に分類して返す。
package githubapi
