// Package upstream は外部API（GitHub、Adzuna）呼び出しの失敗を分類するエラー型を提供する。
//
// 失敗は「到達できない」「拒否された」「応答が不正」の3種類に分類される。
// ハンドラはこの分類を見てステータスコードやログの内容を決める。
package upstream
