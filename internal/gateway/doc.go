// Package gateway はフロントエンドから呼ばれるHTTP APIゲートウェイを提供する。
//
// GitHubプロフィールの分析・取得と求人検索の2系統の外部APIを中継する。
// 外部APIの呼び出し結果はイベントログに記録するが、記録の失敗はレスポンスに影響しない。
package gateway
