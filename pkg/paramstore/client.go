// Package paramstore はAWS Systems Manager Parameter Storeから秘密情報を読み出す。
//
// GitHubトークンを環境変数ではなくParameter Storeで管理する環境で使用する。
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI はClientが必要とするSSM APIの最小インターフェース。
// aws-sdk-go-v2の*ssm.Clientがこれを満たす。
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter はパラメータを名前で取得するインターフェース。
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client はSSM Parameter Storeのクライアント。
type Client struct {
	api ssmAPI
}

// New は指定したSSM API実装でClientを生成する。
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api が nil です")
	}
	return &Client{api: api}, nil
}

// NewFromEnvironment はAWSのデフォルト認証情報チェーンからClientを生成する。
func NewFromEnvironment(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("paramstore: AWS設定の読み込みに失敗: %w", err)
	}
	return New(ssm.NewFromConfig(cfg))
}

// GetParameter はパラメータを復号して取得する。
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: パラメータ名が空です")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: パラメータ %q の取得に失敗: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: パラメータ %q に値がありません", name)
	}
	return *out.Parameter.Value, nil
}
