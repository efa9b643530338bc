package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI はテスト用のssmAPI実装。
type fakeAPI struct {
	out *ssm.GetParameterOutput
	err error
	in  *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestNew_RejectsNilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_ReturnsDecryptedValue(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/careerlens/github-token"),
		Value: aws.String("ghp_secret"),
		Type:  types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), "  /careerlens/github-token ")
	require.NoError(t, err)
	require.Equal(t, "ghp_secret", v)
	require.Equal(t, "/careerlens/github-token", aws.ToString(api.in.Name))
	require.True(t, aws.ToBool(api.in.WithDecryption))
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "   ")
	require.Error(t, err)
}

func TestGetParameter_MissingValue(t *testing.T) {
	client, err := New(&fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: aws.String("p")}}})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
}

func TestGetParameter_APIError(t *testing.T) {
	apiErr := errors.New("AccessDeniedException")
	client, err := New(&fakeAPI{err: apiErr})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorIs(t, err, apiErr)
}
