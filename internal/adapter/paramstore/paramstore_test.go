package paramstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	value *string
	err   error
	calls int
	input *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: f.value}}, nil
}

func TestAPIKeyReadsDecryptedParameter(t *testing.T) {
	api := &fakeSSM{value: aws.String(" sk-test \n")}
	store, err := New(api, "/seawatch/llm-key", 0)
	require.NoError(t, err)

	key, err := store.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-test", key)
	require.Equal(t, "/seawatch/llm-key", aws.ToString(api.input.Name))
	require.True(t, aws.ToBool(api.input.WithDecryption))
}

func TestAPIKeyCachesUntilTTL(t *testing.T) {
	api := &fakeSSM{value: aws.String("sk-1")}
	store, err := New(api, "p", time.Minute)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	store.now = func() time.Time { return now }

	_, err = store.APIKey(context.Background())
	require.NoError(t, err)
	_, err = store.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, api.calls)

	now = now.Add(2 * time.Minute)
	api.value = aws.String("sk-2")
	key, err := store.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-2", key)
	require.Equal(t, 2, api.calls)
}

func TestAPIKeyErrors(t *testing.T) {
	store, err := New(&fakeSSM{err: errors.New("boom")}, "p", 0)
	require.NoError(t, err)
	_, err = store.APIKey(context.Background())
	require.ErrorContains(t, err, "boom")

	store, err = New(&fakeSSM{}, "p", 0)
	require.NoError(t, err)
	_, err = store.APIKey(context.Background())
	require.ErrorContains(t, err, "no value")

	store, err = New(&fakeSSM{value: aws.String("  ")}, "p", 0)
	require.NoError(t, err)
	_, err = store.APIKey(context.Background())
	require.ErrorContains(t, err, "empty")
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, "p", 0)
	require.ErrorContains(t, err, "must not be nil")

	_, err = New(&fakeSSM{}, "  ", 0)
	require.ErrorContains(t, err, "required")
}
