package target

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kumasuke/infraprobe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSecrets struct {
	values    map[string]string
	requested []string
}

func (s *stubSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	name := aws.ToString(in.SecretId)
	s.requested = append(s.requested, name)
	v, ok := s.values[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")}
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: aws.String(v)}, nil
}

func TestBucketName(t *testing.T) {
	assert.Equal(t, "passit-dev-uploads", BucketName("passit", "dev", "uploads"))
}

func TestBucketNames(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, []string{"passit-dev-uploads", "passit-dev-logs", "passit-dev-backup"}, BucketNames(cfg))

	cfg.Environment = "prod"
	for i, name := range BucketNames(cfg) {
		assert.Equal(t, "passit-prod-"+cfg.Storage.Roles[i], name)
	}
}

func TestSecretName(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "passit/dev/valkey/connection", SecretName(cfg))

	cfg.Environment = "prod"
	assert.Equal(t, "passit/prod/valkey/connection", SecretName(cfg))
}

func TestParseCacheSecret(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    CacheEndpoint
		wantErr string
	}{
		{
			name:    "full payload",
			payload: `{"primary_endpoint":"cache.example.internal","port":6380,"engine":"redis"}`,
			want:    CacheEndpoint{Host: "cache.example.internal", Port: 6380, Engine: "redis"},
		},
		{
			name:    "defaults",
			payload: `{"primary_endpoint":"cache.example.internal"}`,
			want:    CacheEndpoint{Host: "cache.example.internal", Port: 6379, Engine: "valkey"},
		},
		{
			name:    "string port",
			payload: `{"primary_endpoint":"cache.example.internal","port":"7000"}`,
			want:    CacheEndpoint{Host: "cache.example.internal", Port: 7000, Engine: "valkey"},
		},
		{name: "missing endpoint", payload: `{"port":6379}`, wantErr: "primary_endpoint"},
		{name: "bad port", payload: `{"primary_endpoint":"h","port":70000}`, wantErr: "invalid port"},
		{name: "not json", payload: `host=cache`, wantErr: "invalid secret payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCacheSecret([]byte(tt.payload), 6379)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCache(t *testing.T) {
	cfg := config.DefaultConfig()
	api := &stubSecrets{values: map[string]string{
		"passit/dev/valkey/connection": `{"primary_endpoint":"cache.example.internal","port":6379,"engine":"valkey"}`,
	}}

	ep, err := ResolveCache(context.Background(), api, cfg)
	require.NoError(t, err)
	assert.Equal(t, "cache.example.internal:6379", ep.Addr())
	assert.Equal(t, "valkey", ep.Engine)
	assert.Equal(t, []string{"passit/dev/valkey/connection"}, api.requested)
}

func TestResolveCacheLookupFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Environment = "prod"

	_, err := ResolveCache(context.Background(), &stubSecrets{}, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSecretLookup)
	assert.Contains(t, err.Error(), "passit/prod/valkey/connection")
	assert.Contains(t, err.Error(), "can't find the specified secret")

	var notFound *types.ResourceNotFoundException
	assert.True(t, errors.As(err, &notFound))
}

func TestResolveCacheBadPayload(t *testing.T) {
	cfg := config.DefaultConfig()
	api := &stubSecrets{values: map[string]string{"passit/dev/valkey/connection": `{}`}}

	_, err := ResolveCache(context.Background(), api, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSecretLookup)
}
