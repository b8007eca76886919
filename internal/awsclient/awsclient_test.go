package awsclient

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/kumasuke/infraprobe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithStaticCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AWS.AccessKey = "probeadmin"
	cfg.AWS.SecretKey = "probesecret"

	awsCfg, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ap-northeast-2", awsCfg.Region)
	assert.Equal(t, 1, awsCfg.RetryMaxAttempts)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "probeadmin", creds.AccessKeyID)
}

func TestNewS3Endpoint(t *testing.T) {
	awsCfg := aws.Config{Region: "us-east-1"}

	client := NewS3(awsCfg, "http://127.0.0.1:9000")
	opts := client.Options()
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	client = NewS3(awsCfg, "")
	assert.Nil(t, client.Options().BaseEndpoint)
	assert.False(t, client.Options().UsePathStyle)
}

func TestNewSecretsManagerEndpoint(t *testing.T) {
	client := NewSecretsManager(aws.Config{Region: "us-east-1"}, "http://127.0.0.1:4566")
	assert.Equal(t, "http://127.0.0.1:4566", aws.ToString(client.Options().BaseEndpoint))
}
