package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/kumasuke/infraprobe/internal/report"
	"github.com/kumasuke/infraprobe/internal/target"
	"github.com/kumasuke/infraprobe/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useStorage(t *testing.T, ts *testutil.S3Server) {
	t.Helper()
	t.Setenv("INFRAPROBE_STORAGE_ENDPOINT_URL", ts.Endpoint)
	t.Setenv("INFRAPROBE_AWS_ACCESS_KEY", ts.AccessKey)
	t.Setenv("INFRAPROBE_AWS_SECRET_KEY", ts.SecretKey)
}

func useSecrets(t *testing.T, ss *testutil.SecretsServer) {
	t.Helper()
	t.Setenv("INFRAPROBE_SECRETS_ENDPOINT_URL", ss.Endpoint)
	t.Setenv("INFRAPROBE_AWS_ACCESS_KEY", "probeadmin")
	t.Setenv("INFRAPROBE_AWS_SECRET_KEY", "probeadmin")
}

func TestStorageCommandSuccess(t *testing.T) {
	ts := testutil.NewS3Server(t)
	for _, name := range []string{"passit-dev-uploads", "passit-dev-logs", "passit-dev-backup"} {
		ts.AddBucket(name, testutil.Bucket{Region: "ap-northeast-2", Versioning: "Enabled", Encryption: "AES256"})
	}
	useStorage(t, ts)

	out, err := execute(t, "storage")
	require.NoError(t, err)

	assert.Contains(t, out, "S3 bucket test - dev environment")
	assert.Contains(t, out, "✅ S3 bucket test complete (3/3 succeeded)")
	assert.NotContains(t, out, "❌")
	for _, name := range []string{"passit-dev-uploads", "passit-dev-logs", "passit-dev-backup"} {
		assert.Empty(t, ts.Objects(name), name)
	}
}

func TestStorageCommandEnvironmentArgument(t *testing.T) {
	ts := testutil.NewS3Server(t)
	ts.AddBucket("passit-staging-uploads", testutil.Bucket{})
	useStorage(t, ts)

	out, err := execute(t, "storage", "staging")
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrProbeFailed)

	assert.Contains(t, out, "S3 bucket test - staging environment")
	assert.Contains(t, out, "Bucket: passit-staging-logs")
	assert.Contains(t, out, "❌ Bucket does not exist")
	assert.Contains(t, out, "❌ S3 bucket test finished with failures (1/3 succeeded)")
}

func TestStorageCommandWrongCredentials(t *testing.T) {
	ts := testutil.NewS3Server(t)
	ts.AddBucket("passit-dev-uploads", testutil.Bucket{})
	useStorage(t, ts)
	t.Setenv("INFRAPROBE_AWS_SECRET_KEY", "not-the-secret")

	out, err := execute(t, "storage")
	require.ErrorIs(t, err, report.ErrProbeFailed)
	assert.Contains(t, out, "❌ Bucket is not accessible (permission denied)")
	assert.Equal(t, 0, ts.CountRequests("PUT", "/"))
}

func TestStorageCommandRejectsExtraArguments(t *testing.T) {
	_, err := execute(t, "storage", "dev", "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestCacheCommandSuccess(t *testing.T) {
	mr := testutil.NewCacheServer(t)
	host, port := testutil.CacheHostPort(t, mr)

	ss := testutil.NewSecretsServer(t)
	ss.SetSecret("passit/dev/valkey/connection", testutil.CacheSecret(t, host, port))
	useSecrets(t, ss)

	out, err := execute(t, "cache")
	require.NoError(t, err)

	assert.Equal(t, []string{"passit/dev/valkey/connection"}, ss.Requested())
	assert.Contains(t, out, "Valkey connection test - dev environment")
	assert.Contains(t, out, "✅ Connection info retrieved")
	assert.Contains(t, out, "✅ Connected: PING -> PONG")
	assert.Contains(t, out, "✅ Cache test complete (1/1 succeeded)")
	assert.Empty(t, mr.Keys())
}

func TestCacheCommandConnectionRefused(t *testing.T) {
	host, port := testutil.ClosedCacheAddr(t)

	ss := testutil.NewSecretsServer(t)
	ss.SetSecret("passit/prod/valkey/connection", testutil.CacheSecret(t, host, port))
	useSecrets(t, ss)

	out, err := execute(t, "cache", "prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrProbeFailed)

	assert.Contains(t, out, "❌ Connection error:")
	assert.Contains(t, out, "Likely causes:")
	assert.Contains(t, out, "(0/1 succeeded)")
}

func TestCacheCommandMissingSecret(t *testing.T) {
	ss := testutil.NewSecretsServer(t)
	useSecrets(t, ss)

	out, err := execute(t, "cache", "qa")
	require.Error(t, err)
	assert.ErrorIs(t, err, target.ErrSecretLookup)
	assert.Contains(t, err.Error(), "passit/qa/valkey/connection")

	assert.Contains(t, out, "❌ Failed to fetch connection info")
	assert.Contains(t, out, "ResourceNotFoundException")
	assert.NotContains(t, out, "Testing valkey connection")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "infraprobe version dev (commit: unknown)\n", out)
}
