package probe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseError(status int, cause error) error {
	return &smithy.OperationError{
		ServiceID:     "S3",
		OperationName: "HeadBucket",
		Err: &awshttp.ResponseError{
			ResponseError: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
				Err:      cause,
			},
			RequestID: "req-1",
		},
	}
}

func TestClassifyAWS(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"no such bucket code", &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "gone"}, KindNotFound},
		{"head 404", responseError(http.StatusNotFound, &smithy.GenericAPIError{Code: "NotFound"}), KindNotFound},
		{"head 403", responseError(http.StatusForbidden, &smithy.GenericAPIError{Code: "Forbidden"}), KindAccessDenied},
		{"access denied code", fmt.Errorf("put: %w", &smithy.GenericAPIError{Code: "AccessDenied"}), KindAccessDenied},
		{"status only", responseError(http.StatusForbidden, errors.New("boom")), KindAccessDenied},
		{"server error", responseError(http.StatusInternalServerError, &smithy.GenericAPIError{Code: "InternalError"}), KindOther},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindConnection},
		{"plain error", errors.New("something odd"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAWS(tt.err))
		})
	}
}

func TestNotFoundAndAccessDeniedAreDistinct(t *testing.T) {
	notFound := ClassifyAWS(responseError(http.StatusNotFound, &smithy.GenericAPIError{Code: "NotFound"}))
	denied := ClassifyAWS(responseError(http.StatusForbidden, &smithy.GenericAPIError{Code: "Forbidden"}))

	assert.NotEqual(t, notFound, denied)
	assert.NotEqual(t, notFound.String(), denied.String())
}

func TestErrorCodeAndStatus(t *testing.T) {
	err := responseError(http.StatusNotFound, &smithy.GenericAPIError{Code: "NotFound"})
	assert.Equal(t, "NotFound", ErrorCode(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	assert.Empty(t, ErrorCode(errors.New("plain")))
	assert.Zero(t, StatusCode(errors.New("plain")))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}))
	assert.True(t, IsConnectionError(fmt.Errorf("read: %w", io.EOF)))
	assert.True(t, IsConnectionError(syscall.ECONNRESET))
	assert.False(t, IsConnectionError(errors.New("WRONGTYPE Operation against a key")))
	assert.False(t, IsConnectionError(nil))
}

func TestOutcome(t *testing.T) {
	ok := Pass("passit-dev-logs")
	assert.True(t, ok.Passed())
	assert.Equal(t, "passit-dev-logs: ok", ok.String())

	failed := Fail("passit-dev-logs", KindWriteFailed, errors.New("denied"))
	assert.False(t, failed.Passed())
	assert.Equal(t, "passit-dev-logs: write failed: denied", failed.String())

	// A failure can never be recorded as a pass.
	assert.False(t, Fail("x", KindNone, nil).Passed())
}

func TestAttributeString(t *testing.T) {
	assert.Equal(t, "Enabled", Attribute{Name: "Versioning", Value: "Enabled"}.String())
	assert.Equal(t, "not configured", Attribute{Name: "Encryption", NotConfigured: true}.String())
	assert.Equal(t, "unavailable (timeout)", Attribute{Name: "Location", Err: errors.New("timeout")}.String())
	assert.Equal(t, "unavailable", Attribute{Name: "Encryption"}.String())
}

func TestNewToken(t *testing.T) {
	now := time.Unix(1712345678, 0)
	a := NewToken(now)
	b := NewToken(now)

	require.Regexp(t, `^1712345678-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}
