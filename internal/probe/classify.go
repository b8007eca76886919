package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// ErrorCode returns the service error code carried by an AWS API error, or ""
// when err is not an API error.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// StatusCode returns the HTTP status of a failed AWS request, or 0 when the
// request never got a response.
func StatusCode(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// ClassifyAWS maps an AWS SDK error onto a Kind. Missing resources and
// permission failures are kept apart; anything else is KindOther.
func ClassifyAWS(err error) Kind {
	if err == nil {
		return KindNone
	}

	switch ErrorCode(err) {
	case "NotFound", "NoSuchBucket", "ResourceNotFoundException":
		return KindNotFound
	case "AccessDenied", "Forbidden", "AccessDeniedException", "AllAccessDisabled":
		return KindAccessDenied
	}

	switch StatusCode(err) {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusForbidden:
		return KindAccessDenied
	}

	if IsConnectionError(err) {
		return KindConnection
	}
	return KindOther
}

// IsConnectionError reports whether err comes from the network path (dial,
// refused or reset connections, timeouts, a peer hanging up) rather than
// from the remote service itself.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded)
}
