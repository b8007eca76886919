package testutil

import (
	"encoding/json"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// NewCacheServer starts an in-memory Redis-compatible server that is closed
// when the test ends.
func NewCacheServer(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// ClosedCacheAddr returns the host and port of a listener that has already
// been closed, so connecting to it is refused.
func ClosedCacheAddr(t *testing.T) (string, int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := l.Addr().(*net.TCPAddr)
	if err := l.Close(); err != nil {
		t.Fatalf("failed to close listener: %v", err)
	}
	return addr.IP.String(), addr.Port
}

// CacheSecret renders the cache connection secret payload.
func CacheSecret(t *testing.T, host string, port int) string {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"primary_endpoint": host,
		"port":             port,
		"engine":           "valkey",
	})
	if err != nil {
		t.Fatalf("failed to marshal secret: %v", err)
	}
	return string(payload)
}

// CacheHostPort splits the address of a running cache server.
func CacheHostPort(t *testing.T, mr *miniredis.Miniredis) (string, int) {
	t.Helper()

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("invalid port %q: %v", mr.Port(), err)
	}
	return mr.Host(), port
}
