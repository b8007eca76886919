package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// SecretsServer is a fake Secrets Manager endpoint speaking the JSON 1.1
// protocol for GetSecretValue.
type SecretsServer struct {
	Endpoint string

	mu        sync.Mutex
	secrets   map[string]string
	requested []string
}

// NewSecretsServer starts a fake Secrets Manager that is closed when the test
// ends.
func NewSecretsServer(t *testing.T) *SecretsServer {
	t.Helper()

	s := &SecretsServer{secrets: make(map[string]string)}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	s.Endpoint = srv.URL
	t.Cleanup(srv.Close)

	return s
}

// SetSecret stores a secret string under name.
func (s *SecretsServer) SetSecret(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
}

// Requested returns the secret ids looked up so far.
func (s *SecretsServer) Requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

func (s *SecretsServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Amz-Target") != "secretsmanager.GetSecretValue" {
		writeJSONError(w, http.StatusBadRequest, "InvalidRequestException", "unsupported operation")
		return
	}

	var in struct {
		SecretId string
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "InvalidParameterException", err.Error())
		return
	}

	s.mu.Lock()
	s.requested = append(s.requested, in.SecretId)
	value, ok := s.secrets[in.SecretId]
	s.mu.Unlock()

	if !ok {
		writeJSONError(w, http.StatusBadRequest, "ResourceNotFoundException",
			"Secrets Manager can't find the specified secret.")
		return
	}

	w.Header().Set("Content-Type", "application/x-amz-json-1.1")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"ARN":          "arn:aws:secretsmanager:us-east-1:000000000000:secret:" + in.SecretId,
		"Name":         in.SecretId,
		"SecretString": value,
		"VersionId":    "00000000-0000-0000-0000-000000000001",
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.1")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"__type":  code,
		"message": message,
	})
}
