// Package testutil provides in-process fakes of the services the probes talk
// to: an S3 endpoint, a Secrets Manager endpoint and a Redis-compatible cache.
package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Bucket configures how the fake S3 server behaves for one bucket.
type Bucket struct {
	Region     string
	Versioning string
	Encryption string

	Denied          bool // every request returns 403
	DenyWrites      bool // PutObject returns AccessDenied
	DenyDeletes     bool // DeleteObject returns AccessDenied
	DenyConfigReads bool // location, versioning and encryption return AccessDenied
	FailReads       bool // GetObject returns InternalError
	CorruptReads    bool // GetObject returns altered content
}

type object struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
}

type bucketState struct {
	Bucket
	objects map[string]object
}

// S3Server is an in-memory, path-style S3 endpoint covering the operations
// the storage probe uses.
type S3Server struct {
	Endpoint  string
	AccessKey string
	SecretKey string

	srv *httptest.Server

	mu       sync.Mutex
	buckets  map[string]*bucketState
	requests []string
}

// NewS3Server starts a fake S3 server that is closed when the test ends.
func NewS3Server(t *testing.T) *S3Server {
	t.Helper()

	s := &S3Server{
		AccessKey: "probeadmin",
		SecretKey: "probeadmin",
		buckets:   make(map[string]*bucketState),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.route))
	s.Endpoint = s.srv.URL
	t.Cleanup(s.srv.Close)

	return s
}

func (s *S3Server) verifier() sigV4Verifier {
	return sigV4Verifier{accessKey: s.AccessKey, secretKey: s.SecretKey}
}

// AddBucket creates a bucket with the given behavior.
func (s *S3Server) AddBucket(name string, b Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[name] = &bucketState{Bucket: b, objects: make(map[string]object)}
}

// PutObject stores an object directly, bypassing the HTTP layer.
func (s *S3Server) PutObject(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[bucket]; ok {
		b.objects[key] = newObject(data, "application/octet-stream")
	}
}

// Objects returns the sorted keys stored in bucket.
func (s *S3Server) Objects(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Requests returns every request received, as "METHOD /path".
func (s *S3Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// CountRequests returns how many requests used method on a path with prefix.
func (s *S3Server) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		m, path, _ := strings.Cut(r, " ")
		if m == method && strings.HasPrefix(path, pathPrefix) {
			n++
		}
	}
	return n
}

func newObject(data []byte, contentType string) object {
	sum := md5.Sum(data)
	return object{
		data:        data,
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		modified:    time.Now().UTC(),
	}
}

// route dispatches path-style requests: /{bucket} or /{bucket}/{key}.
func (s *S3Server) route(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	b, ok := s.buckets[bucket]
	s.mu.Unlock()

	if err := s.verifier().verify(r); err != nil {
		writeError(w, r, err)
		return
	}

	if !ok {
		writeError(w, r, ErrNoSuchBucket)
		return
	}
	if b.Denied {
		writeError(w, r, ErrAccessDenied)
		return
	}

	query := r.URL.Query()
	switch {
	case key == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodGet && query.Has("location"):
		s.getBucketLocation(w, r, b)
	case key == "" && r.Method == http.MethodGet && query.Has("versioning"):
		s.getBucketVersioning(w, r, b)
	case key == "" && r.Method == http.MethodGet && query.Has("encryption"):
		s.getBucketEncryption(w, r, b)
	case key != "" && r.Method == http.MethodPut:
		s.putObject(w, r, b, key)
	case key != "" && r.Method == http.MethodGet:
		s.getObject(w, r, b, key)
	case key != "" && r.Method == http.MethodDelete:
		s.deleteObject(w, r, b, key)
	default:
		writeError(w, r, ErrMethodNotAllowed)
	}
}

func (s *S3Server) getBucketLocation(w http.ResponseWriter, r *http.Request, b *bucketState) {
	if b.DenyConfigReads {
		writeError(w, r, ErrAccessDenied)
		return
	}
	writeXML(w, LocationConstraint{Xmlns: s3Xmlns, Location: b.Region})
}

func (s *S3Server) getBucketVersioning(w http.ResponseWriter, r *http.Request, b *bucketState) {
	if b.DenyConfigReads {
		writeError(w, r, ErrAccessDenied)
		return
	}
	writeXML(w, VersioningConfiguration{Xmlns: s3Xmlns, Status: b.Versioning})
}

func (s *S3Server) getBucketEncryption(w http.ResponseWriter, r *http.Request, b *bucketState) {
	if b.DenyConfigReads {
		writeError(w, r, ErrAccessDenied)
		return
	}
	if b.Encryption == "" {
		writeError(w, r, ErrNoEncryptionConfig)
		return
	}
	writeXML(w, ServerSideEncryptionConfiguration{
		Xmlns: s3Xmlns,
		Rules: []ServerSideEncryptionRule{{
			ApplyServerSideEncryptionByDefault: &ServerSideEncryptionByDefault{SSEAlgorithm: b.Encryption},
		}},
	})
}

func (s *S3Server) putObject(w http.ResponseWriter, r *http.Request, b *bucketState, key string) {
	if b.DenyWrites {
		writeError(w, r, ErrAccessDenied)
		return
	}

	var body io.Reader = r.Body
	if isAWSChunked(r.Header.Get("Content-Encoding"), r.Header.Get("X-Amz-Content-Sha256")) {
		body = newChunkedReader(r.Body)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, r, ErrInternalError)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj := newObject(data, contentType)

	s.mu.Lock()
	b.objects[key] = obj
	s.mu.Unlock()

	w.Header().Set("ETag", "\""+obj.etag+"\"")
	w.WriteHeader(http.StatusOK)
}

func (s *S3Server) getObject(w http.ResponseWriter, r *http.Request, b *bucketState, key string) {
	if b.FailReads {
		writeError(w, r, ErrInternalError)
		return
	}

	s.mu.Lock()
	obj, ok := b.objects[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, r, ErrNoSuchKey)
		return
	}

	data := obj.data
	if b.CorruptReads {
		data = append(append([]byte(nil), data...), " (corrupted)"...)
	}

	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", "\""+obj.etag+"\"")
	w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *S3Server) deleteObject(w http.ResponseWriter, r *http.Request, b *bucketState, key string) {
	if b.DenyDeletes {
		writeError(w, r, ErrAccessDenied)
		return
	}

	s.mu.Lock()
	delete(b.objects, key)
	s.mu.Unlock()

	// S3 returns 204 even if the object doesn't exist
	w.WriteHeader(http.StatusNoContent)
}
