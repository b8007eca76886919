package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"
)

const sigV4Algorithm = "AWS4-HMAC-SHA256"

// sigV4Verifier checks header-based Signature V4 requests against a single
// key pair.
type sigV4Verifier struct {
	accessKey string
	secretKey string
}

// verify returns nil when r carries a valid signature.
func (v sigV4Verifier) verify(r *http.Request) *S3Error {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, sigV4Algorithm+" ") {
		return ErrAccessDenied
	}

	params := make(map[string]string)
	for _, part := range strings.Split(strings.TrimPrefix(header, sigV4Algorithm+" "), ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok {
			params[k] = val
		}
	}

	// ACCESS_KEY/DATE/REGION/SERVICE/aws4_request
	scope := strings.Split(params["Credential"], "/")
	signedHeaders := params["SignedHeaders"]
	signature := params["Signature"]
	if len(scope) != 5 || signedHeaders == "" || signature == "" {
		return ErrAccessDenied
	}
	if scope[0] != v.accessKey {
		return ErrInvalidAccessKeyID
	}

	amzDate := r.Header.Get("X-Amz-Date")
	signedAt, err := time.Parse("20060102T150405Z", amzDate)
	if err != nil {
		return ErrAccessDenied
	}
	if time.Since(signedAt).Abs() > 15*time.Minute {
		return ErrRequestTimeTooSkewed
	}

	date, region, service := scope[1], scope[2], scope[3]
	stringToSign := strings.Join([]string{
		sigV4Algorithm,
		amzDate,
		strings.Join(scope[1:], "/"),
		sha256Hex(canonicalRequest(r, signedHeaders)),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+v.secretKey), date)
	key = hmacSHA256(key, region)
	key = hmacSHA256(key, service)
	key = hmacSHA256(key, "aws4_request")
	expected := hex.EncodeToString(hmacSHA256(key, stringToSign))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureDoesNotMatch
	}
	return nil
}

func canonicalRequest(r *http.Request, signedHeaders string) string {
	uri := r.URL.EscapedPath()
	if uri == "" {
		uri = "/"
	}

	var headers strings.Builder
	for _, name := range strings.Split(signedHeaders, ";") {
		value := r.Header.Get(name)
		if name == "host" {
			value = r.Host
		}
		headers.WriteString(name + ":" + strings.TrimSpace(value) + "\n")
	}

	payloadHash := r.Header.Get("X-Amz-Content-Sha256")
	if payloadHash == "" {
		payloadHash = "UNSIGNED-PAYLOAD"
	}

	return strings.Join([]string{
		r.Method,
		uri,
		canonicalQuery(r),
		headers.String(),
		signedHeaders,
		payloadHash,
	}, "\n")
}

func canonicalQuery(r *http.Request) string {
	query := r.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		values := query[k]
		sort.Strings(values)
		for _, val := range values {
			pairs = append(pairs, uriEncode(k)+"="+uriEncode(val))
		}
	}
	return strings.Join(pairs, "&")
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func uriEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteString("%" + strings.ToUpper(hex.EncodeToString([]byte{c})))
		}
	}
	return b.String()
}
