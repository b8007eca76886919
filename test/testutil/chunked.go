package testutil

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// chunkedReader decodes an aws-chunked request body:
//
//	<hex-size>[;chunk-signature=<signature>]\r\n
//	<data>\r\n
//	...
//	0[;chunk-signature=<signature>]\r\n
//	[trailers]\r\n
//
// Reading stops at the zero-size chunk; trailers are ignored.
type chunkedReader struct {
	r         *bufio.Reader
	remaining int64
	done      bool
}

func newChunkedReader(r io.Reader) *chunkedReader {
	return &chunkedReader{r: bufio.NewReader(r)}
}

func (cr *chunkedReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}

	if cr.remaining == 0 {
		size, err := cr.nextChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			cr.done = true
			return 0, io.EOF
		}
		cr.remaining = size
	}

	if int64(len(p)) > cr.remaining {
		p = p[:cr.remaining]
	}
	n, err := cr.r.Read(p)
	cr.remaining -= int64(n)

	if cr.remaining == 0 && n > 0 {
		// CRLF after the chunk data
		_, _ = cr.r.ReadString('\n')
	}
	if err == io.EOF {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (cr *chunkedReader) nextChunkSize() (int64, error) {
	line, err := cr.r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}

	line = strings.TrimRight(line, "\r\n")
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}

	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil {
		return 0, errors.New("invalid chunk size")
	}
	return size, nil
}

// isAWSChunked reports whether the request body uses aws-chunked encoding.
func isAWSChunked(contentEncoding, contentSHA256 string) bool {
	return strings.Contains(contentEncoding, "aws-chunked") ||
		strings.HasPrefix(contentSHA256, "STREAMING-")
}
