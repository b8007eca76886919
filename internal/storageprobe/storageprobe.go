// Package storageprobe verifies object storage buckets: existence, descriptive
// configuration and a write/read/delete round trip.
package storageprobe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kumasuke/infraprobe/internal/config"
	"github.com/kumasuke/infraprobe/internal/probe"
	"github.com/kumasuke/infraprobe/internal/report"
	"github.com/kumasuke/infraprobe/internal/target"
	"github.com/rs/zerolog/log"
)

// BucketAPI is the subset of the S3 client used by the probe.
type BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ BucketAPI = (*s3.Client)(nil)

const (
	// KeyPrefix is the prefix of every object written by the probe.
	KeyPrefix = "test/connection-test-"

	contentType = "text/plain; charset=utf-8"
)

var writeCauses = []string{
	"Insufficient IAM permission (s3:PutObject required)",
	"Bucket policy restriction",
	"Missing KMS key permission (when bucket encryption uses KMS)",
}

// Prober probes buckets one at a time.
type Prober struct {
	api BucketAPI
	rep *report.Reporter
	now func() time.Time

	// body renders the probe object content for a given time.
	body func(time.Time) string
}

// New creates a Prober.
func New(api BucketAPI, rep *report.Reporter) *Prober {
	return &Prober{
		api:  api,
		rep:  rep,
		now:  time.Now,
		body: func(t time.Time) string {
			return "S3 connection test file - " + t.Format(time.RFC3339Nano)
		},
	}
}

// Run probes every configured bucket in order, prints the summary and returns
// report.ErrProbeFailed when any bucket failed.
func Run(ctx context.Context, api BucketAPI, cfg *config.Config, rep *report.Reporter) error {
	p := New(api, rep)

	buckets := target.BucketNames(cfg)
	rep.Banner(fmt.Sprintf("S3 bucket test - %s environment", cfg.Environment))

	for _, bucket := range buckets {
		outcome := p.ProbeBucket(ctx, bucket)
		log.Debug().Str("bucket", bucket).Bool("passed", outcome.Passed()).Str("kind", outcome.Kind.String()).Msg("Bucket probed")
		rep.Record(outcome)
		rep.Blank()
	}

	rep.Summary("S3 bucket test")
	rep.Guidance(
		"Bucket policy: aws s3api get-bucket-policy --bucket <bucket-name>",
		"Bucket objects: aws s3 ls s3://<bucket-name>/",
	)
	return rep.Err()
}

// ProbeBucket runs the full check sequence against one bucket.
func (p *Prober) ProbeBucket(ctx context.Context, bucket string) probe.Outcome {
	p.rep.Section("Bucket: " + bucket)

	if outcome, ok := p.CheckBucket(ctx, bucket); !ok {
		return outcome
	}

	p.rep.Heading("📊 Bucket info:")
	for _, attr := range p.Inspect(ctx, bucket) {
		p.rep.Attribute(attr)
	}

	p.rep.Heading("🧪 Upload test:")
	return p.RoundTrip(ctx, bucket)
}

// CheckBucket confirms the bucket exists and is reachable. Missing buckets
// and permission failures get distinct messages and are terminal for the
// bucket.
func (p *Prober) CheckBucket(ctx context.Context, bucket string) (probe.Outcome, bool) {
	_, err := p.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		p.rep.OK("Bucket exists")
		return probe.Pass(bucket), true
	}

	kind := probe.ClassifyAWS(err)
	switch kind {
	case probe.KindNotFound:
		p.rep.Fail("Bucket does not exist: %v", err)
	case probe.KindAccessDenied:
		p.rep.Fail("Bucket is not accessible (permission denied): %v", err)
	default:
		p.rep.Fail("Bucket check failed: %v", err)
	}
	return probe.Fail(bucket, kind, err), false
}

// RoundTrip writes a uniquely named text object, reads it back, compares the
// bytes and deletes it. Deletion is attempted whenever the write succeeded and
// its failure is never reported.
func (p *Prober) RoundTrip(ctx context.Context, bucket string) probe.Outcome {
	now := p.now()
	key := KeyPrefix + probe.NewToken(now) + ".txt"
	content := []byte(p.body(now))

	_, err := p.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		p.rep.Fail("Upload failed: %v", err)
		p.rep.Causes(writeCauses)
		return probe.Fail(bucket, probe.KindWriteFailed, err)
	}
	p.rep.OK("Upload succeeded: s3://%s/%s", bucket, key)

	defer p.remove(ctx, bucket, key)

	got, err := p.download(ctx, bucket, key)
	if err != nil {
		p.rep.Fail("Download failed: %v", err)
		return probe.Fail(bucket, probe.KindReadFailed, err)
	}

	if !bytes.Equal(got, content) {
		p.rep.Fail("Downloaded content differs from the uploaded content")
		p.rep.Detail(" expected: %s", content)
		p.rep.Detail(" actual:   %s", got)
		return probe.Fail(bucket, probe.KindMismatch,
			fmt.Errorf("downloaded %d bytes, expected %d bytes", len(got), len(content)))
	}

	p.rep.OK("Download succeeded and content matches")
	return probe.Pass(bucket)
}

func (p *Prober) download(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := p.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

// remove deletes the probe object. It runs even after the caller's context is
// cancelled so an interrupted run still cleans up.
func (p *Prober) remove(ctx context.Context, bucket, key string) {
	_, err := p.api.DeleteObject(context.WithoutCancel(ctx), &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Debug().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to delete probe object")
		return
	}
	p.rep.OK("Test object deleted")
}
