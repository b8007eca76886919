package storageprobe

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kumasuke/infraprobe/internal/probe"
)

const encryptionNotFoundCode = "ServerSideEncryptionConfigurationNotFoundError"

// Inspect reads location, versioning and encryption independently. A failed
// read yields an Attribute carrying the error; it never stops the others.
func (p *Prober) Inspect(ctx context.Context, bucket string) []probe.Attribute {
	return []probe.Attribute{
		p.location(ctx, bucket),
		p.versioning(ctx, bucket),
		p.encryption(ctx, bucket),
	}
}

func (p *Prober) location(ctx context.Context, bucket string) probe.Attribute {
	attr := probe.Attribute{Name: "Location"}
	out, err := p.api.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		attr.Err = err
		return attr
	}

	// S3 reports an empty constraint for us-east-1
	attr.Value = string(out.LocationConstraint)
	if attr.Value == "" {
		attr.Value = "us-east-1"
	}
	return attr
}

func (p *Prober) versioning(ctx context.Context, bucket string) probe.Attribute {
	attr := probe.Attribute{Name: "Versioning"}
	out, err := p.api.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)})
	if err != nil {
		attr.Err = err
		return attr
	}

	attr.Value = string(out.Status)
	if attr.Value == "" {
		attr.Value = "Disabled"
	}
	return attr
}

func (p *Prober) encryption(ctx context.Context, bucket string) probe.Attribute {
	attr := probe.Attribute{Name: "Encryption"}
	out, err := p.api.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(bucket)})
	if err != nil {
		if probe.ErrorCode(err) == encryptionNotFoundCode {
			attr.NotConfigured = true
			return attr
		}
		attr.Err = err
		return attr
	}

	if out.ServerSideEncryptionConfiguration == nil || len(out.ServerSideEncryptionConfiguration.Rules) == 0 {
		return attr
	}
	rule := out.ServerSideEncryptionConfiguration.Rules[0]
	if rule.ApplyServerSideEncryptionByDefault == nil {
		attr.Value = "N/A"
		return attr
	}
	attr.Value = string(rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm)
	return attr
}
