// Package storage hands out time-limited links to objects in an
// S3-compatible bucket (MinIO in development).
package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultLinkTTL bounds how long a download link stays usable.
const DefaultLinkTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Presigner returns a GET link for key.
type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// S3Settings are the bucket coordinates and static credentials.
type S3Settings struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	LinkTTL      time.Duration
}

type S3Presigner struct {
	settings S3Settings
}

func NewS3Presigner(settings S3Settings) *S3Presigner {
	if settings.LinkTTL <= 0 {
		settings.LinkTTL = DefaultLinkTTL
	}
	return &S3Presigner{settings: settings}
}

func (p *S3Presigner) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.settings.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.settings.AccessKey,
			p.settings.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.settings.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.settings.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

// PresignGet signs a GET for key valid for the configured link TTL.
func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	presignClient, err := p.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := p.settings.Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(p.settings.LinkTTL))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
