// Package s3 opens s3://bucket/key recording references.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/skillsenselab/voicenotes/source"
)

// Opener implements source.Opener for the s3 scheme.
type Opener struct {
	client *awss3.Client
}

// New builds an S3 opener from the given config.
func New(ctx context.Context, cfg Config) (*Opener, error) {
	cfg.ApplyDefaults()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" || cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = true
		})
	}

	return &Opener{client: awss3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Scheme returns "s3".
func (o *Opener) Scheme() string { return "s3" }

// Open streams the object named by an s3://bucket/key reference.
func (o *Opener) Open(ctx context.Context, ref string) (*source.Input, error) {
	bucket, key, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	out, err := o.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s: %w", ref, err)
	}
	return &source.Input{Reader: out.Body, Name: path.Base(key)}, nil
}

func parseRef(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("s3: invalid reference %q: %w", ref, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3: invalid reference %q, want s3://bucket/key", ref)
	}
	return u.Host, key, nil
}

var _ source.Opener = (*Opener)(nil)
