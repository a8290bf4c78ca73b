package pkg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const defaultBucketCORSMaxAge = 3000

// BucketCORSClient is the subset of the S3 API used to manage bucket CORS rules.
type BucketCORSClient interface {
	PutBucketCors(ctx context.Context, params *s3.PutBucketCorsInput, optFns ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error)
	GetBucketCors(ctx context.Context, params *s3.GetBucketCorsInput, optFns ...func(*s3.Options)) (*s3.GetBucketCorsOutput, error)
}

// BucketCORSOptions describes the rule the media bucket needs so browsers can
// fetch a video URL handed out by the resolver.
type BucketCORSOptions struct {
	Bucket        string
	Origins       []string
	MaxAgeSeconds int32
}

// BuildBucketCORSInput returns a PutBucketCors request with a single GET/HEAD rule.
func BuildBucketCORSInput(opts BucketCORSOptions) (*s3.PutBucketCorsInput, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("bucket name required")
	}
	policy, err := NewCORSPolicy(opts.Origins)
	if err != nil {
		return nil, err
	}
	maxAge := opts.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = defaultBucketCORSMaxAge
	}
	return &s3.PutBucketCorsInput{
		Bucket: aws.String(bucket),
		CORSConfiguration: &types.CORSConfiguration{
			CORSRules: []types.CORSRule{
				{
					ID:             aws.String("session-video-playback"),
					AllowedOrigins: policy.Origins(),
					AllowedMethods: []string{http.MethodGet, http.MethodHead},
					AllowedHeaders: []string{"*"},
					ExposeHeaders:  []string{"Content-Length", "Content-Range", "ETag"},
					MaxAgeSeconds:  aws.Int32(maxAge),
				},
			},
		},
	}, nil
}

// ApplyBucketCORS puts the rule on the bucket and reads it back.
func ApplyBucketCORS(ctx context.Context, client BucketCORSClient, opts BucketCORSOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	input, err := BuildBucketCORSInput(opts)
	if err != nil {
		return err
	}
	log := logger.With(zap.String("bucket", aws.ToString(input.Bucket)))

	start := time.Now()
	if _, err := client.PutBucketCors(ctx, input); err != nil {
		return fmt.Errorf("put bucket cors on %s: %w", aws.ToString(input.Bucket), err)
	}
	out, err := client.GetBucketCors(ctx, &s3.GetBucketCorsInput{Bucket: input.Bucket})
	if err != nil {
		return fmt.Errorf("get bucket cors on %s: %w", aws.ToString(input.Bucket), err)
	}
	if len(out.CORSRules) == 0 {
		return fmt.Errorf("bucket %s reports no cors rules after update", aws.ToString(input.Bucket))
	}
	log.Info("bucket cors applied",
		zap.Strings("origins", input.CORSConfiguration.CORSRules[0].AllowedOrigins),
		zap.Int("rules", len(out.CORSRules)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
