package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"mentorvideo/pkg"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() {
		_ = logger.Sync()
	}()

	bucketPtr := flag.String("bucket", os.Getenv("VIDEO_BUCKET"), "bucket holding session videos")
	originsPtr := flag.String("origins", os.Getenv("CORS_ALLOWED_ORIGINS"), "comma separated origins allowed to fetch videos, * for any")
	regionPtr := flag.String("region", os.Getenv("AWS_REGION"), "bucket region")
	endpointPtr := flag.String("endpoint", os.Getenv("S3_ENDPOINT"), "custom endpoint for S3-compatible stores")
	maxAgePtr := flag.Int("max-age", 3000, "preflight cache lifetime in seconds")
	dryRunPtr := flag.Bool("dry-run", false, "print the rule instead of applying it")
	flag.Parse()

	opts := pkg.BucketCORSOptions{
		Bucket:        *bucketPtr,
		Origins:       strings.Split(*originsPtr, ","),
		MaxAgeSeconds: int32(*maxAgePtr),
	}

	if *dryRunPtr {
		input, err := pkg.BuildBucketCORSInput(opts)
		if err != nil {
			logger.Fatal("building bucket cors rule", zap.Error(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(input.CORSConfiguration); err != nil {
			logger.Fatal("encoding bucket cors rule", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var loadOpts []func(*config.LoadOptions) error
	if *regionPtr != "" {
		loadOpts = append(loadOpts, config.WithRegion(*regionPtr))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Fatal("loading aws config", zap.Error(err))
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if *endpointPtr != "" {
			o.BaseEndpoint = aws.String(*endpointPtr)
			o.UsePathStyle = true
		}
	})

	if err := pkg.ApplyBucketCORS(ctx, client, opts, logger); err != nil {
		logger.Fatal("applying bucket cors", zap.Error(err))
	}
}
