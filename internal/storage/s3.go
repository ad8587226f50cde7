package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/lo"

	"claimcheck/internal/config"
	"claimcheck/internal/services"
)

// s3API is the subset of the S3 client used by the gateway.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3 stores evidence in a bucket.
type S3 struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3 builds a client from the default AWS credential chain, honouring a
// custom endpoint and path-style addressing for S3-compatible services.
func NewS3(ctx context.Context, cfg config.Storage) (*S3, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3", "storage.bucket is required", nil)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3", "load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3WithClient(client, bucket, s3BaseURL(cfg)), nil
}

func newS3WithClient(client s3API, bucket, baseURL string) *S3 {
	return &S3{client: client, bucket: bucket, baseURL: baseURL}
}

func s3BaseURL(cfg config.Storage) string {
	if base := strings.TrimSpace(cfg.PublicBaseURL); base != "" {
		return base
	}
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		if cfg.UsePathStyle {
			return endpoint + "/" + cfg.Bucket
		}
		return endpoint
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

func (s *S3) Backend() string {
	return "s3"
}

func (s *S3) Store(ctx context.Context, claimID string, category Category, filename string, data []byte) (string, error) {
	key, err := ObjectKey(claimID, category, filename)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "s3 put", key, err)
	}
	return publicURL(s.baseURL, key), nil
}

func (s *S3) DeletePrefix(ctx context.Context, claimID string) (int, error) {
	prefix, err := claimPrefix(claimID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return deleted, services.Wrap(services.ErrUpload, "storage", "s3 list", prefix, err)
		}
		if len(page.Contents) > 0 {
			ids := lo.Map(page.Contents, func(obj types.Object, _ int) types.ObjectIdentifier {
				return types.ObjectIdentifier{Key: obj.Key}
			})
			out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return deleted, services.Wrap(services.ErrUpload, "storage", "s3 delete", prefix, err)
			}
			if len(out.Errors) > 0 {
				first := out.Errors[0]
				return deleted, services.Wrap(services.ErrUpload, "storage", "s3 delete",
					fmt.Sprintf("%s: %s", aws.ToString(first.Key), aws.ToString(first.Message)), nil)
			}
			deleted += len(ids)
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			return deleted, nil
		}
		token = page.NextContinuationToken
	}
}
