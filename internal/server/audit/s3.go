package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config points the archive at a bucket. Empty credentials fall back to
// the default AWS credential chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// PutObjectAPI is the slice of the S3 client used by the archive.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) PutObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (PutObjectAPI, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Sink stores every event as a JSON object. It performs a network call per
// event, so wrap it in a Dispatcher.
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
	onErr  func(ctx context.Context, err error)
}

func NewS3Sink(client PutObjectAPI, bucket, prefix string, onErr func(context.Context, error)) *S3Sink {
	if prefix == "" {
		prefix = "audit"
	}
	if onErr == nil {
		onErr = func(context.Context, error) {}
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix, onErr: onErr}
}

// ObjectKey lays events out by day so buckets can expire them with a prefix
// lifecycle rule.
func (s *S3Sink) ObjectKey(ev Event) string {
	d := ev.Time.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s-%s.json", s.prefix, d.Year(), d.Month(), d.Day(), ev.Kind, uuid.New())
}

func (s *S3Sink) Record(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.onErr(ctx, fmt.Errorf("marshal audit event: %w", err))
		return
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(ev)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.onErr(ctx, fmt.Errorf("put audit object: %w", err))
	}
}
