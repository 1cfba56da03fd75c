package audit

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// ArchiveConfig points the archiver at an S3 (or S3-compatible) bucket
type ArchiveConfig struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	Prefix       string `yaml:"prefix"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// Archiver stores a batch of events outside the database before they are purged
type Archiver interface {
	Archive(ctx context.Context, before time.Time, events []*Event) (string, error)
}

// ObjectPutter is the part of *s3.Client the archiver needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes events as gzipped JSON lines, one object per batch
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Archiver loads AWS configuration and builds an S3 client. Static keys
// are used when both are set, otherwise the default credential chain.
func NewS3Archiver(ctx context.Context, cfg ArchiveConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3ArchiverWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ArchiverWithClient uses an existing client
func NewS3ArchiverWithClient(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Archive uploads events and returns the object key. An empty batch uploads
// nothing and returns "".
func (a *S3Archiver) Archive(ctx context.Context, before time.Time, events []*Event) (key string, err error) {
	if len(events) == 0 {
		return "", nil
	}

	key = a.objectKey(before, events)
	ctx, span := observability.StartSpan(ctx, "audit.Archive",
		attribute.String("s3.bucket", a.bucket),
		attribute.String("s3.key", key),
		attribute.Int("audit.events", len(events)))
	defer func() { observability.EndSpan(span, err) }()

	body, err := encodeEvents(events)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
		Metadata: map[string]string{
			"checksum-sha256": hex.EncodeToString(sum[:]),
			"event-count":     strconv.Itoa(len(events)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audit archive: %w", err)
	}
	return key, nil
}

// objectKey is <prefix>/audit/YYYY/MM/DD/<first id>-<last id>.jsonl.gz, dated
// by the retention cutoff
func (a *S3Archiver) objectKey(before time.Time, events []*Event) string {
	first, last := events[0].ID, events[0].ID
	for _, e := range events[1:] {
		if e.ID < first {
			first = e.ID
		}
		if e.ID > last {
			last = e.ID
		}
	}
	day := before.UTC().Format("2006/01/02")
	return path.Join(a.prefix, "audit", day, fmt.Sprintf("%d-%d.jsonl.gz", first, last))
}

func encodeEvents(events []*Event) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode audit event %d: %w", e.ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress audit archive: %w", err)
	}
	return buf.Bytes(), nil
}
