package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 checkpoint backend.
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the default S3 endpoint, for MinIO and friends.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// UsePathStyle forces path-style addressing.
	UsePathStyle bool

	Timeout time.Duration

	StorageClass         types.StorageClass
	ServerSideEncryption bool
}

// DefaultS3Config returns sensible defaults.
func DefaultS3Config(bucket string) S3Config {
	return S3Config{
		Bucket:       bucket,
		Prefix:       "checkpoints/",
		Timeout:      30 * time.Second,
		StorageClass: types.StorageClassStandard,
	}
}

// S3Backend stores checkpoints in S3 for runs on ephemeral compute.
type S3Backend struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Backend builds an S3 client from the config and ambient AWS settings.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Backend{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
	}, nil
}

func (b *S3Backend) objectKey(id string) string {
	return b.cfg.Prefix + id + ".json"
}

// Save persists a checkpoint object.
func (b *S3Backend) Save(ctx context.Context, cp *Checkpoint) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:       aws.String(b.cfg.Bucket),
		Key:          aws.String(b.objectKey(cp.ID)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		StorageClass: b.cfg.StorageClass,
	}
	if b.cfg.ServerSideEncryption {
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("saving checkpoint to s3: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint object.
func (b *S3Backend) Load(ctx context.Context, id string) (*Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.objectKey(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint from s3: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint body: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshaling checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes a checkpoint object.
func (b *S3Backend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.objectKey(id)),
	})
	return err
}

// list returns every checkpoint under the prefix.
func (b *S3Backend) list(ctx context.Context) ([]*Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	var checkpoints []*Checkpoint
	var continuationToken *string

	for {
		output, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.cfg.Bucket),
			Prefix:            aws.String(b.cfg.Prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("listing checkpoints: %w", err)
		}

		for _, obj := range output.Contents {
			id := strings.TrimPrefix(aws.ToString(obj.Key), b.cfg.Prefix)
			id = strings.TrimSuffix(id, ".json")

			cp, err := b.Load(ctx, id)
			if err != nil {
				continue
			}
			checkpoints = append(checkpoints, cp)
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}
	return checkpoints, nil
}

// ListIncomplete returns checkpoints for runs that did not finish.
func (b *S3Backend) ListIncomplete(ctx context.Context) ([]*Checkpoint, error) {
	all, err := b.list(ctx)
	if err != nil {
		return nil, err
	}

	var incomplete []*Checkpoint
	for _, cp := range all {
		if cp.Phase != PhaseComplete {
			incomplete = append(incomplete, cp)
		}
	}
	return incomplete, nil
}

// FindBySource returns the latest checkpoint for a source path.
func (b *S3Backend) FindBySource(ctx context.Context, sourcePath string) (*Checkpoint, error) {
	all, err := b.list(ctx)
	if err != nil {
		return nil, err
	}

	var found *Checkpoint
	for _, cp := range all {
		if cp.SourcePath != sourcePath {
			continue
		}
		if found == nil || cp.UpdatedAt.After(found.UpdatedAt) {
			found = cp
		}
	}
	if found == nil {
		return nil, os.ErrNotExist
	}
	return found, nil
}

// Name returns "s3".
func (b *S3Backend) Name() string {
	return "s3"
}

// Cleanup removes completed checkpoints older than maxAge.
func (b *S3Backend) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	all, err := b.list(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, cp := range all {
		if cp.Phase == PhaseComplete && cp.UpdatedAt.Before(cutoff) {
			if err := b.Delete(ctx, cp.ID); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
