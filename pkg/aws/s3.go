package aws

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// BlobStoreOptions configures a BlobStore.
type BlobStoreOptions struct {
	Bucket     string        // default bucket when a call passes ""
	Endpoint   string        // custom (LocalStack) endpoint, path-style addressing when set
	LinkExpiry time.Duration // lifetime of downloadable (GET) links
	SignExpiry time.Duration // lifetime of signed upload (PUT) links
}

// UploadResult describes a stored object.
type UploadResult struct {
	Name          string `json:"name"`
	ContainerName string `json:"containerName"`
	Location      string `json:"location"`
}

// BlobStore wraps the S3 operations the service needs: uploads, presigned
// read/write links and bucket bootstrap.
type BlobStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	opts      BlobStoreOptions
}

// NewBlobStore creates a BlobStore from AWS config.
func NewBlobStore(cfg sdkaws.Config, opts BlobStoreOptions) *BlobStore {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = sdkaws.String(opts.Endpoint)
		}
	})
	if opts.LinkExpiry <= 0 {
		opts.LinkExpiry = 15 * time.Minute
	}
	if opts.SignExpiry <= 0 {
		opts.SignExpiry = 30 * time.Minute
	}
	return &BlobStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		opts:      opts,
	}
}

// DefaultBucket returns the bucket used when callers pass none.
func (b *BlobStore) DefaultBucket() string {
	return b.opts.Bucket
}

func (b *BlobStore) bucket(name string) string {
	if strings.TrimSpace(name) == "" {
		return b.opts.Bucket
	}
	return name
}

// EnsureBucket creates the bucket when it does not exist yet.
func (b *BlobStore) EnsureBucket(ctx context.Context, bucket string) error {
	bucket = b.bucket(bucket)
	if _, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: sdkaws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: sdkaws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	zap.L().Info("created storage bucket", zap.String("bucket", bucket))
	return nil
}

// UploadFile streams body into bucket under name.
func (b *BlobStore) UploadFile(ctx context.Context, body io.Reader, name, bucket, contentType string) (*UploadResult, error) {
	bucket = b.bucket(bucket)
	input := &s3.PutObjectInput{
		Bucket: sdkaws.String(bucket),
		Key:    sdkaws.String(name),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}

	out, err := b.uploader.Upload(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if out.Location == "" {
		return nil, fmt.Errorf("could not upload file %s: empty location", name)
	}

	return &UploadResult{
		Name:          name,
		ContainerName: bucket,
		Location:      out.Location,
	}, nil
}

// Archive stores a streamed report in the default bucket.
func (b *BlobStore) Archive(ctx context.Context, key string, body io.Reader) error {
	_, err := b.UploadFile(ctx, body, key, "", "text/csv")
	return err
}

// DownloadableURL returns a presigned GET URL for filePath.
func (b *BlobStore) DownloadableURL(ctx context.Context, filePath, bucket string) (string, error) {
	presigned, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(b.bucket(bucket)),
		Key:    sdkaws.String(filePath),
	}, func(o *s3.PresignOptions) {
		o.Expires = b.opts.LinkExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return presigned.URL, nil
}

// SignedUploadURL generates a presigned PUT URL for fileName and returns the signed headers the client must send.
func (b *BlobStore) SignedUploadURL(ctx context.Context, fileName, bucket string) (string, map[string]string, error) {
	presigned, err := b.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: sdkaws.String(b.bucket(bucket)),
		Key:    sdkaws.String(fileName),
	}, func(o *s3.PresignOptions) {
		o.Expires = b.opts.SignExpiry
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string)
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return presigned.URL, headers, nil
}
