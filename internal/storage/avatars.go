// Package storage uploads avatar images to Supabase Storage through its
// S3-compatible endpoint.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/handidevproject/pos-dashboard/internal/config"
	"github.com/handidevproject/pos-dashboard/internal/pkg/ulid"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

// ErrUploadsDisabled is returned by Upload when no storage is configured.
var ErrUploadsDisabled = errors.New("avatar uploads are not configured")

const avatarPrefix = "avatars"

// ObjectPutter is the part of the S3 client the store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AvatarStore writes avatars to a public bucket and returns their URLs.
type AvatarStore struct {
	client     ObjectPutter
	bucket     string
	publicBase string
}

// NewAvatarStore builds the store from the storage config. When storage is
// not configured the store is returned disabled.
func NewAvatarStore(ctx context.Context, cfg config.StorageConfig, supabaseURL string) (*AvatarStore, error) {
	if !cfg.Enabled() {
		return NewAvatarStoreWithClient(nil, cfg.Bucket, supabaseURL), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return NewAvatarStoreWithClient(client, cfg.Bucket, supabaseURL), nil
}

// NewAvatarStoreWithClient builds a store over an existing client. A nil
// client gives a disabled store.
func NewAvatarStoreWithClient(client ObjectPutter, bucket, supabaseURL string) *AvatarStore {
	return &AvatarStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(supabaseURL, "/") + "/storage/v1/object/public/",
	}
}

// Enabled reports whether uploads are possible.
func (s *AvatarStore) Enabled() bool {
	return s != nil && s.client != nil
}

// Upload stores the file under a new key and returns its public URL.
func (s *AvatarStore) Upload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if !s.Enabled() {
		return "", ErrUploadsDisabled
	}

	contentType, err := validation.SniffContentType(fh)
	if err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open avatar: %w", err)
	}
	defer f.Close()

	key := ulid.ObjectKey(avatarPrefix, extension(contentType, fh.Filename))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return s.PublicURL(key), nil
}

// PublicURL returns the public URL of an object key.
func (s *AvatarStore) PublicURL(key string) string {
	return s.publicBase + s.bucket + "/" + key
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

func extension(contentType, filename string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(filename))
}
