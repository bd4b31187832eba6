package batch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage persists finished batch files and returns the URL that goes
// into the BATCH manifest.
type Storage interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
}

// NewStorage picks a backend from the root URL scheme.
func NewStorage(ctx context.Context, root string) (Storage, error) {
	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("invalid storage root %q: %w", root, err)
	}

	switch u.Scheme {
	case "file":
		return newFileStorage(u)
	case "s3":
		return newS3Storage(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s (supported: file, s3)", u.Scheme)
	}
}

// fileStorage writes batch files under a local directory.
type fileStorage struct {
	dir string
}

func newFileStorage(u *url.URL) (*fileStorage, error) {
	dir := u.Path
	if u.Host != "" {
		// file://relative/path style roots
		dir = filepath.Join(u.Host, u.Path)
	}
	if dir == "" {
		return nil, fmt.Errorf("file storage root has no path")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	return &fileStorage{dir: dir}, nil
}

func (f *fileStorage) Put(ctx context.Context, filename string, data []byte) (string, error) {
	full := filepath.Join(f.dir, filename)
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write batch file: %w", err)
	}

	abs, err := filepath.Abs(full)
	if err != nil {
		abs = full
	}
	return "file://" + abs, nil
}

// s3Storage uploads batch files to a bucket through the SDK's
// managed uploader.
type s3Storage struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func newS3Storage(ctx context.Context, u *url.URL) (*s3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &s3Storage{
		uploader: manager.NewUploader(client),
		bucket:   u.Host,
		prefix:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func (s *s3Storage) Put(ctx context.Context, filename string, data []byte) (string, error) {
	key := path.Join(s.prefix, filename)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload batch file to s3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
