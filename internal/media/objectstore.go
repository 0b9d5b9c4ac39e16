package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"cognetex/api/internal/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// ObjectStore keeps images in an S3-compatible bucket. The object key is the
// public id and the public base URL plus the key is the secure URL.
type ObjectStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrUploaderNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// BaseURL is the public prefix under which uploaded objects are served.
func (s *ObjectStore) BaseURL() string {
	return s.publicURL
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

func (s *ObjectStore) Upload(ctx context.Context, upload Upload) (Asset, error) {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := objectKey(upload.Folder, upload.Filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(upload.Data), int64(len(upload.Data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Message != "" {
			return Asset{}, &RemoteError{Status: resp.StatusCode, Message: resp.Message}
		}
		return Asset{}, fmt.Errorf("put object: %w", err)
	}
	return Asset{PublicID: key, SecureURL: s.publicURL + "/" + key}, nil
}

func objectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return path.Join(strings.Trim(folder, "/"), util.NewID("img")+ext)
}
