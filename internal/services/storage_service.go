package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// UploadFile is one multipart file handed to an uploader.
type UploadFile struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// ImageUploader stores listing/profile images and returns public URLs in
// input order. On partial failure it returns the URLs uploaded so far
// together with an error naming the failed file; callers decide whether to
// keep the survivors (the form controller keeps them).
type ImageUploader interface {
	UploadImages(ctx context.Context, ownerID string, files []UploadFile) ([]string, error)
}

// StorageService uploads to a Firebase-backed Cloud Storage bucket. Objects
// live under a per-owner namespace with a timestamp suffix so concurrent
// uploads of the same filename never collide.
type StorageService struct {
	gcs    *storage.Client
	bucket string
}

func NewStorageService(ctx context.Context, bucket string) (*StorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &StorageService{gcs: client, bucket: bucket}, nil
}

func (s *StorageService) Close() error {
	return s.gcs.Close()
}

func (s *StorageService) UploadImages(ctx context.Context, ownerID string, files []UploadFile) ([]string, error) {
	urls := make([]string, 0, len(files))

	for _, f := range files {
		objectName := objectPath(ownerID, f.Name)
		token := newDownloadToken()

		obj := s.gcs.Bucket(s.bucket).Object(objectName)
		w := obj.NewWriter(ctx)
		w.ContentType = f.ContentType
		w.Metadata = map[string]string{
			"firebaseStorageDownloadTokens": token,
			"owner":                         ownerID,
		}

		if _, err := io.Copy(w, f.Reader); err != nil {
			_ = w.Close()
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		if err := w.Close(); err != nil {
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}

		urls = append(urls, downloadURL(s.bucket, objectName, token))
	}

	return urls, nil
}

// DeleteObject removes one stored object; used by account deletion cleanup.
func (s *StorageService) DeleteObject(ctx context.Context, objectName string) error {
	return s.gcs.Bucket(s.bucket).Object(objectName).Delete(ctx)
}

// objectPath namespaces objects per owner: {ownerId}/{timestamp}-{filename}.
func objectPath(ownerID, filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" || base == "" {
		base = "image.jpg"
	}
	return fmt.Sprintf("%s/%d-%s", ownerID, time.Now().UnixNano(), base)
}

func newDownloadToken() string {
	return uuid.NewString()
}

func downloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
