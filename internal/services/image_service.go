package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalImageService implements ImageUploader on the local disk; the deployed
// equivalent is StorageService. Files land under uploadDir with the same
// per-owner, timestamp-suffixed layout and are served from /uploads/.
type LocalImageService struct {
	mu        sync.Mutex
	uploadDir string
}

func NewLocalImageService(uploadDir string) *LocalImageService {
	os.MkdirAll(uploadDir, 0755)
	return &LocalImageService{uploadDir: uploadDir}
}

func (s *LocalImageService) UploadImages(_ context.Context, ownerID string, files []UploadFile) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(files))

	for _, f := range files {
		rel := objectPath(ownerID, f.Name)
		dst := filepath.Join(s.uploadDir, filepath.FromSlash(rel))

		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}

		out, err := os.Create(dst)
		if err != nil {
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		if _, err := io.Copy(out, f.Reader); err != nil {
			out.Close()
			os.Remove(dst)
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		if err := out.Close(); err != nil {
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}

		urls = append(urls, "/uploads/"+rel)
	}

	return urls, nil
}

// IsValidImageType gates uploads to browser-displayable formats.
func IsValidImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
