// Package media stores uploaded post images on local disk under
// <root>/posts/ and hands back the path relative to root.
package media

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// URLPrefix is where the media root is served.
	URLPrefix = "/media/"

	postsDir = "posts"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedMIME = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type Storage struct {
	Root string
}

func NewStorage(root string) *Storage {
	return &Storage{Root: root}
}

// Save writes an uploaded image under a fresh name and returns its relative
// path, e.g. posts/4f0c...png. Both the file name and the content must be a
// supported image; the stored name takes the extension of the content.
func (s *Storage) Save(c *gin.Context, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	detected, err := sniff(file)
	if err != nil {
		return "", err
	}
	if !mimetype.EqualsAny(detected.String(), allowedMIME...) {
		return "", fmt.Errorf("%w: content is %s", ErrUnsupportedImage, detected.String())
	}
	ext = detected.Extension()

	dir := filepath.Join(s.Root, postsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path.Join(postsDir, name), nil
}

// Remove deletes a file previously returned by Save. A missing file is not
// an error.
func (s *Storage) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}

func sniff(file *multipart.FileHeader) (*mimetype.MIME, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return detected, nil
}
