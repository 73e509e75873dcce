package uploads

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Saver stores uploaded images on disk and hands back an opaque reference.
// Callers never inspect the file bytes beyond the type/size policy here.
type Saver struct {
	dir string
}

var (
	ErrTooLarge = errors.New("file exceeds the size limit")
	ErrBadType  = errors.New("only image files are allowed")
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func NewSaver(dir string) *Saver {
	return &Saver{dir: dir}
}

// Save validates and stores the file uploaded under the given form field.
// It returns the public reference path, or ("", nil) when the field is
// absent so optional uploads fall through cleanly.
func (s *Saver) Save(c *gin.Context, field, subdir, prefix string, maxBytes int64) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}

	if file.Size > maxBytes {
		return "", ErrTooLarge
	}
	if err := checkImageType(file); err != nil {
		return "", err
	}

	targetDir := filepath.Join(s.dir, subdir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext)
	target := filepath.Join(targetDir, name)

	if err := c.SaveUploadedFile(file, target); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	return "/" + filepath.ToSlash(filepath.Join("uploads", subdir, name)), nil
}

func checkImageType(file *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return ErrBadType
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return ErrBadType
	}

	return nil
}
