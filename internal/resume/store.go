package resume

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

const MaxSize = 5 << 20

var (
	ErrNotFound         = errors.New("resume not found")
	ErrUnsupportedType  = errors.New("resume must be a PDF, DOC or DOCX file")
	allowedContentTypes = map[string]string{
		".pdf":  "application/pdf",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
)

// Store keeps resume files addressed by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ContentType returns the canonical content type for fileName, based on its
// extension.
func ContentType(fileName string) (string, error) {
	ct, ok := allowedContentTypes[strings.ToLower(path.Ext(fileName))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// Key builds the storage key for a user's resume. One resume is kept per
// user so the key only depends on the email and the file extension.
func Key(email, fileName string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	return "resumes/" + hex.EncodeToString(sum[:12]) + strings.ToLower(path.Ext(fileName))
}
