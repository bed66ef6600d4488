// Package storage persists uploaded document files. Keys are relative
// paths of the form "{role}_{userId}/document-<millis>-<uuid><ext>"; the
// backend decides where the bytes actually live.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"experta/internal/domain"
)

// DocumentStorage is the file backend contract. Implementations: local
// disk (FileStore) and MinIO (MinioStore), selected via config.
type DocumentStorage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// OwnerDir returns the per-user directory segment of a storage key.
func OwnerDir(role domain.Role, userID uint) string {
	return fmt.Sprintf("%s_%d", role, userID)
}

// NewStoredName builds a collision-resistant stored filename that keeps
// the original extension.
func NewStoredName(originalName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(originalName))
	return fmt.Sprintf("document-%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}

// BuildKey combines the owner directory and a stored filename.
func BuildKey(role domain.Role, userID uint, storedName string) string {
	return OwnerDir(role, userID) + "/" + storedName
}
