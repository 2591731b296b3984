package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file not found")

// FileStore keeps evidence files. Keys returned by Save are the only
// handles callers keep.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a file received from a client that has not been stored yet.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	keyPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// ObjectKey builds a unique key of the form <unix-nano>-<uuid>-<name>.
func ObjectKey(name string, now time.Time) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixNano(), uuid.NewString(), sanitizeName(name))
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}

// validKey rejects keys that could escape the store's namespace.
func validKey(key string) bool {
	return keyPattern.MatchString(key) && !strings.Contains(key, "..")
}
