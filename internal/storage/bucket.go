package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyObject  = errors.New("object is empty")
	ErrObjectExists = errors.New("object already exists")
	ErrInvalidKey   = errors.New("invalid object key")
)

// Bucket stores objects under string keys and resolves public URLs for
// them.
type Bucket interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PublicURL(key string) string
}

// LocalBucket keeps objects on the local filesystem. The directory is
// expected to be served statically under baseURL.
type LocalBucket struct {
	dir     string
	baseURL string
}

func NewLocalBucket(dir, baseURL string) *LocalBucket {
	return &LocalBucket{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (b *LocalBucket) Upload(ctx context.Context, key string, r io.Reader, _ string) error {
	dest, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrObjectExists
		}
		return err
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr == nil && n == 0 {
		copyErr = ErrEmptyObject
	}
	if copyErr != nil || closeErr != nil {
		os.Remove(dest)
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}
	return nil
}

func (b *LocalBucket) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return b.baseURL + "/" + strings.Join(parts, "/")
}

func (b *LocalBucket) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.dir, filepath.FromSlash(clean)), nil
}

// ObjectKey derives a pseudo-unique key: <prefix>/<owner>-<random>.<ext>.
// The extension is taken from the original file name.
func ObjectKey(prefix, ownerID, filename string) string {
	key := fmt.Sprintf("%s/%s-%s", prefix, ownerID, uuid.NewString())
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		key += "." + strings.ToLower(ext)
	}
	return key
}
