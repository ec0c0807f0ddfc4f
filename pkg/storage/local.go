package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Local stores images on disk under Dir; references are URLPrefix-relative paths
// served back by the HTTP static handler.
type Local struct {
	dir       string
	urlPrefix string
	logger    *zap.Logger
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir, urlPrefix string, logger *zap.Logger) (*Local, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	prefix := "/" + strings.Trim(urlPrefix, "/")
	return &Local{dir: dir, urlPrefix: prefix, logger: logger}, nil
}

// Dir returns the root directory on disk.
func (l *Local) Dir() string { return l.dir }

// URLPrefix returns the URL path images are served under.
func (l *Local) URLPrefix() string { return l.urlPrefix }

// Save writes body to candidates/{event_id}/{uuid}{ext} and returns its URL path.
func (l *Local) Save(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := CandidateKey(eventID, uuid.New().String(), extensionFor(filename, contentType))
	full := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create event dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	// one byte over the limit is enough to detect an oversize stream
	n, err := io.Copy(f, io.LimitReader(body, MaxImageSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxImageSize {
		err = fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}
	if err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(l.urlPrefix, key), nil
}

// Release removes the file behind ref. Foreign or missing references are ignored.
func (l *Local) Release(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, ok := l.pathFor(ref)
	if !ok {
		l.logger.Debug("release skipped, reference not owned by local store", zap.String("ref", ref))
		return nil
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// pathFor maps a reference to a file under dir, rejecting anything that escapes it.
func (l *Local) pathFor(ref string) (string, bool) {
	clean := path.Clean("/" + strings.TrimSpace(ref))
	rel := strings.TrimPrefix(clean, l.urlPrefix+"/")
	if rel == clean || rel == "" {
		return "", false
	}
	if !strings.HasPrefix(rel, FolderCandidates+"/") {
		return "", false
	}
	return filepath.Join(l.dir, filepath.FromSlash(rel)), true
}
