package mediacache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lexideck/internal/logging"
	"lexideck/internal/services"
)

const (
	lockFileName   = ".lexideck.lock"
	tempFilePrefix = ".tmp-"
)

// ErrLocked is returned when another process holds a conflicting cache lock.
var ErrLocked = errors.New("media cache is locked by another process")

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Artifact references a published cache file.
type Artifact struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Size     int64  `json:"size_bytes"`
}

// Cache is a content-addressed media store rooted at a single directory.
// Safe for concurrent use.
type Cache struct {
	dir      string
	revision string
	idx      *index
	lock     *flock.Flock
	logger   *slog.Logger
	statfs   statfsFunc
	now      func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for index warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logging.NewComponentLogger(logger, "mediacache")
	}
}

// WithRevision mixes a media revision into every key so bumping it forces a
// refetch of all artifacts.
func WithRevision(revision string) Option {
	return func(c *Cache) {
		c.revision = strings.TrimSpace(revision)
	}
}

// Open prepares the media directory and its index.
func Open(ctx context.Context, dir string, opts ...Option) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mediacache", "open", "media directory not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "mediacache", "open", "create media directory", err)
	}
	c := &Cache{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFileName)),
		logger: logging.NewComponentLogger(nil, "mediacache"),
		statfs: realStatfs,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	idx, err := openIndex(ctx, filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, err
	}
	c.idx = idx
	return c, nil
}

// Close releases the index and any held lock.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release cache lock: %w", err))
		}
	}
	if err := c.idx.close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache index: %w", err))
	}
	return errors.Join(errs...)
}

// Dir returns the media directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Revision returns the media revision mixed into keys.
func (c *Cache) Revision() string {
	return c.revision
}

// FileName returns the artifact file name the key maps to.
func (c *Cache) FileName(key Key) string {
	return key.FileName(c.revision)
}

// Path returns the absolute artifact path the key maps to.
func (c *Cache) Path(key Key) string {
	return filepath.Join(c.dir, c.FileName(key))
}

// Lookup reports whether a published, non-empty artifact exists for key. A
// hit found on disk is recorded in the index if it was missing there.
func (c *Cache) Lookup(ctx context.Context, key Key) (Artifact, bool) {
	if key.Empty() {
		return Artifact{}, false
	}
	name := c.FileName(key)
	path := filepath.Join(c.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return Artifact{}, false
	}
	now := c.now()
	c.recordIndex(ctx, Entry{
		FileName:   name,
		Kind:       key.Kind,
		Digest:     key.Digest(c.revision),
		SizeBytes:  info.Size(),
		CreatedAt:  info.ModTime(),
		LastUsedAt: now,
	})
	return Artifact{FileName: name, Path: path, Size: info.Size()}, true
}

// Store publishes data under key. The bytes are written to a temporary file
// in the media directory, synced, and renamed into place.
func (c *Cache) Store(ctx context.Context, key Key, data []byte) (Artifact, error) {
	if key.Empty() {
		return Artifact{}, services.Wrap(services.ErrFatal, "mediacache", "store", "empty content key", nil)
	}
	if len(data) == 0 {
		return Artifact{}, services.Wrap(services.ErrCacheWrite, "mediacache", "store", "refusing to publish empty artifact", nil)
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	name := c.FileName(key)
	path := filepath.Join(c.dir, name)
	tmpPath := filepath.Join(c.dir, tempFilePrefix+uuid.NewString())

	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return Artifact{}, services.Wrap(services.ErrCacheWrite, "mediacache", "store", "write temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return Artifact{}, services.Wrap(services.ErrCacheWrite, "mediacache", "store", "publish artifact", err)
	}

	now := c.now()
	c.recordIndex(ctx, Entry{
		FileName:   name,
		Kind:       key.Kind,
		Digest:     key.Digest(c.revision),
		SizeBytes:  int64(len(data)),
		CreatedAt:  now,
		LastUsedAt: now,
	})
	return Artifact{FileName: name, Path: path, Size: int64(len(data))}, nil
}

func writeSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (c *Cache) recordIndex(ctx context.Context, entry Entry) {
	if c.idx == nil {
		return
	}
	if err := c.idx.upsert(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(ctx, c.logger, "cache index update failed", "cache_index_failed",
			logging.String("file", entry.FileName),
			logging.Error(err),
			logging.Hint("run 'lexideck cache prune' to rebuild the index"),
			logging.String(logging.FieldImpact, "cache statistics may be stale; artifacts are unaffected"),
		)
	}
}

// LockShared takes the shared build lock. It fails fast with ErrLocked when a
// clear or prune is running.
func (c *Cache) LockShared() (func(), error) {
	ok, err := c.lock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("acquire shared cache lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() { _ = c.lock.Unlock() }, nil
}

func (c *Cache) lockExclusive() (func(), error) {
	ok, err := c.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire exclusive cache lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() { _ = c.lock.Unlock() }, nil
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempFilePrefix)
}

func isArtifactName(name string) bool {
	_, _, ok := parseFileName(name)
	return ok
}

// parseFileName splits "_<kind>_<digest><ext>" into kind and digest prefix.
func parseFileName(name string) (string, string, bool) {
	if !strings.HasPrefix(name, "_") {
		return "", "", false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	sep := len(stem) - digestLength - 1
	if sep < 2 || stem[sep] != '_' {
		return "", "", false
	}
	digest := stem[sep+1:]
	for _, r := range digest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", "", false
		}
	}
	return stem[1:sep], digest, true
}

func (c *Cache) readDir() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read media directory: %w", err)
	}
	return entries, nil
}
