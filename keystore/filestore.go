// Package keystore persists storable queries by their derived key.
package keystore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("no query stored for key")
	ErrInvalidKey = errors.New("invalid key")

	keyRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

type keyLock struct {
	sync.RWMutex
	refs int
}

// FileStore keeps one file per key under a directory. Reads go through a TTL
// cache. Each key is guarded by its own lock, dropped once nobody holds it.
type FileStore struct {
	dir   string
	cache *ttlcache.Cache[string, string]
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// New creates dir if needed and returns a FileStore caching reads for ttl.
// Close must be called to stop the cache janitor.
func New(dir string, ttl time.Duration, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
	)
	go cache.Start()

	return &FileStore{
		dir:   dir,
		cache: cache,
		log:   logger,
		locks: make(map[string]*keyLock),
	}, nil
}

// Close stops the cache janitor.
func (s *FileStore) Close() {
	s.cache.Stop()
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) acquire(key string) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	return l
}

func (s *FileStore) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

func checkKey(key string) error {
	if !keyRe.MatchString(key) {
		return errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return nil
}

// Save writes query under key. A key that is already stored is left as is,
// since the key is derived from the query.
func (s *FileStore) Save(ctx context.Context, key, query string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.acquire(key)
	defer s.release(key)
	l.Lock()
	defer l.Unlock()

	dst := s.path(key)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	tmp := filepath.Join(s.dir, "."+key+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, []byte(query), 0o644); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "write stored query")
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename stored query")
	}

	s.cache.Set(key, query, ttlcache.DefaultTTL)
	s.log.Debug("stored query saved", slog.String("key", key))
	return nil
}

// Load returns the query stored under key.
func (s *FileStore) Load(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if item := s.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l := s.acquire(key)
	defer s.release(key)
	l.RLock()
	defer l.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", errors.Wrapf(ErrNotFound, "%s", key)
	}
	if err != nil {
		return "", errors.Wrap(err, "read stored query")
	}

	query := string(data)
	s.cache.Set(key, query, ttlcache.DefaultTTL)
	return query, nil
}
