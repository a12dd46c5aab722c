package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/models"
)

// FileStore keeps one JSON file per cache key under a directory. Entry
// freshness is judged from the file's modification time, so a record
// copied or touched from outside restarts its TTL clock; that is
// accepted behavior for this low-write batch workload.
type FileStore struct {
	dir      string
	ttl      time.Duration
	logger   *logrus.Entry
	disabled atomic.Bool
	stats    statsCounter
}

// NewFileStore creates the cache directory if needed. When the
// directory cannot be created the store degrades to pass-through: every
// Get misses and every Put is dropped.
func NewFileStore(dir string, ttl time.Duration, logger *logrus.Logger) *FileStore {
	s := &FileStore{
		dir:    dir,
		ttl:    ttl,
		logger: logger.WithField("component", "file_cache"),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.WithError(err).WithField("dir", dir).
			Warn("Cannot create cache directory, cache disabled")
		s.disabled.Store(true)
	}
	return s
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the payload when a fresh entry exists. A corrupt or
// unreadable entry is deleted and reported as a miss, never an error.
func (s *FileStore) Get(_ context.Context, keyParts []string) ([]byte, bool) {
	if s.disabled.Load() {
		return nil, false
	}

	key := Key(keyParts)
	path := s.path(key)

	info, err := os.Stat(path)
	if err != nil {
		s.stats.miss()
		return nil, false
	}
	if time.Since(info.ModTime()) >= s.ttl {
		s.logger.WithField("key", key).Debug("Cache entry expired")
		s.stats.miss()
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.remove(path, key, err)
		s.stats.miss()
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Payload) == 0 {
		s.remove(path, key, models.ErrCacheCorrupt)
		s.stats.miss()
		return nil, false
	}

	s.stats.hit()
	return e.Payload, true
}

// Put writes the entry atomically (temp file, then rename) so a
// concurrent reader never observes partial data. Write failures are
// logged and swallowed; the request simply stays uncached.
func (s *FileStore) Put(_ context.Context, keyParts []string, payload []byte) {
	if s.disabled.Load() {
		return
	}

	key := Key(keyParts)
	data, err := json.Marshal(newEntry(keyParts, payload))
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cannot encode cache entry")
		return
	}

	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cannot create cache temp file")
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.logger.WithError(err).WithField("key", key).Warn("Cannot write cache entry")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.logger.WithError(err).WithField("key", key).Warn("Cannot close cache temp file")
		return
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		s.logger.WithError(err).WithField("key", key).Warn("Cannot publish cache entry")
		return
	}
	s.stats.set()
}

// Clear removes every entry file and returns how many were removed.
func (s *FileStore) Clear(_ context.Context) int {
	if s.disabled.Load() {
		return 0
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.WithError(err).Warn("Cannot list cache directory")
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.logger.WithError(err).WithField("file", e.Name()).Warn("Cannot remove cache file")
			continue
		}
		removed++
	}

	s.logger.WithField("removed", removed).Info("Cache cleared")
	return removed
}

// GetStats returns a snapshot of hit/miss/set counters.
func (s *FileStore) GetStats() Stats {
	return s.stats.Snapshot()
}

func (s *FileStore) remove(path, key string, cause error) {
	s.logger.WithError(cause).WithField("key", key).
		Warn("Removing unreadable cache entry")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).WithField("key", key).Warn("Cannot remove cache entry")
	}
}
