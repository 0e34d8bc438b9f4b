package repositories

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"postboard/app/metrics"
	"postboard/app/models"
	"postboard/logger"
)

const (
	// BackendFile is the name reported by FileStore.Health
	BackendFile = "file"

	// PostsFileName is the canonical file inside the posts directory
	PostsFileName = "posts.json"

	corruptSuffix = ".corrupt"
)

// renameFile is swapped in tests to simulate a crash between writing the
// temporary file and replacing the canonical one.
var renameFile = os.Rename

// FileStore keeps the whole collection in a single JSON file. Writes go to a
// temporary file in the same directory which is then renamed over the
// canonical path, so readers only ever see a complete document.
type FileStore struct {
	dir      string
	path     string
	mutex    sync.RWMutex
	degraded atomic.Bool
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewFileStore creates a store for <dir>/posts.json. Nothing touches the
// filesystem until the first operation.
func NewFileStore(dir string, log *logger.Logger, m *metrics.Metrics) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{
		dir:     dir,
		path:    filepath.Join(dir, PostsFileName),
		logger:  log.WithComponent("file_store"),
		metrics: m,
	}
}

// Path returns the canonical posts file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Init() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.initLocked()
}

func (s *FileStore) ReadAll() ([]*models.Post, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.readLocked()
}

func (s *FileStore) WriteAll(posts []*models.Post) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create posts directory: %w", err)
	}
	return s.writeLocked(posts)
}

func (s *FileStore) Update(fn UpdateFunc) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.initLocked(); err != nil {
		return err
	}
	posts, err := s.readLocked()
	if err != nil {
		return err
	}
	next, err := fn(posts)
	if err != nil {
		return err
	}
	return s.writeLocked(next)
}

func (s *FileStore) Health() StoreHealth {
	return StoreHealth{Backend: BackendFile, Degraded: s.degraded.Load()}
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) initLocked() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create posts directory: %w", err)
	}

	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat posts file: %w", err)
	}

	s.logger.Infow("Creating empty posts file", "path", s.path)
	return WriteFileAtomic(s.path, []byte("[]\n"))
}

func (s *FileStore) readLocked() ([]*models.Post, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*models.Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read posts file: %w", err)
	}

	posts, err := DecodePosts(data)
	if err != nil {
		s.recoverCorrupt(data, err)
		return []*models.Post{}, nil
	}
	s.degraded.Store(false)
	return posts, nil
}

func (s *FileStore) writeLocked(posts []*models.Post) error {
	data, err := EncodePosts(posts)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.path, data); err != nil {
		return err
	}
	s.degraded.Store(false)
	return nil
}

// recoverCorrupt keeps the unreadable bytes next to the posts file so the
// next write does not lose them without a trace.
func (s *FileStore) recoverCorrupt(data []byte, cause error) {
	s.degraded.Store(true)
	s.metrics.CorruptRead()

	quarantine := s.path + corruptSuffix
	existing, err := os.ReadFile(quarantine)
	if err != nil || !bytes.Equal(existing, data) {
		if err := WriteFileAtomic(quarantine, data); err != nil {
			s.logger.Errorw("Failed to keep a copy of the unreadable posts file",
				"path", quarantine, "error", err.Error())
		}
	}
	s.logger.Warnw("Posts file is unreadable, serving an empty collection",
		"path", s.path, "error", cause.Error(), "quarantine", quarantine)
}

// WriteFileAtomic writes data to a temporary file in the directory of path,
// flushes it and renames it over path. The temporary file is removed whenever
// the rename did not happen.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := strings.TrimSuffix(base, filepath.Ext(base)) + "-*.tmp"

	tmp, err := os.CreateTemp(dir, prefix)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}

	if err := renameFile(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", base, err)
	}
	renamed = true
	return nil
}
