package repositories

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"postboard/app/metrics"
	"postboard/app/models"
	"postboard/logger"
)

// BackendBadger is the name reported by BadgerStore.Health
const BackendBadger = "badger"

var (
	ErrStoreClosed = errors.New("store is closed")

	errCorruptValue = errors.New("stored post is unreadable")
)

// BadgerStore keeps one JSON value per post under an ordered key. The whole
// collection is replaced inside a single transaction, which gives the same
// all-or-nothing visibility as the file store.
type BadgerStore struct {
	db       *badger.DB
	ownsDB   bool
	mutex    sync.Mutex
	degraded atomic.Bool
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// OpenBadgerStore opens (or creates) a badger database in dir
func OpenBadgerStore(dir string, log *logger.Logger, m *metrics.Metrics) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	s := NewBadgerStore(db, log, m)
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore wraps an already opened database. Close leaves it open.
func NewBadgerStore(db *badger.DB, log *logger.Logger, m *metrics.Metrics) *BadgerStore {
	if log == nil {
		log = logger.Nop()
	}
	return &BadgerStore{
		db:      db,
		logger:  log.WithComponent("badger_store"),
		metrics: m,
	}
}

// Init has nothing to create beyond what badger.Open already did
func (s *BadgerStore) Init() error {
	if s.db.IsClosed() {
		return ErrStoreClosed
	}
	return nil
}

func (s *BadgerStore) ReadAll() ([]*models.Post, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	var posts []*models.Post
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		posts, err = s.readTxn(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *BadgerStore) WriteAll(posts []*models.Post) error {
	if err := s.Init(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return s.writeTxn(txn, posts)
	})
}

func (s *BadgerStore) Update(fn UpdateFunc) error {
	if err := s.Init(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		posts, err := s.readTxn(txn)
		if err != nil {
			return err
		}
		next, err := fn(posts)
		if err != nil {
			return err
		}
		return s.writeTxn(txn, next)
	})
}

func (s *BadgerStore) Health() StoreHealth {
	return StoreHealth{Backend: BackendBadger, Degraded: s.degraded.Load()}
}

func (s *BadgerStore) Close() error {
	if !s.ownsDB || s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// readTxn loads every post in key order. A value that does not decode makes
// the whole collection read as empty, mirroring the file store policy.
func (s *BadgerStore) readTxn(txn *badger.Txn) ([]*models.Post, error) {
	posts := []*models.Post{}

	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(PostKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var post *models.Post
		err := item.Value(func(val []byte) error {
			p, err := unmarshalPost(val)
			if err != nil {
				return fmt.Errorf("%w: key %s: %v", errCorruptValue, item.Key(), err)
			}
			post = p
			return nil
		})
		if errors.Is(err, errCorruptValue) {
			s.recoverCorrupt(err)
			return []*models.Post{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read post: %w", err)
		}
		posts = append(posts, post)
	}

	s.degraded.Store(false)
	return posts, nil
}

// writeTxn replaces every stored post with the given collection
func (s *BadgerStore) writeTxn(txn *badger.Txn, posts []*models.Post) error {
	var stale [][]byte

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	prefix := []byte(PostKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		stale = append(stale, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
	}

	position := 0
	for _, post := range posts {
		if post == nil {
			continue
		}
		post.Normalize()
		data, err := marshalEntity(post, "")
		if err != nil {
			return err
		}
		if err := txn.Set(postKey(position), data); err != nil {
			return fmt.Errorf("failed to store post %s: %w", post.ID, err)
		}
		position++
	}
	return nil
}

func (s *BadgerStore) recoverCorrupt(cause error) {
	s.degraded.Store(true)
	s.metrics.CorruptRead()
	s.logger.Warnw("Stored posts are unreadable, serving an empty collection", "error", cause.Error())
}
