package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/a-poor/cowdb/storage"
	"github.com/a-poor/cowdb/tree"
	"go.uber.org/zap"
)

// DB is a handle on a store file.
//
// Calls on one handle are serialised. Writers in other handles or
// processes are excluded by the file lock.
type DB struct {
	sync.Mutex
	store   *storage.Storage
	tree    *tree.Tree[string]
	root    *storage.Ref[*tree.Node[string]]
	log     *zap.Logger
	session string
	opts    Options
}

// Open opens the store at path, creating it if needed.
func Open(path string, opts ...Option) (*DB, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.SessionID == "" {
		id, err := storage.NewID()
		if err != nil {
			return nil, err
		}
		o.SessionID = id
	}

	s, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := tree.New[string](s, storage.ValueCodec(o.Compress))
	if err != nil {
		s.Close()
		return nil, err
	}

	db := &DB{
		store:   s,
		tree:    t,
		log:     o.Logger.With(zap.String("session", o.SessionID)),
		session: o.SessionID,
		opts:    o,
	}
	if err := db.refresh(); err != nil {
		s.Close()
		return nil, err
	}
	db.log.Debug("opened store", zap.String("path", path), zap.Bool("compress", o.Compress))
	return db, nil
}

// refresh points the root at the latest committed tree.
func (db *DB) refresh() error {
	addr, err := db.store.RootAddress()
	if err != nil {
		return err
	}
	db.root = db.tree.RootAt(addr)
	db.log.Debug("refreshed root", zap.Stringer("root", addr))
	return nil
}

// beginRead refreshes the root unless uncommitted writes are held.
func (db *DB) beginRead() error {
	if db.store.Closed() {
		return ErrClosed
	}
	if db.store.Locked() {
		return nil
	}
	return db.refresh()
}

// tryBeginWrite takes the write lock. It reports true if this call
// acquired it, in which case the root is rebased on the latest commit.
func (db *DB) tryBeginWrite() (bool, error) {
	if db.store.Closed() {
		return false, ErrClosed
	}
	acquired, err := db.store.Lock()
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	db.log.Debug("acquired write lock")
	if err := db.refresh(); err != nil {
		db.store.Unlock()
		return true, err
	}
	return true, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (db *DB) Get(key string) ([]byte, error) {
	db.Lock()
	defer db.Unlock()

	if err := db.beginRead(); err != nil {
		return nil, err
	}
	return db.tree.Get(db.root, key)
}

// Contains reports whether key is present.
func (db *DB) Contains(key string) (bool, error) {
	_, err := db.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Len returns the number of keys.
func (db *DB) Len() (uint64, error) {
	db.Lock()
	defer db.Unlock()

	if err := db.beginRead(); err != nil {
		return 0, err
	}
	return db.tree.Len(db.root)
}

// Set binds key to value. The change is visible to this handle at once
// and to others after Commit.
func (db *DB) Set(key string, value []byte) error {
	db.Lock()
	defer db.Unlock()

	if _, err := db.tryBeginWrite(); err != nil {
		return err
	}
	root, err := db.tree.Insert(db.root, key, db.tree.NewValue(value))
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	db.root = root
	return nil
}

// Delete removes key, or returns ErrKeyNotFound.
func (db *DB) Delete(key string) error {
	db.Lock()
	defer db.Unlock()

	if _, err := db.tryBeginWrite(); err != nil {
		return err
	}
	root, err := db.tree.Delete(db.root, key)
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	db.root = root
	return nil
}

// Commit writes every pending node and value, then points the file's
// root at the new tree and releases the write lock.
//
// Without the write lock this handle has nothing to commit, and its
// root may be older than the file's, so Commit does nothing.
func (db *DB) Commit() error {
	db.Lock()
	defer db.Unlock()

	if db.store.Closed() {
		return ErrClosed
	}
	if !db.store.Locked() {
		db.log.Debug("nothing to commit")
		return nil
	}
	if err := db.tree.Store(db.store, db.root); err != nil {
		return fmt.Errorf("failed to store tree: %w", err)
	}
	addr := db.root.Address()
	if err := db.store.CommitRootAddress(addr); err != nil {
		return fmt.Errorf("failed to commit root: %w", err)
	}
	db.log.Debug("committed", zap.Stringer("root", addr))
	return nil
}

// Scan visits every key in order. The callback returns true to stop.
func (db *DB) Scan(fn func(key string, value []byte) (done bool, err error)) error {
	db.Lock()
	defer db.Unlock()

	if err := db.beginRead(); err != nil {
		return err
	}
	return db.tree.Walk(db.root, func(n *tree.Node[string]) (bool, error) {
		v, err := db.tree.Value(n)
		if err != nil {
			return true, err
		}
		return fn(n.Key, v)
	})
}

// Verify checks the tree's ordering and size invariants.
func (db *DB) Verify() error {
	db.Lock()
	defer db.Unlock()

	if err := db.beginRead(); err != nil {
		return err
	}
	return db.tree.Verify(db.root)
}

// Close releases the write lock, discarding uncommitted changes, and
// closes the file. Every later call fails with ErrClosed.
func (db *DB) Close() error {
	db.Lock()
	defer db.Unlock()

	if db.store.Closed() {
		return nil
	}
	db.log.Debug("closing store", zap.Bool("uncommitted", db.store.Locked()))
	return db.store.Close()
}
