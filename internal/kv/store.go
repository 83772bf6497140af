// Package kv implements a hash and sorted set store on top of Pebble.
package kv

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	errs "github.com/chaisql/hashkv/internal/errors"
)

// A Hook is notified of every hash mutation, inside the batch performing it.
// old is empty for new hashes and new is nil when the hash is deleted.
// Returning an error aborts the mutation.
type Hook interface {
	HashChanged(b *pebble.Batch, key string, old, new Record) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(b *pebble.Batch, key string, old, new Record) error

func (f HookFunc) HashChanged(b *pebble.Batch, key string, old, new Record) error {
	return f(b, key, old, new)
}

// Store holds hashes and sorted sets.
// Reads go straight to the database without a snapshot,
// writes are serialized and committed atomically with the hooks' writes.
type Store struct {
	db     *pebble.DB
	closer bool

	mu    sync.Mutex
	hooks []Hook
}

// Open a Pebble database at path and wrap it in a Store.
// If path is empty, the database is kept in memory.
func Open(path string, opts *pebble.Options) (*Store, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	if path == "" && opts.FS == nil {
		opts.FS = vfs.NewMem()
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q", path)
	}

	s := NewStore(db)
	s.closer = true
	return s, nil
}

// NewStore wraps an existing Pebble database. Closing the store
// doesn't close db.
func NewStore(db *pebble.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Pebble database.
func (s *Store) DB() *pebble.DB {
	return s.db
}

// AddHook registers h. Hooks must be added before the store is used concurrently.
func (s *Store) AddHook(h Hook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Close the store. The underlying database is closed only if the store opened it.
func (s *Store) Close() error {
	if !s.closer {
		return nil
	}
	return s.db.Close()
}

// Update runs fn in a batch and commits it.
// Concurrent calls to Update and to the write methods of the store are serialized.
func (s *Store) Update(fn func(b *pebble.Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(fn)
}

// update must be called with s.mu held.
func (s *Store) update(fn func(b *pebble.Batch) error) error {
	b := s.db.NewIndexedBatch()
	defer b.Close()

	err := fn(b)
	if err != nil {
		return err
	}

	return errs.Unavailable(b.Commit(pebble.Sync))
}

func (s *Store) notify(b *pebble.Batch, key string, old, new Record) error {
	for _, h := range s.hooks {
		err := h.HashChanged(b, key, old, new)
		if err != nil {
			return err
		}
	}
	return nil
}

// FlushDB removes every key of the database, including data written by hooks.
func (s *Store) FlushDB() error {
	return s.Update(func(b *pebble.Batch) error {
		return b.DeleteRange([]byte{0x00}, []byte{0xff}, nil)
	})
}

// get returns a copy of the value associated with the given key.
// If not found, returns ok = false.
func get(r pebble.Reader, k []byte) (v []byte, ok bool, err error) {
	value, closer, err := r.Get(k)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, errs.Unavailable(err)
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	return cp, true, closeReader(closer)
}

func closeReader(c io.Closer) error {
	return errs.Unavailable(c.Close())
}

// iterate calls fn on every key in [lower, upper).
func iterate(r pebble.Reader, lower, upper []byte, fn func(k, v []byte) error) error {
	it := r.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})

	var err error
	for it.First(); it.Valid(); it.Next() {
		err = fn(it.Key(), it.Value())
		if err != nil {
			break
		}
	}

	cerr := errs.Unavailable(it.Close())
	if err != nil {
		return err
	}
	return cerr
}
