package storage

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/ssargent/dblog/pkg/store"
)

// PebbleStorage is a key-value backend on top of a pebble LSM.
type PebbleStorage struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

// Options tunes a PebbleStorage. The zero value syncs every write.
type Options struct {
	// NoSync skips the WAL fsync on commit.
	NoSync bool
}

func NewPebbleStorage(path string, opts Options) (*PebbleStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", path)
	}

	writeOpts := pebble.Sync
	if opts.NoSync {
		writeOpts = pebble.NoSync
	}
	return &PebbleStorage{db: db, writeOpts: writeOpts}, nil
}

func (s *PebbleStorage) Put(key, value []byte) error {
	if len(key) == 0 {
		return store.ErrInvalidKey
	}
	return s.db.Set(key, value, s.writeOpts)
}

// PutBatch writes every pair in one atomic pebble batch.
func (s *PebbleStorage) PutBatch(keys, values [][]byte) error {
	if len(keys) != len(values) {
		return errors.Newf("batch has %d keys and %d values", len(keys), len(values))
	}

	b := s.db.NewBatch()
	defer b.Close()

	for i := range keys {
		if len(keys[i]) == 0 {
			return store.ErrInvalidKey
		}
		if err := b.Set(keys[i], values[i], nil); err != nil {
			return err
		}
	}
	return b.Commit(s.writeOpts)
}

// Get returns a copy of the stored value or store.ErrKeyNotFound.
func (s *PebbleStorage) Get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, store.ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *PebbleStorage) Delete(key []byte) error {
	return s.db.Delete(key, s.writeOpts)
}

// Scan calls fn for every key with the given prefix in key order. The
// slices passed to fn are only valid for the duration of the call.
func (s *PebbleStorage) Scan(prefix []byte, fn func(key, value []byte) error) (err error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer closeInto(iter, &err)

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *PebbleStorage) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with the
// prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func closeInto(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
