package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dblog/pkg/store"
)

func openTestStorage(t *testing.T) *PebbleStorage {
	t.Helper()
	s, err := NewPebbleStorage(filepath.Join(t.TempDir(), "pebble"), Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPebbleStorage_PutGetDelete(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	got, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = s.Get([]byte("missing"))
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	require.NoError(t, s.Delete([]byte("k")))
	_, err = s.Get([]byte("k"))
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	assert.ErrorIs(t, s.Put(nil, []byte("v")), store.ErrInvalidKey)
}

func TestPebbleStorage_PutBatchAndScan(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.PutBatch(
		[][]byte{[]byte("acct:b"), []byte("acct:a"), []byte("other")},
		[][]byte{[]byte("2"), []byte("1"), []byte("x")},
	))

	var seen []string
	err := s.Scan([]byte("acct:"), func(key, value []byte) error {
		seen = append(seen, string(key)+"="+string(value))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"acct:a=1", "acct:b=2"}, seen)

	stop := errors.New("stop")
	assert.ErrorIs(t, s.Scan(nil, func(_, _ []byte) error { return stop }), stop)

	assert.Error(t, s.PutBatch([][]byte{[]byte("a")}, nil))
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("acct;"), prefixUpperBound([]byte("acct:")))
	assert.Equal(t, []byte{0x02}, prefixUpperBound([]byte{0x01, 0xFF}))
	assert.Nil(t, prefixUpperBound([]byte{0xFF, 0xFF}))
	assert.Nil(t, prefixUpperBound(nil))
}
