package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/store"
)

// ErrAccountNotFound is returned when no account is stored at an address.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore persists accounts by address.
type AccountStore interface {
	GetAccount(address Pubkey) (*Account, error)
	// PutAccounts stores every account or returns an error.
	PutAccounts(accounts []*Account) error
	// RangeAccounts calls fn for every stored account. Order is unspecified.
	RangeAccounts(fn func(*Account) error) error
	Close() error
}

// KV is the byte-level store an account store can sit on. store.KVStore and
// storage.PebbleStorage both satisfy it and report missing keys with
// store.ErrKeyNotFound.
type KV interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Scan(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// BatchKV is implemented by backends that can write several keys atomically.
type BatchKV interface {
	PutBatch(keys, values [][]byte) error
}

var accountKeyPrefix = []byte("acct:")

func accountKey(address Pubkey) []byte {
	key := make([]byte, 0, len(accountKeyPrefix)+PubkeyLen)
	key = append(key, accountKeyPrefix...)
	return append(key, address[:]...)
}

// KVAccounts adapts a KV backend into an AccountStore.
type KVAccounts struct {
	kv KV
}

func NewKVAccounts(kv KV) *KVAccounts {
	return &KVAccounts{kv: kv}
}

func (s *KVAccounts) GetAccount(address Pubkey) (*Account, error) {
	value, err := s.kv.Get(accountKey(address))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, errors.Wrapf(ErrAccountNotFound, "%s", address)
		}
		return nil, errors.Wrapf(err, "load account %s", address)
	}
	return UnmarshalAccount(address, value)
}

func (s *KVAccounts) PutAccounts(accounts []*Account) error {
	keys := make([][]byte, len(accounts))
	values := make([][]byte, len(accounts))
	for i, acct := range accounts {
		keys[i] = accountKey(acct.Address)
		values[i] = MarshalAccount(acct)
	}

	if batch, ok := s.kv.(BatchKV); ok {
		return errors.Wrap(batch.PutBatch(keys, values), "commit accounts")
	}
	for i := range keys {
		if err := s.kv.Put(keys[i], values[i]); err != nil {
			return errors.Wrapf(err, "commit account %s", accounts[i].Address)
		}
	}
	return nil
}

func (s *KVAccounts) RangeAccounts(fn func(*Account) error) error {
	return s.kv.Scan(accountKeyPrefix, func(key, value []byte) error {
		address, err := PubkeyFromBytes(key[len(accountKeyPrefix):])
		if err != nil {
			return errors.Wrapf(err, "corrupt account key %x", key)
		}
		acct, err := UnmarshalAccount(address, value)
		if err != nil {
			return err
		}
		return fn(acct)
	})
}

func (s *KVAccounts) Close() error {
	return s.kv.Close()
}

// MemoryStore keeps accounts in a map. Used by tests and the "memory"
// backend.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[Pubkey]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[Pubkey]*Account)}
}

func (m *MemoryStore) GetAccount(address Pubkey) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[address]
	if !ok {
		return nil, errors.Wrapf(ErrAccountNotFound, "%s", address)
	}
	return acct.Clone(), nil
}

func (m *MemoryStore) PutAccounts(accounts []*Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acct := range accounts {
		m.accounts[acct.Address] = acct.Clone()
	}
	return nil
}

func (m *MemoryStore) RangeAccounts(fn func(*Account) error) error {
	m.mu.RLock()
	snapshot := make([]*Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		snapshot = append(snapshot, acct.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return bytes.Compare(snapshot[i].Address[:], snapshot[j].Address[:]) < 0
	})
	for _, acct := range snapshot {
		if err := fn(acct); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
