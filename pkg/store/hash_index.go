package store

import (
	"sort"
	"strings"
	"sync"
)

// HashIndex provides O(1) average-case lookups for key locations
type HashIndex struct {
	entries map[string]*IndexEntry
	mutex   sync.RWMutex
}

// NewHashIndex creates a new hash index
func NewHashIndex() *HashIndex {
	return &HashIndex{
		entries: make(map[string]*IndexEntry),
	}
}

// Put adds or updates an index entry for a key
func (idx *HashIndex) Put(key []byte, entry *IndexEntry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries[string(key)] = entry
}

// Get retrieves the index entry for a key
func (idx *HashIndex) Get(key []byte) (*IndexEntry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	entry, exists := idx.entries[string(key)]
	return entry, exists
}

// Delete removes a key from the index
func (idx *HashIndex) Delete(key []byte) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	delete(idx.entries, string(key))
}

// Size returns the number of keys in the index
func (idx *HashIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return len(idx.entries)
}

// KeysWithPrefix returns the keys starting with prefix in ascending order
func (idx *HashIndex) KeysWithPrefix(prefix string) []string {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	var keys []string
	for key := range idx.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// BuildFromLog scans a log file from the start and populates the index.
// Later frames for a key replace earlier ones; tombstones remove the key.
func (idx *HashIndex) BuildFromLog(reader *LogReader) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[string]*IndexEntry)

	if err := reader.Seek(0); err != nil {
		return err
	}

	iterator := reader.Iterator()
	defer iterator.Close()

	for iterator.Next() {
		frame := iterator.Frame()
		keyStr := string(frame.Key)

		if frame.IsTombstone() {
			delete(idx.entries, keyStr)
			continue
		}
		idx.entries[keyStr] = &IndexEntry{
			FileID:    0,
			Offset:    reader.Offset() - int64(frame.Size()),
			Size:      uint32(frame.Size()),
			Timestamp: frame.Timestamp,
		}
	}

	return iterator.Err()
}
