package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// KVStore is a Bitcask-style store: one append-only data file plus an
// in-memory hash index rebuilt on open.
type KVStore struct {
	config   KVStoreConfig
	writer   *LogWriter
	reader   *LogReader
	index    *HashIndex
	dataFile string
	mutex    sync.Mutex
	isOpen   bool
}

// StoreStats holds statistics about the store
type StoreStats struct {
	Keys     int
	DataSize int64
}

// NewKVStore creates a new key-value store instance
func NewKVStore(config KVStoreConfig) (*KVStore, error) {
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, err
	}

	return &KVStore{
		config:   config,
		dataFile: filepath.Join(config.DataDir, "active.data"),
		index:    NewHashIndex(),
	}, nil
}

// Open validates the data file, truncating a torn tail, and builds the index
func (kv *KVStore) Open() (*RecoveryResult, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if kv.isOpen {
		return &RecoveryResult{}, nil
	}

	recoveryResult, err := kv.validateLogFile(kv.dataFile)
	if err != nil {
		return nil, err
	}

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      kv.dataFile,
		FsyncInterval: kv.config.FsyncInterval,
		BufferSize:    64 * 1024,
	})
	if err != nil {
		return nil, err
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: kv.dataFile})
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	if err := kv.index.BuildFromLog(reader); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, err
	}

	kv.writer = writer
	kv.reader = reader
	kv.isOpen = true
	return recoveryResult, nil
}

// Get retrieves a value for a key
func (kv *KVStore) Get(key []byte) ([]byte, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	return kv.getInternal(key)
}

func (kv *KVStore) getInternal(key []byte) ([]byte, error) {
	if !kv.isOpen {
		return nil, ErrStoreClosed
	}

	entry, exists := kv.index.Get(key)
	if !exists {
		return nil, ErrKeyNotFound
	}

	frame, err := kv.reader.ReadAt(entry.Offset)
	if err != nil {
		return nil, err
	}
	if frame.IsTombstone() {
		return nil, ErrKeyNotFound
	}
	return frame.Value, nil
}

// Put stores a key-value pair
func (kv *KVStore) Put(key, value []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}

	offset, frame, err := kv.writer.Put(key, value)
	if err != nil {
		return err
	}
	kv.indexFrame(offset, frame)
	return nil
}

// PutBatch stores several pairs with a single sync. Keys must be non-empty.
func (kv *KVStore) PutBatch(keys, values [][]byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}
	if len(keys) != len(values) {
		return &KVError{"batch keys and values differ in length"}
	}
	for _, key := range keys {
		if len(key) == 0 {
			return ErrInvalidKey
		}
	}

	offsets, frames, err := kv.writer.PutBatch(keys, values)
	if err != nil {
		return err
	}
	for i := range frames {
		kv.indexFrame(offsets[i], frames[i])
	}
	return nil
}

func (kv *KVStore) indexFrame(offset int64, frame *Frame) {
	if frame.IsTombstone() {
		kv.index.Delete(frame.Key)
		return
	}
	kv.index.Put(frame.Key, &IndexEntry{
		FileID:    0,
		Offset:    offset,
		Size:      uint32(frame.Size()),
		Timestamp: frame.Timestamp,
	})
}

// Delete removes a key-value pair by writing a tombstone
func (kv *KVStore) Delete(key []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}

	offset, frame, err := kv.writer.Put(key, []byte{})
	if err != nil {
		return err
	}
	kv.indexFrame(offset, frame)
	return nil
}

// ListKeys returns all keys that match the given prefix, sorted
func (kv *KVStore) ListKeys(prefix []byte) ([]string, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil, ErrStoreClosed
	}
	return kv.index.KeysWithPrefix(string(prefix)), nil
}

// Scan calls fn for every live key with the given prefix in key order.
// The store lock is held for the duration, so fn must not call back into
// the store.
func (kv *KVStore) Scan(prefix []byte, fn func(key, value []byte) error) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}

	for _, key := range kv.index.KeysWithPrefix(string(prefix)) {
		value, err := kv.getInternal([]byte(key))
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return err
		}
		if err := fn([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns store statistics
func (kv *KVStore) Stats() *StoreStats {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return &StoreStats{}
	}
	return &StoreStats{
		Keys:     kv.index.Size(),
		DataSize: kv.writer.Size(),
	}
}

// Close shuts down the store
func (kv *KVStore) Close() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil
	}
	kv.isOpen = false

	writerErr := kv.writer.Close()
	readerErr := kv.reader.Close()
	if writerErr != nil {
		return writerErr
	}
	return readerErr
}

// validateLogFile validates the log file integrity and truncates the file
// after the last intact frame.
func (kv *KVStore) validateLogFile(filePath string) (*RecoveryResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{
				IndexRebuilt: true,
				RecoveryTime: time.Since(startTime),
			}, nil
		}
		return nil, err
	}
	fileSizeBefore := fileInfo.Size()

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var recordsValidated int64
	var lastValidOffset int64
	var corruptionFound bool

	for {
		if _, err := reader.ReadNext(); err != nil {
			if !errors.Is(err, io.EOF) {
				corruptionFound = true
			}
			break
		}
		recordsValidated++
		lastValidOffset = reader.Offset()
	}

	result := &RecoveryResult{
		RecordsValidated: recordsValidated,
		FileSizeBefore:   fileSizeBefore,
		FileSizeAfter:    fileSizeBefore,
		IndexRebuilt:     true,
	}

	if corruptionFound {
		if err := os.Truncate(filePath, lastValidOffset); err != nil {
			return nil, err
		}
		result.FileSizeAfter = lastValidOffset
		result.RecordsTruncated = 1 // one torn frame at the tail
	}

	result.RecoveryTime = time.Since(startTime)
	return result, nil
}
