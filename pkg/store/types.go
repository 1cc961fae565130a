package store

import (
	"time"
)

// IndexEntry represents the location of a key-value pair in the log
type IndexEntry struct {
	FileID    uint32 // ID of the data file
	Offset    int64  // Byte offset within the file
	Size      uint32 // Size of the frame in bytes
	Timestamp uint64 // Frame timestamp
}

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string        // Path to the active data file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string // Path to the data file
	StartOffset int64  // Offset to start reading from
}

// KVStoreConfig holds configuration for the key-value store
type KVStoreConfig struct {
	DataDir       string        // Directory for data files
	FsyncInterval time.Duration // Fsync interval for durability
}

// RecoveryResult reports what Open found in the data file
type RecoveryResult struct {
	RecordsValidated int64
	RecordsTruncated int64
	FileSizeBefore   int64
	FileSizeAfter    int64
	IndexRebuilt     bool
	RecoveryTime     time.Duration
}

// FrameIterator provides streaming access to frames
type FrameIterator interface {
	Next() bool
	Frame() *Frame
	Err() error
	Close() error
}

// Errors
var (
	ErrKeyNotFound = &KVError{"key not found"}
	ErrInvalidKey  = &KVError{"invalid key"}
	ErrCorruption  = &KVError{"data corruption detected"}
	ErrStoreClosed = &KVError{"store is not open"}
)

// KVError represents a key-value store error
type KVError struct {
	Message string
}

func (e *KVError) Error() string {
	return e.Message
}
