package store

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogWriter handles append-only writes to the active data file
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	codec      *FrameCodec
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
}

// NewLogWriter creates a new log writer with the given configuration
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	writer := &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, bufSize),
		codec:  NewFrameCodec(),
		config: config,
		offset: offset,
	}

	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			_ = writer.file.Sync()
		})
	}

	return writer, nil
}

// Put appends a key-value pair to the log file and returns the frame offset
func (w *LogWriter) Put(key, value []byte) (int64, *Frame, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	offset, frame, err := w.append(key, value)
	if err != nil {
		return 0, nil, err
	}
	if err := w.commit(); err != nil {
		return 0, nil, err
	}
	return offset, frame, nil
}

// PutBatch appends every pair and syncs once. Offsets are returned in
// input order.
func (w *LogWriter) PutBatch(keys, values [][]byte) ([]int64, []*Frame, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	offsets := make([]int64, len(keys))
	frames := make([]*Frame, len(keys))
	for i := range keys {
		offset, frame, err := w.append(keys[i], values[i])
		if err != nil {
			return nil, nil, err
		}
		offsets[i] = offset
		frames[i] = frame
	}
	if err := w.commit(); err != nil {
		return nil, nil, err
	}
	return offsets, frames, nil
}

func (w *LogWriter) append(key, value []byte) (int64, *Frame, error) {
	frame, err := NewFrame(key, value)
	if err != nil {
		return 0, nil, err
	}

	n, err := w.writer.Write(w.codec.Encode(frame))
	if err != nil {
		return 0, nil, err
	}

	recordOffset := w.offset
	w.offset += int64(n)
	return recordOffset, frame, nil
}

// commit flushes the buffer so readers see the data, then fsyncs now or
// re-arms the fsync timer.
func (w *LogWriter) commit() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.config.FsyncInterval == 0 {
		return w.file.Sync()
	}
	if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}
	return nil
}

// Sync forces a fsync to disk
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the log writer and ensures all data is synced
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the current size of the log file
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *LogWriter) Path() string {
	return w.config.FilePath
}
