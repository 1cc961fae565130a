package store

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// LogReader provides sequential and random access to frames in a log file
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *FrameCodec
	offset int64
	config LogReaderConfig
}

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return &LogReader{
		file:   file,
		reader: bufio.NewReader(file),
		codec:  NewFrameCodec(),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// ReadNext reads the frame at the current offset. It returns io.EOF at a
// clean end of file and ErrCorruption for a torn or damaged frame.
func (r *LogReader) ReadNext() (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	n, err := io.ReadFull(r.reader, header)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	frame, err := r.codec.DecodeHeader(header)
	if err != nil {
		return nil, ErrCorruption
	}

	body := make([]byte, int(frame.KeySize)+int(frame.ValueSize))
	m, err := io.ReadFull(r.reader, body)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	frame.Key = body[:frame.KeySize]
	frame.Value = body[frame.KeySize:]
	if err := frame.Validate(); err != nil {
		return nil, ErrCorruption
	}

	r.offset += int64(n + m)
	return frame, nil
}

// ReadAt reads the frame starting at offset without moving the sequential
// cursor.
func (r *LogReader) ReadAt(offset int64) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := r.file.ReadAt(header, offset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	frame, err := r.codec.DecodeHeader(header)
	if err != nil {
		return nil, ErrCorruption
	}

	body := make([]byte, int(frame.KeySize)+int(frame.ValueSize))
	if len(body) > 0 {
		if _, err := r.file.ReadAt(body, offset+FrameHeaderSize); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrCorruption
			}
			return nil, err
		}
	}

	frame.Key = body[:frame.KeySize]
	frame.Value = body[frame.KeySize:]
	if err := frame.Validate(); err != nil {
		return nil, ErrCorruption
	}
	return frame, nil
}

// Seek sets the read offset
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over the remaining frames
func (r *LogReader) Iterator() FrameIterator {
	return &logFrameIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

type logFrameIterator struct {
	reader *LogReader
	frame  *Frame
	err    error
}

func (it *logFrameIterator) Next() bool {
	it.frame, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logFrameIterator) Frame() *Frame {
	return it.frame
}

// Err returns the error that stopped iteration, or nil at a clean EOF.
func (it *logFrameIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *logFrameIterator) Close() error {
	// the reader is owned by the caller
	return nil
}
