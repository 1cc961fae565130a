package store

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// FrameHeaderSize is CRC32(4) + KeySize(4) + ValueSize(4) + Timestamp(8).
const FrameHeaderSize = 20

// Frame is one key-value entry in the append-only log.
//
// Format: [CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
//
// The CRC covers everything after the CRC field. An empty value is a
// tombstone.
type Frame struct {
	CRC32     uint32
	KeySize   uint32
	ValueSize uint32
	Timestamp uint64 // Unix nanoseconds
	Key       []byte
	Value     []byte
}

// FrameCodec handles serialization and deserialization of log frames
type FrameCodec struct{}

// NewFrameCodec creates a new frame codec instance
func NewFrameCodec() *FrameCodec {
	return &FrameCodec{}
}

// NewFrame builds a frame stamped with the current time.
func NewFrame(key, value []byte) (*Frame, error) {
	if uint64(len(key)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("key too large: %d bytes", len(key))
	}
	if uint64(len(value)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("value too large: %d bytes", len(value))
	}
	f := &Frame{
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Timestamp: uint64(time.Now().UnixNano()),
		Key:       key,
		Value:     value,
	}
	f.CRC32 = f.checksum()
	return f, nil
}

// Encode serializes a frame.
func (c *FrameCodec) Encode(f *Frame) []byte {
	buf := make([]byte, f.Size())

	binary.LittleEndian.PutUint32(buf[0:], f.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], f.KeySize)
	binary.LittleEndian.PutUint32(buf[8:], f.ValueSize)
	binary.LittleEndian.PutUint64(buf[12:], f.Timestamp)
	copy(buf[FrameHeaderSize:], f.Key)
	copy(buf[FrameHeaderSize+int(f.KeySize):], f.Value)

	return buf
}

// DecodeHeader parses the fixed header. Key and Value are left nil.
func (c *FrameCodec) DecodeHeader(header []byte) (*Frame, error) {
	if len(header) < FrameHeaderSize {
		return nil, fmt.Errorf("data too short for frame header: %d bytes", len(header))
	}
	return &Frame{
		CRC32:     binary.LittleEndian.Uint32(header[0:4]),
		KeySize:   binary.LittleEndian.Uint32(header[4:8]),
		ValueSize: binary.LittleEndian.Uint32(header[8:12]),
		Timestamp: binary.LittleEndian.Uint64(header[12:20]),
	}, nil
}

// Decode deserializes a complete frame. It does not check the CRC; call
// Validate for that.
func (c *FrameCodec) Decode(data []byte) (*Frame, error) {
	f, err := c.DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	end := uint64(FrameHeaderSize) + uint64(f.KeySize) + uint64(f.ValueSize)
	if uint64(len(data)) < end {
		return nil, fmt.Errorf("data too short for key/value sizes: %d < %d", len(data), end)
	}

	keyEnd := FrameHeaderSize + int(f.KeySize)
	f.Key = data[FrameHeaderSize:keyEnd]
	f.Value = data[keyEnd:int(end)]
	return f, nil
}

// Validate checks the integrity of a frame using CRC32
func (f *Frame) Validate() error {
	if sum := f.checksum(); f.CRC32 != sum {
		return fmt.Errorf("CRC32 mismatch: %d != %d", f.CRC32, sum)
	}
	return nil
}

// Size returns the total size of the frame when encoded
func (f *Frame) Size() int {
	return FrameHeaderSize + len(f.Key) + len(f.Value)
}

// IsTombstone reports whether the frame marks a deletion.
func (f *Frame) IsTombstone() bool {
	return len(f.Value) == 0
}

// checksum covers KeySize, ValueSize, Timestamp, Key and Value.
func (f *Frame) checksum() uint32 {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], f.KeySize)
	binary.LittleEndian.PutUint32(hdr[4:], f.ValueSize)
	binary.LittleEndian.PutUint64(hdr[8:], f.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(hdr[:])
	crc.Write(f.Key)
	crc.Write(f.Value)
	return crc.Sum32()
}
