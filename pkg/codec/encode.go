package codec

import (
	"encoding/binary"
)

// Encode validates r and returns it laid out in a zeroed Space()-byte
// buffer, ready to be copied into a record account.
func Encode(r *Record) ([]byte, error) {
	buf := make([]byte, Space())
	if _, err := EncodeInto(buf, r); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeInto writes r at the start of dst and returns the bytes written.
// dst must hold at least EncodedSize(r) bytes; the remainder is left as is.
func EncodeInto(dst []byte, r *Record) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if len(dst) < EncodedSize(r) {
		return 0, ErrBufferTooSmall
	}

	w := &writer{buf: dst}
	w.putBytes(discriminator[:])
	w.putBytes(r.Owner[:])
	w.putPadded(r.ContentURI, ContentURILen)
	w.putPadded(r.Nonce, NonceLen)
	w.putBool(r.Encrypted)

	w.putBool(r.Predecessor != nil)
	if r.Predecessor != nil {
		w.putBytes(r.Predecessor[:])
	}

	binary.LittleEndian.PutUint64(w.next(timeLen), uint64(r.CreatedTime))
	w.putString(r.Title)

	w.putBool(r.Tag != nil)
	if r.Tag != nil {
		w.putBytes(r.Tag[:])
	}

	w.putBool(r.ChainID != nil)
	if r.ChainID != nil {
		w.putString(*r.ChainID)
	}

	w.putBool(r.EncryptHint != nil)
	if r.EncryptHint != nil {
		w.putString(*r.EncryptHint)
	}

	return w.off, nil
}

// writer appends into a buffer already sized by EncodedSize.
type writer struct {
	buf []byte
	off int
}

func (w *writer) next(n int) []byte {
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b
}

func (w *writer) putBytes(b []byte) {
	copy(w.next(len(b)), b)
}

func (w *writer) putBool(v bool) {
	if v {
		w.next(1)[0] = 1
	} else {
		w.next(1)[0] = 0
	}
}

func (w *writer) putString(s string) {
	binary.LittleEndian.PutUint32(w.next(lenPrefix), uint32(len(s)))
	copy(w.next(len(s)), s)
}

// putPadded writes s with its length prefix fixed at capacity, NUL padded.
func (w *writer) putPadded(s string, capacity int) {
	binary.LittleEndian.PutUint32(w.next(lenPrefix), uint32(capacity))
	field := w.next(capacity)
	n := copy(field, s)
	for i := n; i < capacity; i++ {
		field[i] = 0
	}
}
