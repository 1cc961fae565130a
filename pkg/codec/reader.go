package codec

import (
	"encoding/binary"
	"strings"

	"github.com/ssargent/dblog/pkg/ledger"
)

// reader walks a record buffer left to right. Each primitive reports a
// *DecodeError naming the field it was reading.
type reader struct {
	buf []byte
	off int
}

func (r *reader) readFixed(field string, n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, newFieldError(field, r.off, ErrTruncated)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) readU32(field string) (uint32, error) {
	b, err := r.readFixed(field, lenPrefix)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readI64(field string) (int64, error) {
	b, err := r.readFixed(field, timeLen)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) readPubkey(field string) (ledger.Pubkey, error) {
	b, err := r.readFixed(field, pubkeyLen)
	if err != nil {
		return ledger.Pubkey{}, err
	}
	var pk ledger.Pubkey
	copy(pk[:], b)
	return pk, nil
}

// readLengthPrefixed reads a u32 length then that many bytes. The declared
// length must equal want, or be at most maxLen when want is negative;
// otherwise lenErr is reported at the prefix offset.
func (r *reader) readLengthPrefixed(field string, want, maxLen int, lenErr error) ([]byte, error) {
	start := r.off
	n, err := r.readU32(field)
	if err != nil {
		return nil, err
	}
	if (want >= 0 && int64(n) != int64(want)) || (want < 0 && int64(n) > int64(maxLen)) {
		r.off = start
		return nil, newFieldError(field, start, lenErr)
	}
	return r.readFixed(field, int(n))
}

// readPresence reads a one-byte presence tag. Any value other than 0 or 1
// reports tagErr.
func (r *reader) readPresence(field string, tagErr error) (bool, error) {
	start := r.off
	b, err := r.readFixed(field, presenceTag)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		r.off = start
		return false, newFieldError(field, start, tagErr)
	}
}

// readOptional reads a presence tag and, when set, the value produced by fn.
func readOptional[T any](r *reader, field string, tagErr error, fn func() (T, error)) (*T, error) {
	present, err := r.readPresence(field, tagErr)
	if err != nil || !present {
		return nil, err
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// text converts stored bytes to a string. Invalid UTF-8 is replaced rather
// than rejected.
func text(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// paddedText is text with trailing NUL padding removed.
func paddedText(b []byte) string {
	return strings.TrimRight(text(b), "\x00")
}
