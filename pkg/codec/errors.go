package codec

import (
	"errors"
	"fmt"
)

// Decode error kinds. Every field failure also matches exactly one of these.
var (
	ErrKeyDecode   = errors.New("key decode")
	ErrNoneDecode  = errors.New("none decode")
	ErrTitleDecode = errors.New("title decode")
	ErrTruncated   = errors.New("record truncated")

	ErrAccountDiscriminator = errors.New("account discriminator mismatch")
)

// Field-scoped decode failures.
var (
	ErrContentURILength    = fieldErr("content_uri declared length is not 43", ErrKeyDecode)
	ErrNonceLength         = fieldErr("nonce declared length is not 12", ErrKeyDecode)
	ErrEncryptedFlag       = fieldErr("encrypted flag is neither 0 nor 1", ErrNoneDecode)
	ErrPredecessorPresence = fieldErr("invalid predecessor presence tag", ErrTitleDecode)
	ErrTitleLength         = fieldErr("title declared length exceeds 80", ErrTitleDecode)
	ErrTagPresence         = fieldErr("invalid tag presence tag", ErrTitleDecode)
	ErrChainIDPresence     = fieldErr("invalid chain_id presence tag", ErrTitleDecode)
	ErrChainIDLength       = fieldErr("chain_id declared length is not 36", ErrTitleDecode)
	ErrEncryptHintPresence = fieldErr("invalid encrypt_hint presence tag", ErrTitleDecode)
	ErrEncryptHintLength   = fieldErr("encrypt_hint declared length is not 6", ErrTitleDecode)
)

// Encode validation failures.
var (
	ErrTitleMaxLen       = errors.New("title exceeds 80 bytes")
	ErrEncryptHintMaxLen = errors.New("encrypt hint must be exactly 6 bytes")
	ErrContentURITooLong = errors.New("content_uri exceeds 43 bytes")
	ErrNonceTooLong      = errors.New("nonce exceeds 12 bytes")
	ErrInvalidChainID    = errors.New("chain_id must be exactly 36 bytes")
	ErrInvalidString     = errors.New("string field is not valid")
	ErrBufferTooSmall    = errors.New("buffer too small for record")
)

// fieldError is a field sentinel that unwraps to its kind.
type fieldError struct {
	msg  string
	kind error
}

func fieldErr(msg string, kind error) error {
	return &fieldError{msg: msg, kind: kind}
}

func (e *fieldError) Error() string { return e.msg }
func (e *fieldError) Unwrap() error { return e.kind }

// DecodeError reports the first field Decode could not read.
type DecodeError struct {
	Field  string // field name as laid out, e.g. "content_uri"
	Offset int    // byte offset where the failing element starts
	Kind   error  // ErrKeyDecode, ErrNoneDecode, ErrTitleDecode, ErrTruncated or ErrAccountDiscriminator
	Err    error  // field sentinel, or Kind when there is none
}

func (e *DecodeError) Error() string {
	if e.Err != nil && e.Err != e.Kind {
		return fmt.Sprintf("decode %s at offset %d: %v: %v", e.Field, e.Offset, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Kind)
}

// Unwrap exposes the field sentinel; it in turn unwraps to Kind.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newFieldError(field string, offset int, err error) *DecodeError {
	var fe *fieldError
	kind := err
	if errors.As(err, &fe) {
		kind = fe.kind
	}
	return &DecodeError{Field: field, Offset: offset, Kind: kind, Err: err}
}
