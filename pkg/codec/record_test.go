package codec

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dblog/pkg/ledger"
)

// Offsets into an encoded head record (no predecessor).
const (
	offOwner       = 8
	offURILen      = 40
	offNonceLen    = 87
	offEncrypted   = 103
	offPredecessor = 104
	offCreatedTime = 105
	offTitleLen    = 113
	offTitle       = 117
)

var (
	testOwner = ledger.MustParsePubkey("US517G5965aydkZ46HS38QLi7UQiSojurfbQfKCELFx")
	testURI   = "Vq7vFLzjWvOQ4mHiDVWp2xkJ1rVxb9gS3CQhcE6nTtA"
)

func strPtr(s string) *string { return &s }

func headRecord() *Record {
	return &Record{
		Owner:       testOwner,
		ContentURI:  testURI,
		Nonce:       "abc123",
		Encrypted:   true,
		CreatedTime: 1700000000,
		Title:       "hello",
		ChainID:     strPtr("4234d716-a570-585d-9bca-e5b9b0776492"),
		EncryptHint: strPtr("hint42"),
	}
}

func encodeHead(t *testing.T) []byte {
	t.Helper()
	buf, err := Encode(headRecord())
	require.NoError(t, err)
	return buf
}

func TestSpace(t *testing.T) {
	assert.Equal(t, 314, Space())

	full := headRecord()
	pred := testOwner
	full.Predecessor = &pred
	full.Tag = &pred
	full.Title = strings.Repeat("t", TitleMaxLen)
	assert.Equal(t, Space(), EncodedSize(full))
}

func TestDiscriminator(t *testing.T) {
	assert.Equal(t, [8]byte{152, 205, 212, 154, 186, 203, 207, 244}, Discriminator())

	buf := encodeHead(t)
	assert.Equal(t, Discriminator(), [8]byte(buf[:8]))
}

func TestEncode_Layout(t *testing.T) {
	buf := encodeHead(t)
	require.Len(t, buf, Space())

	assert.Equal(t, testOwner[:], buf[offOwner:offOwner+32])
	assert.Equal(t, uint32(43), binary.LittleEndian.Uint32(buf[offURILen:]))
	assert.Equal(t, testURI, string(buf[offURILen+4:offURILen+4+43]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(buf[offNonceLen:]))
	assert.Equal(t, "abc123\x00\x00\x00\x00\x00\x00", string(buf[offNonceLen+4:offNonceLen+16]))
	assert.Equal(t, byte(1), buf[offEncrypted])
	assert.Equal(t, byte(0), buf[offPredecessor])
	assert.Equal(t, int64(1700000000), int64(binary.LittleEndian.Uint64(buf[offCreatedTime:])))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(buf[offTitleLen:]))
	assert.Equal(t, "hello", string(buf[offTitle:offTitle+5]))

	tagAt := offTitle + 5
	assert.Equal(t, byte(0), buf[tagAt])
	assert.Equal(t, byte(1), buf[tagAt+1])
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(buf[tagAt+2:]))
	hintAt := tagAt + 2 + 4 + 36
	assert.Equal(t, byte(1), buf[hintAt])
	assert.Equal(t, "hint42", string(buf[hintAt+5:hintAt+11]))

	end := EncodedSize(headRecord())
	assert.Equal(t, hintAt+11, end)
	assert.Equal(t, make([]byte, Space()-end), buf[end:], "tail stays zeroed")
}

func TestRoundTrip(t *testing.T) {
	pred := ledger.MustParsePubkey("4wBqpZM9xaSheZzJSMawUKKwhdpChKbZ5eu5ky4Vigw")

	tests := []struct {
		name   string
		record *Record
	}{
		{"head", headRecord()},
		{"successor", &Record{
			Owner:       testOwner,
			ContentURI:  testURI,
			Nonce:       "abcdefghijkl",
			Predecessor: &pred,
			CreatedTime: -5,
			Title:       "second post",
		}},
		{"everything", &Record{
			Owner:       testOwner,
			ContentURI:  "short",
			Nonce:       "",
			Predecessor: &pred,
			Title:       strings.Repeat("é", 40),
			Tag:         &pred,
			ChainID:     strPtr(strings.Repeat("x", 36)),
			EncryptHint: strPtr("abcdef"),
		}},
		{"empty title", &Record{Owner: testOwner, ContentURI: testURI, Nonce: "n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Encode(tt.record)
			require.NoError(t, err)

			got, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.record, got)
			assert.Equal(t, tt.record.Predecessor == nil, got.IsHead())
		})
	}
}

func TestEncode_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Record)
		want   error
	}{
		{"title too long", func(r *Record) { r.Title = strings.Repeat("a", 81) }, ErrTitleMaxLen},
		{"hint too short", func(r *Record) { r.EncryptHint = strPtr("abc") }, ErrEncryptHintMaxLen},
		{"hint too long", func(r *Record) { r.EncryptHint = strPtr("abcdefg") }, ErrEncryptHintMaxLen},
		{"chain id length", func(r *Record) { r.ChainID = strPtr("short") }, ErrInvalidChainID},
		{"uri too long", func(r *Record) { r.ContentURI = strings.Repeat("u", 44) }, ErrContentURITooLong},
		{"nonce too long", func(r *Record) { r.Nonce = strings.Repeat("n", 13) }, ErrNonceTooLong},
		{"nul in nonce", func(r *Record) { r.Nonce = "ab\x00" }, ErrInvalidString},
		{"invalid utf8 title", func(r *Record) { r.Title = "\xff" }, ErrInvalidString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := headRecord()
			tt.mutate(r)
			_, err := Encode(r)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeInto(t *testing.T) {
	r := headRecord()

	_, err := EncodeInto(make([]byte, EncodedSize(r)-1), r)
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	dst := make([]byte, EncodedSize(r))
	n, err := EncodeInto(dst, r)
	require.NoError(t, err)
	assert.Equal(t, len(dst), n)

	got, err := Decode(dst)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(buf []byte)
		field  string
		offset int
		kind   error
		err    error
	}{
		{
			name:   "content uri length 42",
			mutate: func(b []byte) { binary.LittleEndian.PutUint32(b[offURILen:], 42) },
			field:  "content_uri", offset: offURILen,
			kind: ErrKeyDecode, err: ErrContentURILength,
		},
		{
			name:   "nonce length 11",
			mutate: func(b []byte) { binary.LittleEndian.PutUint32(b[offNonceLen:], 11) },
			field:  "nonce", offset: offNonceLen,
			kind: ErrKeyDecode, err: ErrNonceLength,
		},
		{
			name:   "encrypted flag 2",
			mutate: func(b []byte) { b[offEncrypted] = 2 },
			field:  "encrypted", offset: offEncrypted,
			kind: ErrNoneDecode, err: ErrEncryptedFlag,
		},
		{
			name:   "predecessor tag 7",
			mutate: func(b []byte) { b[offPredecessor] = 7 },
			field:  "predecessor", offset: offPredecessor,
			kind: ErrTitleDecode, err: ErrPredecessorPresence,
		},
		{
			name:   "title over capacity",
			mutate: func(b []byte) { binary.LittleEndian.PutUint32(b[offTitleLen:], 81) },
			field:  "title", offset: offTitleLen,
			kind: ErrTitleDecode, err: ErrTitleLength,
		},
		{
			name:   "tag presence 2",
			mutate: func(b []byte) { b[offTitle+5] = 2 },
			field:  "tag", offset: offTitle + 5,
			kind: ErrTitleDecode, err: ErrTagPresence,
		},
		{
			name:   "chain id presence 9",
			mutate: func(b []byte) { b[offTitle+6] = 9 },
			field:  "chain_id", offset: offTitle + 6,
			kind: ErrTitleDecode, err: ErrChainIDPresence,
		},
		{
			name:   "chain id length 35",
			mutate: func(b []byte) { binary.LittleEndian.PutUint32(b[offTitle+7:], 35) },
			field:  "chain_id", offset: offTitle + 7,
			kind: ErrTitleDecode, err: ErrChainIDLength,
		},
		{
			name:   "encrypt hint presence 3",
			mutate: func(b []byte) { b[offTitle+47] = 3 },
			field:  "encrypt_hint", offset: offTitle + 47,
			kind: ErrTitleDecode, err: ErrEncryptHintPresence,
		},
		{
			name:   "encrypt hint length 7",
			mutate: func(b []byte) { binary.LittleEndian.PutUint32(b[offTitle+48:], 7) },
			field:  "encrypt_hint", offset: offTitle + 48,
			kind: ErrTitleDecode, err: ErrEncryptHintLength,
		},
		{
			name:   "foreign discriminator",
			mutate: func(b []byte) { b[0] ^= 0xFF },
			field:  "discriminator", offset: 0,
			kind: ErrAccountDiscriminator, err: ErrAccountDiscriminator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := encodeHead(t)
			tt.mutate(buf)

			rec, err := Decode(buf)
			require.Error(t, err)
			assert.Nil(t, rec)

			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.err)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.field, de.Field)
			assert.Equal(t, tt.offset, de.Offset)
			assert.Equal(t, tt.kind, de.Kind)
		})
	}
}

func TestDecode_KindsAreDistinct(t *testing.T) {
	buf := encodeHead(t)
	buf[offEncrypted] = 2

	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrNoneDecode)
	assert.NotErrorIs(t, err, ErrKeyDecode)
	assert.NotErrorIs(t, err, ErrTitleDecode)
	assert.Contains(t, err.Error(), "encrypted")
}

func TestDecode_Truncated(t *testing.T) {
	r := headRecord()
	buf, err := Encode(r)
	require.NoError(t, err)
	end := EncodedSize(r)

	for _, n := range []int{0, 7, 8, 39, offTitle + 2, end - 1} {
		_, err := Decode(buf[:n])
		assert.ErrorIs(t, err, ErrTruncated, "length %d", n)
	}

	got, err := Decode(buf[:end])
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecode_ZeroedAccount(t *testing.T) {
	_, err := Decode(make([]byte, Space()))
	assert.ErrorIs(t, err, ErrAccountDiscriminator)
}

func TestDecode_LossyStrings(t *testing.T) {
	buf := encodeHead(t)
	buf[offTitle] = 0xFF

	rec, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "\uFFFDello", rec.Title)
}
