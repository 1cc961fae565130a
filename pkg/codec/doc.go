// Package codec implements the binary layout of a dblog record account.
//
// A record is written once into a fixed-size account and read back by any
// program that knows the layout. Every field has a fixed reserved capacity,
// so the account size is a constant (see Space).
//
// # Record Format
//
// All integers are little-endian. Strings are a u32 length followed by the
// bytes. Optional fields carry a one-byte presence tag (0 absent, 1 present).
//
//	[discriminator 8]
//	[owner 32]
//	[u32 43][content_uri 43]
//	[u32 12][nonce 12]
//	[encrypted 1]
//	[tag 1][predecessor 32]?
//	[created_time i64]
//	[u32 n][title n<=80]
//	[tag 1][tag 32]?
//	[tag 1][u32 36][chain_id 36]?
//	[tag 1][u32 6][encrypt_hint 6]?
//	[zero padding to Space()]
//
// The discriminator is sha256("account:Blog")[:8]. Decode rejects a buffer
// that starts with anything else.
//
// content_uri and nonce always occupy their full capacity. Shorter values are
// padded with NUL bytes when encoded and the padding is dropped on decode.
//
// # Errors
//
// Decode returns a *DecodeError naming the field and offset that failed. The
// error matches both a field sentinel (ErrContentURILength, ErrEncryptedFlag,
// ...) and the coarse kind that field reports (ErrKeyDecode, ErrNoneDecode,
// ErrTitleDecode) with errors.Is. A buffer that ends inside a field reports
// ErrTruncated.
//
// Encode validates before writing anything: titles over 80 bytes fail with
// ErrTitleMaxLen and an encrypt hint that is not exactly 6 bytes fails with
// ErrEncryptHintMaxLen.
//
// # Usage
//
//	buf, err := codec.Encode(&codec.Record{
//	    Owner:      owner,
//	    ContentURI: uri,
//	    Nonce:      "abc123",
//	    Title:      "hello",
//	})
//	if err != nil {
//	    return err
//	}
//
//	rec, err := codec.Decode(buf)
//	if err != nil {
//	    return err
//	}
//
// The package holds no state; every function is safe for concurrent use.
package codec
