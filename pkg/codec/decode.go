package codec

import (
	"bytes"

	"github.com/ssargent/dblog/pkg/ledger"
)

// Decode parses a record account. It stops at the first malformed field
// and never returns a partial record. Bytes after the last field are
// ignored.
func Decode(data []byte) (*Record, error) {
	r := &reader{buf: data}

	disc, err := r.readFixed("discriminator", DiscriminatorLen)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(disc, discriminator[:]) {
		return nil, newFieldError("discriminator", 0, ErrAccountDiscriminator)
	}

	rec := &Record{}

	if rec.Owner, err = r.readPubkey("owner"); err != nil {
		return nil, err
	}

	uri, err := r.readLengthPrefixed("content_uri", ContentURILen, 0, ErrContentURILength)
	if err != nil {
		return nil, err
	}
	rec.ContentURI = paddedText(uri)

	nonce, err := r.readLengthPrefixed("nonce", NonceLen, 0, ErrNonceLength)
	if err != nil {
		return nil, err
	}
	rec.Nonce = paddedText(nonce)

	if rec.Encrypted, err = r.readPresence("encrypted", ErrEncryptedFlag); err != nil {
		return nil, err
	}

	rec.Predecessor, err = readOptional(r, "predecessor", ErrPredecessorPresence, func() (ledger.Pubkey, error) {
		return r.readPubkey("predecessor")
	})
	if err != nil {
		return nil, err
	}

	if rec.CreatedTime, err = r.readI64("created_time"); err != nil {
		return nil, err
	}

	title, err := r.readLengthPrefixed("title", -1, TitleMaxLen, ErrTitleLength)
	if err != nil {
		return nil, err
	}
	rec.Title = text(title)

	rec.Tag, err = readOptional(r, "tag", ErrTagPresence, func() (ledger.Pubkey, error) {
		return r.readPubkey("tag")
	})
	if err != nil {
		return nil, err
	}

	rec.ChainID, err = readOptional(r, "chain_id", ErrChainIDPresence, func() (string, error) {
		b, err := r.readLengthPrefixed("chain_id", ChainIDLen, 0, ErrChainIDLength)
		return text(b), err
	})
	if err != nil {
		return nil, err
	}

	rec.EncryptHint, err = readOptional(r, "encrypt_hint", ErrEncryptHintPresence, func() (string, error) {
		b, err := r.readLengthPrefixed("encrypt_hint", EncryptHintLen, 0, ErrEncryptHintLength)
		return text(b), err
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}
