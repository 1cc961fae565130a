package codec

import (
	"strings"
	"unicode/utf8"

	"github.com/ssargent/dblog/pkg/ledger"
)

// Record is one authorship entry.
type Record struct {
	Owner       ledger.Pubkey  `json:"owner"`
	ContentURI  string         `json:"content_uri"`
	Nonce       string         `json:"nonce"`
	Encrypted   bool           `json:"encrypted"`
	Predecessor *ledger.Pubkey `json:"predecessor"`
	CreatedTime int64          `json:"created_time"`
	Title       string         `json:"title"`
	Tag         *ledger.Pubkey `json:"tag"`
	ChainID     *string        `json:"chain_id"`
	EncryptHint *string        `json:"encrypt_hint"`
}

// IsHead reports whether the record starts a chain.
func (r *Record) IsHead() bool {
	return r.Predecessor == nil
}

// Validate checks that r can be encoded.
func (r *Record) Validate() error {
	if err := checkPadded(r.ContentURI, ContentURILen, ErrContentURITooLong); err != nil {
		return err
	}
	if err := checkPadded(r.Nonce, NonceLen, ErrNonceTooLong); err != nil {
		return err
	}
	if len(r.Title) > TitleMaxLen {
		return ErrTitleMaxLen
	}
	if !utf8.ValidString(r.Title) {
		return ErrInvalidString
	}
	if r.ChainID != nil {
		if len(*r.ChainID) != ChainIDLen {
			return ErrInvalidChainID
		}
		if !utf8.ValidString(*r.ChainID) {
			return ErrInvalidString
		}
	}
	if r.EncryptHint != nil {
		if len(*r.EncryptHint) != EncryptHintLen {
			return ErrEncryptHintMaxLen
		}
		if !utf8.ValidString(*r.EncryptHint) {
			return ErrInvalidString
		}
	}
	return nil
}

// checkPadded accepts strings that fit capacity and survive NUL padding.
func checkPadded(s string, capacity int, tooLong error) error {
	if len(s) > capacity {
		return tooLong
	}
	if !utf8.ValidString(s) || strings.IndexByte(s, 0) >= 0 {
		return ErrInvalidString
	}
	return nil
}

// EncodedSize returns the number of bytes Encode writes before padding.
func EncodedSize(r *Record) int {
	n := DiscriminatorLen +
		pubkeyLen +
		lenPrefix + ContentURILen +
		lenPrefix + NonceLen +
		flagLen +
		presenceTag +
		timeLen +
		lenPrefix + len(r.Title) +
		presenceTag +
		presenceTag +
		presenceTag
	if r.Predecessor != nil {
		n += pubkeyLen
	}
	if r.Tag != nil {
		n += pubkeyLen
	}
	if r.ChainID != nil {
		n += lenPrefix + len(*r.ChainID)
	}
	if r.EncryptHint != nil {
		n += lenPrefix + len(*r.EncryptHint)
	}
	return n
}
