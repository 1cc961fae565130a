package ledger

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the size of an account address in bytes.
const PubkeyLen = 32

// Pubkey is a 32-byte account address. Its text form is base58.
type Pubkey [PubkeyLen]byte

// SystemProgramID owns every plain (non-program) account. It is the all-zero
// key, printed as "11111111111111111111111111111111".
var SystemProgramID = Pubkey{}

// ErrInvalidPubkey is returned when a key cannot be parsed.
var ErrInvalidPubkey = errors.New("invalid public key")

// PubkeyFromBytes copies b into a Pubkey. b must be exactly PubkeyLen long.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeyLen {
		return pk, errors.Wrapf(ErrInvalidPubkey, "want %d bytes, got %d", PubkeyLen, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// ParsePubkey decodes a base58 address.
func ParsePubkey(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, errors.Wrapf(ErrInvalidPubkey, "%q: %v", s, err)
	}
	return PubkeyFromBytes(raw)
}

// MustParsePubkey is ParsePubkey for constants; it panics on bad input.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the key bytes.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, PubkeyLen)
	copy(out, p[:])
	return out
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) Equals(o Pubkey) bool {
	return bytes.Equal(p[:], o[:])
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	pk, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// MarshalJSON is provided explicitly so map keys and values agree.
func (p Pubkey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pubkey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(ErrInvalidPubkey, err.Error())
	}
	return p.UnmarshalText([]byte(s))
}

// ComparePubkeys orders keys bytewise.
func ComparePubkeys(a, b Pubkey) int {
	return bytes.Compare(a[:], b[:])
}
