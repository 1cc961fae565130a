package ledger

import (
	"github.com/cockroachdb/errors"
)

// accountVersion prefixes every persisted account value.
const accountVersion byte = 1

// Account is one addressed region of persisted bytes, owned by exactly one
// program.
type Account struct {
	Address Pubkey
	Owner   Pubkey
	Data    []byte
}

// AccountMeta names an account an instruction touches.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// AccountInfo is the read-only snapshot handed to a program. Data is a copy;
// mutating it has no effect on the ledger.
type AccountInfo struct {
	Key        Pubkey
	Owner      Pubkey
	Data       []byte
	IsSigner   bool
	IsWritable bool
	// Exists is false for addresses with no persisted account. Such accounts
	// are reported as owned by the system program with no data.
	Exists bool
}

// IsOwnedBy reports whether the snapshot's owner equals owner.
func (a *AccountInfo) IsOwnedBy(owner Pubkey) bool {
	return a.Owner == owner
}

func (a *Account) Clone() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{Address: a.Address, Owner: a.Owner, Data: data}
}

// MarshalAccount encodes owner and data for an AccountStore value:
// [version 1][owner 32][data...]. The address is the store key.
func MarshalAccount(a *Account) []byte {
	buf := make([]byte, 1+PubkeyLen+len(a.Data))
	buf[0] = accountVersion
	copy(buf[1:], a.Owner[:])
	copy(buf[1+PubkeyLen:], a.Data)
	return buf
}

// UnmarshalAccount reverses MarshalAccount.
func UnmarshalAccount(address Pubkey, value []byte) (*Account, error) {
	if len(value) < 1+PubkeyLen {
		return nil, errors.Newf("account %s: value too short (%d bytes)", address, len(value))
	}
	if value[0] != accountVersion {
		return nil, errors.Newf("account %s: unsupported version %d", address, value[0])
	}
	var owner Pubkey
	copy(owner[:], value[1:1+PubkeyLen])
	data := make([]byte, len(value)-1-PubkeyLen)
	copy(data, value[1+PubkeyLen:])
	return &Account{Address: address, Owner: owner, Data: data}, nil
}
