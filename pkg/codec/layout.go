package codec

import (
	"crypto/sha256"

	"github.com/ssargent/dblog/pkg/ledger"
)

// Reserved field capacities in bytes.
const (
	DiscriminatorLen = 8
	ContentURILen    = 43
	NonceLen         = 12
	TitleMaxLen      = 80
	ChainIDLen       = 36
	EncryptHintLen   = 6

	lenPrefix   = 4
	presenceTag = 1
	pubkeyLen   = ledger.PubkeyLen
	timeLen     = 8
	flagLen     = 1
)

// space is the size of a record with every optional field present and a
// full-length title.
const space = DiscriminatorLen +
	pubkeyLen + // owner
	lenPrefix + ContentURILen +
	lenPrefix + NonceLen +
	flagLen + // encrypted
	presenceTag + pubkeyLen + // predecessor
	timeLen + // created_time
	lenPrefix + TitleMaxLen +
	presenceTag + pubkeyLen + // tag
	presenceTag + lenPrefix + ChainIDLen +
	presenceTag + lenPrefix + EncryptHintLen

// accountName is the type name the discriminator is derived from.
const accountName = "Blog"

var discriminator = func() [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:" + accountName))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}()

// Space returns the account size needed to hold any valid record.
func Space() int {
	return space
}

// Discriminator returns the 8-byte account type tag that prefixes every
// encoded record.
func Discriminator() [DiscriminatorLen]byte {
	return discriminator
}
