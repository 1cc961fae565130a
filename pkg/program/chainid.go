package program

import (
	"github.com/google/uuid"
)

// ChainIDPrefix is prepended to a head record's nonce before hashing.
const ChainIDPrefix = "dblog.xyz/nonce/"

// DeriveChainID returns the chain identifier for a head record created with
// nonce: the RFC 4122 version 5 UUID of ChainIDPrefix+nonce in the URL
// namespace. It is a pure function of nonce.
func DeriveChainID(nonce string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ChainIDPrefix+nonce)).String()
}
