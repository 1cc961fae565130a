package ledger

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/cockroachdb/errors"
)

const (
	// MaxSeedLen bounds a single derivation seed.
	MaxSeedLen = 32
	// MaxSeeds bounds the number of seeds, including the bump.
	MaxSeeds = 16

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("seed exceeds maximum length")
	ErrInvalidSeeds          = errors.New("provided seeds do not result in a valid address")
	ErrNoViableBump          = errors.New("unable to find a viable program address bump seed")
)

// CreateProgramAddress hashes seeds with programID. The result must lie off
// the ed25519 curve so that no private key can sign for it.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Pubkey{}, errors.Wrapf(ErrMaxSeedLengthExceeded, "%d seeds", len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Pubkey{}, errors.Wrapf(ErrMaxSeedLengthExceeded, "seed of %d bytes", len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var pk Pubkey
	copy(pk[:], h.Sum(nil))
	if IsOnCurve(pk[:]) {
		return Pubkey{}, ErrInvalidSeeds
	}
	return pk, nil
}

// FindProgramAddress searches bumps from 255 down and returns the first
// off-curve address together with its bump seed.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		pk, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return Pubkey{}, 0, err
		}
	}
	return Pubkey{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether b decodes to a valid compressed edwards25519
// point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
