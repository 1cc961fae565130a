package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Keypair is an ed25519 signing identity. On disk it is stored as a JSON
// array of the 64 private key bytes.
type Keypair struct {
	Public  Pubkey
	Private ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate keypair")
	}
	var pk Pubkey
	copy(pk[:], pub)
	return &Keypair{Public: pk, Private: priv}, nil
}

// KeypairFromSeed derives a keypair deterministically from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Newf("keypair seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	var pk Pubkey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{Public: pk, Private: priv}, nil
}

// SaveKeypair writes kp to path with owner-only permissions.
func SaveKeypair(kp *Keypair, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrap(err, "create keypair directory")
	}
	ints := make([]int, len(kp.Private))
	for i, b := range kp.Private {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return errors.Wrap(err, "marshal keypair")
	}
	return errors.Wrap(os.WriteFile(path, data, 0600), "write keypair")
}

// LoadKeypair reads a keypair written by SaveKeypair.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read keypair %s", path)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, errors.Wrapf(err, "parse keypair %s", path)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, errors.Newf("keypair %s: want %d bytes, got %d", path, ed25519.PrivateKeySize, len(ints))
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, errors.Newf("keypair %s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	return KeypairFromSeed(raw[:ed25519.SeedSize])
}
