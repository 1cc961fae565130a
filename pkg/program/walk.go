package program

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
)

// MaxChainDepth bounds how many predecessor links WalkToHead follows.
const MaxChainDepth = 10_000

var (
	ErrChainCycle    = errors.New("predecessor links form a cycle")
	ErrChainTooDeep  = errors.New("chain exceeds maximum depth")
	ErrHeadMissingID = errors.New("chain head has no chain id")
)

// RecordReader loads records by address.
type RecordReader interface {
	FetchRecord(address ledger.Pubkey) (*codec.Record, error)
}

// ChainPath is the result of walking from a record back to its head.
type ChainPath struct {
	ChainID string          `json:"chain_id"`
	Head    ledger.Pubkey   `json:"head"`
	Path    []ledger.Pubkey `json:"path"` // start record first, head last
}

// WalkToHead follows predecessor links from address until it reaches a
// record with no predecessor.
func WalkToHead(ctx context.Context, reader RecordReader, address ledger.Pubkey) (*ChainPath, error) {
	seen := make(map[ledger.Pubkey]struct{})
	path := make([]ledger.Pubkey, 0, 8)

	current := address
	for depth := 0; ; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if depth >= MaxChainDepth {
			return nil, errors.Wrapf(ErrChainTooDeep, "from %s", address)
		}
		if _, ok := seen[current]; ok {
			return nil, errors.Wrapf(ErrChainCycle, "at %s", current)
		}
		seen[current] = struct{}{}
		path = append(path, current)

		rec, err := reader.FetchRecord(current)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", current)
		}
		if rec.Predecessor == nil {
			if rec.ChainID == nil {
				return nil, errors.Wrapf(ErrHeadMissingID, "%s", current)
			}
			return &ChainPath{ChainID: *rec.ChainID, Head: current, Path: path}, nil
		}
		current = *rec.Predecessor
	}
}
