// Package chainindex keeps an in-memory, forward-navigable index of record
// chains. Records only point back at their predecessor; the index adds the
// successor, chain and owner views readers need.
package chainindex

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/bptree"
	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/logging"
	"github.com/ssargent/dblog/pkg/program"
)

const treeOrder = 32

// ErrNotIndexed is returned for addresses the index has not seen.
var ErrNotIndexed = errors.New("record not indexed")

// Entry is one indexed record.
type Entry struct {
	Address ledger.Pubkey `json:"address"`
	Record  *codec.Record `json:"record"`
}

// Index is safe for concurrent use.
type Index struct {
	programID ledger.Pubkey
	log       *logging.Logger

	records    *bptree.BPlusTree[ledger.Pubkey, *Entry]
	successors *bptree.BPlusTree[string, ledger.Pubkey] // predecessor|time|address
	heads      *bptree.BPlusTree[string, ledger.Pubkey] // chain id|address
	byOwner    *bptree.BPlusTree[string, ledger.Pubkey] // owner|time|address
}

func New(programID ledger.Pubkey, log *logging.Logger) *Index {
	if log == nil {
		log = logging.Nop()
	}
	return &Index{
		programID:  programID,
		log:        log.Child("chainindex"),
		records:    bptree.NewWithCompare[ledger.Pubkey, *Entry](treeOrder, ledger.ComparePubkeys),
		successors: bptree.NewBPlusTree[string, ledger.Pubkey](treeOrder),
		heads:      bptree.NewBPlusTree[string, ledger.Pubkey](treeOrder),
		byOwner:    bptree.NewBPlusTree[string, ledger.Pubkey](treeOrder),
	}
}

// Add indexes rec at address. Records are immutable, so re-adding an
// address is a no-op.
func (idx *Index) Add(address ledger.Pubkey, rec *codec.Record) {
	if !idx.records.Insert(address, &Entry{Address: address, Record: rec}) {
		return
	}

	if rec.Predecessor != nil {
		idx.successors.Insert(timedKey(*rec.Predecessor, rec.CreatedTime, address), address)
	}
	if rec.ChainID != nil {
		idx.heads.Insert(*rec.ChainID+string(address[:]), address)
	}
	idx.byOwner.Insert(timedKey(rec.Owner, rec.CreatedTime, address), address)
}

// AddAccount decodes and indexes acct if it is a record of this program.
func (idx *Index) AddAccount(acct *ledger.Account) error {
	rec, err := program.DecodeAccount(idx.programID, acct)
	if err != nil {
		return err
	}
	idx.Add(acct.Address, rec)
	return nil
}

// Rebuild indexes every record in store. Accounts of other programs are
// skipped; undecodable records are logged and skipped.
func (idx *Index) Rebuild(store ledger.AccountStore) error {
	var indexed, skipped int
	err := store.RangeAccounts(func(acct *ledger.Account) error {
		if acct.Owner != idx.programID {
			return nil
		}
		if err := idx.AddAccount(acct); err != nil {
			skipped++
			idx.log.Warn().Err(err).Str("address", acct.Address.String()).Msg("skipping undecodable record")
			return nil
		}
		indexed++
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "rebuild chain index")
	}
	idx.log.Info().Int("indexed", indexed).Int("skipped", skipped).Msg("chain index rebuilt")
	return nil
}

// Attach rebuilds from rt's store and then follows every commit.
func (idx *Index) Attach(rt *ledger.Runtime) error {
	rt.Subscribe(func(_ *ledger.Receipt, accounts []*ledger.Account) {
		for _, acct := range accounts {
			if acct.Owner != idx.programID {
				continue
			}
			if err := idx.AddAccount(acct); err != nil {
				idx.log.Warn().Err(err).Str("address", acct.Address.String()).Msg("committed record not indexed")
			}
		}
	})
	return idx.Rebuild(rt.Store())
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	return idx.records.Len()
}

// All returns every indexed record in address order.
func (idx *Index) All() []*Entry {
	out := make([]*Entry, 0, idx.records.Len())
	idx.records.Ascend(func(_ ledger.Pubkey, e *Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Get returns the indexed entry for address.
func (idx *Index) Get(address ledger.Pubkey) (*Entry, error) {
	e, ok := idx.records.Search(address)
	if !ok {
		return nil, errors.Wrapf(ErrNotIndexed, "%s", address)
	}
	return e, nil
}

// FetchRecord lets program.WalkToHead run against the index.
func (idx *Index) FetchRecord(address ledger.Pubkey) (*codec.Record, error) {
	e, err := idx.Get(address)
	if err != nil {
		return nil, err
	}
	return e.Record, nil
}

// Head walks back from address to the head of its chain.
func (idx *Index) Head(ctx context.Context, address ledger.Pubkey) (*program.ChainPath, error) {
	return program.WalkToHead(ctx, idx, address)
}

// Successors returns the records that name address as predecessor, oldest
// first.
func (idx *Index) Successors(address ledger.Pubkey) []*Entry {
	return idx.collect(idx.successors, string(address[:]))
}

// Descendants returns every record reachable forward from address, depth
// first with siblings oldest first. address itself is not included.
func (idx *Index) Descendants(address ledger.Pubkey) []*Entry {
	var out []*Entry
	stack := []ledger.Pubkey{address}
	seen := map[ledger.Pubkey]bool{address: true}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		succ := idx.Successors(current)
		for i := len(succ) - 1; i >= 0; i-- {
			if seen[succ[i].Address] {
				continue
			}
			seen[succ[i].Address] = true
			stack = append(stack, succ[i].Address)
		}
		if current != address {
			e, _ := idx.records.Search(current)
			out = append(out, e)
		}
	}
	return out
}

// Heads returns the head records carrying chainID. Different payers can
// start chains with the same nonce, so there may be more than one.
func (idx *Index) Heads(chainID string) []*Entry {
	return idx.collect(idx.heads, chainID)
}

// Chain returns every record in the chains identified by chainID: each
// head followed by its descendants.
func (idx *Index) Chain(chainID string) []*Entry {
	var out []*Entry
	for _, head := range idx.Heads(chainID) {
		out = append(out, head)
		out = append(out, idx.Descendants(head.Address)...)
	}
	return out
}

// ChainLength returns the number of records in the chains identified by
// chainID.
func (idx *Index) ChainLength(chainID string) int {
	return len(idx.Chain(chainID))
}

// ByOwner returns the records authored by owner, oldest first.
func (idx *Index) ByOwner(owner ledger.Pubkey) []*Entry {
	return idx.collect(idx.byOwner, string(owner[:]))
}

func (idx *Index) collect(tree *bptree.BPlusTree[string, ledger.Pubkey], prefix string) []*Entry {
	var addrs []ledger.Pubkey
	tree.AscendGreaterOrEqual(prefix, func(key string, addr ledger.Pubkey) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		addrs = append(addrs, addr)
		return true
	})

	out := make([]*Entry, 0, len(addrs))
	for _, addr := range addrs {
		if e, ok := idx.records.Search(addr); ok {
			out = append(out, e)
		}
	}
	return out
}

// timedKey orders by prefix, then creation time, then address.
func timedKey(prefix ledger.Pubkey, created int64, address ledger.Pubkey) string {
	var b [ledger.PubkeyLen + 8 + ledger.PubkeyLen]byte
	copy(b[:], prefix[:])
	binary.BigEndian.PutUint64(b[ledger.PubkeyLen:], uint64(created)^(1<<63))
	copy(b[ledger.PubkeyLen+8:], address[:])
	return string(b[:])
}
