package api

import (
	"context"

	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/program"
)

// IRecordProgram is the subset of *program.Program the API drives.
type IRecordProgram interface {
	ID() ledger.Pubkey
	Initialize(ctx context.Context, accounts program.InitializeAccounts, args program.InitializeArgs) (*program.InitializeResult, error)
	FetchRecord(address ledger.Pubkey) (*codec.Record, error)
}

// IChainIndex is the subset of *chainindex.Index the API reads.
type IChainIndex interface {
	Len() int
	All() []*chainindex.Entry
	Successors(address ledger.Pubkey) []*chainindex.Entry
	Descendants(address ledger.Pubkey) []*chainindex.Entry
	Heads(chainID string) []*chainindex.Entry
	Chain(chainID string) []*chainindex.Entry
	ByOwner(owner ledger.Pubkey) []*chainindex.Entry
}

var (
	_ IRecordProgram = (*program.Program)(nil)
	_ IChainIndex    = (*chainindex.Index)(nil)
)
