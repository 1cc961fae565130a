// Package program implements the dblog instruction set on top of the local
// ledger runtime: creating authorship records and linking them into
// per-owner chains.
package program

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/logging"
)

// DefaultProgramID is the address the record program is deployed at unless
// configured otherwise.
const DefaultProgramID = "4TWxkK23JiJGamgeUw4iGCf5KfRXCkobCaNxLhFXj1Ms"

// RecordSeed is the first seed of every record address.
const RecordSeed = "d-blog"

// Program binds the record instructions to a program id and a runtime.
type Program struct {
	id  ledger.Pubkey
	rt  *ledger.Runtime
	log *logging.Logger
}

func New(id ledger.Pubkey, rt *ledger.Runtime, log *logging.Logger) *Program {
	if log == nil {
		log = logging.Nop()
	}
	return &Program{id: id, rt: rt, log: log.Child("program")}
}

func (p *Program) ID() ledger.Pubkey {
	return p.id
}

// RecordSeeds returns the derivation seeds for a record.
func RecordSeeds(nonce string, payer ledger.Pubkey) [][]byte {
	return [][]byte{[]byte(RecordSeed), []byte(nonce), payer[:]}
}

// RecordAddress derives the address a record with nonce paid for by payer
// is stored at.
func RecordAddress(programID ledger.Pubkey, nonce string, payer ledger.Pubkey) (ledger.Pubkey, uint8, error) {
	return ledger.FindProgramAddress(RecordSeeds(nonce, payer), programID)
}

// InitializeAccounts lists the accounts an Initialize instruction touches.
type InitializeAccounts struct {
	// Record is the address the new record is allocated at. It must equal
	// RecordAddress(programID, nonce, Payer).
	Record ledger.Pubkey
	// Owner is the authoring principal.
	Owner ledger.Pubkey
	// Payer signs and funds the allocation.
	Payer ledger.Pubkey
	// Remaining holds the optional predecessor and tag accounts, in that
	// order.
	Remaining []ledger.Pubkey
}

// InitializeResult describes a committed record.
type InitializeResult struct {
	Address ledger.Pubkey   `json:"address"`
	Record  *codec.Record   `json:"record"`
	Receipt *ledger.Receipt `json:"receipt"`
}

// Initialize creates a record. Either the record is committed or nothing is
// written.
func (p *Program) Initialize(ctx context.Context, accounts InitializeAccounts, args InitializeArgs) (*InitializeResult, error) {
	metas := []ledger.AccountMeta{
		{Pubkey: accounts.Record, IsWritable: true},
		{Pubkey: accounts.Owner},
		{Pubkey: accounts.Payer, IsSigner: true, IsWritable: true},
	}
	for _, key := range accounts.Remaining {
		metas = append(metas, ledger.AccountMeta{Pubkey: key})
	}

	var created *codec.Record
	receipt, err := p.rt.Invoke(ctx, p.id, metas, func(ictx *ledger.InvokeContext) error {
		infos := ictx.Accounts()
		record, owner, payer := infos[0], infos[1], infos[2]

		if err := ictx.Allocate(record, payer, codec.Space(), RecordSeeds(args.Nonce, payer.Key)); err != nil {
			return err
		}

		rec, err := CreateRecord(ictx.Logger(), ictx.ProgramID(), owner, infos[3:], args, ictx.Timestamp())
		if err != nil {
			return err
		}

		buf, err := codec.Encode(rec)
		if err != nil {
			return err
		}
		if err := ictx.Write(record.Key, buf); err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Str("address", accounts.Record.String()).
		Str("owner", created.Owner.String()).
		Bool("head", created.IsHead()).
		Msg("record created")

	return &InitializeResult{Address: accounts.Record, Record: created, Receipt: receipt}, nil
}

// FetchRecord loads and decodes the record stored at address.
func (p *Program) FetchRecord(address ledger.Pubkey) (*codec.Record, error) {
	acct, err := p.rt.GetAccount(address)
	if err != nil {
		return nil, err
	}
	return DecodeAccount(p.id, acct)
}

// DecodeAccount decodes acct as a record owned by programID.
func DecodeAccount(programID ledger.Pubkey, acct *ledger.Account) (*codec.Record, error) {
	if acct.Owner != programID {
		return nil, errors.Wrapf(ErrIncorrectOwner, "account %s is owned by %s", acct.Address, acct.Owner)
	}
	return codec.Decode(acct.Data)
}
