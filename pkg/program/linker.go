package program

import (
	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/logging"
)

var (
	ErrIncorrectOwner   = errors.New("incorrect owner")
	ErrPreOwnerMismatch = errors.New("predecessor owner is not the current owner")
)

// InitializeArgs are the caller-supplied fields of a new record.
type InitializeArgs struct {
	Nonce       string  `json:"nonce"`
	ContentURI  string  `json:"content_uri"`
	Title       string  `json:"title"`
	Encrypted   bool    `json:"encrypted"`
	EncryptHint *string `json:"encrypt_hint,omitempty"`
}

// CreateRecord builds the record an Initialize instruction writes.
//
// owner is the authoring principal and must be a plain system account.
// With no remaining accounts the record starts a new chain. Otherwise the
// first remaining account is the predecessor: it must be a record owned by
// programID whose owner is the same principal. A second remaining account
// is accepted and not interpreted.
func CreateRecord(
	log *logging.Logger,
	programID ledger.Pubkey,
	owner *ledger.AccountInfo,
	remaining []*ledger.AccountInfo,
	args InitializeArgs,
	now int64,
) (*codec.Record, error) {
	if log == nil {
		log = logging.Nop()
	}

	rec := &codec.Record{
		ContentURI:  args.ContentURI,
		Nonce:       args.Nonce,
		Encrypted:   args.Encrypted,
		CreatedTime: now,
		Title:       args.Title,
		EncryptHint: args.EncryptHint,
	}

	if err := assertOwnedBy(owner, ledger.SystemProgramID); err != nil {
		return nil, err
	}
	rec.Owner = owner.Key

	if len(remaining) == 0 {
		chainID := DeriveChainID(args.Nonce)
		rec.ChainID = &chainID
		return rec, nil
	}

	preInfo := remaining[0]
	if err := assertOwnedBy(preInfo, programID); err != nil {
		return nil, err
	}

	pre, err := codec.Decode(preInfo.Data)
	if err != nil {
		return nil, err
	}
	if pre.Owner != owner.Key {
		log.Warn().
			Str("predecessor", preInfo.Key.String()).
			Str("predecessor_owner", pre.Owner.String()).
			Str("owner", owner.Key.String()).
			Msg("predecessor owner mismatch")
		return nil, errors.Wrapf(ErrPreOwnerMismatch, "predecessor %s owned by %s, not %s",
			preInfo.Key, pre.Owner, owner.Key)
	}
	predecessor := preInfo.Key
	rec.Predecessor = &predecessor

	if len(remaining) > 1 {
		log.Debug().Str("tag", remaining[1].Key.String()).Msg("tag account not linked")
	}

	return rec, nil
}

func assertOwnedBy(info *ledger.AccountInfo, owner ledger.Pubkey) error {
	if !info.IsOwnedBy(owner) {
		return errors.Wrapf(ErrIncorrectOwner, "account %s is owned by %s, want %s", info.Key, info.Owner, owner)
	}
	return nil
}
