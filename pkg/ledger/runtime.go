package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/dblog/pkg/logging"
)

var (
	ErrAccountInUse    = errors.New("account already in use")
	ErrSeedsConstraint = errors.New("address does not match the program derived address for the seeds")
	ErrMissingSigner   = errors.New("missing required signature")
	ErrNotWritable     = errors.New("account is not writable")
	ErrNotAllocated    = errors.New("account was not allocated by this instruction")
	ErrDataTooLarge    = errors.New("data exceeds allocated space")
)

// Handler is the body of an instruction. Returning an error aborts the
// instruction and discards every pending write.
type Handler func(ictx *InvokeContext) error

// CommitHook observes committed instructions. Hooks run after the store
// write, outside the account locks.
type CommitHook func(receipt *Receipt, accounts []*Account)

// Receipt describes a committed instruction.
type Receipt struct {
	TxID      ksuid.KSUID `json:"tx_id"`
	ProgramID Pubkey      `json:"program_id"`
	Timestamp int64       `json:"timestamp"`
	Written   []Pubkey    `json:"written"`
}

// Runtime is the local hosting environment: it materializes account
// snapshots, serializes instructions touching the same accounts, and
// commits an instruction's writes all at once.
type Runtime struct {
	store AccountStore
	clock Clock
	log   *logging.Logger
	locks *lockTable

	hooksMu sync.RWMutex
	hooks   []CommitHook
}

// NewRuntime builds a runtime over store.
func NewRuntime(store AccountStore, clock Clock, log *logging.Logger) *Runtime {
	if clock == nil {
		clock = NewSystemClock()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Runtime{
		store: store,
		clock: clock,
		log:   log.Child("runtime"),
		locks: newLockTable(),
	}
}

// Subscribe registers a hook called after every successful commit.
func (r *Runtime) Subscribe(hook CommitHook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Store exposes the underlying account store for readers.
func (r *Runtime) Store() AccountStore {
	return r.store
}

// GetAccount reads a committed account.
func (r *Runtime) GetAccount(address Pubkey) (*Account, error) {
	return r.store.GetAccount(address)
}

// Invoke runs handler against the accounts named by metas.
func (r *Runtime) Invoke(ctx context.Context, programID Pubkey, metas []AccountMeta, handler Handler) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]Pubkey, len(metas))
	for i, m := range metas {
		keys[i] = m.Pubkey
	}
	release := r.locks.acquire(keys)

	ictx, err := r.prepare(ctx, programID, metas)
	if err != nil {
		release()
		return nil, err
	}

	if err := handler(ictx); err != nil {
		release()
		r.log.Debug().Err(err).Str("program", programID.String()).Msg("instruction aborted")
		return nil, err
	}

	written := ictx.pendingAccounts()
	if len(written) > 0 {
		if err := r.store.PutAccounts(written); err != nil {
			release()
			return nil, errors.Wrap(err, "commit instruction")
		}
	}
	release()

	receipt := &Receipt{
		TxID:      ksuid.New(),
		ProgramID: programID,
		Timestamp: ictx.timestamp,
		Written:   make([]Pubkey, len(written)),
	}
	for i, acct := range written {
		receipt.Written[i] = acct.Address
	}

	r.log.Info().
		Str("tx", receipt.TxID.String()).
		Str("program", programID.String()).
		Int("written", len(written)).
		Msg("instruction committed")

	r.hooksMu.RLock()
	hooks := append([]CommitHook(nil), r.hooks...)
	r.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(receipt, written)
	}

	return receipt, nil
}

func (r *Runtime) prepare(ctx context.Context, programID Pubkey, metas []AccountMeta) (*InvokeContext, error) {
	infos := make([]*AccountInfo, len(metas))
	for i, meta := range metas {
		info := &AccountInfo{
			Key:        meta.Pubkey,
			Owner:      SystemProgramID,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
		acct, err := r.store.GetAccount(meta.Pubkey)
		switch {
		case err == nil:
			info.Owner = acct.Owner
			info.Data = acct.Data
			info.Exists = true
		case errors.Is(err, ErrAccountNotFound):
		default:
			return nil, err
		}
		infos[i] = info
	}

	return &InvokeContext{
		ctx:       ctx,
		programID: programID,
		accounts:  infos,
		timestamp: r.clock.UnixTimestamp(),
		log:       r.log,
		pending:   make(map[Pubkey]*Account),
	}, nil
}

// InvokeContext is what a Handler sees of the ledger.
type InvokeContext struct {
	ctx       context.Context
	programID Pubkey
	accounts  []*AccountInfo
	timestamp int64
	log       *logging.Logger

	pending map[Pubkey]*Account
	order   []Pubkey
}

func (c *InvokeContext) Context() context.Context { return c.ctx }
func (c *InvokeContext) ProgramID() Pubkey { return c.programID }
func (c *InvokeContext) Logger() *logging.Logger { return c.log }

// Timestamp is the clock reading taken once when the instruction started.
func (c *InvokeContext) Timestamp() int64 { return c.timestamp }

// Accounts returns the snapshots in the order the instruction listed them.
func (c *InvokeContext) Accounts() []*AccountInfo { return c.accounts }

// Allocate creates a zeroed account of space bytes owned by the invoking
// program at the address derived from seeds. payer must have signed.
func (c *InvokeContext) Allocate(target, payer *AccountInfo, space int, seeds [][]byte) error {
	if !payer.IsSigner {
		return errors.Wrapf(ErrMissingSigner, "payer %s", payer.Key)
	}
	if !target.IsWritable {
		return errors.Wrapf(ErrNotWritable, "%s", target.Key)
	}
	if target.Exists || len(target.Data) > 0 {
		return errors.Wrapf(ErrAccountInUse, "%s", target.Key)
	}
	if _, ok := c.pending[target.Key]; ok {
		return errors.Wrapf(ErrAccountInUse, "%s", target.Key)
	}

	expected, _, err := FindProgramAddress(seeds, c.programID)
	if err != nil {
		return err
	}
	if expected != target.Key {
		return errors.WithDetailf(
			errors.Wrapf(ErrSeedsConstraint, "%s", target.Key),
			"expected %s", expected,
		)
	}

	c.pending[target.Key] = &Account{
		Address: target.Key,
		Owner:   c.programID,
		Data:    make([]byte, space),
	}
	c.order = append(c.order, target.Key)
	return nil
}

// Write copies data to the start of an account allocated by this
// instruction. The rest of the allocation stays zeroed.
func (c *InvokeContext) Write(address Pubkey, data []byte) error {
	acct, ok := c.pending[address]
	if !ok {
		return errors.Wrapf(ErrNotAllocated, "%s", address)
	}
	if len(data) > len(acct.Data) {
		return errors.Wrapf(ErrDataTooLarge, "%d > %d", len(data), len(acct.Data))
	}
	copy(acct.Data, data)
	return nil
}

func (c *InvokeContext) pendingAccounts() []*Account {
	out := make([]*Account, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.pending[key])
	}
	return out
}

// lockTable hands out per-address mutexes. Locks are always taken in
// ascending address order.
type lockTable struct {
	mu    sync.Mutex
	locks map[Pubkey]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[Pubkey]*sync.Mutex)}
}

func (t *lockTable) acquire(keys []Pubkey) func() {
	uniq := make([]Pubkey, 0, len(keys))
	seen := make(map[Pubkey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Slice(uniq, func(i, j int) bool { return ComparePubkeys(uniq[i], uniq[j]) < 0 })

	t.mu.Lock()
	held := make([]*sync.Mutex, len(uniq))
	for i, k := range uniq {
		m, ok := t.locks[k]
		if !ok {
			m = &sync.Mutex{}
			t.locks[k] = m
		}
		held[i] = m
	}
	t.mu.Unlock()

	for _, m := range held {
		m.Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
