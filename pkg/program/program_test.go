package program

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
)

const testURI = "Vq7vFLzjWvOQ4mHiDVWp2xkJ1rVxb9gS3CQhcE6nTtA"

var testProgramID = ledger.MustParsePubkey(DefaultProgramID)

func principal(b byte) ledger.Pubkey {
	var pk ledger.Pubkey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

type fixture struct {
	t     *testing.T
	store *ledger.MemoryStore
	prog  *Program
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	rt := ledger.NewRuntime(store, ledger.FixedClock(1700000000), nil)
	return &fixture{t: t, store: store, prog: New(testProgramID, rt, nil)}
}

// create has who act as both owner and payer.
func (f *fixture) create(who ledger.Pubkey, nonce string, remaining ...ledger.Pubkey) (ledger.Pubkey, *InitializeResult, error) {
	f.t.Helper()
	addr, _, err := RecordAddress(testProgramID, nonce, who)
	require.NoError(f.t, err)

	res, err := f.prog.Initialize(context.Background(), InitializeAccounts{
		Record:    addr,
		Owner:     who,
		Payer:     who,
		Remaining: remaining,
	}, InitializeArgs{
		Nonce:      nonce,
		ContentURI: testURI,
		Title:      "post " + nonce,
	})
	return addr, res, err
}

func TestDeriveChainID(t *testing.T) {
	id := DeriveChainID("abc123")
	assert.Equal(t, "4234d716-a570-585d-9bca-e5b9b0776492", id)
	assert.Len(t, id, codec.ChainIDLen)
	assert.Equal(t, id, DeriveChainID("abc123"))
	assert.NotEqual(t, id, DeriveChainID("abc124"))
}

func TestRecordAddress(t *testing.T) {
	addr, bump, err := RecordAddress(testProgramID, "abc123", principal(1))
	require.NoError(t, err)
	assert.False(t, ledger.IsOnCurve(addr[:]))

	again, err := ledger.CreateProgramAddress(append(RecordSeeds("abc123", principal(1)), []byte{bump}), testProgramID)
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	other, _, err := RecordAddress(testProgramID, "abc123", principal(2))
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)
}

func TestInitialize_Scenario(t *testing.T) {
	f := newFixture(t)
	alice, bob := principal(0xA1), principal(0xB2)

	headAddr, head, err := f.create(alice, "abc123")
	require.NoError(t, err)
	require.NotNil(t, head.Record.ChainID)
	assert.Len(t, *head.Record.ChainID, 36)
	assert.Equal(t, DeriveChainID("abc123"), *head.Record.ChainID)
	assert.Nil(t, head.Record.Predecessor)
	assert.Equal(t, alice, head.Record.Owner)
	assert.Equal(t, int64(1700000000), head.Record.CreatedTime)
	assert.Equal(t, []ledger.Pubkey{headAddr}, head.Receipt.Written)

	nextAddr, next, err := f.create(alice, "abc124", headAddr)
	require.NoError(t, err)
	require.NotNil(t, next.Record.Predecessor)
	assert.Equal(t, headAddr, *next.Record.Predecessor)
	assert.Nil(t, next.Record.ChainID)

	stored, err := f.prog.FetchRecord(nextAddr)
	require.NoError(t, err)
	assert.Equal(t, next.Record, stored)

	bobAddr, _, err := f.create(bob, "abc125", headAddr)
	assert.ErrorIs(t, err, ErrPreOwnerMismatch)
	_, err = f.store.GetAccount(bobAddr)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound, "nothing committed on failure")
}

func TestInitialize_StoredLayout(t *testing.T) {
	f := newFixture(t)

	addr, _, err := f.create(principal(1), "abc123")
	require.NoError(t, err)

	acct, err := f.store.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, acct.Owner)
	assert.Len(t, acct.Data, codec.Space())

	rec, err := codec.Decode(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, "abc123", rec.Nonce)
	assert.Equal(t, testURI, rec.ContentURI)
}

func TestInitialize_OwnerChecks(t *testing.T) {
	f := newFixture(t)
	alice := principal(0xA1)

	headAddr, _, err := f.create(alice, "head")
	require.NoError(t, err)

	t.Run("owner must be a system account", func(t *testing.T) {
		addr, _, err := RecordAddress(testProgramID, "x1", alice)
		require.NoError(t, err)
		_, err = f.prog.Initialize(context.Background(), InitializeAccounts{
			Record: addr, Owner: headAddr, Payer: alice,
		}, InitializeArgs{Nonce: "x1", ContentURI: testURI})
		assert.ErrorIs(t, err, ErrIncorrectOwner)
	})

	t.Run("predecessor must be program owned", func(t *testing.T) {
		_, _, err := f.create(alice, "x2", principal(0x33))
		assert.ErrorIs(t, err, ErrIncorrectOwner)
	})

	t.Run("predecessor decode errors propagate", func(t *testing.T) {
		bogus := principal(0x44)
		require.NoError(t, f.store.PutAccounts([]*ledger.Account{{
			Address: bogus, Owner: testProgramID, Data: make([]byte, codec.Space()),
		}}))
		_, _, err := f.create(alice, "x3", bogus)
		assert.ErrorIs(t, err, codec.ErrAccountDiscriminator)

		var de *codec.DecodeError
		assert.ErrorAs(t, err, &de)
	})

	t.Run("tag account is accepted and ignored", func(t *testing.T) {
		_, res, err := f.create(alice, "x4", headAddr, principal(0x55))
		require.NoError(t, err)
		assert.Nil(t, res.Record.Tag)
		assert.Equal(t, headAddr, *res.Record.Predecessor)
	})
}

func TestInitialize_AllocationChecks(t *testing.T) {
	f := newFixture(t)
	alice := principal(0xA1)

	_, _, err := f.create(alice, "dup")
	require.NoError(t, err)
	_, _, err = f.create(alice, "dup")
	assert.ErrorIs(t, err, ledger.ErrAccountInUse)

	wrong, _, err := RecordAddress(testProgramID, "other", alice)
	require.NoError(t, err)
	_, err = f.prog.Initialize(context.Background(), InitializeAccounts{
		Record: wrong, Owner: alice, Payer: alice,
	}, InitializeArgs{Nonce: "mine", ContentURI: testURI})
	assert.ErrorIs(t, err, ledger.ErrSeedsConstraint)
}

func TestInitialize_EncodeValidation(t *testing.T) {
	f := newFixture(t)
	alice := principal(0xA1)
	addr, _, err := RecordAddress(testProgramID, "long", alice)
	require.NoError(t, err)

	accounts := InitializeAccounts{Record: addr, Owner: alice, Payer: alice}

	_, err = f.prog.Initialize(context.Background(), accounts, InitializeArgs{
		Nonce: "long", ContentURI: testURI, Title: string(make([]byte, 81)),
	})
	assert.ErrorIs(t, err, codec.ErrTitleMaxLen)

	hint := "abc"
	_, err = f.prog.Initialize(context.Background(), accounts, InitializeArgs{
		Nonce: "long", ContentURI: testURI, Encrypted: true, EncryptHint: &hint,
	})
	assert.ErrorIs(t, err, codec.ErrEncryptHintMaxLen)

	_, err = f.store.GetAccount(addr)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// a hint is accepted without the encrypted flag
	hint = "abcdef"
	res, err := f.prog.Initialize(context.Background(), accounts, InitializeArgs{
		Nonce: "long", ContentURI: testURI, EncryptHint: &hint,
	})
	require.NoError(t, err)
	assert.False(t, res.Record.Encrypted)
	assert.Equal(t, "abcdef", *res.Record.EncryptHint)
}

func TestFetchRecord_WrongOwner(t *testing.T) {
	f := newFixture(t)
	foreign := principal(0x66)
	require.NoError(t, f.store.PutAccounts([]*ledger.Account{{Address: foreign, Owner: principal(0x77)}}))

	_, err := f.prog.FetchRecord(foreign)
	assert.ErrorIs(t, err, ErrIncorrectOwner)

	_, err = f.prog.FetchRecord(principal(0x88))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestWalkToHead(t *testing.T) {
	f := newFixture(t)
	alice := principal(0xA1)

	headAddr, _, err := f.create(alice, "c0")
	require.NoError(t, err)

	prev := headAddr
	var addrs []ledger.Pubkey
	for i := 1; i <= 3; i++ {
		addr, _, err := f.create(alice, fmt.Sprintf("c%d", i), prev)
		require.NoError(t, err)
		addrs = append(addrs, addr)
		prev = addr
	}

	path, err := WalkToHead(context.Background(), f.prog, prev)
	require.NoError(t, err)
	assert.Equal(t, DeriveChainID("c0"), path.ChainID)
	assert.Equal(t, headAddr, path.Head)
	assert.Equal(t, []ledger.Pubkey{addrs[2], addrs[1], addrs[0], headAddr}, path.Path)

	path, err = WalkToHead(context.Background(), f.prog, headAddr)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Pubkey{headAddr}, path.Path)
}

type mapReader map[ledger.Pubkey]*codec.Record

func (m mapReader) FetchRecord(address ledger.Pubkey) (*codec.Record, error) {
	rec, ok := m[address]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return rec, nil
}

func TestWalkToHead_Errors(t *testing.T) {
	a, b := principal(1), principal(2)

	cycle := mapReader{
		a: {Predecessor: &b},
		b: {Predecessor: &a},
	}
	_, err := WalkToHead(context.Background(), cycle, a)
	assert.ErrorIs(t, err, ErrChainCycle)

	headless := mapReader{a: {}}
	_, err = WalkToHead(context.Background(), headless, a)
	assert.ErrorIs(t, err, ErrHeadMissingID)

	broken := mapReader{a: {Predecessor: &b}}
	_, err = WalkToHead(context.Background(), broken, a)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WalkToHead(ctx, cycle, a)
	assert.ErrorIs(t, err, context.Canceled)
}
