package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dblog/pkg/config"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/program"
	"github.com/ssargent/dblog/pkg/query"
)

type cliRecord struct {
	Address string `json:"address"`
	TxID    string `json:"tx_id"`
	Record  struct {
		Owner       string  `json:"owner"`
		Nonce       string  `json:"nonce"`
		Title       string  `json:"title"`
		Predecessor *string `json:"predecessor"`
		ChainID     *string `json:"chain_id"`
		EncryptHint *string `json:"encrypt_hint"`
	} `json:"record"`
}

// run executes a fresh command tree against the config at cfgPath.
func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func initWorkspace(t *testing.T) (cfgPath, dataDir string) {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath = filepath.Join(tmpDir, "config.yaml")
	dataDir = filepath.Join(tmpDir, "data")

	out, err := run(t, cfgPath, "--data-dir", dataDir, "init", "--print-keys")
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to")
	assert.Contains(t, out, "API key:")
	return cfgPath, dataDir
}

func decodeRecord(t *testing.T, out string) cliRecord {
	t.Helper()
	var rec cliRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec), out)
	return rec
}

func TestInitCommand(t *testing.T) {
	cfgPath, dataDir := initWorkspace(t)

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Len(t, cfg.Security.APIKey, 64)
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "payer.json"))

	t.Run("Refuses to overwrite without force", func(t *testing.T) {
		out, err := run(t, cfgPath, "init")
		require.NoError(t, err)
		assert.Contains(t, out, "already exists")

		again, err := config.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, cfg.Security.APIKey, again.Security.APIKey)
	})

	t.Run("Force regenerates keys", func(t *testing.T) {
		_, err := run(t, cfgPath, "--data-dir", dataDir, "init", "--force")
		require.NoError(t, err)

		again, err := config.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.NotEqual(t, cfg.Security.APIKey, again.Security.APIKey)
	})
}

func TestKeygenCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")
	keyPath := filepath.Join(t.TempDir(), "keys", "author.json")

	out, err := run(t, cfgPath, "keygen", "--out", keyPath)
	require.NoError(t, err)

	kp, err := ledger.LoadKeypair(keyPath)
	require.NoError(t, err)
	assert.Contains(t, out, kp.Public.String())

	out, err = run(t, cfgPath, "keygen", "--out", keyPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	_, err = run(t, cfgPath, "keygen")
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestCreateShowAndChain(t *testing.T) {
	cfgPath, _ := initWorkspace(t)

	out, err := run(t, cfgPath, "create", "--nonce", "abc123", "--uri", "ipfs://head", "--title", "Head")
	require.NoError(t, err)
	head := decodeRecord(t, out)
	require.NotNil(t, head.Record.ChainID)
	assert.Equal(t, "4234d716-a570-585d-9bca-e5b9b0776492", *head.Record.ChainID)
	assert.Nil(t, head.Record.Predecessor)
	assert.NotEmpty(t, head.TxID)

	out, err = run(t, cfgPath, "create", "--nonce", "next", "--uri", "ipfs://next", "--title", "Next",
		"--encrypted", "--hint", "aes", "--predecessor", head.Address)
	require.NoError(t, err)
	next := decodeRecord(t, out)
	require.NotNil(t, next.Record.Predecessor)
	assert.Equal(t, head.Address, *next.Record.Predecessor)
	assert.Nil(t, next.Record.ChainID)
	require.NotNil(t, next.Record.EncryptHint)
	assert.Equal(t, "aes", *next.Record.EncryptHint)

	t.Run("Show", func(t *testing.T) {
		out, err := run(t, cfgPath, "show", next.Address)
		require.NoError(t, err)
		shown := decodeRecord(t, out)
		assert.Equal(t, next.Address, shown.Address)
		assert.Equal(t, "Next", shown.Record.Title)
	})

	t.Run("Chain from successor", func(t *testing.T) {
		out, err := run(t, cfgPath, "chain", next.Address)
		require.NoError(t, err)

		var chain struct {
			ChainID string   `json:"chain_id"`
			Head    string   `json:"head"`
			Path    []string `json:"path"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &chain))
		assert.Equal(t, *head.Record.ChainID, chain.ChainID)
		assert.Equal(t, head.Address, chain.Head)
		assert.Equal(t, []string{next.Address, head.Address}, chain.Path)
	})

	t.Run("Chain by id", func(t *testing.T) {
		out, err := run(t, cfgPath, "chain", "--id", *head.Record.ChainID)
		require.NoError(t, err)

		var chain struct {
			Records []cliRecord `json:"records"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &chain))
		require.Len(t, chain.Records, 2)
		assert.Equal(t, head.Address, chain.Records[0].Address)
		assert.Equal(t, next.Address, chain.Records[1].Address)

		_, err = run(t, cfgPath, "chain", "--id", "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrUnknownChain)
	})

	t.Run("Query", func(t *testing.T) {
		out, err := run(t, cfgPath, "query", "encrypted=true")
		require.NoError(t, err)
		var got []cliRecord
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, next.Address, got[0].Address)

		out, err = run(t, cfgPath, "query", "--limit", "1")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Len(t, got, 1)

		_, err = run(t, cfgPath, "query", "tag=x")
		assert.ErrorIs(t, err, query.ErrInvalidQuery)
	})

	t.Run("Duplicate nonce", func(t *testing.T) {
		_, err := run(t, cfgPath, "create", "--nonce", "abc123", "--uri", "u", "--title", "t")
		assert.ErrorIs(t, err, ledger.ErrAccountInUse)
	})

	t.Run("Tag without predecessor", func(t *testing.T) {
		_, err := run(t, cfgPath, "create", "--nonce", "tagged", "--tag", head.Address)
		assert.ErrorIs(t, err, ErrTagWithoutPredecessor)
	})

	t.Run("Show invalid address", func(t *testing.T) {
		_, err := run(t, cfgPath, "show", "not-base58!")
		assert.ErrorIs(t, err, ledger.ErrInvalidPubkey)
	})
}

func TestAddressCommand(t *testing.T) {
	cfgPath, _ := initWorkspace(t)
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)

	out, err := run(t, cfgPath, "address", "--nonce", "abc123", "--payer", kp.Public.String())
	require.NoError(t, err)

	var got struct {
		Address string `json:"address"`
		Bump    uint8  `json:"bump"`
		ChainID string `json:"chain_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	want, bump, err := program.RecordAddress(ledger.MustParsePubkey(program.DefaultProgramID), "abc123", kp.Public)
	require.NoError(t, err)
	assert.Equal(t, want.String(), got.Address)
	assert.Equal(t, bump, got.Bump)
	assert.Equal(t, program.DeriveChainID("abc123"), got.ChainID)

	_, err = run(t, cfgPath, "address")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "nonce"))
}
