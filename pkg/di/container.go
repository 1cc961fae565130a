// Package di wires a dblog node together from its configuration.
package di

import (
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/api" //nolint:depguard
	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/config"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/logging"
	"github.com/ssargent/dblog/pkg/program"
	"github.com/ssargent/dblog/pkg/storage"
	"github.com/ssargent/dblog/pkg/store"
)

// ErrNoKeypair is returned when an operation needs the payer keypair and
// none is configured.
var ErrNoKeypair = errors.New("no payer keypair configured")

// Container holds all the dependencies for the application
type Container struct {
	config  *config.Config
	log     *logging.Logger
	store   ledger.AccountStore
	runtime *ledger.Runtime
	program *program.Program
	index   *chainindex.Index
	payer   *ledger.Keypair
}

// NewContainer opens the configured account store and builds the runtime,
// program and chain index on top of it.
func NewContainer(cfg *config.Config, log *logging.Logger) (*Container, error) {
	if log == nil {
		log = logging.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	programID, err := cfg.ProgramKey()
	if err != nil {
		return nil, err
	}

	accounts, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	rt := ledger.NewRuntime(accounts, ledger.NewSystemClock(), log)
	index := chainindex.New(programID, log)
	if err := index.Attach(rt); err != nil {
		_ = accounts.Close()
		return nil, err
	}

	return &Container{
		config:  cfg,
		log:     log,
		store:   accounts,
		runtime: rt,
		program: program.New(programID, rt, log),
		index:   index,
	}, nil
}

// OpenStore opens the account store selected by cfg.Backend.
func OpenStore(cfg *config.Config, log *logging.Logger) (ledger.AccountStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return ledger.NewMemoryStore(), nil

	case config.BackendPebble:
		db, err := storage.NewPebbleStorage(filepath.Join(cfg.DataDir, "pebble"), storage.Options{
			NoSync: cfg.FsyncInterval > 0,
		})
		if err != nil {
			return nil, err
		}
		return ledger.NewKVAccounts(db), nil

	case config.BackendLog:
		kv, err := store.NewKVStore(store.KVStoreConfig{
			DataDir:       cfg.DataDir,
			FsyncInterval: cfg.FsyncInterval,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create log store")
		}
		recovery, err := kv.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open log store")
		}
		log.Info().
			Int64("validated", recovery.RecordsValidated).
			Int64("truncated", recovery.RecordsTruncated).
			Dur("took", recovery.RecoveryTime).
			Msg("log store recovered")
		return ledger.NewKVAccounts(kv), nil
	}
	return nil, errors.Newf("unknown backend %q", cfg.Backend)
}

func (c *Container) Config() *config.Config { return c.config }
func (c *Container) Logger() *logging.Logger { return c.log }
func (c *Container) Runtime() *ledger.Runtime { return c.runtime }
func (c *Container) Program() *program.Program { return c.program }
func (c *Container) Index() *chainindex.Index { return c.index }
func (c *Container) Store() ledger.AccountStore { return c.store }

// Payer loads the configured payer keypair once.
func (c *Container) Payer() (*ledger.Keypair, error) {
	if c.payer != nil {
		return c.payer, nil
	}
	if c.config.Security.KeypairPath == "" {
		return nil, ErrNoKeypair
	}
	kp, err := ledger.LoadKeypair(c.config.Security.KeypairPath)
	if err != nil {
		return nil, err
	}
	c.payer = kp
	return kp, nil
}

// SetPayer overrides the payer keypair (for testing)
func (c *Container) SetPayer(kp *ledger.Keypair) {
	c.payer = kp
}

// NewServer builds the API server signing with the payer keypair.
func (c *Container) NewServer() (*api.Server, error) {
	payer, err := c.Payer()
	if err != nil {
		return nil, err
	}
	return api.NewServer(c.program, c.index, payer.Public, api.ServerConfig{
		Bind:   c.config.Bind,
		Port:   c.config.Port,
		APIKey: c.config.Security.APIKey,
	}, api.NewMetrics(), c.log), nil
}

// Close releases the account store.
func (c *Container) Close() error {
	return c.store.Close()
}
