/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/config"
	"github.com/ssargent/dblog/pkg/di"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/logging"
)

var (
	ErrNoOutput              = errors.New("no keypair path: pass --out or configure security.keypair_path")
	ErrTagWithoutPredecessor = errors.New("a tag account needs a predecessor")
	ErrUnknownChain          = errors.New("no records carry that chain id")
)

// cli carries the resolved configuration between the root command and its
// subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *logging.Logger
}

// NewRootCmd builds the dblog command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "dblog",
		Short: "dblog - authorship records on a local ledger",
		Long: `dblog stores fixed-size authorship records at program derived addresses
and links each owner's records into chains that can be walked back to
their head.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to config file (default: OS-specific location)")
	flags.StringP("data-dir", "d", "", "Data directory for the account store")
	flags.String("backend", "", "Account store backend: log, pebble or memory")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("keypair", "", "Payer keypair file")

	rootCmd.AddCommand(
		newInitCmd(c),
		newKeygenCmd(c),
		newAddressCmd(c),
		newCreateCmd(c),
		newShowCmd(c),
		newChainCmd(c),
		newQueryCmd(c),
		newServeCmd(c),
		newUpCmd(c),
		newServiceCmd(c),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolve loads the config file when it exists, then applies environment
// and flag overrides.
func (c *cli) resolve(cmd *cobra.Command) error {
	if c.configPath == "" {
		c.configPath = config.GetDefaultConfigPath()
	}

	if config.ConfigExists(c.configPath) {
		cfg, err := config.LoadConfig(c.configPath)
		if err != nil {
			return err
		}
		c.cfg = cfg
	} else {
		c.cfg = config.DefaultConfig()
		if err := config.ApplyEnv(c.cfg); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		c.cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("backend") {
		c.cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("log-level") {
		c.cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("keypair") {
		c.cfg.Security.KeypairPath, _ = flags.GetString("keypair")
	}

	c.log = logging.NewConsole("cli", c.cfg.Logging.Level)
	return nil
}

// open builds a container over the configured store. Callers must Close it.
func (c *cli) open() (*di.Container, error) {
	container, err := di.NewContainer(c.cfg, c.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open dblog: %w", err)
	}
	return container, nil
}

// payerKey parses key, falling back to the configured keypair's public key.
func (c *cli) payerKey(key string) (ledger.Pubkey, error) {
	if key != "" {
		return ledger.ParsePubkey(key)
	}
	if c.cfg.Security.KeypairPath == "" {
		return ledger.Pubkey{}, di.ErrNoKeypair
	}
	kp, err := ledger.LoadKeypair(c.cfg.Security.KeypairPath)
	if err != nil {
		return ledger.Pubkey{}, err
	}
	return kp.Public, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
