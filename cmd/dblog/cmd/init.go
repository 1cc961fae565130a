/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/config"
	"github.com/ssargent/dblog/pkg/ledger"
)

func newInitCmd(c *cli) *cobra.Command {
	var force, printKeys bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file and payer keypair",
		Long: `Create a dblog config file with a generated API key and a payer keypair
stored next to it.

Examples:
  dblog init
  dblog init --config ./dblog.yaml --data-dir ./data --print-keys`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ConfigExists(c.configPath) && !force {
				cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", c.configPath)
				return nil
			}

			cfg, err := config.BootstrapConfig(c.configPath, c.cfg.DataDir)
			if err != nil {
				return err
			}
			kp, err := ledger.LoadKeypair(cfg.Security.KeypairPath)
			if err != nil {
				return err
			}

			cmd.Printf("Config written to %s\n", c.configPath)
			cmd.Printf("Data directory: %s\n", cfg.DataDir)
			cmd.Printf("Payer: %s\n", kp.Public)
			if printKeys {
				cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	cmd.Flags().BoolVar(&printKeys, "print-keys", false, "Print the generated API key")
	return cmd
}
