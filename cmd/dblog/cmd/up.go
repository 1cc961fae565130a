/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/config"
)

func newUpCmd(c *cli) *cobra.Command {
	var printKeys bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap and start the dblog server",
		Long: `Create the config file and payer keypair if they don't exist, then start
the REST API server. This is the recommended way to get dblog running.

Examples:
  dblog up
  dblog up --data-dir ./mydata --port 9000
  dblog up --config ./custom-config.yaml --print-keys`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bootstrap(cmd, printKeys); err != nil {
				return err
			}
			return c.serve(cmd)
		},
	}

	addListenFlags(cmd)
	cmd.Flags().BoolVar(&printKeys, "print-keys", false, "Print the generated API key")
	return cmd
}

// bootstrap writes a fresh config when none exists and re-resolves flags on
// top of it.
func (c *cli) bootstrap(cmd *cobra.Command, printKeys bool) error {
	if config.ConfigExists(c.configPath) {
		cmd.Printf("Loaded configuration from %s\n", c.configPath)
		return nil
	}

	cmd.Printf("First run detected, bootstrapping dblog\n")
	cfg, err := config.BootstrapConfig(c.configPath, c.cfg.DataDir)
	if err != nil {
		return err
	}
	cmd.Printf("Configuration created at %s\n", c.configPath)
	if printKeys {
		cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		cmd.Printf("Payer keypair: %s\n", cfg.Security.KeypairPath)
	}
	return c.resolve(cmd)
}
