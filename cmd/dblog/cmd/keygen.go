package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/ledger"
)

func newKeygenCmd(c *cli) *cobra.Command {
	var out string
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a payer keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = c.cfg.Security.KeypairPath
			}
			if out == "" {
				return ErrNoOutput
			}
			if _, err := os.Stat(out); err == nil && !force {
				cmd.Printf("Keypair already exists at %s. Use --force to overwrite.\n", out)
				return nil
			}

			kp, err := ledger.NewKeypair()
			if err != nil {
				return err
			}
			if err := ledger.SaveKeypair(kp, out); err != nil {
				return err
			}
			cmd.Printf("Keypair written to %s\n", out)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), kp.Public)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Keypair file (default: the configured keypair path)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing keypair")
	return cmd
}
