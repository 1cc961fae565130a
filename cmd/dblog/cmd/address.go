package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/program"
)

type addressOutput struct {
	Address ledger.Pubkey `json:"address"`
	Bump    uint8         `json:"bump"`
	ChainID string        `json:"chain_id"`
}

func newAddressCmd(c *cli) *cobra.Command {
	var nonce, payer string

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive the address of a record",
		Long: `Derive the program address a record with the given nonce and payer is
stored at. Without --payer the configured keypair is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			programID, err := c.cfg.ProgramKey()
			if err != nil {
				return err
			}
			payerKey, err := c.payerKey(payer)
			if err != nil {
				return err
			}
			addr, bump, err := program.RecordAddress(programID, nonce, payerKey)
			if err != nil {
				return err
			}
			return printJSON(cmd, addressOutput{Address: addr, Bump: bump, ChainID: program.DeriveChainID(nonce)})
		},
	}

	cmd.Flags().StringVar(&nonce, "nonce", "", "Record nonce")
	cmd.Flags().StringVar(&payer, "payer", "", "Payer public key")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}
