package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/ledger"
)

type showOutput struct {
	Address ledger.Pubkey `json:"address"`
	Record  interface{}   `json:"record"`
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <address>",
		Short: "Print the record stored at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := ledger.ParsePubkey(args[0])
			if err != nil {
				return err
			}
			container, err := c.open()
			if err != nil {
				return err
			}
			defer container.Close()

			rec, err := container.Program().FetchRecord(addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, showOutput{Address: addr, Record: rec})
		},
	}
}
