package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/ledger"
)

type chainOutput struct {
	ChainID     string              `json:"chain_id"`
	Head        *ledger.Pubkey      `json:"head,omitempty"`
	Path        []ledger.Pubkey     `json:"path,omitempty"`
	Successors  []*chainindex.Entry `json:"successors,omitempty"`
	Descendants []*chainindex.Entry `json:"descendants,omitempty"`
	Records     []*chainindex.Entry `json:"records,omitempty"`
}

func newChainCmd(c *cli) *cobra.Command {
	var chainID string

	cmd := &cobra.Command{
		Use:   "chain [address]",
		Short: "Walk a record's chain",
		Long: `Walk from a record back to the head of its chain and list the records
that extend it. With --id, list every record carrying that chain id instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if chainID != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.open()
			if err != nil {
				return err
			}
			defer container.Close()
			index := container.Index()

			if chainID != "" {
				records := index.Chain(chainID)
				if len(records) == 0 {
					return ErrUnknownChain
				}
				return printJSON(cmd, chainOutput{ChainID: chainID, Records: records})
			}

			addr, err := ledger.ParsePubkey(args[0])
			if err != nil {
				return err
			}
			path, err := index.Head(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, chainOutput{
				ChainID:     path.ChainID,
				Head:        &path.Head,
				Path:        path.Path,
				Successors:  index.Successors(addr),
				Descendants: index.Descendants(addr),
			})
		},
	}

	cmd.Flags().StringVar(&chainID, "id", "", "List the records of a chain id")
	return cmd
}
