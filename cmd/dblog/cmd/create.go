package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/program"
)

type createOutput struct {
	Address ledger.Pubkey `json:"address"`
	TxID    string        `json:"tx_id"`
	Record  interface{}   `json:"record"`
}

func newCreateCmd(c *cli) *cobra.Command {
	var (
		args                program.InitializeArgs
		hint                string
		owner, pred, tagKey string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record signed by the payer keypair",
		Long: `Create a record at the address derived from --nonce and the payer key.
With --predecessor the record extends the predecessor's chain; otherwise it
starts a new one.

Examples:
  dblog create --nonce post-1 --uri ipfs://Qm... --title "First post"
  dblog create --nonce post-2 --uri ipfs://Qm... --title "Second" --predecessor <address>`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := c.open()
			if err != nil {
				return err
			}
			defer container.Close()

			payer, err := container.Payer()
			if err != nil {
				return err
			}

			accounts := program.InitializeAccounts{Owner: payer.Public, Payer: payer.Public}
			if owner != "" {
				if accounts.Owner, err = ledger.ParsePubkey(owner); err != nil {
					return err
				}
			}
			if pred != "" {
				predKey, err := ledger.ParsePubkey(pred)
				if err != nil {
					return err
				}
				accounts.Remaining = append(accounts.Remaining, predKey)
			}
			if tagKey != "" {
				if pred == "" {
					return ErrTagWithoutPredecessor
				}
				tag, err := ledger.ParsePubkey(tagKey)
				if err != nil {
					return err
				}
				accounts.Remaining = append(accounts.Remaining, tag)
			}
			if cmd.Flags().Changed("hint") {
				args.EncryptHint = &hint
			}

			accounts.Record, _, err = program.RecordAddress(container.Program().ID(), args.Nonce, payer.Public)
			if err != nil {
				return err
			}

			res, err := container.Program().Initialize(cmd.Context(), accounts, args)
			if err != nil {
				return err
			}
			return printJSON(cmd, createOutput{
				Address: res.Address,
				TxID:    res.Receipt.TxID.String(),
				Record:  res.Record,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&args.Nonce, "nonce", "", "Record nonce")
	flags.StringVar(&args.ContentURI, "uri", "", "Content URI")
	flags.StringVar(&args.Title, "title", "", "Record title")
	flags.BoolVar(&args.Encrypted, "encrypted", false, "Mark the content as encrypted")
	flags.StringVar(&hint, "hint", "", "Encryption hint")
	flags.StringVar(&owner, "owner", "", "Owner public key (default: payer)")
	flags.StringVar(&pred, "predecessor", "", "Predecessor record address")
	flags.StringVar(&tagKey, "tag", "", "Tag account passed after the predecessor")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}
