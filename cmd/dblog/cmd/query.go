package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/query"
)

func newQueryCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "query [condition...]",
		Short: "List records matching field conditions",
		Long: `List the records matching every condition. A condition is a field, an
operator (=, <, <=, >, >=) and a value with no spaces around the operator.
Fields: owner, predecessor, nonce, title, content_uri, chain_id, encrypted,
created_time. owner, predecessor and encrypted only support =.

Examples:
  dblog query encrypted=true
  dblog query owner=<key> created_time>=1700000000 --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conds := make([]query.FieldQuery, 0, len(args))
			for _, arg := range args {
				q, err := query.ParseFieldQuery(arg)
				if err != nil {
					return err
				}
				conds = append(conds, q)
			}

			container, err := c.open()
			if err != nil {
				return err
			}
			defer container.Close()

			it, err := query.NewRecordQueryEngine(container.Index()).ExecuteQuery(cmd.Context(), conds...)
			if err != nil {
				return err
			}
			results := query.Collect(it)
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			return printJSON(cmd, results)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to print (0 for all)")
	return cmd
}
