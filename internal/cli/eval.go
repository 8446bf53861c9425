package cli

import (
	"github.com/spf13/cobra"

	"reviewrag/internal/evaluation"
	"reviewrag/internal/service"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	var (
		queries string
		k       int
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure retrieval precision@k against a labelled query set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if queries == "" {
				queries = opts.cfg.Data.QueriesPath
			}
			qs, err := evaluation.LoadQuerySet(queries)
			if err != nil {
				return err
			}
			r, err := service.OpenRetriever(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			report, err := evaluation.Evaluate(cmd.Context(), r, qs, k)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&queries, "queries", "", "query set YAML (default from config)")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "results per query (default from the query set)")
	return cmd
}
