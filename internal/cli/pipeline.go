package cli

import (
	"github.com/spf13/cobra"

	"reviewrag/internal/service"
)

func newChunkCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split raw reviews into overlapping word windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") {
				opts.cfg.Data.Limit = limit
			}
			st, err := service.NewPipeline(opts.cfg).Chunk(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("chunked %d reviews into %d chunks (%d skipped) -> %s\n",
				st.Documents, st.Chunks, st.Skipped, opts.cfg.Data.ChunksPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "read at most this many raw reviews")
	return cmd
}

func newEmbedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Embed the chunk file and save the vectors with their metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := service.NewPipeline(opts.cfg).Embed(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("embedded %d chunks (%d dimensions) -> %s\n",
				store.Len(), store.Dimension(), opts.cfg.Data.EmbeddingsPath)
			return nil
		},
	}
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the nearest-neighbour index from saved embeddings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := service.NewPipeline(opts.cfg).BuildIndex(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("indexed %d vectors -> %s\n", idx.Len(), opts.cfg.Data.IndexPath)
			return nil
		},
	}
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run chunk, embed and index in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.NewPipeline(opts.cfg).Run(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("index ready -> %s\n", opts.cfg.Data.IndexPath)
			return nil
		},
	}
}
