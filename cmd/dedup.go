package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Collapse near-duplicate articles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		articles, err := loadArticles(ctx, cmd)
		if err != nil {
			return err
		}

		rec, closeRec := initRecorder(ctx, cfg)
		defer closeRec()

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		d, err := initDeduplicator(cfg, threshold, rec)
		if err != nil {
			return err
		}

		out := d.Deduplicate(ctx, articles)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d articles in, %d out (threshold %.2f)\n", len(articles), len(out), d.Threshold())
		return writeJSON(cmd, out)
	},
}

func init() {
	addArticleFlags(dedupCmd)
	dedupCmd.Flags().Float64("threshold", 0, "similarity threshold override (0 uses dedup.similarity_threshold)")
	rootCmd.AddCommand(dedupCmd)
}
