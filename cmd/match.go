package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/brasilintel/internal/fixture"
	"github.com/sells-group/brasilintel/internal/model"
	"github.com/sells-group/brasilintel/internal/runner"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Deduplicate articles and match them to insurers",
	Long:  "Loads the insurer roster and an article batch, collapses near-duplicate articles, matches every survivor to the roster, and writes a JSON report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rosterPath, _ := cmd.Flags().GetString("insurers")
		insurers, err := fixture.LoadInsurers(rosterPath)
		if err != nil {
			return err
		}
		articles, err := loadArticles(ctx, cmd)
		if err != nil {
			return err
		}

		rec, closeRec := initRecorder(ctx, cfg)
		defer closeRec()

		pipeline, err := initPipeline(cfg, initCompletion(cfg), rec)
		if err != nil {
			return err
		}

		noDedup, _ := cmd.Flags().GetBool("no-dedup")
		var r *runner.Runner
		if noDedup {
			r, err = runner.New(nil, pipeline)
		} else {
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			d, derr := initDeduplicator(cfg, threshold, rec)
			if derr != nil {
				return derr
			}
			r, err = runner.New(d, pipeline)
		}
		if err != nil {
			return err
		}

		var runID *int64
		if id, _ := cmd.Flags().GetInt64("run-id"); id > 0 {
			runID = &id
		}

		report, err := r.Run(ctx, articles, insurers, runID)
		if err != nil {
			return err
		}

		formatReportSummary(cmd.ErrOrStderr(), report, model.IndexInsurers(insurers))
		return writeJSON(cmd, report)
	},
}

func formatReportSummary(out io.Writer, report *runner.Report, roster model.InsurerIndex) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tMETHOD\tCONFIDENCE\tINSURERS")
	_, _ = fmt.Fprintln(w, "-----\t------\t----------\t--------")

	for _, item := range report.Items {
		title := model.Truncate(item.Article.Title, 50)
		if title != item.Article.Title {
			title = model.Truncate(title, 47) + "..."
		}
		names := "-"
		for i, id := range item.Result.InsurerIDs {
			name := fmt.Sprintf("#%d", id)
			if ins, ok := roster[id]; ok {
				name = ins.Name
			}
			if i == 0 {
				names = name
			} else {
				names += ", " + name
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", title, item.Result.Method, item.Result.Confidence, names)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%d articles in, %d after dedup: %d single, %d multi, %d AI, %d unmatched\n",
		report.InputCount, report.DedupedCount,
		report.Stats.DeterministicSingle, report.Stats.DeterministicMulti,
		report.Stats.AIDisambiguation, report.Stats.Unmatched,
	)
}

func init() {
	matchCmd.Flags().String("insurers", "", "insurer roster file (JSON or YAML)")
	_ = matchCmd.MarkFlagRequired("insurers")
	addArticleFlags(matchCmd)
	matchCmd.Flags().Int64("run-id", 0, "correlation id stamped on telemetry events")
	matchCmd.Flags().Bool("no-dedup", false, "skip the deduplication pre-pass")
	matchCmd.Flags().Float64("threshold", 0, "similarity threshold override (0 uses dedup.similarity_threshold)")
	rootCmd.AddCommand(matchCmd)
}
