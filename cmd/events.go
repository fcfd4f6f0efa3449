package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brasilintel/internal/model"
	"github.com/sells-group/brasilintel/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded API attempt events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		api, _ := cmd.Flags().GetString("api")
		eventType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.EventFilter{
			APIName:   api,
			EventType: model.EventType(eventType),
			Limit:     limit,
		}
		if id, _ := cmd.Flags().GetInt64("run-id"); id > 0 {
			filter.CorrelationID = &id
		}

		events, err := st.ListEvents(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "events list")
		}

		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No events found.")
			return nil
		}

		formatEventsList(cmd.OutOrStdout(), events)
		return nil
	},
}

func formatEventsList(out io.Writer, events []model.APIEvent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTIME\tTYPE\tAPI\tOK\tRUN\tDETAIL")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t---\t--\t---\t------")

	for _, ev := range events {
		run := ""
		if ev.CorrelationID != nil {
			run = fmt.Sprintf("%d", *ev.CorrelationID)
		}
		detail := ev.Detail
		if len([]rune(detail)) > 60 {
			detail = model.Truncate(detail, 57) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			truncateID(ev.ID),
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			ev.EventType,
			ev.APIName,
			ev.Success,
			run,
			detail,
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	eventsCmd.Flags().Int("limit", 50, "maximum events to show")
	eventsCmd.Flags().String("api", "", "filter by API name (e.g. ai_matcher, embedder)")
	eventsCmd.Flags().String("type", "", "filter by event type (e.g. ai_match)")
	eventsCmd.Flags().Int64("run-id", 0, "filter by correlation id")
	rootCmd.AddCommand(eventsCmd)
}
