package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var deadlinesDays *int
var deadlinesLimit *int

func init() {
	deadlinesDays = deadlinesCmd.Flags().Int("days", 30, "How many days ahead to look.")
	deadlinesLimit = deadlinesCmd.Flags().Int("limit", 26, "Maximum number of events.")
	rootCmd.AddCommand(deadlinesCmd)
}

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines [--days <n>] [--limit <n>]",
	Short: "Lists upcoming calendar events and due dates.",
	Run: func(cmd *cobra.Command, args []string) {
		client := courseClient()

		now := time.Now()
		events, err := client.UpcomingEvents(
			cmd.Context(),
			now.Unix(),
			now.AddDate(0, 0, *deadlinesDays).Unix(),
			*deadlinesLimit,
		)
		if err != nil {
			fatal("failed to fetch upcoming events", err)
		}

		t := newTable(table.Row{"Due", "Course", "Event", "Action"})
		for _, event := range events {
			t.AppendRow(table.Row{
				formatUnix(event.TimeSort), event.Course.FullName,
				event.Name, event.Action.Name,
			})
		}
		t.Render()
	},
}
