package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Shows the active courses and the next week of events.",
	Run: func(cmd *cobra.Command, args []string) {
		client := courseClient()

		now := time.Now()
		dashboard, err := client.Dashboard(
			cmd.Context(), now.Unix(), now.AddDate(0, 0, 7).Unix(), 10,
		)
		if err != nil {
			fatal("failed to fetch dashboard", err)
		}

		fmt.Printf("%s | %s | %s\n",
			client.Session().SemesterDisplay(),
			dashboard.Site.FullName,
			now.Format("2006-01-02 15:04"),
		)

		t := newTable(table.Row{"ID", "Course"})
		for _, course := range dashboard.Courses {
			t.AppendRow(table.Row{course.Id, course.FullName})
		}
		t.Render()

		t = newTable(table.Row{"Due", "Event"})
		for _, event := range dashboard.Events {
			t.AppendRow(table.Row{formatUnix(event.TimeSort), event.Name})
		}
		t.Render()
	},
}
