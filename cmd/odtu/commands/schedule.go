package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Shows the weekly course schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		portal := portalClient()
		slots, err := portal.CourseSchedule(cmd.Context())
		if err != nil {
			fatal("failed to fetch course schedule", err)
		}

		header := table.Row{"Time"}
		for _, day := range scheduleDays {
			header = append(header, day)
		}

		t := newTable(header)
		for _, slot := range slots {
			row := table.Row{slot.Time}
			for _, day := range scheduleDays {
				row = append(row, slot.Days[day])
			}
			t.AppendRow(row)
		}
		t.Render()
	},
}
