package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var gradesCourse *int64

func init() {
	gradesCourse = gradesCmd.Flags().Int64("course", 0, "Show the grade breakdown of one course id.")
	rootCmd.AddCommand(gradesCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades [--course <id>]",
	Short: "Shows the grade overview, or one course's full breakdown.",
	Run: func(cmd *cobra.Command, args []string) {
		client := courseClient()

		if *gradesCourse != 0 {
			items, err := client.CourseGrades(cmd.Context(), *gradesCourse)
			if err != nil {
				fatal("failed to fetch course grades", err)
			}
			t := newTable(table.Row{"Item", "Grade", "Range", "Percentage", "Feedback"})
			for _, item := range items {
				t.AppendRow(table.Row{item.ItemName, item.Grade, item.Range, item.Percentage, item.Feedback})
			}
			t.Render()
			return
		}

		rows, err := client.GradesOverview(cmd.Context())
		if err != nil {
			fatal("failed to fetch grades overview", err)
		}
		t := newTable(table.Row{"ID", "Course", "Grade"})
		for _, row := range rows {
			t.AppendRow(table.Row{row.CourseId, row.CourseName, row.Grade})
		}
		t.Render()
	},
}
