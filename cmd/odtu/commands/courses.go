package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists the enrolled courses of the selected semester.",
	Run: func(cmd *cobra.Command, args []string) {
		client := courseClient()
		courses, err := client.Courses(cmd.Context(), "inprogress")
		if err != nil {
			fatal("failed to fetch courses", err)
		}

		t := newTable(table.Row{"ID", "Course", "Category"})
		for _, course := range courses {
			t.AppendRow(table.Row{course.Id, course.FullName, course.Category})
		}
		t.Render()
	},
}
