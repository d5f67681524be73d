package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(assignmentsCmd)
}

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Lists assignment-like activities across all enrolled courses.",
	Run: func(cmd *cobra.Command, args []string) {
		client := courseClient()
		courses, err := client.Courses(cmd.Context(), "inprogress")
		if err != nil {
			fatal("failed to fetch courses", err)
		}

		names := make(map[int64]string, len(courses))
		ids := make([]int64, 0, len(courses))
		for _, course := range courses {
			names[course.Id] = course.FullName
			ids = append(ids, course.Id)
		}

		assignments, err := client.Assignments(cmd.Context(), ids)
		if err != nil {
			fatal("failed to fetch assignments", err)
		}

		t := newTable(table.Row{"Course", "Assignment", "Type", "Opens", "Due"})
		for _, a := range assignments {
			t.AppendRow(table.Row{
				names[a.CourseId], a.Name, a.ModName,
				formatUnix(a.OpenDate), formatUnix(a.DueDate),
			})
		}
		t.Render()
	},
}
