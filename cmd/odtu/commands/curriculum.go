package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(curriculumCmd)
}

var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Shows the program curriculum and which courses are completed.",
	Run: func(cmd *cobra.Command, args []string) {
		portal := portalClient()
		semesters, err := portal.Curriculum(cmd.Context())
		if err != nil {
			fatal("failed to fetch curriculum", err)
		}

		for _, semester := range semesters {
			fmt.Println(semester.Name)
			t := newTable(table.Row{"Code", "Category", "Grade", "Completed"})
			for _, course := range semester.Courses {
				completed := ""
				if course.Completed {
					completed = "yes"
				}
				t.AppendRow(table.Row{course.Code, course.Category, course.Grade, completed})
			}
			t.Render()
			fmt.Println()
		}
	},
}
