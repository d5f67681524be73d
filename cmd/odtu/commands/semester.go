package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(semesterCmd)
}

var semesterCmd = &cobra.Command{
	Use:   "semester",
	Short: "Shows the current semester's registration and advisor.",
	Run: func(cmd *cobra.Command, args []string) {
		portal := portalClient()
		detail, err := portal.SemesterDetail(cmd.Context())
		if err != nil {
			fatal("failed to fetch semester detail", err)
		}

		t := newTable(table.Row{"Code", "Course", "Credit", "Category", "Section"})
		for _, course := range detail.RegistrationCourses {
			t.AppendRow(table.Row{course.Code, course.Name, course.Credit, course.Category, course.Section})
		}
		t.Render()

		if detail.Advisor != "" {
			fmt.Printf("Advisor: %s\n", detail.Advisor)
		}
	},
}
