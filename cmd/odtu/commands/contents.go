package commands

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(contentsCmd)
}

var contentsCmd = &cobra.Command{
	Use:   "contents <course id>",
	Short: "Lists the sections and activities of a course.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		courseId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatal("invalid course id", err)
		}

		client := courseClient()
		sections, err := client.CourseContents(cmd.Context(), courseId)
		if err != nil {
			fatal("failed to fetch course contents", err)
		}

		for _, section := range sections {
			if len(section.Modules) == 0 {
				continue
			}
			fmt.Println(section.Name)
			t := newTable(table.Row{"ID", "Activity", "Type", "URL"})
			for _, module := range section.Modules {
				t.AppendRow(table.Row{module.Id, module.Name, module.ModName, module.Url})
			}
			t.Render()
		}
	},
}
