package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(announcementsCmd)
}

var announcementsCmd = &cobra.Command{
	Use:   "announcements",
	Short: "Lists announcements from the news forums of all enrolled courses.",
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

		announcements, err := client.Announcements(cmd.Context(), ids)
		if err != nil {
			fatal("failed to fetch announcements", err)
		}

		t := newTable(table.Row{"Posted", "Course", "Author", "Subject"})
		for _, a := range announcements {
			t.AppendRow(table.Row{
				formatUnix(a.Discussion.Created), names[a.CourseId],
				a.Discussion.UserFullName, a.Discussion.Name,
			})
		}
		t.Render()
	},
}
