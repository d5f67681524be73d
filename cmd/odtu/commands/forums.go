package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var forumsForum *int64

func init() {
	forumsForum = forumsCmd.Flags().Int64("forum", 0, "Show the discussions of this forum instead.")
	rootCmd.AddCommand(forumsCmd)
}

var forumsCmd = &cobra.Command{
	Use:   "forums <course id> [--forum <forum id>]",
	Short: "Lists the forums of a course, or the discussions of one forum.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		courseId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatal("invalid course id", err)
		}
		client := courseClient()

		if *forumsForum != 0 {
			discussions, err := client.ForumDiscussions(cmd.Context(), *forumsForum)
			if err != nil {
				fatal("failed to fetch discussions", err)
			}
			t := newTable(table.Row{"Posted", "Author", "Subject", "Message"})
			for _, d := range discussions {
				t.AppendRow(table.Row{
					formatUnix(d.Created), d.UserFullName, d.Name, truncate(d.Message, 80),
				})
			}
			t.Render()
			return
		}

		forums, err := client.Forums(cmd.Context(), []int64{courseId})
		if err != nil {
			fatal("failed to fetch forums", err)
		}
		t := newTable(table.Row{"ID", "Forum", "Type", "Discussions"})
		for _, forum := range forums {
			t.AppendRow(table.Row{forum.Id, forum.Name, forum.Type, forum.NumDiscussions})
		}
		t.Render()
	},
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
