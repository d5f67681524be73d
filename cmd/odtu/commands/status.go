package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"odtucli/lib/scrapers/odtuclass"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the login state of both backends.",
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable(table.Row{"Backend", "Semester", "User", "Session"})

		course, err := odtuclass.NewClient(odtuclass.ClientOptions{})
		if err != nil {
			fatal("failed to initialize course client", err)
		}
		semester, user, state := "-", "-", "logged out"
		if course.EnsureAuthenticated() == nil {
			session := course.Session()
			semester = session.SemesterDisplay()
			user = session.Username
			if course.IsAuthenticated(cmd.Context()) {
				state = "active"
			} else {
				state = "expired"
			}
		}
		t.AppendRow(table.Row{"ODTUClass", semester, user, state})

		portal := portalClient()
		portalUser, portalState := "-", "logged out"
		if portal.EnsureAuthenticated(cmd.Context()) == nil {
			portalUser = portal.Session().Username
			portalState = "active"
		}
		t.AppendRow(table.Row{"Student portal", "-", portalUser, portalState})

		t.Render()
	},
}
