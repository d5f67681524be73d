package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"odtucli/lib/scrapers/odtuclass"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clears the persisted sessions of both backends.",
	Run: func(cmd *cobra.Command, args []string) {
		course, err := odtuclass.NewClient(odtuclass.ClientOptions{})
		if err != nil {
			fatal("failed to initialize course client", err)
		}
		if err := course.Logout(); err != nil {
			fatal("failed to clear ODTUClass session", err)
		}

		portal := portalClient()
		if err := portal.Logout(); err != nil {
			fatal("failed to clear student portal session", err)
		}

		fmt.Println("Logged out.")
	},
}
