package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var switchYear *int
var switchSemester *string

func init() {
	year, semester := defaultTerm(time.Now())
	switchYear = switchCmd.Flags().Int("year", year, "The year the academic term starts in.")
	switchSemester = switchCmd.Flags().String("semester", semester, "The semester: f (fall), s (spring) or u (summer).")
	rootCmd.AddCommand(switchCmd)
}

var switchCmd = &cobra.Command{
	Use:   "switch [--year <year>] [--semester <f|s|u>]",
	Short: "Switches to another semester by re-logging in on its host.",
	Run: func(cmd *cobra.Command, args []string) {
		client := courseClient()
		err := client.SwitchSemester(cmd.Context(), *switchYear, *switchSemester)
		if err != nil {
			fatal("failed to switch semester", err)
		}
		fmt.Printf("Switched to %s.\n", client.Session().SemesterDisplay())
	},
}
