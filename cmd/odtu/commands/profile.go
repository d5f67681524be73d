package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Shows the student profile from the portal menu.",
	Run: func(cmd *cobra.Command, args []string) {
		portal := portalClient()
		data, err := portal.Profile(cmd.Context())
		if err != nil {
			fatal("failed to fetch profile", err)
		}

		var payload struct {
			Profile map[string]any `json:"profile"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || len(payload.Profile) == 0 {
			// unknown layout, show the raw payload instead of nothing
			fmt.Println(string(data))
			return
		}

		keys := make([]string, 0, len(payload.Profile))
		for key := range payload.Profile {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		t := newTable(table.Row{"Field", "Value"})
		for _, key := range keys {
			t.AppendRow(table.Row{key, fmt.Sprint(payload.Profile[key])})
		}
		t.Render()
	},
}
