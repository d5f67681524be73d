package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"odtucli/lib/configutil"
	"odtucli/lib/scrapers/odtuclass"
	"odtucli/lib/scrapers/studentportal"
	"odtucli/lib/sessionstore"
)

// cliConfig holds optional defaults read from ~/.odtuclass/config.json5.
type cliConfig struct {
	Year      int    `json:"year"`
	Semester  string `json:"semester"`
	PortalUrl string `json:"portal_url"`
}

func loadCLIConfig() cliConfig {
	path, err := sessionstore.DefaultPath("config.json5")
	if err != nil {
		return cliConfig{}
	}
	cfg, err := configutil.Load[cliConfig](path)
	if err != nil {
		return cliConfig{}
	}
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "odtu",
	Short: "odtu is a CLI for the ODTUClass course system and the METU student portal.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

// courseClient returns a course backend client with the persisted
// session restored. Exits when there is none.
func courseClient() *odtuclass.Client {
	client, err := odtuclass.NewClient(odtuclass.ClientOptions{})
	if err != nil {
		fatal("failed to initialize course client", err)
	}
	if err := client.EnsureAuthenticated(); err != nil {
		fatal("not authenticated", err)
	}
	return client
}

func portalClient() *studentportal.Client {
	client, err := studentportal.NewClient(studentportal.ClientOptions{
		BaseUrl: loadCLIConfig().PortalUrl,
	})
	if err != nil {
		fatal("failed to initialize portal client", err)
	}
	return client
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return t
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}

// defaultTerm guesses the current academic term: fall runs September
// through January, spring through June, summer school after that.
func defaultTerm(now time.Time) (int, string) {
	year := now.Year()
	switch {
	case now.Month() >= time.September:
		return year, "f"
	case now.Month() == time.January:
		return year - 1, "f"
	case now.Month() <= time.June:
		return year - 1, "s"
	default:
		return year - 1, "u"
	}
}
