package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"odtucli/lib/scrapers/odtuclass"
)

var loginYear *int
var loginSemester *string

func init() {
	year, semester := defaultTerm(time.Now())
	loginYear = loginCmd.Flags().Int("year", year, "The year the academic term starts in.")
	loginSemester = loginCmd.Flags().String("semester", semester, "The semester: f (fall), s (spring) or u (summer).")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--year <year>] [--semester <f|s|u>]",
	Short: "Logs in to ODTUClass and the student portal.",
	Run: func(cmd *cobra.Command, args []string) {
		year, semester := *loginYear, *loginSemester
		cfg := loadCLIConfig()
		if !cmd.Flags().Changed("year") && cfg.Year != 0 {
			year = cfg.Year
		}
		if !cmd.Flags().Changed("semester") && cfg.Semester != "" {
			semester = cfg.Semester
		}

		username, password := promptCredentials()

		course, err := odtuclass.NewClient(odtuclass.ClientOptions{
			Year:     year,
			Semester: semester,
		})
		if err != nil {
			fatal("failed to initialize course client", err)
		}
		err = course.Login(cmd.Context(), username, password, func(step string) {
			fmt.Println(step)
		})
		if err != nil {
			fatal("ODTUClass login failed", err)
		}
		fmt.Printf("Logged in to ODTUClass, %s.\n", course.Session().SemesterDisplay())

		portal := portalClient()
		err = portal.Login(cmd.Context(), username, password)
		if err != nil {
			fatal("student portal login failed", err)
		}
		fmt.Println("Logged in to the student portal.")
	},
}

func promptCredentials() (string, string) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		fatal("failed to read username", err)
	}

	fmt.Print("Password: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fatal("failed to read password", err)
	}

	return strings.TrimSpace(username), string(secret)
}
