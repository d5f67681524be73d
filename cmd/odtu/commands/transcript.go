package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(gpaCmd)
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Shows the full transcript from the student portal.",
	Run: func(cmd *cobra.Command, args []string) {
		portal := portalClient()
		transcript, err := portal.Transcript(cmd.Context())
		if err != nil {
			fatal("failed to fetch transcript", err)
		}

		student := transcript.Student
		fmt.Printf("%s %s (%s), %s\n\n", student.GivenName, student.FamilyName, student.StudentNo, student.Department)

		for _, semester := range transcript.Semesters {
			fmt.Println(semester.Name)
			t := newTable(table.Row{"Code", "Course", "Credit", "Grade"})
			for _, course := range semester.Courses {
				t.AppendRow(table.Row{course.Code, course.Name, course.Credit, course.Grade})
			}
			t.Render()
			if semester.Summary.CumGpa != "" {
				fmt.Printf("GPA %s  CumGPA %s  %s\n", semester.Summary.Gpa, semester.Summary.CumGpa, semester.Summary.Standing)
			}
			fmt.Println()
		}

		for _, note := range transcript.Notes {
			fmt.Println(note)
		}
	},
}

var gpaCmd = &cobra.Command{
	Use:   "gpa",
	Short: "Shows the GPA progression across semesters.",
	Run: func(cmd *cobra.Command, args []string) {
		portal := portalClient()
		transcript, err := portal.Transcript(cmd.Context())
		if err != nil {
			fatal("failed to fetch transcript", err)
		}

		t := newTable(table.Row{"Semester", "GPA", "CumGPA", "Standing"})
		for _, semester := range transcript.Semesters {
			t.AppendRow(table.Row{
				semester.Name, semester.Summary.Gpa,
				semester.Summary.CumGpa, semester.Summary.Standing,
			})
		}
		t.Render()
	},
}
