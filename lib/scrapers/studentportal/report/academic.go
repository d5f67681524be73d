package report

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"odtucli/lib/htmlutil"
	"odtucli/lib/textutil"
)

var academicHeadingRegex = regexp.MustCompile(`Semester:\s*(.+)`)

// ParseAcademicRecord recovers per-semester course and summary rows
// from the panels inside #academicRecordSheet.
func ParseAcademicRecord(doc *goquery.Document) []AcademicSemester {
	var semesters []AcademicSemester

	doc.Find("#academicRecordSheet .panel").Each(func(_ int, panel *goquery.Selection) {
		heading := textutil.CollapseSpace(panel.Find(".panel-heading").Text())
		groups := academicHeadingRegex.FindStringSubmatch(heading)
		if len(groups) != 2 {
			return
		}
		semester := AcademicSemester{Name: groups[1]}

		panel.Find("table tr").Each(func(_ int, row *goquery.Selection) {
			cells := htmlutil.RowCells(row)
			if allEmpty(cells) || cells[0] == "Courses" {
				return
			}

			switch {
			case strings.HasPrefix(cells[0], "GPA:"):
				semester.Summary.Gpa = strings.TrimSpace(strings.TrimPrefix(cells[0], "GPA:"))
				if len(cells) > 2 {
					semester.Summary.TotalCredits = cells[2]
				}
				if len(cells) > 3 {
					semester.Summary.TotalGradePoints = cells[3]
				}
			case strings.HasPrefix(cells[0], "Cum.GPA:"):
				semester.Summary.CumGpa = strings.TrimSpace(strings.TrimPrefix(cells[0], "Cum.GPA:"))
			case strings.HasPrefix(cells[0], "Standing:"):
				semester.Summary.Standing = strings.TrimSpace(strings.TrimPrefix(cells[0], "Standing:"))
			case cells[0] != "" && len(cells) >= 4:
				semester.Courses = append(semester.Courses, AcademicCourse{
					Name:        cells[0],
					Grade:       cells[1],
					Credit:      cells[2],
					GradePoints: cells[3],
				})
			}
		})

		semesters = append(semesters, semester)
	})

	return semesters
}

func allEmpty(cells []string) bool {
	for _, cell := range cells {
		if cell != "" {
			return false
		}
	}
	return true
}
