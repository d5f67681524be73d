package report

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"odtucli/lib/textutil"
)

var advisorRegex = regexp.MustCompile(`Advisor\s+([\w\s.]+)`)

// ParseSemesterDetail reads the registration course table (rows with at
// least seven cells) and the advisor name out of #semesterDetail.
func ParseSemesterDetail(doc *goquery.Document) SemesterDetail {
	tab := doc.Find("#semesterDetail")
	detail := SemesterDetail{}

	tab.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, textutil.CollapseSpace(cell.Text()))
		})
		if len(cells) < 7 || cells[0] == "" {
			return
		}

		course := RegistrationCourse{
			Code:             cells[0],
			Name:             cells[1],
			Credit:           cells[2],
			ReplaceCode:      cells[3],
			ReplaceName:      cells[4],
			ReplacedSemester: cells[5],
			Category:         cells[6],
		}
		if len(cells) > 7 {
			course.Section = cells[7]
		}
		detail.RegistrationCourses = append(detail.RegistrationCourses, course)
	})

	if groups := advisorRegex.FindStringSubmatch(tab.Text()); len(groups) == 2 {
		detail.Advisor = strings.TrimSpace(groups[1])
	}

	return detail
}
