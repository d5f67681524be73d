package report

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"odtucli/lib/textutil"
)

var ordinalSemesterRegex = regexp.MustCompile(`\d+\.SEMESTER`)

// grade vocabulary used to recognize a trailing grade token in a
// curriculum value cell
var gradeVocabulary = map[string]bool{
	"AA": true, "BA": true, "BB": true, "CB": true, "CC": true,
	"DC": true, "DD": true, "FD": true, "FF": true, "NA": true,
	"W": true, "S": true, "EX": true, "U": true, "P": true, "I": true,
}

// subset of the vocabulary that counts as completing the course
var passingGrades = map[string]bool{
	"AA": true, "BA": true, "BB": true, "CB": true, "CC": true,
	"DC": true, "DD": true, "S": true, "EX": true, "P": true,
}

// ParseCurriculum walks the semester blocks inside #curriculum. Each
// block pairs label cells (course codes) with value cells like
// "PHYS 105 MUST COURSE CC": the trailing token is a grade when it
// belongs to the grade vocabulary, the middle is the category.
func ParseCurriculum(doc *goquery.Document) []CurriculumSemester {
	var semesters []CurriculumSemester
	var current *CurriculumSemester

	doc.Find("#curriculum .box-table-curriculum").Each(func(_ int, block *goquery.Selection) {
		heading := textutil.CollapseSpace(
			block.Find(".box-table-head-curriculum .box-column-label-curriculum").Text(),
		)
		if ordinalSemesterRegex.MatchString(heading) {
			semesters = append(semesters, CurriculumSemester{Name: heading})
			current = &semesters[len(semesters)-1]
		}
		if current == nil {
			return
		}

		block.Find(".box-row-curriculum").Each(func(_ int, row *goquery.Selection) {
			label := textutil.CollapseSpace(row.Find(".box-column-label-curriculum").Text())
			value := textutil.CollapseSpace(row.Find(".box-column-value-curriculum").Text())
			if label == "" {
				return
			}
			current.Courses = append(current.Courses, curriculumCourse(label, value))
		})
	})

	return semesters
}

func curriculumCourse(label, value string) CurriculumCourse {
	course := CurriculumCourse{Code: label}

	// elective slots carry no code prefix in the value cell
	rest := strings.TrimSpace(strings.TrimPrefix(value, label))
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return course
	}

	last := parts[len(parts)-1]
	if gradeVocabulary[last] {
		course.Grade = last
		course.Category = strings.Join(parts[:len(parts)-1], " ")
	} else {
		course.Category = strings.Join(parts, " ")
	}

	course.Completed = passingGrades[course.Grade]
	return course
}
