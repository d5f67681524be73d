package report

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"odtucli/lib/htmlutil"
	"odtucli/lib/textutil"
)

var studentFields = []struct {
	label  string
	assign func(*StudentMeta, string)
}{
	{"Family Name", func(m *StudentMeta, v string) { m.FamilyName = v }},
	{"Given Name", func(m *StudentMeta, v string) { m.GivenName = v }},
	{"Student No", func(m *StudentMeta, v string) { m.StudentNo = v }},
	{"Faculty", func(m *StudentMeta, v string) { m.Faculty = v }},
	{"Department / Program", func(m *StudentMeta, v string) { m.Department = v }},
	{"Date of Entry", func(m *StudentMeta, v string) { m.DateOfEntry = v }},
	{"REASON OF LEAVING", func(m *StudentMeta, v string) { m.ReasonOfLeaving = v }},
	{"DATE OF LEAVING", func(m *StudentMeta, v string) { m.DateOfLeaving = v }},
}

var (
	semesterNameRegex = regexp.MustCompile(`^\d{4}-\d{4}`)
	cumGpaRegex       = regexp.MustCompile(`CumGPA:\s*([\d,.]+)`)
	// \b keeps this from matching inside "CumGPA:"
	gpaRegex      = regexp.MustCompile(`\bGPA:\s*([\d,.]+)`)
	totalCrRegex  = regexp.MustCompile(`TOT\.CR:\s*([\d,.]+)`)
	totalGrRegex  = regexp.MustCompile(`TOT\.GR:\s*([\d,.]+)`)
	standingRegex = regexp.MustCompile(`STAN:\s*(\w+(?:\s+\w+)?)`)
	trailingStar  = regexp.MustCompile(`\s*\*\s*$`)
	noteRegexes   = []*regexp.Regexp{
		regexp.MustCompile(`(?m)She/He attended.*$`),
		regexp.MustCompile(`(?m)The above mentioned.*$`),
	}
)

// ParseTranscript recovers the transcript record from the
// #studentTranscript container: labeled student metadata, semester
// blocks with course rows and cumulative summary lines, and trailing
// free-text notes.
func ParseTranscript(doc *goquery.Document) Transcript {
	tab := doc.Find("#studentTranscript")
	result := Transcript{}

	fullText := tab.Text()
	for _, field := range studentFields {
		pattern := regexp.MustCompile(regexp.QuoteMeta(field.label) + `\s+([^\n]+?)(?:\s{2,}|\n|$)`)
		if groups := pattern.FindStringSubmatch(fullText); len(groups) == 2 {
			field.assign(&result.Student, strings.TrimSpace(groups[1]))
		}
	}

	table := tab.Find("table").First()
	var current *TranscriptSemester

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := htmlutil.RowCells(row)
		if len(cells) == 0 || cells[0] == "Course Code" {
			return
		}

		// semester header: a single merged cell naming the term
		if len(cells) <= 2 && semesterNameRegex.MatchString(cells[0]) {
			result.Semesters = append(result.Semesters, TranscriptSemester{Name: cells[0]})
			current = &result.Semesters[len(result.Semesters)-1]
			return
		}

		if strings.HasPrefix(cells[0], "CumGPA:") {
			if current != nil {
				current.Summary = parseSummaryLine(strings.Join(cells, " "))
			}
			return
		}

		if strings.HasPrefix(cells[0], "SEM.NO:") {
			return
		}

		if current != nil && len(cells) >= 4 && cells[0] != "" {
			current.Courses = append(current.Courses, courseLineFromCells(cells))
		}
	})

	noteText := table.Parent().Text()
	for _, pattern := range noteRegexes {
		if note := pattern.FindString(noteText); note != "" {
			result.Notes = append(result.Notes, textutil.CollapseSpace(note))
		}
	}

	return result
}

func parseSummaryLine(text string) Summary {
	summary := Summary{}
	if groups := cumGpaRegex.FindStringSubmatch(text); len(groups) == 2 {
		summary.CumGpa = textutil.NormalizeDecimal(groups[1])
	}
	if groups := gpaRegex.FindStringSubmatch(text); len(groups) == 2 {
		summary.Gpa = textutil.NormalizeDecimal(groups[1])
	}
	if groups := totalCrRegex.FindStringSubmatch(text); len(groups) == 2 {
		summary.TotalCredits = textutil.NormalizeDecimal(groups[1])
	}
	if groups := totalGrRegex.FindStringSubmatch(text); len(groups) == 2 {
		summary.TotalGradePoints = textutil.NormalizeDecimal(groups[1])
	}
	if groups := standingRegex.FindStringSubmatch(text); len(groups) == 2 {
		summary.Standing = groups[1]
	}
	return summary
}

func courseLineFromCells(cells []string) CourseLine {
	line := CourseLine{Code: cells[0]}
	if len(cells) > 1 {
		line.Name = cells[1]
	}
	if len(cells) > 2 {
		line.Credit = trailingStar.ReplaceAllString(textutil.NormalizeDecimal(cells[2]), "")
	}
	if len(cells) > 3 {
		// repeat grades render as "CC CC"; the first token wins
		grade := strings.Fields(cells[3])
		if len(grade) > 0 {
			line.Grade = trailingStar.ReplaceAllString(grade[0], "")
		}
	}
	if len(cells) > 4 {
		line.TotalCredit = stripMarkers(textutil.NormalizeDecimal(cells[4]))
	}
	if len(cells) > 5 {
		line.EctsCredit = stripMarkers(cells[5])
	}
	return line
}

// stripMarkers removes the asterisk and "(NTE)" annotations the report
// appends to credit cells.
func stripMarkers(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune("*()NTE \t", r) {
			return -1
		}
		return r
	}, s)
}
