package report

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"odtucli/lib/textutil"
)

var timeSlotRegex = regexp.MustCompile(`^\d+:\d+$`)

var weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// ParseCourseSchedule scans rows inside #courseSchedule whose first
// cell is an HH:MM time label, mapping the remaining cells to weekdays
// positionally. Empty and placeholder cells are omitted.
func ParseCourseSchedule(doc *goquery.Document) []ScheduleSlot {
	var schedule []ScheduleSlot

	doc.Find("#courseSchedule table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			text := textutil.CollapseSpace(cell.Text())
			if text == "" {
				text = textutil.CollapseSpace(cell.Find(".tooltip, .class-info").Text())
			}
			cells = append(cells, text)
		})

		if len(cells) < 2 || !timeSlotRegex.MatchString(cells[0]) {
			return
		}

		slot := ScheduleSlot{Time: cells[0], Days: map[string]string{}}
		for i := 1; i < len(cells) && i <= len(weekdays); i++ {
			if len(cells[i]) > 1 {
				slot.Days[weekdays[i-1]] = cells[i]
			}
		}
		if len(slot.Days) > 0 {
			schedule = append(schedule, slot)
		}
	})

	return schedule
}
