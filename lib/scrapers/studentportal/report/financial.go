package report

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"odtucli/lib/textutil"
)

// ParseFinancial scans every table on the page for the tuition and
// library marker phrases and reads the first data row's leading cells.
func ParseFinancial(doc *goquery.Document) Financial {
	result := Financial{
		Tuition: Tuition{Debt: "0.00", Payment: "0.00"},
	}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		text := table.Text()

		if strings.Contains(text, "Total Debt") && strings.Contains(text, "Total Payment") {
			if cells, ok := firstDataRow(table); ok {
				if cells[0] != "" {
					result.Tuition.Debt = cells[0]
				}
				if cells[1] != "" {
					result.Tuition.Payment = cells[1]
				}
			}
		}

		if strings.Contains(text, "Book Amount") && strings.Contains(text, "Debt") {
			if cells, ok := firstDataRow(table); ok {
				result.Library.Books = cells[0]
				result.Library.Debt = cells[1]
				if result.Library.Books == "" {
					result.Library.Books = "0"
				}
				if result.Library.Debt == "" {
					result.Library.Debt = "0 TL"
				}
			}
		}
	})

	return result
}

// firstDataRow returns the cells of the first row holding at least two
// td cells.
func firstDataRow(table *goquery.Selection) ([]string, bool) {
	var found []string
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, textutil.CollapseSpace(cell.Text()))
		})
		if len(cells) >= 2 {
			found = cells
			return false
		}
		return true
	})
	return found, found != nil
}
