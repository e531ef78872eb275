package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "eduaudit/internal/errors"
	"eduaudit/pkg/contracts/domain"
)

// Page is one parsed gradebook page.
type Page struct {
	Lessons []domain.LessonRecord
	Rows    []domain.StudentRow
	// Truncated is set when columns dated after today were dropped.
	Truncated bool
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewUpstreamFormatError("parse html", err)
	}
	return doc, nil
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func colspan(s *goquery.Selection) (int, bool, error) {
	raw, ok := s.Attr("colspan")
	if !ok {
		return 1, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, true, apperrors.NewUpstreamFormatError(fmt.Sprintf("bad colspan %q", raw), err)
	}
	return n, true, nil
}

// ParsePage reads the gradebook table of one page. year is the calendar
// year of the term and today bounds the columns that are kept.
func ParsePage(html string, year int, today time.Time) (*Page, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	return parseTable(doc, year, today)
}

func parseTable(doc *goquery.Document, year int, today time.Time) (*Page, error) {
	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("gradebook table not found", nil)
	}

	headRows := table.Find("thead tr")
	if headRows.Length() < 3 {
		return nil, apperrors.NewUpstreamFormatError(
			fmt.Sprintf("gradebook header has %d rows", headRows.Length()), nil)
	}

	dates, err := headerDates(headRows.Eq(0), headRows.Eq(1), year, today.Location())
	if err != nil {
		return nil, err
	}

	page := &Page{}
	limit := truncateDay(today)
	kept := len(dates)
	for i, d := range dates {
		if d.After(limit) {
			kept = i
			page.Truncated = true
			break
		}
	}
	dates = dates[:kept]

	typeCells := headRows.Last().Find("td")
	page.Lessons = make([]domain.LessonRecord, len(dates))
	for i, d := range dates {
		lesson := domain.LessonRecord{Date: d}
		if i < typeCells.Length() {
			cell := typeCells.Eq(i)
			lesson.Type = cellText(cell)
			title, _ := cell.Attr("title")
			lesson.HasMeta = strings.TrimSpace(title) != ""
		}
		page.Lessons[i] = lesson
	}

	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		n := cells.Length()
		if n < 4 {
			return
		}
		row := domain.StudentRow{
			Name:     ShortName(cells.Eq(1).Text()),
			Marks:    make([]string, len(dates)),
			Average:  cellText(cells.Eq(n - 2)),
			TermMark: cellText(cells.Eq(n - 1)),
		}
		cells.Slice(2, n-2).Each(func(j int, td *goquery.Selection) {
			if j < len(row.Marks) {
				row.Marks[j] = cellText(td)
			}
		})
		page.Rows = append(page.Rows, row)
	})

	return page, nil
}

// headerDates expands the month and day header rows into one date per
// lesson column. Months carry a colspan over their days and every day cell
// is repeated by its own colspan.
func headerDates(monthRow, dayRow *goquery.Selection, year int, loc *time.Location) ([]time.Time, error) {
	type monthSpan struct {
		month time.Month
		count int
	}

	var months []monthSpan
	var err error
	monthRow.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		n, has, cerr := colspan(td)
		if cerr != nil {
			err = cerr
			return false
		}
		if !has {
			return true
		}
		m, merr := parseMonth(cellText(td))
		if merr != nil {
			err = merr
			return false
		}
		months = append(months, monthSpan{month: m, count: n})
		return true
	})
	if err != nil {
		return nil, err
	}

	var days []int
	dayRow.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		n, _, cerr := colspan(td)
		if cerr != nil {
			err = cerr
			return false
		}
		day, aerr := strconv.Atoi(cellText(td))
		if aerr != nil {
			err = apperrors.NewUpstreamFormatError(fmt.Sprintf("bad day %q", cellText(td)), aerr)
			return false
		}
		for k := 0; k < n; k++ {
			days = append(days, day)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	for _, span := range months {
		if span.count > len(days) {
			return nil, apperrors.NewUpstreamFormatError("month header is wider than the day header", nil)
		}
		for _, day := range days[:span.count] {
			d, derr := lessonDate(day, span.month, year, loc)
			if derr != nil {
				return nil, derr
			}
			dates = append(dates, d)
		}
		days = days[span.count:]
	}
	return dates, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ShortName keeps the surname and the first name of a student cell.
func ShortName(s string) string {
	fields := strings.Fields(s)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, " ")
}

// Teacher returns the teacher name shown above the table, or "" when the
// page has none. The first word of the line is a label and is dropped.
func Teacher(doc *goquery.Document) string {
	line := doc.Find("div.line.last").First()
	if line.Length() == 0 {
		return ""
	}
	fields := strings.Fields(line.Text())
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// pageTokens returns the pager entries that are page numbers or ">>".
func pageTokens(doc *goquery.Document, withNext bool) []string {
	var tokens []string
	for _, tok := range strings.Fields(doc.Find(".pages").First().Text()) {
		if isDigits(tok) || (withNext && tok == ">>") {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
