package quality

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "eduaudit/internal/errors"
)

// GradeRange limits a table to the classes between From and To.
type GradeRange struct {
	From int
	To   int
}

// Options control how a report table is read.
type Options struct {
	// Crop keeps only the rows of the classes in the range and the summary
	// rows that follow them.
	Crop *GradeRange
	// PastYear moves every class label one year up so that last year's
	// rows line up with this year's classes.
	PastYear bool
}

// Crop is a convenience constructor for Options.Crop.
func Crop(from, to int) *GradeRange {
	return &GradeRange{From: from, To: to}
}

const qualityColumn = 3

// OverallTable is the school results table of one period.
type OverallTable struct {
	Header []string
	Rows   [][]Value

	grades    []string
	qualities *Qualities
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewUpstreamFormatError("parse html", err)
	}
	return doc, nil
}

func texts(s *goquery.Selection) []string {
	out := make([]string, 0, s.Length())
	s.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

func dropIndex[T any](s []T, i int) []T {
	if i < 0 || i >= len(s) {
		return s
	}
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// ParseOverall reads the school results page. The third column and the
// last three columns carry no quality data and are dropped, as is the
// closing total row.
func ParseOverall(html string, opts Options) (*OverallTable, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("school results table not found", nil)
	}

	t := &OverallTable{
		Header:    dropIndex(texts(table.Find("thead tr").First().Children()), 2),
		qualities: NewQualities(),
	}

	body := table.Find("tbody tr")
	if body.Length() > 0 {
		body = body.Slice(0, body.Length()-1)
	}
	body.Each(func(_ int, tr *goquery.Selection) {
		cells := texts(tr.Children())
		if len(cells) <= 3 {
			return
		}
		cells = dropIndex(cells[:len(cells)-3], 2)
		row := make([]Value, len(cells))
		for i, c := range cells {
			row[i] = Extract(c)
		}
		if len(row) > 0 {
			row[0] = Text(cells[0])
		}
		t.Rows = append(t.Rows, row)
	})

	if opts.Crop != nil {
		t.Rows = cropRows(t.Rows, *opts.Crop)
	}
	if opts.PastYear {
		shiftYear(t.Rows)
	}

	for _, row := range t.Rows {
		label := row[0].Text
		if !IsClassLabel(label) {
			continue
		}
		t.grades = append(t.grades, label)
		if len(row) > qualityColumn {
			t.qualities.Set(label, row[qualityColumn])
		}
	}
	return t, nil
}

// Grades returns the class labels of the table.
func (t *OverallTable) Grades() []string {
	return append([]string(nil), t.grades...)
}

// Qualities returns the quality value of every class.
func (t *OverallTable) Qualities() *Qualities {
	return t.qualities
}

// Merge appends the rows of other, used to join the 4-term and 2-term pages
// of one period.
func (t *OverallTable) Merge(other *OverallTable) {
	if other == nil {
		return
	}
	t.Rows = append(t.Rows, other.Rows...)
	t.grades = append(t.grades, other.grades...)
	t.qualities.Update(other.qualities)
}

// Grid returns the table for a workbook.
func (t *OverallTable) Grid() Grid {
	return Grid{Header: t.Header, Rows: t.Rows}
}

func isSummaryLabel(label string) bool {
	l := strings.ToLower(label)
	return strings.HasPrefix(l, "итог") || strings.HasPrefix(l, "5-9")
}

// cropRows keeps the rows from the first class of the range up to the
// first row that is neither a class of the range nor a summary row.
func cropRows(rows [][]Value, r GradeRange) [][]Value {
	start := -1
	for i, row := range rows {
		label := row[0].Text
		if IsClassLabel(label) && inGradeRange(label, r.From, r.To) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	end := len(rows)
	for i := start + 1; i < len(rows); i++ {
		label := rows[i][0].Text
		inRange := IsClassLabel(label) && inGradeRange(label, r.From, r.To)
		if !inRange && !isSummaryLabel(label) {
			end = i
			break
		}
	}
	return rows[start:end]
}

func shiftYear(rows [][]Value) {
	for _, row := range rows {
		if len(row) > 0 && IsClassLabel(row[0].Text) {
			row[0] = Text(IncrementGrade(row[0].Text))
		}
	}
}
