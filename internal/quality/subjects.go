package quality

import (
	"github.com/PuerkitoBio/goquery"

	apperrors "eduaudit/internal/errors"
)

// SubjectsTable is the school results page broken down by subject. Every
// subject spans two columns on the page and only the quality one is kept.
type SubjectsTable struct {
	Header   []string
	Subjects []string
	Rows     [][]Value

	qualities map[string]*Qualities
}

// ParseSubjectsTable reads the by-subject results page.
func ParseSubjectsTable(html string, opts Options) (*SubjectsTable, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.table.no-print").First()
	if table.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("subjects results table not found", nil)
	}

	header := texts(table.Find("thead tr").First().Children())
	if len(header) < 2 {
		return nil, apperrors.NewUpstreamFormatError("subjects results header is empty", nil)
	}
	t := &SubjectsTable{
		Header:    header,
		Subjects:  header[1:],
		qualities: make(map[string]*Qualities, len(header)-1),
	}

	table.Find("tbody tr").Not("tr.tr_summary").Each(func(_ int, tr *goquery.Selection) {
		cells := texts(tr.Children())
		if len(cells) == 0 {
			return
		}
		row := []Value{Text(cells[0])}
		for i := 1; i < len(cells); i += 2 {
			row = append(row, Extract(cells[i]))
		}
		t.Rows = append(t.Rows, row)
	})

	if opts.Crop != nil {
		t.Rows = cropRows(t.Rows, *opts.Crop)
	}
	if opts.PastYear {
		shiftYear(t.Rows)
	}

	for idx, subject := range t.Subjects {
		q := NewQualities()
		for _, row := range t.Rows {
			if idx+1 < len(row) {
				q.Set(row[0].Text, row[idx+1])
			}
		}
		t.qualities[subject] = q
	}
	return t, nil
}

// Qualities returns the per-class values of subject, or nil when the
// period has no such subject.
func (t *SubjectsTable) Qualities(subject string) *Qualities {
	return t.qualities[subject]
}

// Merge appends the rows of other. Only subjects already present in t take
// the values of other.
func (t *SubjectsTable) Merge(other *SubjectsTable) {
	if other == nil {
		return
	}
	t.Rows = append(t.Rows, other.Rows...)
	for subject, q := range t.qualities {
		if oq, ok := other.qualities[subject]; ok {
			q.Update(oq)
		}
	}
}

// Grid returns the table for a workbook.
func (t *SubjectsTable) Grid() Grid {
	return Grid{Header: t.Header, Rows: t.Rows}
}

// SubjectQualitiesTables builds one trend grid per subject of the newest
// period. Subjects missing from an older period are filled with н/д.
func SubjectQualitiesTables(header []string, periods ...*SubjectsTable) []Grid {
	if len(periods) == 0 || periods[0] == nil {
		return nil
	}

	grids := make([]Grid, 0, len(periods[0].Subjects))
	for _, subject := range periods[0].Subjects {
		maps := make([]*Qualities, len(periods))
		for i, p := range periods {
			if p != nil {
				maps[i] = p.Qualities(subject)
			}
		}
		if maps[0] == nil || maps[0].Len() == 0 {
			continue
		}
		grids = append(grids, Grid{
			Title:  subject,
			Header: header,
			Rows:   MergeQualities(maps...),
			Chart:  true,
		})
	}
	return grids
}
