package quality

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "eduaudit/internal/errors"
)

// Fetcher returns the body of a portal page.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (string, error)
}

// Category groups students by the marks that keep them from the next level.
type Category string

const (
	CategoryOneFour   Category = "one_four"
	CategoryTwoFours  Category = "two_fours"
	CategoryOneThree  Category = "one_three"
	CategoryTwoThrees Category = "two_threes"
)

// Categories lists the categories in workbook order.
var Categories = []Category{CategoryOneFour, CategoryTwoFours, CategoryOneThree, CategoryTwoThrees}

// StudentEntry is a student close to the next level: the subjects holding
// them back and the current average in each, both joined by newlines.
type StudentEntry struct {
	Name     string
	Subjects string
	Averages string
	Teacher  string
}

// Cells returns the entry as list columns after the class.
func (e StudentEntry) Cells() []Value {
	return []Value{Text(e.Name), Text(e.Subjects), Text(e.Averages), Text(e.Teacher)}
}

// GradePerformance is the class results page of one homeroom class.
type GradePerformance struct {
	Grade     string
	Teacher   string
	Subjects  []string
	Excellent []string
	Students  map[Category][]StudentEntry
}

// Count is the number of students in c.
func (g *GradePerformance) Count(c Category) int {
	return len(g.Students[c])
}

const studentAverageColumn = 6

// PerformanceParser reads class results pages and looks up the subject
// averages of the students it lists.
type PerformanceParser struct {
	fetcher     Fetcher
	reportsBase string
	pages       map[string]*goquery.Document
}

// NewPerformanceParser creates a parser. reportsBase prefixes the relative
// links of the student report pages.
func NewPerformanceParser(fetcher Fetcher, reportsBase string) *PerformanceParser {
	return &PerformanceParser{
		fetcher:     fetcher,
		reportsBase: reportsBase,
		pages:       make(map[string]*goquery.Document),
	}
}

// Parse reads the class results page of grade taught by teacher.
func (p *PerformanceParser) Parse(ctx context.Context, html, grade, teacher string) (*GradePerformance, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("class results table not found", nil)
	}

	header := texts(table.Find("thead tr").First().Find("td"))
	if len(header) < 3 {
		return nil, apperrors.NewUpstreamFormatError("class results header is too short", nil)
	}
	header = header[1:]

	g := &GradePerformance{
		Grade:    grade,
		Teacher:  teacher,
		Subjects: header[1 : len(header)-1],
		Students: make(map[Category][]StudentEntry),
	}

	var rowErr error
	table.Find("tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() < 3 {
			return true
		}
		cells := tds.Slice(1, tds.Length())
		nameCell := cells.First()
		name := shortName(nameCell.Text())
		marks := texts(cells.Slice(1, cells.Length()-1))
		avg := strings.TrimSpace(cells.Last().Text())

		if avg == "5" {
			g.Excellent = append(g.Excellent, name)
			return true
		}

		var fours, threes []int
		for i, m := range marks {
			switch m {
			case "4":
				fours = append(fours, i)
			case "3":
				threes = append(threes, i)
			}
		}

		var category Category
		var holding []int
		switch {
		case len(threes) == 0 && len(fours) == 1:
			category, holding = CategoryOneFour, fours
		case len(threes) == 0 && len(fours) == 2:
			category, holding = CategoryTwoFours, fours
		case len(threes) == 1:
			category, holding = CategoryOneThree, threes
		case len(threes) == 2:
			category, holding = CategoryTwoThrees, threes
		default:
			return true
		}

		href, _ := nameCell.Find("a").Last().Attr("href")
		link := p.reportsBase + href

		entry := StudentEntry{Name: name, Teacher: teacher}
		var subjects, avgs []string
		for _, idx := range holding {
			if idx >= len(g.Subjects) {
				continue
			}
			a, err := p.average(ctx, link, idx)
			if err != nil {
				rowErr = err
				return false
			}
			subjects = append(subjects, g.Subjects[idx])
			avgs = append(avgs, a)
		}
		entry.Subjects = strings.Join(subjects, "\n")
		entry.Averages = strings.Join(avgs, "\n")
		g.Students[category] = append(g.Students[category], entry)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return g, nil
}

// average reads the subject average of row index on a student report page.
func (p *PerformanceParser) average(ctx context.Context, link string, index int) (string, error) {
	doc, ok := p.pages[link]
	if !ok {
		html, err := p.fetcher.Get(ctx, link)
		if err != nil {
			return "", err
		}
		if doc, err = parseDocument(html); err != nil {
			return "", err
		}
		p.pages[link] = doc
	}

	row := doc.Find("table").First().Find("tbody tr").Eq(index)
	cell := row.Find("td").Eq(studentAverageColumn)
	if cell.Length() == 0 {
		return "", apperrors.NewUpstreamFormatError("student average not found", nil).
			WithContext("url", link)
	}
	return strings.TrimSpace(cell.Text()), nil
}

func shortName(s string) string {
	fields := strings.Fields(s)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, " ")
}
