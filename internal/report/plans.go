package report

import (
	"context"
	"fmt"

	"eduaudit/internal/exporter"
	"eduaudit/internal/quality"
)

// Sheet names of the school results workbooks.
const (
	OverallSheet  = "Итог"
	SubjectsSheet = "По предметам"
	PastYearSheet = "Прошлый год"
)

// Upper class of the past year rows compared with the first term. Last
// year's 8th grades are this year's 9th.
const (
	pastYearTo     = 8
	seniorPastFrom = 9
	seniorPastTo   = 10
	// class results of odd terms end with the 9th grade
	performanceTo = 9
)

// pageSpec is one report page and how it is read.
type pageSpec struct {
	period period
	opts   quality.Options
}

// periodSpec is one column of the comparison. Its first page is merged
// with the others, for example the quarter page of grades 1-9 with the
// half-year page of grades 10-11.
type periodSpec struct {
	pages         []pageSpec
	sheet         string
	overallLabel  string
	subjectsLabel string
}

func termLabel(term int) string {
	return fmt.Sprintf("%d четверть", term)
}

func quarterPeriod(s *School, term int) periodSpec {
	return periodSpec{
		pages:         []pageSpec{{period: s.thisYear(4, term)}},
		sheet:         termLabel(term),
		overallLabel:  termLabel(term) + ", %",
		subjectsLabel: termLabel(term),
	}
}

func withHalfYear(spec periodSpec, s *School, half int) periodSpec {
	spec.pages = append(spec.pages, pageSpec{period: s.thisYear(2, half)})
	return spec
}

// periodsFor lists the periods compared in the report for term, newest first.
func periodsFor(s *School, term, startGrade int) []periodSpec {
	switch term {
	case 1:
		past := periodSpec{
			pages: []pageSpec{{
				period: s.pastYear(),
				opts:   quality.Options{Crop: quality.Crop(startGrade, pastYearTo), PastYear: true},
			}},
			sheet:         PastYearSheet,
			overallLabel:  "Прошлый уч.год, %",
			subjectsLabel: "Прошлый год",
		}
		return []periodSpec{quarterPeriod(s, 1), past}
	case 2:
		second := withHalfYear(quarterPeriod(s, 2), s, 1)
		second.overallLabel = "2 четверть/1 полугодие, %"

		first := quarterPeriod(s, 1)
		first.pages = append(first.pages, pageSpec{
			period: s.pastYear(),
			opts:   quality.Options{Crop: quality.Crop(seniorPastFrom, seniorPastTo), PastYear: true},
		})
		first.overallLabel = "1 четверть/Прошлый год, %"
		return []periodSpec{second, first}
	case 3:
		return []periodSpec{quarterPeriod(s, 3), quarterPeriod(s, 2), quarterPeriod(s, 1)}
	default:
		return []periodSpec{
			withHalfYear(quarterPeriod(s, 4), s, 2),
			quarterPeriod(s, 3),
			withHalfYear(quarterPeriod(s, 2), s, 1),
			quarterPeriod(s, 1),
		}
	}
}

// comparisonHeader is the trend table header: the class, the periods
// oldest first and the change.
func comparisonHeader(specs []periodSpec, label func(periodSpec) string, dynamics string) []string {
	header := []string{"Класс"}
	for i := len(specs) - 1; i >= 0; i-- {
		header = append(header, label(specs[i]))
	}
	return append(header, dynamics)
}

func (b *builder) overall(ctx context.Context, spec periodSpec) (*quality.OverallTable, error) {
	var table *quality.OverallTable
	for _, page := range spec.pages {
		t, err := b.school.Overall(ctx, page.period, page.opts)
		if err != nil {
			return nil, err
		}
		if table == nil {
			table = t
		} else {
			table.Merge(t)
		}
	}
	return table, nil
}

func (b *builder) subjects(ctx context.Context, spec periodSpec) (*quality.SubjectsTable, error) {
	var table *quality.SubjectsTable
	for _, page := range spec.pages {
		t, err := b.school.Subjects(ctx, page.period, page.opts)
		if err != nil {
			return nil, err
		}
		if table == nil {
			table = t
		} else {
			table.Merge(t)
		}
	}
	return table, nil
}

// overallSheets builds the school results workbook. The first sheet holds
// the newest period with the quality trend and its chart; every older
// period gets a sheet of its own.
func (b *builder) overallSheets(ctx context.Context) ([]exporter.ReportSheet, error) {
	specs := periodsFor(b.school, b.term, b.startGrade)
	tables := make([]*quality.OverallTable, len(specs))
	qualities := make([]*quality.Qualities, len(specs))
	for i, spec := range specs {
		t, err := b.overall(ctx, spec)
		if err != nil {
			return nil, err
		}
		tables[i], qualities[i] = t, t.Qualities()
	}

	header := comparisonHeader(specs, func(p periodSpec) string { return p.overallLabel }, "Динамика, %")
	sheets := []exporter.ReportSheet{{
		Name:  OverallSheet,
		Grids: []quality.Grid{tables[0].Grid(), quality.QualitiesTable(header, qualities...)},
	}}
	for i := 1; i < len(specs); i++ {
		sheets = append(sheets, exporter.ReportSheet{
			Name:  specs[i].sheet,
			Grids: []quality.Grid{tables[i].Grid()},
		})
	}
	return sheets, nil
}

// subjectsSheets builds the per-subject results workbook in the same
// layout, with one titled trend table per subject.
func (b *builder) subjectsSheets(ctx context.Context) ([]exporter.ReportSheet, error) {
	specs := periodsFor(b.school, b.term, b.startGrade)
	tables := make([]*quality.SubjectsTable, len(specs))
	for i, spec := range specs {
		t, err := b.subjects(ctx, spec)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}

	header := comparisonHeader(specs, func(p periodSpec) string { return p.subjectsLabel }, "Динамика")
	grids := append([]quality.Grid{tables[0].Grid()}, quality.SubjectQualitiesTables(header, tables...)...)
	sheets := []exporter.ReportSheet{{Name: SubjectsSheet, Grids: grids}}
	for i := 1; i < len(specs); i++ {
		sheets = append(sheets, exporter.ReportSheet{
			Name:  specs[i].sheet,
			Grids: []quality.Grid{tables[i].Grid()},
		})
	}
	return sheets, nil
}

// performanceCrop limits the class results of a term. Half-year classes
// only have results at even terms of an even report, so other periods stop
// at the 9th grade.
func performanceCrop(reportTerm, term, startGrade int) *quality.GradeRange {
	if term%2 == 0 && reportTerm%2 == 0 {
		return nil
	}
	return quality.Crop(startGrade, performanceTo)
}

// studentsSheets builds the class results workbook from the homeroom
// reports of every term up to the report term.
func (b *builder) studentsSheets(ctx context.Context) ([]exporter.ReportSheet, error) {
	teachers, err := b.school.Teachers(ctx, b.firstYear)
	if err != nil {
		return nil, err
	}
	parser := quality.NewPerformanceParser(b.fetcher, b.school.ReportsBase())

	periods := make([]*quality.Period, 0, b.term)
	for term := b.term; term >= 1; term-- {
		links, err := b.school.GradeLinks(ctx, teachers, term, performanceCrop(b.term, term, b.startGrade))
		if err != nil {
			return nil, err
		}
		p, err := b.school.Period(ctx, parser, links)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}

	excellentHeader := []string{"Класс"}
	countHeader := []string{"Класс"}
	for term := 1; term <= b.term; term++ {
		excellentHeader = append(excellentHeader, termLabel(term), "")
		countHeader = append(countHeader, termLabel(term))
	}
	if b.term > 1 {
		countHeader = append(countHeader, "Динамика")
	}

	return exporter.StudentsSheets(quality.StudentsPerformance(periods...), excellentHeader, countHeader), nil
}
