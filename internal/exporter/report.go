package exporter

import (
	"log/slog"

	"eduaudit/internal/quality"
)

// Report workbook file names.
const (
	OverallWorkbookName    = "Результативность работы школы за учебный период.xlsx"
	SubjectsWorkbookName   = "Результативность работы школы (по предметам) за учебный период.xlsx"
	StudentsWorkbookName   = "Итоги успеваемости класса за учебный период.xlsx"
	LowAverageWorkbookName = "Ср. балл ниже 3.xlsx"
)

const (
	tableGap   = 2
	sectionGap = 8
)

// Sheet names of the class results workbook.
const (
	ExcellentSheet  = "Кол-во отличников"
	LowAverageSheet = "Ученики"
)

// CategorySheets names the sheet of every student category.
var CategorySheets = map[quality.Category]string{
	quality.CategoryOneFour:   "С одной 4",
	quality.CategoryTwoFours:  "С двумя 4",
	quality.CategoryOneThree:  "С одной 3",
	quality.CategoryTwoThrees: "С двумя 3",
}

// ReportSheet is one sheet of grids written top to bottom. Wrap turns on
// wrapped, shrink-to-fit cells for long multi-line lists.
type ReportSheet struct {
	Name  string
	Grids []quality.Grid
	Wrap  bool
}

func writeGrid(s *SheetWriter, g quality.Grid) error {
	if g.Title != "" {
		if err := s.Append(g.Title); err != nil {
			return err
		}
	}
	if len(g.Header) > 0 {
		if err := s.AppendStrings(g.Header); err != nil {
			return err
		}
	}
	for _, row := range g.Rows {
		if err := s.Append(quality.Cells(row)...); err != nil {
			return err
		}
	}
	if g.Chart {
		if err := s.Chart(g.ChartWidth(), len(g.Rows)); err != nil {
			return err
		}
	}
	if g.Title != "" {
		s.Blank(sectionGap)
	} else {
		s.Blank(tableGap)
	}
	return nil
}

func gridWidth(grids []quality.Grid) int {
	width := 0
	for _, g := range grids {
		width = max(width, len(g.Header))
		for _, row := range g.Rows {
			width = max(width, len(row))
		}
	}
	return width
}

// WriteReport writes sheets to path.
func WriteReport(path string, sheets []ReportSheet, logger *slog.Logger) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	for _, sheet := range sheets {
		s, err := wb.Sheet(sheet.Name)
		if err != nil {
			return err
		}
		for _, g := range sheet.Grids {
			if err := writeGrid(s, g); err != nil {
				return err
			}
		}
		if sheet.Wrap {
			if err := s.Wrap(gridWidth(sheet.Grids)); err != nil {
				return err
			}
		}
	}
	return wb.SaveAs(path, logger)
}

// StudentsSheets lays out the class results summary: the excellent
// students first, then for each category the student list followed by the
// per-period counts and their chart.
func StudentsSheets(r *quality.StudentsReport, excellentHeader, countHeader []string) []ReportSheet {
	sheets := []ReportSheet{{
		Name:  ExcellentSheet,
		Grids: []quality.Grid{{Header: excellentHeader, Rows: r.Excellent}},
	}}
	for _, c := range quality.Categories {
		sheets = append(sheets, ReportSheet{
			Name: CategorySheets[c],
			Grids: []quality.Grid{
				{Header: quality.ListHeader, Rows: r.Lists[c]},
				{Header: countHeader, Rows: r.Counts[c], Chart: true},
			},
			Wrap: true,
		})
	}
	return sheets
}

// LowAverageSheets lays out the students whose journal average is below three.
func LowAverageSheets(rows []quality.LowAverage) []ReportSheet {
	grid := quality.Grid{Header: quality.LowAverageHeader}
	for _, r := range rows {
		grid.Rows = append(grid.Rows, r.Cells())
	}
	return []ReportSheet{{Name: LowAverageSheet, Grids: []quality.Grid{grid}}}
}
