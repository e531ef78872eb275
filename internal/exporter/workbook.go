package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
)

const defaultSheet = "Sheet1"

// Chart labels shared by every report workbook.
const (
	ChartYAxis = "Качество, %"
	ChartXAxis = "Классы"
	chartCol   = "K"
)

// Workbook is an excelize file written sheet by sheet, top to bottom.
type Workbook struct {
	file   *excelize.File
	sheets map[string]*SheetWriter
	order  []string
	bold   int
	wrap   int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, apperrors.NewStorageError("create bold style", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, ShrinkToFit: true, Vertical: "top"},
	})
	if err != nil {
		return nil, apperrors.NewStorageError("create wrap style", err)
	}
	return &Workbook{
		file:   f,
		sheets: make(map[string]*SheetWriter),
		bold:   bold,
		wrap:   wrap,
	}, nil
}

// Sheet returns the writer of name, creating the sheet on first use.
func (w *Workbook) Sheet(name string) (*SheetWriter, error) {
	if s, ok := w.sheets[name]; ok {
		return s, nil
	}

	if len(w.order) == 0 {
		if err := w.file.SetSheetName(defaultSheet, name); err != nil {
			return nil, apperrors.NewStorageError("rename sheet", err).WithContext("sheet", name)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return nil, apperrors.NewStorageError("create sheet", err).WithContext("sheet", name)
	}

	s := &SheetWriter{wb: w, name: name}
	w.sheets[name] = s
	w.order = append(w.order, name)
	return s, nil
}

// SheetNames returns the sheets in creation order.
func (w *Workbook) SheetNames() []string {
	return append([]string(nil), w.order...)
}

// SaveAs writes the workbook to path, creating its directory.
func (w *Workbook) SaveAs(path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "exporter")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create reports directory", err).WithContext("path", path)
	}
	w.file.SetActiveSheet(0)
	if err := w.file.SaveAs(path); err != nil {
		return apperrors.NewStorageError("save workbook", err).WithContext("path", path)
	}

	logger.Info("Workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(w.order)))
	return nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetWriter appends rows to one sheet.
type SheetWriter struct {
	wb   *Workbook
	name string
	row  int
}

// Row is the number of the last written row.
func (s *SheetWriter) Row() int {
	return s.row
}

// Append writes cells on the next row.
func (s *SheetWriter) Append(cells ...interface{}) error {
	s.row++
	if len(cells) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return apperrors.NewStorageError("cell name", err)
	}
	if err := s.wb.file.SetSheetRow(s.name, cell, &cells); err != nil {
		return apperrors.NewStorageError("write row", err).WithContext("sheet", s.name)
	}
	return nil
}

// AppendStrings writes a row of text cells.
func (s *SheetWriter) AppendStrings(cells []string) error {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return s.Append(row...)
}

// Bold writes one bold cell on the next row.
func (s *SheetWriter) Bold(text string) error {
	if err := s.Append(text); err != nil {
		return err
	}
	cell, _ := excelize.CoordinatesToCellName(1, s.row)
	if err := s.wb.file.SetCellStyle(s.name, cell, cell, s.wb.bold); err != nil {
		return apperrors.NewStorageError("style cell", err)
	}
	return nil
}

// Blank skips n rows.
func (s *SheetWriter) Blank(n int) {
	s.row += n
}

// Wrap applies wrap and shrink alignment to the used columns.
func (s *SheetWriter) Wrap(columns int) error {
	if s.row == 0 || columns < 1 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(columns, s.row)
	if err != nil {
		return apperrors.NewStorageError("cell name", err)
	}
	if err := s.wb.file.SetCellStyle(s.name, "A1", last, s.wb.wrap); err != nil {
		return apperrors.NewStorageError("style range", err).WithContext("sheet", s.name)
	}
	return nil
}

// Chart draws a clustered column chart over the block that ends at the
// current row. The block is a header row followed by height data rows;
// columns 2..width+1 are the series and column 1 holds the categories.
func (s *SheetWriter) Chart(width, height int) error {
	if width < 1 || height < 1 {
		return nil
	}
	header := s.row - height
	if header < 1 {
		return nil
	}
	first, last := header+1, s.row
	quoted := fmt.Sprintf("'%s'", s.name)

	series := make([]excelize.ChartSeries, 0, width)
	for c := 2; c <= width+1; c++ {
		col, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return apperrors.NewStorageError("column name", err)
		}
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$%d", quoted, col, header),
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", quoted, first, last),
			Values:     fmt.Sprintf("%s!$%s$%d:$%s$%d", quoted, col, first, col, last),
		})
	}

	chart := &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Format: excelize.GraphicOptions{OffsetX: 5, OffsetY: 5},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: ChartXAxis}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: ChartYAxis}}, MajorGridLines: true},
		PlotArea: excelize.ChartPlotArea{
			ShowVal: true,
		},
	}
	anchor := fmt.Sprintf("%s%d", chartCol, header)
	if err := s.wb.file.AddChart(s.name, anchor, chart); err != nil {
		return apperrors.NewStorageError("add chart", err).WithContext("sheet", s.name)
	}
	return nil
}
