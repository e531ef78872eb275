package exporter

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts/domain"
)

// FindingsCSVName is the flat findings export written next to the workbook.
const FindingsCSVName = "Проверка журналов.csv"

// utf8BOM helps Excel recognize UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FindingRecord is one warning flattened with its gradebook coordinates.
type FindingRecord struct {
	Grade   string `csv:"Класс"`
	Subject string `csv:"Предмет"`
	Teacher string `csv:"Учитель"`
	Term    int    `csv:"Четверть"`
	Message string `csv:"Замечание"`
	Date    string `csv:"Дата"`
}

// FlattenFindings turns grouped findings into one record per warning.
func FlattenFindings(findings []domain.SubjectFindings) []*FindingRecord {
	var records []*FindingRecord
	for _, f := range findings {
		for _, tw := range f.Terms {
			for _, w := range tw.Warnings {
				records = append(records, &FindingRecord{
					Grade:   f.Grade,
					Subject: f.Subject,
					Teacher: f.Teacher,
					Term:    tw.Term,
					Message: w.Message,
					Date:    w.Date,
				})
			}
		}
	}
	return records
}

// WriteFindingsCSV writes the flat findings to path with a UTF-8 BOM.
func WriteFindingsCSV(path string, findings []domain.SubjectFindings, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "exporter")

	records := FlattenFindings(findings)
	logger.Info("Writing findings CSV",
		slog.String("path", path),
		slog.Int("record_count", len(records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create reports directory", err).WithContext("path", path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return apperrors.NewStorageError("open csv file", err).WithContext("path", path)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return apperrors.NewStorageError("write BOM", err).WithContext("path", path)
	}
	if err := gocsv.Marshal(&records, file); err != nil {
		return apperrors.NewStorageError("write csv", err).WithContext("path", path)
	}
	return nil
}

// ReadFindingsCSV loads a findings file written by WriteFindingsCSV.
func ReadFindingsCSV(path string) ([]*FindingRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("open csv file", err).WithContext("path", path)
	}
	defer file.Close()

	var records []*FindingRecord
	if err := gocsv.Unmarshal(skipBOM(file), &records); err != nil {
		return nil, apperrors.NewStorageError("read csv", err).WithContext("path", path)
	}
	return records, nil
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
