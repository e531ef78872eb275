package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts/domain"
)

// SheetsPublisher mirrors the flat findings into a Google spreadsheet.
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewSheetsPublisher creates a publisher. Pass option.WithCredentialsFile
// for a service account, or an endpoint override in tests.
func NewSheetsPublisher(ctx context.Context, spreadsheetID, sheetName string, logger *slog.Logger, opts ...option.ClientOption) (*SheetsPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create sheets service", err)
	}
	return &SheetsPublisher{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        infrastructure.WithComponent(logger, "sheets"),
	}, nil
}

// Publish replaces the sheet content with a header and one row per warning.
func (p *SheetsPublisher) Publish(ctx context.Context, findings []domain.SubjectFindings) error {
	records := FlattenFindings(findings)

	values := make([][]interface{}, 0, len(records)+1)
	values = append(values, []interface{}{"Класс", "Предмет", "Учитель", "Четверть", "Замечание", "Дата"})
	for _, r := range records {
		values = append(values, []interface{}{r.Grade, r.Subject, r.Teacher, r.Term, r.Message, r.Date})
	}

	if _, err := p.service.Spreadsheets.Values.Clear(p.spreadsheetID, p.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return apperrors.NewNetworkError("failed to clear sheet", err).WithContext("sheet", p.sheetName)
	}

	rangeStr := fmt.Sprintf("%s!A1", p.sheetName)
	_, err := p.service.Spreadsheets.Values.Update(p.spreadsheetID, rangeStr, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return apperrors.NewNetworkError("failed to update sheet", err).WithContext("sheet", p.sheetName)
	}

	p.logger.InfoContext(ctx, "Findings published",
		slog.String("spreadsheet_id", p.spreadsheetID),
		slog.Int("rows", len(records)))
	return nil
}
