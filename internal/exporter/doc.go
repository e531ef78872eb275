// Package exporter writes run results to disk and to external sheets.
//
// Workbook wraps an excelize file with a row cursor per sheet so that the
// layouts read top to bottom: WriteCheckByClass and WriteCheckByTeacher
// produce the journal check workbook, WriteReport the summary reports.
// Charts are clustered columns anchored at column K next to the block they
// plot.
//
// WriteFindingsCSV flattens the same findings with gocsv, and
// SheetsPublisher mirrors them into a Google spreadsheet.
package exporter
