package quality

import "eduaudit/pkg/contracts/domain"

// LowAverageThreshold is the journal average below which a student is listed.
const LowAverageThreshold = 3.0

// LowAverage is one student whose journal average is below the threshold.
type LowAverage struct {
	Grade   string
	Name    string
	Average float64
	Subject string
	Teacher string
}

// Cells returns the student as a workbook row.
func (l LowAverage) Cells() []Value {
	return []Value{Text(l.Grade), Text(l.Name), Num(l.Average), Text(l.Subject), Text(l.Teacher)}
}

// LowAverageHeader is the header of the low average sheet.
var LowAverageHeader = []string{"Класс", "Учащийся", "Ср. балл", "Предмет", "Учитель"}

// LowAverages returns the rows whose average parses as a number below the
// threshold. Rows without an average are skipped.
func LowAverages(grade, subject, teacher string, rows []domain.StudentRow) []LowAverage {
	var out []LowAverage
	for _, row := range rows {
		v := Extract(row.Average)
		if !v.IsNumber || v.Number >= LowAverageThreshold {
			continue
		}
		out = append(out, LowAverage{
			Grade:   grade,
			Name:    row.Name,
			Average: v.Number,
			Subject: subject,
			Teacher: teacher,
		})
	}
	return out
}
