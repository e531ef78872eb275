package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduaudit/pkg/contracts/domain"
)

var today = time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)

func defaultThresholds() domain.ThresholdConfig {
	return domain.ThresholdConfig{
		MinFor5:       4.5,
		MinFor4:       3.5,
		MinFor3:       2.5,
		LessonPercent: 25,
		TermPercent:   30,
	}
}

func lessons(types ...string) []domain.LessonRecord {
	out := make([]domain.LessonRecord, len(types))
	for i, typ := range types {
		out[i] = domain.LessonRecord{
			Date:    time.Date(2024, time.October, 1+i, 0, 0, 0, 0, time.UTC),
			Type:    typ,
			HasMeta: true,
		}
	}
	return out
}

func rows(marks ...[]string) []domain.StudentRow {
	out := make([]domain.StudentRow, len(marks))
	for i, m := range marks {
		out[i] = domain.StudentRow{Marks: m}
	}
	return out
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "02 октября", FormatDate(time.Date(2024, time.October, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "31 декабря", FormatDate(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", FormatDate(time.Time{}))
}

func TestExpectedTermMark(t *testing.T) {
	cfg := defaultThresholds()

	tests := []struct {
		avg  float64
		want int
	}{
		{5.0, 5},
		{4.5, 5},
		{4.49, 4},
		{3.5, 4},
		{3.49, 3},
		{2.5, 3},
		{2.49, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.avg), func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedTermMark(tt.avg, cfg))
		})
	}
}

func TestTermMarks_NoWarningIffBucketMatches(t *testing.T) {
	configs := []domain.ThresholdConfig{
		defaultThresholds(),
		{MinFor5: 4.6, MinFor4: 3.6, MinFor3: 2.6},
		{MinFor5: 4.0, MinFor4: 3.0, MinFor3: 2.0},
	}
	averages := []string{"2.6", "3,0", "3.55", "4.1", "4.5", "4.65", "5"}

	for _, cfg := range configs {
		for _, avgText := range averages {
			for mark := 2; mark <= 5; mark++ {
				avg, _ := parseAverage(avgText)
				want := ExpectedTermMark(avg, cfg)
				in := Input{Rows: []domain.StudentRow{{Average: avgText, TermMark: fmt.Sprint(mark)}}}

				warns := TermMarks(in, cfg)
				if want == mark || want == 0 {
					assert.Empty(t, warns, "cfg=%v avg=%s mark=%d", cfg, avgText, mark)
				} else {
					assert.Equal(t, []domain.Warning{{Message: fmt.Sprintf(MsgTermMismatch, 1)}}, warns)
				}
			}
		}
	}
}

func TestTermMarks_MissingValues(t *testing.T) {
	in := Input{Rows: []domain.StudentRow{
		{Average: "4,75", TermMark: "5"},
		{Average: "", TermMark: "4"},
		{Average: "3.8", TermMark: " "},
		{Average: "4.6", TermMark: "4"},
	}}

	warns := TermMarks(in, defaultThresholds())

	assert.Equal(t, []domain.Warning{
		{Message: "Нет среднего балла. Строка 2"},
		{Message: "Нет четвертной оценки. Строка 3"},
		{Message: "Несоответствие средней и четвертной оценок. Строка 4"},
	}, warns)
}

func TestTermMarks_TermMarkCheckedFirst(t *testing.T) {
	tests := []struct {
		name string
		row  domain.StudentRow
		want []domain.Warning
	}{
		{"both empty", domain.StudentRow{Average: "", TermMark: ""},
			[]domain.Warning{{Message: "Нет четвертной оценки. Строка 1"}}},
		{"not assessed with high average", domain.StudentRow{Average: "4,8", TermMark: "н/а"},
			[]domain.Warning{{Message: "Нет четвертной оценки. Строка 1"}}},
		{"pass note", domain.StudentRow{Average: "4,8", TermMark: "зач"},
			[]domain.Warning{{Message: "Нет четвертной оценки. Строка 1"}}},
		{"not assessed with low average", domain.StudentRow{Average: "2,0", TermMark: "н/а"},
			[]domain.Warning{{Message: "Нет четвертной оценки. Строка 1"}}},
		{"low average has no expectation", domain.StudentRow{Average: "2,0", TermMark: "2"}, nil},
		{"padded digits", domain.StudentRow{Average: "4,8", TermMark: " 5 "}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warns := TermMarks(Input{Rows: []domain.StudentRow{tt.row}}, defaultThresholds())
			assert.Equal(t, tt.want, warns)
		})
	}
}

func TestControlWork(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  []string
	}{
		{"control work then error review", []string{"КР", "РО", "КР", "СР"}, []string{"03 октября"}},
		{"dictation without review", []string{"Д", "У"}, []string{"01 октября"}},
		{"last column exempt", []string{"У", "РО", "КР"}, nil},
		{"all reviewed", []string{"КР", "РО", "Д", "РО"}, nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warns := ControlWork(Input{Lessons: lessons(tt.types...)}, defaultThresholds())
			var dates []string
			for _, w := range warns {
				assert.Equal(t, MsgNoErrorReview, w.Message)
				dates = append(dates, w.Date)
			}
			assert.Equal(t, tt.want, dates)
		})
	}
}

func TestMeta(t *testing.T) {
	ls := lessons("У", "У", "У")
	ls[1].HasMeta = false

	warns := Meta(Input{Lessons: ls}, defaultThresholds())

	assert.Equal(t, []domain.Warning{{Message: MsgNoMeta, Date: "02 октября"}}, warns)
}

func TestStudentsFill(t *testing.T) {
	in := Input{
		Lessons: lessons("У", "У", "У", "У", "У", "У", "У", "У", "У", "У"),
		Rows: rows(
			[]string{"5", "", "", "", "", "", "", "", "", "4"},
			[]string{"5", "4", "3", "", "", "", "", "", "", ""},
			[]string{"н", "н", "5", "", "", "", "", "", "", ""},
		),
	}

	warns := StudentsFill(in, defaultThresholds())

	assert.Equal(t, []domain.Warning{
		{Message: "У ученика мало оценок за четверть. Строка 1"},
		{Message: "У ученика мало оценок за четверть. Строка 3"},
	}, warns)
}

func TestStudentsFill_OrderIndependent(t *testing.T) {
	cfg := defaultThresholds()
	cfg.TermPercent = 50

	original := Input{
		Lessons: lessons("У", "У", "У", "У"),
		Rows:    rows([]string{"5", "", "", "4"}, []string{"", "", "3", ""}),
	}
	reordered := Input{
		Lessons: lessons("У", "У", "У", "У"),
		Rows:    rows([]string{"", "4", "5", ""}, []string{"3", "", "", ""}),
	}

	assert.Equal(t, StudentsFill(original, cfg), StudentsFill(reordered, cfg))
	assert.Len(t, StudentsFill(original, cfg), 1)
}

func TestStudentsFill_NoLessons(t *testing.T) {
	in := Input{Rows: rows([]string{})}
	assert.Empty(t, StudentsFill(in, defaultThresholds()))
}

func TestDoubleTwo(t *testing.T) {
	in := Input{
		Lessons: lessons("У", "У", "У", "У"),
		Rows: rows(
			[]string{"2", "2", "3", "2"},
			[]string{"2", "", "2", "4"},
			[]string{"5", "2", "2", "2"},
		),
	}

	warns := DoubleTwo(in, defaultThresholds())

	assert.Equal(t, []domain.Warning{
		{Message: MsgConsecutiveTwos, Date: "02 октября"},
		{Message: MsgConsecutiveTwos, Date: "03 октября"},
		{Message: MsgConsecutiveTwos, Date: "04 октября"},
	}, warns)
}

func mustFillInput(missingDate time.Time) Input {
	ls := []domain.LessonRecord{
		{Date: today.AddDate(0, 0, -30), Type: "СР", HasMeta: true},
		{Date: missingDate, Type: "СР", HasMeta: true},
		{Date: today.AddDate(0, 0, -20), Type: "СР", HasMeta: true},
	}
	return Input{
		Subject: "Математика",
		Lessons: ls,
		Rows: rows(
			[]string{"5", "4", "3"},
			[]string{"4", "", "5"},
			[]string{"3", "5", "4"},
		),
		Today: today,
	}
}

func TestEvaluate_MustFillGracePeriod(t *testing.T) {
	cfg := defaultThresholds()
	cfg.CheckLessonsFill = true

	old := today.AddDate(0, 0, -10)
	warns, stats := Evaluate(mustFillInput(old), cfg)
	require.Len(t, warns, 1)
	assert.Equal(t, domain.Warning{Message: "Должен быть ряд оценок", Date: FormatDate(old)}, warns[0])
	assert.Equal(t, 1, stats[RuleLessonsFill])

	warns, _ = Evaluate(mustFillInput(today.AddDate(0, 0, -1)), cfg)
	assert.Empty(t, warns)
}

func TestLessonsFill(t *testing.T) {
	recent := today.AddDate(0, 0, -2)
	old := today.AddDate(0, 0, -15)

	tests := []struct {
		name    string
		subject string
		lesson  domain.LessonRecord
		marks   []string
		allowed []string
		want    []string
	}{
		{
			name:   "regular lesson under threshold",
			lesson: domain.LessonRecord{Date: recent, Type: "У"},
			marks:  []string{"5", "", "", ""},
			want:   nil,
		},
		{
			name:   "regular lesson with no marks",
			lesson: domain.LessonRecord{Date: recent, Type: "У"},
			marks:  []string{"", "", "", ""},
			want:   []string{MsgFewLessonMarks},
		},
		{
			name:   "grace type still within grace",
			lesson: domain.LessonRecord{Date: recent, Type: "Р"},
			marks:  []string{"", "", "", ""},
			want:   nil,
		},
		{
			name:   "grace type after grace",
			lesson: domain.LessonRecord{Date: old, Type: "П"},
			marks:  []string{"", "", "", ""},
			want:   []string{MsgFewLessonMarks},
		},
		{
			name:   "full column type missing one mark",
			lesson: domain.LessonRecord{Date: old, Type: "КР"},
			marks:  []string{"5", "4", "", "3"},
			want:   []string{MsgFullColumn},
		},
		{
			name:    "practical work exempt for allowed subject",
			subject: "Физкультура",
			lesson:  domain.LessonRecord{Date: old, Type: "ПР"},
			marks:   []string{"5", "4", "", "3"},
			allowed: []string{"Физ"},
			want:    nil,
		},
		{
			name:    "practical work elsewhere is full column",
			subject: "Химия",
			lesson:  domain.LessonRecord{Date: old, Type: "ПР"},
			marks:   []string{"5", "4", "", "3"},
			allowed: []string{"Физ"},
			want:    []string{MsgFullColumn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultThresholds()
			cfg.AllowedNotRow = tt.allowed

			in := Input{Subject: tt.subject, Lessons: []domain.LessonRecord{tt.lesson}, Today: today}
			for _, m := range tt.marks {
				in.Rows = append(in.Rows, domain.StudentRow{Marks: []string{m}})
			}

			var got []string
			for _, w := range LessonsFill(in, cfg) {
				got = append(got, w.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Order(t *testing.T) {
	cfg := defaultThresholds()
	cfg.CheckControlWork = true
	cfg.CheckMeta = true
	cfg.CheckStudentsFill = true
	cfg.CheckDoubleTwo = true
	cfg.CheckTermMarks = true
	cfg.TermPercent = 60

	ls := lessons("КР", "У", "У")
	ls[2].HasMeta = false
	in := Input{
		Lessons: ls,
		Rows: []domain.StudentRow{
			{Marks: []string{"2", "2", "5"}, Average: "3", TermMark: "3"},
			{Marks: []string{"5", "", ""}, Average: "5", TermMark: "4"},
		},
		Today: today,
	}

	warns, stats := Evaluate(in, cfg)

	assert.Equal(t, []domain.Warning{
		{Message: MsgNoErrorReview, Date: "01 октября"},
		{Message: MsgNoMeta, Date: "03 октября"},
		{Message: MsgConsecutiveTwos, Date: "02 октября"},
		{Message: "У ученика мало оценок за четверть. Строка 2"},
		{Message: "Несоответствие средней и четвертной оценок. Строка 2"},
	}, warns)
	assert.Equal(t, 1, stats[RuleDoubleTwo])
	assert.Equal(t, 1, stats[RuleTermMarks])
}

func TestEvaluate_NothingEnabled(t *testing.T) {
	in := Input{Lessons: lessons("КР", "У"), Rows: rows([]string{"2", "2"}), Today: today}
	warns, stats := Evaluate(in, defaultThresholds())
	assert.Empty(t, warns)
	assert.Empty(t, stats)
}
