package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduaudit/internal/errors"
	"eduaudit/pkg/contracts/domain"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"25", Num(25)},
		{" 80% ", Num(80)},
		{"4,56", Num(4.56)},
		{"66.7%", Num(66.7)},
		{"", Text("")},
		{"7А", Text("7А")},
		{NotAvailable, NA()},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw))
		})
	}
}

func TestDelta(t *testing.T) {
	assert.Equal(t, Num(5), Delta(Num(75), Num(80)))
	assert.Equal(t, Num(-2.5), Delta(Num(70.5), Num(68)))
	assert.Equal(t, NA(), Delta(NA(), Num(80)))
	assert.Equal(t, NA(), Delta(Num(80), Text("")))
}

func TestValueCell(t *testing.T) {
	assert.Equal(t, 80.0, Num(80).Cell())
	assert.Equal(t, "н/д", NA().Cell())
	assert.Equal(t, "66.7", Num(66.7).String())
	assert.Equal(t, []interface{}{"7A", 75.0}, Cells([]Value{Text("7A"), Num(75)}))
}

func TestIncrementGrade(t *testing.T) {
	tests := map[string]string{
		"8A":    "9A",
		"8А":    "9А",
		"10Б":   "11Б",
		"9":     "10",
		"итого": "итого",
		"":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, IncrementGrade(in), in)
	}
}

func TestFetchGrade(t *testing.T) {
	n, err := FetchGrade("11Б")
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	_, err = FetchGrade("итого")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUpstreamFormat))
}

func TestIsClassLabel(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"7А", true},
		{"10Б", true},
		{"5-9", false},
		{"итого", false},
		{"7", false},
		{"0А", false},
		{"10АБВ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsClassLabel(tt.label), tt.label)
	}
}

func TestSortGrades(t *testing.T) {
	grades := []string{"10А", "7Б", "9А", "7А"}
	SortGrades(grades)
	assert.Equal(t, []string{"7А", "7Б", "9А", "10А"}, grades)
}

func TestMergeQualities(t *testing.T) {
	newest := NewQualities()
	newest.Set("7A", Num(80))
	newest.Set("8A", Num(60))
	newest.Set("9A", Text("-"))

	older := NewQualities()
	older.Set("7A", Num(75))
	older.Set("9A", Num(50))

	rows := MergeQualities(newest, older)
	require.Len(t, rows, 3)
	assert.Equal(t, []Value{Text("7A"), Num(75), Num(80), Num(5)}, rows[0])
	assert.Equal(t, []Value{Text("8A"), NA(), Num(60), NA()}, rows[1])
	assert.Equal(t, []Value{Text("9A"), Num(50), Text("-"), NA()}, rows[2])
}

func TestMergeQualities_FourPeriods(t *testing.T) {
	periods := make([]*Qualities, 4)
	for i := range periods {
		periods[i] = NewQualities()
		periods[i].Set("5А", Num(float64(70-i*5)))
	}

	rows := MergeQualities(periods...)
	require.Len(t, rows, 1)
	assert.Equal(t, []Value{Text("5А"), Num(55), Num(60), Num(65), Num(70), Num(5)}, rows[0])
}

func TestMergeQualities_SinglePeriod(t *testing.T) {
	q := NewQualities()
	q.Set("7A", Num(80))
	assert.Equal(t, [][]Value{{Text("7A"), Num(80), NA()}}, MergeQualities(q))
	assert.Nil(t, MergeQualities())
}

func TestLowAverages(t *testing.T) {
	rows := []domain.StudentRow{
		{Name: "Азатов Булат", Average: "2,75"},
		{Name: "Гарипова Алия", Average: "4,5"},
		{Name: "Зайцев Олег", Average: ""},
		{Name: "Ким Анна", Average: "3"},
	}

	got := LowAverages("7А", "Математика", "Иванова М П", rows)
	require.Len(t, got, 1)
	assert.Equal(t, LowAverage{
		Grade:   "7А",
		Name:    "Азатов Булат",
		Average: 2.75,
		Subject: "Математика",
		Teacher: "Иванова М П",
	}, got[0])
	assert.Equal(t, Num(2.75), got[0].Cells()[2])
}
