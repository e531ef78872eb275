package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduaudit/internal/errors"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

var autumnFixture = pageFixture{
	teacher: "Иванова Мария Петровна",
	months: []monthHead{
		{name: "Сентябрь", days: []int{2, 9}},
		{name: "Октябрь", days: []int{7}},
	},
	types:    []string{"КР", "РО", "У"},
	untitled: map[int]bool{2: true},
	students: []studentLine{
		{name: "Азатов Булат", marks: []string{"5", "4", ""}, average: "4,5", term: "5"},
		{name: "Гарипова Алия", marks: []string{"3", "", "2"}, average: "2,5", term: "3"},
	},
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(autumnFixture.html(), 2024, date(time.November, 20))
	require.NoError(t, err)

	require.Len(t, page.Lessons, 3)
	assert.False(t, page.Truncated)

	assert.Equal(t, date(time.September, 2), page.Lessons[0].Date)
	assert.Equal(t, date(time.September, 9), page.Lessons[1].Date)
	assert.Equal(t, date(time.October, 7), page.Lessons[2].Date)

	assert.Equal(t, "КР", page.Lessons[0].Type)
	assert.Equal(t, "РО", page.Lessons[1].Type)
	assert.True(t, page.Lessons[0].HasMeta)
	assert.False(t, page.Lessons[2].HasMeta)

	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Азатов Булат", page.Rows[0].Name)
	assert.Equal(t, []string{"5", "4", ""}, page.Rows[0].Marks)
	assert.Equal(t, "4,5", page.Rows[0].Average)
	assert.Equal(t, "5", page.Rows[0].TermMark)
	assert.Equal(t, []string{"3", "", "2"}, page.Rows[1].Marks)
}

func TestParsePage_RepeatedDayColspan(t *testing.T) {
	html := `<table class="table"><thead>
		<tr><td rowspan="3">№</td><td colspan="3">Март</td><td rowspan="3">Ср.</td></tr>
		<tr><td colspan="2">4</td><td colspan="1">11</td></tr>
		<tr><td>У</td><td>СР</td><td>У</td></tr>
	</thead><tbody></tbody></table>`

	page, err := ParsePage(html, 2025, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, page.Lessons, 3)
	assert.Equal(t, 4, page.Lessons[0].Date.Day())
	assert.Equal(t, 4, page.Lessons[1].Date.Day())
	assert.Equal(t, 11, page.Lessons[2].Date.Day())
	assert.Empty(t, page.Rows)
}

func TestParsePage_TruncatesFutureColumns(t *testing.T) {
	page, err := ParsePage(autumnFixture.html(), 2024, time.Date(2024, time.September, 9, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, page.Truncated)
	require.Len(t, page.Lessons, 2)
	for _, row := range page.Rows {
		assert.Len(t, row.Marks, len(page.Lessons))
	}
	assert.Equal(t, []string{"3", ""}, page.Rows[1].Marks)
}

func TestParsePage_DatesNeverDecrease(t *testing.T) {
	page, err := ParsePage(autumnFixture.html(), 2024, date(time.December, 31))
	require.NoError(t, err)

	for i := 1; i < len(page.Lessons); i++ {
		assert.False(t, page.Lessons[i].Date.Before(page.Lessons[i-1].Date))
	}
}

func TestParsePage_UpstreamFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no table", `<html><body><p>Страница не найдена</p></body></html>`},
		{"short header", `<table class="table"><thead><tr><td>x</td></tr></thead></table>`},
		{"unknown month", pageFixture{
			months: []monthHead{{name: "Брумер", days: []int{1}}},
			types:  []string{"У"},
		}.html()},
		{"bad day", `<table class="table"><thead>
			<tr><td colspan="1">Май</td></tr><tr><td colspan="1">пн</td></tr><tr><td>У</td></tr>
		</thead></table>`},
		{"day out of month", pageFixture{
			months: []monthHead{{name: "Февраль", days: []int{30}}},
			types:  []string{"У"},
		}.html()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePage(tt.html, 2024, date(time.December, 31))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUpstreamFormat), err.Error())
		})
	}
}

func TestParsePage_NoLessonColumns(t *testing.T) {
	html := pageFixture{
		students: []studentLine{{name: "Азатов Булат", average: "4,8", term: "5"}},
	}.html()

	page, err := ParsePage(html, 2024, date(time.December, 31))
	require.NoError(t, err)
	assert.Empty(t, page.Lessons)
	require.Len(t, page.Rows, 1)
	assert.Empty(t, page.Rows[0].Marks)
	assert.Equal(t, "5", page.Rows[0].TermMark)
}

func TestTeacher(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{`<div class="line last">Учитель:  Иванова   Мария Петровна </div>`, "Иванова Мария Петровна"},
		{`<div class="line last">Учитель:</div>`, ""},
		{`<div class="line">Учитель: Иванова</div>`, ""},
	}

	for _, tt := range tests {
		doc, err := parseDocument(tt.html)
		require.NoError(t, err)
		assert.Equal(t, tt.want, Teacher(doc))
	}
}

func TestPageTokens(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p class="pages">&lt;&lt; 1 2 3 &gt;&gt;</p>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3", ">>"}, pageTokens(doc, true))
	assert.Equal(t, []string{"1", "2", "3"}, pageTokens(doc, false))
}
