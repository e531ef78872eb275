package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/exporter"
	"eduaudit/internal/journal"
	"eduaudit/internal/portal"
	"eduaudit/internal/rules"
	"eduaudit/pkg/contracts/domain"
)

const testBase = "https://edu.example.org"

const mathPage = `<html><body>
<div class="line last">Учитель: Иванова Мария Петровна</div>
<table class="table"><thead>
<tr><td rowspan="3">№</td><td rowspan="3">ФИО</td><td colspan="2">Сентябрь</td><td rowspan="3">Ср.</td><td rowspan="3">Итог</td></tr>
<tr><td colspan="1">2</td><td colspan="1">9</td></tr>
<tr><td title="Тема: дроби">КР</td><td title="Тема: дроби">У</td></tr>
</thead><tbody>
<tr><td>1</td><td>Азатов Булат Ильдарович</td><td>5</td><td>4</td><td>4,5</td><td>5</td></tr>
<tr><td>2</td><td>Гарипова Алия Маратовна</td><td>3</td><td>3</td><td>3,0</td><td>4</td></tr>
</tbody></table></body></html>`

type fakeClient struct {
	mu       sync.Mutex
	pages    map[string]string
	loginErr error
	calls    []string
	closed   bool
}

func (f *fakeClient) Login(context.Context, string, string) error { return f.loginErr }

func (f *fakeClient) Get(_ context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if page, ok := f.pages[rawURL]; ok {
		return page, nil
	}
	return "<html></html>", nil
}

func (f *fakeClient) BaseURL() string { return testBase }

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newPortal() *fakeClient {
	math := journal.Request{GradeID: "3301", Subject: journal.Subject{ID: "77"}, Term: 1}
	pageURL := journal.NewLoader(nil, testBase, nil).PageURL(math, 1)

	return &fakeClient{pages: map[string]string{
		testBase + "/school": `<h3>2024/2025</h3>`,
		testBase + "/school/journal/select_edu_class?number=7": `<div class="h"><ul><li>7А	(кл. рук.)</li></ul></div>
<a href="/school/journal/edu_class/3301">Журнал класса</a>`,
		testBase + "/school/journal/edu_class/3301": `<select id="criteria">
<option value="77">7А / Математика</option>
<option value="78">7А / Музыка</option>
</select>`,
		pageURL: mathPage,
	}}
}

type recordingSink struct {
	mu       sync.Mutex
	progress []int
	statuses []string
}

func (s *recordingSink) Progress(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
}

func (s *recordingSink) Status(m string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, m)
}

type fakePublisher struct {
	got []domain.SubjectFindings
	err error
}

func (p *fakePublisher) Publish(_ context.Context, findings []domain.SubjectFindings) error {
	p.got = findings
	return p.err
}

func testParams(groupBy string) Params {
	settings := config.Default().Audit
	settings.ClassFrom, settings.ClassTo = 7, 7
	settings.TermFrom, settings.TermTo = 1, 1
	settings.CheckControlWork = true
	settings.CheckTermMarks = true
	settings.GroupBy = groupBy
	return Params{Login: "teacher", Password: "secret", Audit: settings}
}

func newTestRunner(client *fakeClient, dir string) *Runner {
	dial := func(context.Context) (portal.Client, error) { return client, nil }
	return NewRunner(dial, dir, nil, nil).
		WithClock(func() time.Time { return time.Date(2024, time.November, 20, 12, 0, 0, 0, time.UTC) })
}

func TestRunner_ChecksAndWritesByClass(t *testing.T) {
	dir := t.TempDir()
	client := newPortal()
	sink := &recordingSink{}

	result, err := newTestRunner(client, dir).Run(context.Background(), testParams(config.GroupByGrades), sink)
	require.NoError(t, err)

	assert.Equal(t, MsgCompleted, result.Message)
	require.Len(t, result.Files, 2)
	assert.True(t, client.closed)

	assert.Equal(t, []string{
		StatusLoggedIn,
		StatusCollecting,
		"7А Математика 1 четверть...",
		"7А Музыка 1 четверть...",
	}, sink.statuses)
	assert.Equal(t, []int{47, 95, 100}, sink.progress)

	f, err := excelize.OpenFile(filepath.Join(dir, exporter.CheckWorkbookName))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"7А"}, f.GetSheetList())
	rows, err := f.GetRows("7А")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 5)
	assert.Equal(t, []string{"Математика"}, rows[0])
	assert.Equal(t, []string{"Иванова Мария Петровна"}, rows[1])
	assert.Equal(t, []string{"Четверть 1"}, rows[2])
	assert.Equal(t, []string{rules.MsgNoErrorReview, "02 сентября"}, rows[3])
	assert.Equal(t, []string{"Несоответствие средней и четвертной оценок. Строка 2"}, rows[4])

	_, err = os.Stat(filepath.Join(dir, exporter.FindingsCSVName))
	assert.NoError(t, err)
}

func TestRunner_GroupsByTeacher(t *testing.T) {
	dir := t.TempDir()

	_, err := newTestRunner(newPortal(), dir).Run(context.Background(), testParams(config.GroupByTeachers), nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, exporter.CheckWorkbookName))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Иванова М П"}, f.GetSheetList())
	rows, err := f.GetRows("Иванова М П")
	require.NoError(t, err)
	assert.Equal(t, []string{"Математика"}, rows[0])
	assert.Equal(t, []string{"7А"}, rows[1])
}

func TestRunner_LightModeLoadsFirstPageOnly(t *testing.T) {
	client := newPortal()
	for url, page := range client.pages {
		if page == mathPage {
			client.pages[url] = strings.Replace(mathPage, "<table", `<p class="pages">1 2</p><table`, 1)
		}
	}
	params := testParams(config.GroupByGrades)
	params.Audit.CheckControlWork = false

	_, err := newTestRunner(client, t.TempDir()).Run(context.Background(), params, nil)
	require.NoError(t, err)
	// school, class list, subjects, one page per subject
	assert.Len(t, client.calls, 5)
}

func TestRunner_Preflight(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		want   string
	}{
		{"missing login", func(p *Params) { p.Login = " " }, apperrors.MsgMissingCredentials},
		{"missing password", func(p *Params) { p.Password = "" }, apperrors.MsgMissingCredentials},
		{"no checks", func(p *Params) {
			p.Audit.CheckControlWork = false
			p.Audit.CheckTermMarks = false
		}, apperrors.MsgNoChecksSelected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newPortal()
			params := testParams(config.GroupByGrades)
			tt.mutate(&params)

			_, err := newTestRunner(client, t.TempDir()).Run(context.Background(), params, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			assert.Equal(t, tt.want, apperrors.UserMessage(err))
			assert.Empty(t, client.calls)
		})
	}
}

func TestRunner_AuthFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	client := newPortal()
	client.loginErr = apperrors.NewAuthError(apperrors.MsgAuthFailed, nil)

	_, err := newTestRunner(client, dir).Run(context.Background(), testParams(config.GroupByGrades), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunner_Publisher(t *testing.T) {
	t.Run("receives findings", func(t *testing.T) {
		pub := &fakePublisher{}
		_, err := newTestRunner(newPortal(), t.TempDir()).WithPublisher(pub).
			Run(context.Background(), testParams(config.GroupByGrades), nil)
		require.NoError(t, err)
		require.Len(t, pub.got, 1)
		assert.Equal(t, "Математика", pub.got[0].Subject)
	})

	t.Run("failure does not fail the run", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("quota exceeded")}
		result, err := newTestRunner(newPortal(), t.TempDir()).WithPublisher(pub).
			Run(context.Background(), testParams(config.GroupByGrades), nil)
		require.NoError(t, err)
		assert.Equal(t, MsgCompleted, result.Message)
	})
}

func TestInitials(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Иванова Мария Петровна", "Иванова М П"},
		{"  Петров   Алексей  Андреевич ", "Петров А А"},
		{"Сидоров Ильдар", "Сидоров И"},
		{"Сидоров", "Сидоров"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Initials(tt.in), tt.in)
	}
}

func TestGrouping(t *testing.T) {
	term := []domain.TermWarnings{{Term: 1, Warnings: []domain.Warning{{Message: "x"}}}}
	findings := []domain.SubjectFindings{
		{Grade: "7А", Subject: "Математика", Teacher: "Иванова Мария Петровна", Terms: term},
		{Grade: "7А", Subject: "Физика", Teacher: "Петров Алексей Андреевич", Terms: term},
		{Grade: "8Б", Subject: "Алгебра", Teacher: "Иванова Мария Петровна", Terms: term},
	}

	classes := ByClass([]string{"7А", "7Б", "8Б"}, findings)
	require.Len(t, classes, 3)
	assert.Equal(t, "7А", classes[0].Grade)
	assert.Len(t, classes[0].Subjects, 2)
	assert.Equal(t, "7Б", classes[1].Grade, "a checked class without gradebooks keeps its place")
	assert.Empty(t, classes[1].Subjects)
	assert.Equal(t, "8Б", classes[2].Grade)

	assert.Len(t, ByClass(nil, findings), 2)

	teachers := ByTeacher(findings)
	require.Len(t, teachers, 2)
	assert.Equal(t, "Иванова М П", teachers[0].Initials)
	assert.Equal(t, []string{"7А", "8Б"}, []string{teachers[0].Entries[0].Grade, teachers[0].Entries[1].Grade})
	assert.Equal(t, "Петров А А", teachers[1].Initials)

	assert.Equal(t, 3, CountWarnings(findings))
}
