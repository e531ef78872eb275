package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduaudit/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultPortalURL, cfg.Portal.BaseURL)
	assert.Equal(t, 4.5, cfg.Audit.MinFor5)
	assert.Equal(t, 3.5, cfg.Audit.MinFor4)
	assert.Equal(t, 2.5, cfg.Audit.MinFor3)
	assert.Equal(t, 25, cfg.Audit.LessonPercent)
	assert.Equal(t, 30, cfg.Audit.TermPercent)
	assert.Equal(t, GroupByGrades, cfg.Audit.GroupBy)
}

func TestAuditConfig_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        AuditConfig
		wantClass [2]int
		wantTerm  [2]int
	}{
		{
			name:      "ordered ranges unchanged",
			in:        AuditConfig{ClassFrom: 5, ClassTo: 9, TermFrom: 1, TermTo: 3},
			wantClass: [2]int{5, 9},
			wantTerm:  [2]int{1, 3},
		},
		{
			name:      "upper bounds raised",
			in:        AuditConfig{ClassFrom: 7, ClassTo: 2, TermFrom: 4, TermTo: 1},
			wantClass: [2]int{7, 7},
			wantTerm:  [2]int{4, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.in
			a.Normalize()
			assert.Equal(t, tt.wantClass, [2]int{a.ClassFrom, a.ClassTo})
			assert.Equal(t, tt.wantTerm, [2]int{a.TermFrom, a.TermTo})
		})
	}
}

func TestAuditConfig_Thresholds(t *testing.T) {
	a := AuditConfig{
		MinFor5:          4.556,
		MinFor4:          3.5,
		MinFor3:          2.5,
		LessonPercent:    40,
		TermPercent:      50,
		AllowedNotRow:    "Физкультура, ИЗО; music Технология",
		CheckMeta:        true,
		CheckTermMarks:   true,
		CheckLessonsFill: true,
	}

	th := a.Thresholds()
	assert.Equal(t, 4.56, th.MinFor5)
	assert.Equal(t, []string{"Физкультура", "ИЗО", "Технология"}, th.AllowedNotRow)
	assert.True(t, th.CheckMeta)
	assert.True(t, th.CheckLessonsFill)
	assert.False(t, th.CheckControlWork)
	assert.False(t, th.OnlyTermMarks())
}

func TestConfig_ValidateCutoffOrder(t *testing.T) {
	cfg := Default()
	cfg.Audit.MinFor4 = 4.8

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestConfig_ValidateFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Portal.Driver = "curl" }},
		{"class out of range", func(c *Config) { c.Audit.ClassTo = 12 }},
		{"bad group", func(c *Config) { c.Audit.GroupBy = "subjects" }},
		{"report term", func(c *Config) { c.Report.Term = 5 }},
		{"short salt", func(c *Config) { c.Security.CredentialSalt = "short" }},
		{"percent", func(c *Config) { c.Audit.LessonPercent = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := `
portal:
  login: teacher
audit:
  class_from: 9
  class_to: 5
  check_meta: true
report:
  term: 3
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0600))

	t.Setenv("EDU_REPORT_TERM", "2")
	t.Setenv("EDU_PORTAL_PASSWORD", "secret")

	cfg, err := LoadFrom(file)
	require.NoError(t, err)

	assert.Equal(t, "teacher", cfg.Portal.Login)
	assert.Equal(t, "secret", cfg.Portal.Password)
	assert.Equal(t, 9, cfg.Audit.ClassFrom)
	assert.Equal(t, 9, cfg.Audit.ClassTo, "class range is normalized")
	assert.True(t, cfg.Audit.CheckMeta)
	assert.Equal(t, 2, cfg.Report.Term, "environment overrides the file")
	assert.Equal(t, 4.5, cfg.Audit.MinFor5, "defaults survive")
}

func TestLoadFrom_BadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("audit: [unclosed"), 0600))

	_, err := LoadFrom(file)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestParseGroupBy(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"teachers", GroupByTeachers, true},
		{"По учителям", GroupByTeachers, true},
		{"По классам", GroupByGrades, true},
		{"", GroupByGrades, true},
		{"по предметам", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGroupBy(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
