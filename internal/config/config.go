package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "eduaudit/internal/errors"
	"eduaudit/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Portal    PortalConfig    `yaml:"portal" envconfig:"PORTAL"`
	Audit     AuditConfig     `yaml:"audit" envconfig:"AUDIT"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Features  FeaturesConfig  `yaml:"features" envconfig:"FEATURES"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Notify    NotifyConfig    `yaml:"notify" envconfig:"NOTIFY"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
}

// PortalConfig describes how to reach the gradebook portal
type PortalConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Login             string        `yaml:"login" envconfig:"LOGIN"`
	Password          string        `yaml:"password" envconfig:"PASSWORD"`
	Driver            string        `yaml:"driver" envconfig:"DRIVER" validate:"oneof=http browser"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" validate:"gte=1"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
	Headless          bool          `yaml:"headless" envconfig:"HEADLESS"`
}

// AuditConfig holds the journal check parameters
type AuditConfig struct {
	ClassFrom int `yaml:"class_from" envconfig:"CLASS_FROM" validate:"min=1,max=11"`
	ClassTo   int `yaml:"class_to" envconfig:"CLASS_TO" validate:"min=1,max=11"`
	TermFrom  int `yaml:"term_from" envconfig:"TERM_FROM" validate:"min=1,max=4"`
	TermTo    int `yaml:"term_to" envconfig:"TERM_TO" validate:"min=1,max=4"`

	MinFor5 float64 `yaml:"min_for_5" envconfig:"MIN_FOR_5" validate:"gte=0,lte=5"`
	MinFor4 float64 `yaml:"min_for_4" envconfig:"MIN_FOR_4" validate:"gte=0,lte=5"`
	MinFor3 float64 `yaml:"min_for_3" envconfig:"MIN_FOR_3" validate:"gte=0,lte=5"`

	LessonPercent int    `yaml:"lesson_percent" envconfig:"LESSON_PERCENT" validate:"gte=0,lte=100"`
	TermPercent   int    `yaml:"term_percent" envconfig:"TERM_PERCENT" validate:"gte=0,lte=100"`
	AllowedNotRow string `yaml:"allowed_not_row" envconfig:"ALLOWED_NOT_ROW"`

	CheckControlWork  bool `yaml:"check_control_work" envconfig:"CHECK_CONTROL_WORK"`
	CheckMeta         bool `yaml:"check_meta" envconfig:"CHECK_META"`
	CheckLessonsFill  bool `yaml:"check_lessons_fill" envconfig:"CHECK_LESSONS_FILL"`
	CheckStudentsFill bool `yaml:"check_students_fill" envconfig:"CHECK_STUDENTS_FILL"`
	CheckDoubleTwo    bool `yaml:"check_double_two" envconfig:"CHECK_DOUBLE_TWO"`
	CheckTermMarks    bool `yaml:"check_term_marks" envconfig:"CHECK_TERM_MARKS"`

	GroupBy string `yaml:"group_by" envconfig:"GROUP_BY" validate:"oneof=grades teachers"`
}

// ReportConfig holds the summary report parameters
type ReportConfig struct {
	Term       int `yaml:"term" envconfig:"TERM" validate:"min=1,max=4"`
	StartGrade int `yaml:"start_grade" envconfig:"START_GRADE" validate:"min=1,max=11"`
}

// FeaturesConfig controls the paid feature gate
type FeaturesConfig struct {
	Enabled bool          `yaml:"enabled" envconfig:"ENABLED"`
	GateURL string        `yaml:"gate_url" envconfig:"GATE_URL" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	CredentialSalt string          `yaml:"credential_salt" envconfig:"CREDENTIAL_SALT" validate:"min=16"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console stdout file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig overrides the executable-relative locations
type PathsConfig struct {
	ReportsDir      string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TracingEnabled bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	PrettyPrint    bool    `yaml:"pretty_print" envconfig:"PRETTY_PRINT"`
	SampleRate     float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE" validate:"gte=0,lte=1"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// NotifyConfig holds optional run notifications
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram" envconfig:"TELEGRAM"`
}

// TelegramConfig sends finished workbooks to a chat
type TelegramConfig struct {
	Token  string `yaml:"token" envconfig:"TOKEN"`
	ChatID int64  `yaml:"chat_id" envconfig:"CHAT_ID"`
}

// Enabled reports whether notifications should be sent
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// SheetsConfig publishes findings to a Google spreadsheet
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	SheetName       string `yaml:"sheet_name" envconfig:"SHEET_NAME"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// Enabled reports whether publishing is configured
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != "" && s.CredentialsFile != ""
}

var cyrillicWord = regexp.MustCompile(`[А-Яа-яЁё]+`)

// Normalize raises the upper bounds of the class and term ranges to their
// lower bounds and rounds the cutoffs to two decimals.
func (a *AuditConfig) Normalize() {
	if a.ClassFrom > a.ClassTo {
		a.ClassTo = a.ClassFrom
	}
	if a.TermFrom > a.TermTo {
		a.TermTo = a.TermFrom
	}
	a.MinFor5 = round2(a.MinFor5)
	a.MinFor4 = round2(a.MinFor4)
	a.MinFor3 = round2(a.MinFor3)
}

// AllowedPrefixes extracts the exempt subject prefixes from the free text field.
func (a AuditConfig) AllowedPrefixes() []string {
	return cyrillicWord.FindAllString(a.AllowedNotRow, -1)
}

// Thresholds converts the audit section into the rule configuration.
func (a AuditConfig) Thresholds() domain.ThresholdConfig {
	return domain.ThresholdConfig{
		MinFor5:           round2(a.MinFor5),
		MinFor4:           round2(a.MinFor4),
		MinFor3:           round2(a.MinFor3),
		LessonPercent:     a.LessonPercent,
		TermPercent:       a.TermPercent,
		AllowedNotRow:     a.AllowedPrefixes(),
		CheckControlWork:  a.CheckControlWork,
		CheckMeta:         a.CheckMeta,
		CheckLessonsFill:  a.CheckLessonsFill,
		CheckStudentsFill: a.CheckStudentsFill,
		CheckDoubleTwo:    a.CheckDoubleTwo,
		CheckTermMarks:    a.CheckTermMarks,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Load reads defaults, then the config file if one exists, then EDU_*
// environment variables, and validates the result.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. An empty path
// searches the usual locations.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", configFile)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.Audit.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	a := c.Audit
	if a.MinFor5 < a.MinFor4 || a.MinFor4 < a.MinFor3 {
		return apperrors.NewConfigError(
			fmt.Sprintf("grade cutoffs must be ordered: %.2f >= %.2f >= %.2f", a.MinFor5, a.MinFor4, a.MinFor3), nil)
	}

	return nil
}

// ReportsDir returns the directory workbooks are written to
func (c *Config) ReportsDir() string {
	return c.resolve(c.Paths.ReportsDir, func(p *Paths) string { return p.ReportsDir })
}

// CredentialsFile returns the encrypted credential store location
func (c *Config) CredentialsFile() string {
	return c.resolve(c.Paths.CredentialsFile, func(p *Paths) string { return p.CredentialsFile })
}

func (c *Config) resolve(override string, fallback func(*Paths) string) string {
	paths, err := GetPaths()
	if override != "" {
		if filepath.IsAbs(override) || err != nil {
			return override
		}
		return filepath.Join(paths.ExecutableDir, override)
	}
	if err != nil {
		return "."
	}
	return fallback(paths)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:           DefaultPortalURL,
			Driver:            DriverHTTP,
			UserAgent:         DefaultUserAgent,
			RequestsPerSecond: 5,
			Burst:             1,
			Headless:          true,
		},
		Audit: AuditConfig{
			ClassFrom:     1,
			ClassTo:       1,
			TermFrom:      1,
			TermTo:        1,
			MinFor5:       4.5,
			MinFor4:       3.5,
			MinFor3:       2.5,
			LessonPercent: 25,
			TermPercent:   30,
			GroupBy:       GroupByGrades,
		},
		Report: ReportConfig{
			Term:       1,
			StartGrade: 5,
		},
		Features: FeaturesConfig{
			Enabled: false,
			GateURL: DefaultGateURL,
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
			CredentialSalt: DefaultCredentialSalt,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/eduaudit.log",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "production",
			TracingEnabled: false,
			SampleRate:     1.0,
			MetricsEnabled: true,
		},
		Sheets: SheetsConfig{
			SheetName: "Проверка",
		},
	}
}
