package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the application paths. All of them are relative to the
// executable directory, never the current working directory.
//
//	<exe dir>/
//	  ├── data/credentials.json
//	  ├── reports/   (generated workbooks)
//	  └── logs/
type Paths struct {
	ExecutableDir   string
	DataDir         string
	ReportsDir      string
	LogsDir         string
	CredentialsFile string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return pathsUnder(filepath.Dir(exe)), nil
}

func pathsUnder(exeDir string) *Paths {
	dataDir := filepath.Join(exeDir, "data")
	return &Paths{
		ExecutableDir:   exeDir,
		DataDir:         dataDir,
		ReportsDir:      filepath.Join(exeDir, ReportsDirName),
		LogsDir:         filepath.Join(exeDir, "logs"),
		CredentialsFile: filepath.Join(dataDir, CredentialsFileName),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("path resolution",
		slog.String("executable", p.ExecutableDir),
		slog.String("data", p.DataDir),
		slog.String("reports", p.ReportsDir),
		slog.String("logs", p.LogsDir),
		slog.Bool("credentials_exist", FileExists(p.CredentialsFile)),
	)
}
