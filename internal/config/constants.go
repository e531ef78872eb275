package config

// Application constants
const (
	AppName   = "eduaudit"
	EnvPrefix = "EDU"

	DefaultPortalURL = "https://edu.tatar.ru"
	DefaultGateURL   = "https://features.li79.ru/journal/lcheck"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/89.0.4389.90 Safari/537.36"

	// DefaultCredentialSalt keys the local credential store when no salt is configured.
	DefaultCredentialSalt = "eduaudit-credential-store-v1"

	DriverHTTP    = "http"
	DriverBrowser = "browser"

	GroupByGrades   = "grades"
	GroupByTeachers = "teachers"

	// Labels used by the desktop client for the grouping selector.
	GroupByTeachersLabel = "По учителям"
	GroupByGradesLabel   = "По классам"

	CredentialsFileName = "credentials.json"
	ReportsDirName      = "reports"
)

// ParseGroupBy accepts both config values and UI labels.
func ParseGroupBy(s string) (string, bool) {
	switch s {
	case GroupByTeachers, GroupByTeachersLabel:
		return GroupByTeachers, true
	case GroupByGrades, GroupByGradesLabel, "":
		return GroupByGrades, true
	}
	return "", false
}
