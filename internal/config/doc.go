// Package config loads eduaudit configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order, later sources winning:
//
//	1. Default()
//	2. config.yaml or configs/config.yaml
//	3. Environment variables prefixed with EDU_
//
// # Environment Variables
//
// Nested sections are joined with underscores:
//
//	EDU_PORTAL_LOGIN=teacher
//	EDU_PORTAL_PASSWORD=secret
//	EDU_AUDIT_CLASS_FROM=5
//	EDU_AUDIT_CHECK_META=true
//	EDU_REPORT_TERM=2
//
// # Path Management
//
// Paths are resolved relative to the executable:
//
//	paths, _ := config.GetPaths()
//	out := paths.GetReportPath("Проверка журналов.xlsx")
package config
