// Package report builds the summary workbooks of a reporting period from
// the school reports of the portal: school results, results by subject,
// homeroom class results and the students whose average is below three.
//
// Report pages are found by their link text on /school/reports/. Each term
// compares a fixed set of periods: quarter pages for grades up to 9 are
// merged with the half-year pages of grades 10 and 11, and the first terms
// are compared with the previous academic year shifted one class up.
package report
