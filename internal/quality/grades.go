package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	apperrors "eduaudit/internal/errors"
)

var leadingNumber = regexp.MustCompile(`^\d+`)
var anyNumber = regexp.MustCompile(`\d+`)

// FetchGrade returns the class number of a label, e.g. 7 for "7А".
func FetchGrade(label string) (int, error) {
	m := anyNumber.FindString(label)
	if m == "" {
		return 0, apperrors.NewUpstreamFormatError(fmt.Sprintf("class label %q has no number", label), nil)
	}
	return strconv.Atoi(m)
}

// IncrementGrade moves a class label one year up: "8А" becomes "9А".
// Labels that do not start with a number are returned unchanged.
func IncrementGrade(label string) string {
	m := leadingNumber.FindString(label)
	if m == "" {
		return label
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return label
	}
	return strconv.Itoa(n+1) + label[len(m):]
}

// IsClassLabel reports whether a row label names one class ("7А", "10Б")
// rather than a summary row.
func IsClassLabel(label string) bool {
	n := utf8.RuneCountInString(label)
	if n < 2 || n > 3 {
		return false
	}
	if label[0] < '1' || label[0] > '9' {
		return false
	}
	digits := len(leadingNumber.FindString(label))
	if digits == len(label) {
		return false
	}
	for _, r := range label[digits:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// inGradeRange reports whether label is a class between from and to.
func inGradeRange(label string, from, to int) bool {
	n, err := FetchGrade(label)
	return err == nil && n >= from && n <= to
}
