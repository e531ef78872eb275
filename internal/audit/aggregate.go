package audit

import (
	"strings"

	"eduaudit/pkg/contracts/domain"
)

// Initials shortens a full teacher name to "Surname N P".
func Initials(teacher string) string {
	fields := strings.Fields(teacher)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " " + firstLetter(fields[1])
	}
	return fields[0] + " " + firstLetter(fields[1]) + " " + firstLetter(fields[len(fields)-1])
}

func firstLetter(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// ByClass groups findings by grade. Every grade in checked gets a group,
// even one with no gradebooks, so the workbook has a sheet per class.
// Grades and subjects keep the order in which they were checked.
func ByClass(checked []string, findings []domain.SubjectFindings) []domain.ClassFindings {
	classes := make([]domain.ClassFindings, 0, len(checked))
	index := map[string]int{}
	add := func(grade string) int {
		i, ok := index[grade]
		if !ok {
			i = len(classes)
			index[grade] = i
			classes = append(classes, domain.ClassFindings{Grade: grade})
		}
		return i
	}
	for _, grade := range checked {
		add(grade)
	}
	for _, f := range findings {
		i := add(f.Grade)
		classes[i].Subjects = append(classes[i].Subjects, f)
	}
	return classes
}

// ByTeacher groups findings by teacher initials, in the order teachers are
// first met.
func ByTeacher(findings []domain.SubjectFindings) []domain.TeacherFindings {
	var teachers []domain.TeacherFindings
	index := map[string]int{}
	for _, f := range findings {
		key := Initials(f.Teacher)
		i, ok := index[key]
		if !ok {
			i = len(teachers)
			index[key] = i
			teachers = append(teachers, domain.TeacherFindings{Initials: key})
		}
		teachers[i].Entries = append(teachers[i].Entries, f)
	}
	return teachers
}

// CountWarnings sums the warnings of every term.
func CountWarnings(findings []domain.SubjectFindings) int {
	n := 0
	for _, f := range findings {
		for _, t := range f.Terms {
			n += len(t.Warnings)
		}
	}
	return n
}
