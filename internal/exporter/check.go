package exporter

import (
	"fmt"
	"log/slog"

	"eduaudit/pkg/contracts/domain"
)

// CheckWorkbookName is the journal check output file.
const CheckWorkbookName = "Проверка журналов.xlsx"

func termTitle(term int) string {
	return fmt.Sprintf("Четверть %d", term)
}

func writeWarnings(s *SheetWriter, tw domain.TermWarnings) error {
	if err := s.Append(termTitle(tw.Term)); err != nil {
		return err
	}
	for _, w := range tw.Warnings {
		if err := s.Append(w.Cells()...); err != nil {
			return err
		}
	}
	s.Blank(1)
	return nil
}

// WriteCheckByClass writes one sheet per grade: the subject and teacher in
// bold, then every term with its warnings.
func WriteCheckByClass(path string, classes []domain.ClassFindings, logger *slog.Logger) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	for _, class := range classes {
		s, err := wb.Sheet(class.Grade)
		if err != nil {
			return err
		}
		for _, subject := range class.Subjects {
			if err := s.Bold(subject.Subject); err != nil {
				return err
			}
			if err := s.Bold(subject.Teacher); err != nil {
				return err
			}
			for _, tw := range subject.Terms {
				if err := writeWarnings(s, tw); err != nil {
					return err
				}
			}
			s.Blank(1)
		}
	}
	return wb.SaveAs(path, logger)
}

// WriteCheckByTeacher writes one sheet per teacher. Every term block
// repeats the subject and grade in bold.
func WriteCheckByTeacher(path string, teachers []domain.TeacherFindings, logger *slog.Logger) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	for _, teacher := range teachers {
		s, err := wb.Sheet(teacher.Initials)
		if err != nil {
			return err
		}
		for _, entry := range teacher.Entries {
			for _, tw := range entry.Terms {
				if err := s.Bold(entry.Subject); err != nil {
					return err
				}
				if err := s.Bold(entry.Grade); err != nil {
					return err
				}
				if err := writeWarnings(s, tw); err != nil {
					return err
				}
			}
			s.Blank(1)
		}
	}
	return wb.SaveAs(path, logger)
}
