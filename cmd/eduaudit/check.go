package main

import (
	"context"

	"github.com/spf13/cobra"

	"eduaudit/internal/app"
	api "eduaudit/pkg/contracts/api/v1"
)

type checkFlags struct {
	login, password string

	classFrom, classTo int
	termFrom, termTo   int

	minFor5, minFor4, minFor3 float64
	lessonPercent             int
	termPercent               int
	allowedNotRow             string

	controlWork, meta, lessonsFill, studentsFill, doubleTwo, termMarks bool

	groupBy string
}

func newCheckCommand() *cobra.Command {
	return checkCommand(new(checkFlags))
}

func checkCommand(f *checkFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the journals of a class range and write the findings workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := f.request(cmd)
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.Runs.RunCheck(ctx, req)
				if err != nil {
					return err
				}
				printResult(cmd, result)
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.login, "login", "", "portal login (defaults to the stored credentials)")
	fl.StringVar(&f.password, "password", "", "portal password (defaults to the stored credentials)")
	fl.IntVar(&f.classFrom, "class-from", 0, "first grade to check")
	fl.IntVar(&f.classTo, "class-to", 0, "last grade to check")
	fl.IntVar(&f.termFrom, "term-from", 0, "first term to check")
	fl.IntVar(&f.termTo, "term-to", 0, "last term to check")
	fl.Float64Var(&f.minFor5, "min-for-5", 0, "lowest average that rounds to a 5")
	fl.Float64Var(&f.minFor4, "min-for-4", 0, "lowest average that rounds to a 4")
	fl.Float64Var(&f.minFor3, "min-for-3", 0, "lowest average that rounds to a 3")
	fl.IntVar(&f.lessonPercent, "lesson-percent", 0, "percent of students that must be marked in each lesson")
	fl.IntVar(&f.termPercent, "term-percent", 0, "percent of lessons in which each student must have a mark")
	fl.StringVar(&f.allowedNotRow, "allowed-not-row", "", "subject prefixes whose ПР lessons need no full column of marks")
	fl.BoolVar(&f.controlWork, "control-work", false, "check control works")
	fl.BoolVar(&f.meta, "meta", false, "check lesson topics and homework")
	fl.BoolVar(&f.lessonsFill, "lessons-fill", false, "check that each lesson marked enough students")
	fl.BoolVar(&f.studentsFill, "students-fill", false, "check that each student has enough marks over the term")
	fl.BoolVar(&f.doubleTwo, "double-two", false, "find students with two 2s in a row")
	fl.BoolVar(&f.termMarks, "term-marks", false, "check term marks against averages")
	fl.StringVar(&f.groupBy, "group-by", "", "group findings by grades or teachers")
	return cmd
}

// request turns the flags the user set into a CheckRequest. Unset flags
// keep the config defaults.
func (f *checkFlags) request(cmd *cobra.Command) api.CheckRequest {
	fl := cmd.Flags()
	req := api.CheckRequest{
		Login:     f.login,
		Password:  f.password,
		ClassFrom: f.classFrom,
		ClassTo:   f.classTo,
		TermFrom:  f.termFrom,
		TermTo:    f.termTo,
		GroupBy:   f.groupBy,
	}
	floats := map[string]struct {
		dst **float64
		v   float64
	}{
		"min-for-5": {&req.MinFor5, f.minFor5},
		"min-for-4": {&req.MinFor4, f.minFor4},
		"min-for-3": {&req.MinFor3, f.minFor3},
	}
	for name, p := range floats {
		if fl.Changed(name) {
			v := p.v
			*p.dst = &v
		}
	}
	if fl.Changed("lesson-percent") {
		req.LessonPercent = &f.lessonPercent
	}
	if fl.Changed("term-percent") {
		req.TermPercent = &f.termPercent
	}
	if fl.Changed("allowed-not-row") {
		req.AllowedNotRow = &f.allowedNotRow
	}
	bools := map[string]struct {
		dst **bool
		v   *bool
	}{
		"control-work":  {&req.CheckControlWork, &f.controlWork},
		"meta":          {&req.CheckMeta, &f.meta},
		"lessons-fill":  {&req.CheckLessonsFill, &f.lessonsFill},
		"students-fill": {&req.CheckStudentsFill, &f.studentsFill},
		"double-two":    {&req.CheckDoubleTwo, &f.doubleTwo},
		"term-marks":    {&req.CheckTermMarks, &f.termMarks},
	}
	for name, p := range bools {
		if fl.Changed(name) {
			*p.dst = p.v
		}
	}
	return req
}
