package quality

import (
	"sort"
	"strings"
)

// ListHeader is the header of the student lists.
var ListHeader = []string{"Класс", "Учащийся", "Предмет", "Ср. балл", "Учитель"}

// Period holds the class results pages of one reporting period.
type Period struct {
	order   []string
	byGrade map[string]*GradePerformance
}

// NewPeriod returns an empty period.
func NewPeriod() *Period {
	return &Period{byGrade: make(map[string]*GradePerformance)}
}

// Add stores the page of one class.
func (p *Period) Add(g *GradePerformance) {
	if _, ok := p.byGrade[g.Grade]; !ok {
		p.order = append(p.order, g.Grade)
	}
	p.byGrade[g.Grade] = g
}

// Get returns the page of grade.
func (p *Period) Get(grade string) (*GradePerformance, bool) {
	if p == nil {
		return nil, false
	}
	g, ok := p.byGrade[grade]
	return g, ok
}

// Grades returns the classes in the order they were added.
func (p *Period) Grades() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.order...)
}

// StudentsReport is the class results summary across periods.
type StudentsReport struct {
	Grades []string
	// Excellent rows are [grade, count, names, count, names, ...] oldest first.
	Excellent [][]Value
	// Counts rows are [grade, oldest, ..., newest, delta] per category. The
	// delta column is present only when there is more than one period.
	Counts map[Category][][]Value
	// Lists rows are [grade, name, subjects, averages, teacher] of the newest period.
	Lists map[Category][][]Value
}

// SortGrades orders class labels by number, then by letter.
func SortGrades(grades []string) {
	sort.SliceStable(grades, func(i, j int) bool {
		a, errA := FetchGrade(grades[i])
		b, errB := FetchGrade(grades[j])
		if errA != nil || errB != nil || a == b {
			return grades[i] < grades[j]
		}
		return a < b
	})
}

// StudentsPerformance summarizes periods given newest first.
func StudentsPerformance(periods ...*Period) *StudentsReport {
	r := &StudentsReport{
		Counts: make(map[Category][][]Value),
		Lists:  make(map[Category][][]Value),
	}
	if len(periods) == 0 || periods[0] == nil {
		return r
	}

	r.Grades = periods[0].Grades()
	SortGrades(r.Grades)

	oldestFirst := make([]*Period, len(periods))
	for i, p := range periods {
		oldestFirst[len(periods)-1-i] = p
	}

	for _, grade := range r.Grades {
		exc := []Value{Text(grade)}
		for _, p := range oldestFirst {
			g, ok := p.Get(grade)
			if !ok || len(g.Excellent) == 0 {
				exc = append(exc, Text("-"), Text("-"))
				continue
			}
			exc = append(exc, Num(float64(len(g.Excellent))), Text(strings.Join(g.Excellent, "\n")))
		}
		r.Excellent = append(r.Excellent, exc)

		for _, c := range Categories {
			row := []Value{Text(grade)}
			for _, p := range oldestFirst {
				g, ok := p.Get(grade)
				if !ok {
					row = append(row, NA())
					continue
				}
				row = append(row, Num(float64(g.Count(c))))
			}
			if len(oldestFirst) > 1 {
				row = append(row, Delta(row[len(row)-2], row[len(row)-1]))
			}
			r.Counts[c] = append(r.Counts[c], row)
		}

		newest, _ := periods[0].Get(grade)
		for _, c := range Categories {
			for _, e := range newest.Students[c] {
				r.Lists[c] = append(r.Lists[c], append([]Value{Text(grade)}, e.Cells()...))
			}
		}
	}
	return r
}
