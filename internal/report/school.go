package report

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"eduaudit/internal/quality"
)

// Fetcher returns the body of a portal page.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (string, error)
}

// period selects one report period. A zero TermsCount asks for the whole
// academic year.
type period struct {
	YearID     string
	TermsCount int
	TermNumber int
}

func (p period) query() string {
	q := "academic_year_id=" + url.QueryEscape(p.YearID)
	if p.TermsCount > 0 {
		q += "&terms_count=" + strconv.Itoa(p.TermsCount) + "&term_number=" + strconv.Itoa(p.TermNumber)
	}
	return q
}

// School reads the school reports of the current and the previous academic
// year.
type School struct {
	fetcher Fetcher
	baseURL string
	links   Links
	years   YearIDs
	logger  *slog.Logger
}

// Discover opens the reports page and resolves the report links and year ids.
func Discover(ctx context.Context, fetcher Fetcher, baseURL string, logger *slog.Logger) (*School, error) {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	body, err := fetcher.Get(ctx, baseURL+ReportsPath)
	if err != nil {
		return nil, err
	}
	links, periodLink, err := ParseLinks(body)
	if err != nil {
		return nil, err
	}

	body, err = fetcher.Get(ctx, baseURL+periodLink)
	if err != nil {
		return nil, err
	}
	years, err := ParseYearIDs(periodLink, body)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "school reports discovered",
		slog.String("this_year_id", years.This),
		slog.String("past_year_id", years.Past))
	return &School{fetcher: fetcher, baseURL: baseURL, links: links, years: years, logger: logger}, nil
}

// Years returns the academic year ids.
func (s *School) Years() YearIDs {
	return s.years
}

func (s *School) thisYear(termsCount, termNumber int) period {
	return period{YearID: s.years.This, TermsCount: termsCount, TermNumber: termNumber}
}

func (s *School) pastYear() period {
	return period{YearID: s.years.Past}
}

func (s *School) page(ctx context.Context, periodLink, yearLink string, p period) (string, error) {
	link := periodLink
	if p.YearID == s.years.Past {
		link = yearLink
	}
	return s.fetcher.Get(ctx, s.baseURL+link+p.query())
}

// Overall reads the school results table of p.
func (s *School) Overall(ctx context.Context, p period, opts quality.Options) (*quality.OverallTable, error) {
	body, err := s.page(ctx, s.links.OverallPeriod, s.links.OverallYear, p)
	if err != nil {
		return nil, err
	}
	return quality.ParseOverall(body, opts)
}

// Subjects reads the per-subject school results table of p.
func (s *School) Subjects(ctx context.Context, p period, opts quality.Options) (*quality.SubjectsTable, error) {
	body, err := s.page(ctx, s.links.SubjectsPeriod, s.links.SubjectsYear, p)
	if err != nil {
		return nil, err
	}
	return quality.ParseSubjectsTable(body, opts)
}

// Teachers lists the homeroom teachers of the academic year starting in year.
func (s *School) Teachers(ctx context.Context, year int) ([]Teacher, error) {
	body, err := s.fetcher.Get(ctx, s.baseURL+s.links.GradeResults+period{YearID: s.years.This}.query())
	if err != nil {
		return nil, err
	}
	return ParseTeachers(body, year)
}

// GradeLinks finds the class results page of every teacher's class for term.
// Classes outside crop are left out. The result is sorted by class and a
// class listed twice keeps its last teacher.
func (s *School) GradeLinks(ctx context.Context, teachers []Teacher, term int, crop *quality.GradeRange) ([]GradeLink, error) {
	byGrade := map[string]GradeLink{}
	var grades []string
	for _, t := range teachers {
		body, err := s.fetcher.Get(ctx, s.baseURL+s.links.GradeResults+"worker_id="+url.QueryEscape(t.ID))
		if err != nil {
			return nil, err
		}
		link, ok, err := ParseGradeLink(body, term, crop)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		link.Teacher = t.Name
		link.Href = s.resolveResults(link.Href)
		if _, seen := byGrade[link.Grade]; !seen {
			grades = append(grades, link.Grade)
		}
		byGrade[link.Grade] = link
	}

	quality.SortGrades(grades)
	out := make([]GradeLink, 0, len(grades))
	for _, g := range grades {
		out = append(out, byGrade[g])
	}
	return out, nil
}

func (s *School) resolveResults(href string) string {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/"):
		return s.baseURL + href
	}
	return s.baseURL + s.links.GradeResults + strings.TrimPrefix(href, "?")
}

// Period reads the class results pages of links into one period.
func (s *School) Period(ctx context.Context, parser *quality.PerformanceParser, links []GradeLink) (*quality.Period, error) {
	p := quality.NewPeriod()
	for _, link := range links {
		body, err := s.fetcher.Get(ctx, link.Href)
		if err != nil {
			return nil, err
		}
		g, err := parser.Parse(ctx, body, link.Grade, link.Teacher)
		if err != nil {
			return nil, err
		}
		p.Add(g)
	}
	return p, nil
}

// ReportsBase prefixes the relative student report links.
func (s *School) ReportsBase() string {
	return s.baseURL + ReportsPath
}
