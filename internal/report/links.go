package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/journal"
	"eduaudit/internal/quality"
)

// ReportsPath lists the school reports.
const ReportsPath = "/school/reports/"

// Texts of the report links on the reports page.
const (
	LinkOverallPeriod  = "Результативность работы школы за учебный период"
	LinkOverallYear    = "Результативность работы школы за учебный год"
	LinkSubjectsPeriod = "Результативность работы школы (по предметам) за учебный период"
	LinkSubjectsYear   = "Результативность работы школы (по предметам) за учебный год"
	LinkGradeResults   = "Итоги успеваемости класса за учебный период"
)

// yearSelectorStyle marks the selector blocks of a report page. The third
// from the end holds the link to the previous academic year.
const yearSelectorStyle = "float: left; margin-left: 20px"

var numberPattern = regexp.MustCompile(`\d+`)

// Links are the report addresses without their query, each ending in "?"
// so parameters can be appended.
type Links struct {
	OverallPeriod  string
	OverallYear    string
	SubjectsPeriod string
	SubjectsYear   string
	GradeResults   string
}

// ParseLinks finds the report links by their text. It also returns the
// full overall period link, which carries the current academic year id.
func ParseLinks(body string) (Links, string, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return Links{}, "", err
	}

	found := map[string]string{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.Join(strings.Fields(a.Text()), " ")
		if _, ok := found[text]; ok {
			return
		}
		href, _ := a.Attr("href")
		found[text] = href
	})

	var links Links
	targets := []struct {
		text string
		dst  *string
	}{
		{LinkOverallPeriod, &links.OverallPeriod},
		{LinkOverallYear, &links.OverallYear},
		{LinkSubjectsPeriod, &links.SubjectsPeriod},
		{LinkSubjectsYear, &links.SubjectsYear},
		{LinkGradeResults, &links.GradeResults},
	}
	for _, t := range targets {
		href, ok := found[t.text]
		if !ok {
			return Links{}, "", apperrors.NewUpstreamFormatError("report link not found", nil).
				WithContext("link", t.text)
		}
		path, _, _ := strings.Cut(href, "?")
		*t.dst = path + "?"
	}
	return links, found[LinkOverallPeriod], nil
}

// YearIDs are the portal ids of the current and the previous academic year.
type YearIDs struct {
	This string
	Past string
}

// ParseYearIDs reads the current year id from the period link and the
// previous one from the year selector of the period report page.
func ParseYearIDs(periodLink, body string) (YearIDs, error) {
	this := numberPattern.FindString(periodLink)
	if this == "" {
		return YearIDs{}, apperrors.NewUpstreamFormatError("period link has no year id", nil).
			WithContext("link", periodLink)
	}

	doc, err := parseDocument(body)
	if err != nil {
		return YearIDs{}, err
	}
	noPrint := doc.Find("div.no-print").First()
	if noPrint.Length() == 0 {
		return YearIDs{}, apperrors.NewUpstreamFormatError("year selector not found", nil)
	}

	selectors := following(noPrint.Nodes[0], func(n *html.Node) bool {
		style, _ := attr(n, "style")
		return n.Type == html.ElementNode && n.DataAtom == atom.Div && style == yearSelectorStyle
	})
	if len(selectors) < 3 {
		return YearIDs{}, apperrors.NewUpstreamFormatError(
			fmt.Sprintf("year selector has %d blocks", len(selectors)), nil)
	}

	anchors := following(selectors[len(selectors)-3], func(n *html.Node) bool {
		_, ok := attr(n, "href")
		return isElement(atom.A)(n) && ok
	})
	if len(anchors) == 0 {
		return YearIDs{}, apperrors.NewUpstreamFormatError("previous year link not found", nil)
	}
	href, _ := attr(anchors[0], "href")
	past := numberPattern.FindString(href)
	if past == "" {
		return YearIDs{}, apperrors.NewUpstreamFormatError("previous year link has no id", nil).
			WithContext("link", href)
	}
	return YearIDs{This: this, Past: past}, nil
}

// Teacher is a homeroom teacher listed on the class results page.
type Teacher struct {
	ID   string
	Name string
}

// ParseTeachers reads the teacher selector and keeps the entries of the
// academic year starting in year.
func ParseTeachers(body string, year int) ([]Teacher, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	sel := doc.Find("select").First()
	if sel.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("teacher selector not found", nil)
	}

	suffix := strconv.Itoa(year)
	var teachers []Teacher
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		text := strings.TrimSpace(opt.Text())
		if !strings.HasSuffix(text, suffix) {
			return
		}
		id, _ := opt.Attr("value")
		name := strings.TrimRight(strings.TrimSuffix(text, suffix), " ,-–(")
		teachers = append(teachers, Teacher{ID: id, Name: name})
	})
	return teachers, nil
}

// GradeLink is the class results page of one class for one period.
type GradeLink struct {
	Grade   string
	Teacher string
	Href    string
}

func periodAnchorText(grade string, term int) string {
	if journal.IsSenior(grade) {
		return fmt.Sprintf("%d полугодие", term/4+1)
	}
	return fmt.Sprintf("%d четверть", term)
}

// ParseGradeLink reads the teacher page of the class results report. The
// header labels end with the start year and the class of the teacher; the
// row matching that pair is followed by the period links. ok is false when
// the class is outside crop.
func ParseGradeLink(body string, term int, crop *quality.GradeRange) (GradeLink, bool, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return GradeLink{}, false, err
	}
	labels := doc.Find("div.h").First().Find("label")
	if labels.Length() < 4 {
		return GradeLink{}, false, apperrors.NewUpstreamFormatError("class header not found", nil)
	}

	values := make([]string, labels.Length())
	for i, n := range labels.Nodes {
		values[i] = siblingText(n)
	}
	grade := values[len(values)-3]
	startYear := values[len(values)-4]

	if crop != nil {
		n, err := quality.FetchGrade(grade)
		if err != nil {
			return GradeLink{}, false, err
		}
		if n < crop.From || n > crop.To {
			return GradeLink{}, false, nil
		}
	}

	rows := values[:len(values)-4]
	row := 0
	for i := 1; i+1 < len(rows); i += 2 {
		if rows[i] == startYear && rows[i+1] == grade {
			row = i
			break
		}
	}

	want := periodAnchorText(grade, term)
	for _, a := range following(labels.Nodes[row], isElement(atom.A)) {
		if nodeText(a) != want {
			continue
		}
		href, _ := attr(a, "href")
		return GradeLink{Grade: grade, Href: href}, true, nil
	}
	return GradeLink{}, false, apperrors.NewUpstreamFormatError("period link not found", nil).
		WithContext("grade", grade).
		WithContext("period", want)
}
