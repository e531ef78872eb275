package journal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "eduaudit/internal/errors"
)

var numberPattern = regexp.MustCompile(`\d+`)

// ClassLink is a class label with the link to its gradebook.
type ClassLink struct {
	Grade string
	Link  string
}

// Subject is one gradebook subject of a class.
type Subject struct {
	Name string
	ID   string
}

const (
	classJournalLabel = "Журнал класса"
	electivePrefix    = "Электив"
)

// ParseYears returns the calendar years of the current academic year from
// the school page heading, e.g. "2024/2025" gives [2024 2025].
func ParseYears(html string) ([]int, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	h3 := doc.Find("h3").First()
	if h3.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("academic year heading not found", nil)
	}

	var years []int
	for _, m := range numberPattern.FindAllString(h3.Text(), -1) {
		y, _ := strconv.Atoi(m)
		years = append(years, y)
	}
	if len(years) < 2 {
		return nil, apperrors.NewUpstreamFormatError("academic year heading has no year range", nil).
			WithContext("heading", strings.TrimSpace(h3.Text()))
	}
	return years, nil
}

// ParseClassList pairs the class labels of a class-number page with their
// gradebook links, in page order.
func ParseClassList(html string) ([]ClassLink, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	var grades []string
	doc.Find("div.h").First().Find("li").Each(func(_ int, li *goquery.Selection) {
		label, _, _ := strings.Cut(li.Text(), "\t")
		grades = append(grades, strings.TrimSpace(label))
	})

	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if strings.TrimSpace(a.Text()) == classJournalLabel {
			href, _ := a.Attr("href")
			links = append(links, href)
		}
	})

	n := min(len(grades), len(links))
	classes := make([]ClassLink, 0, n)
	for i := 0; i < n; i++ {
		classes = append(classes, ClassLink{Grade: grades[i], Link: links[i]})
	}
	return classes, nil
}

// GradeID extracts the class id from a gradebook link.
func GradeID(link string) (string, error) {
	id := numberPattern.FindString(link)
	if id == "" {
		return "", apperrors.NewUpstreamFormatError("class link has no id", nil).WithContext("link", link)
	}
	return id, nil
}

// ParseSubjects reads the subject selector of a class gradebook. Elective
// courses are not audited and are skipped.
func ParseSubjects(html string) ([]Subject, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	sel := doc.Find("select#criteria").First()
	if sel.Length() == 0 {
		return nil, apperrors.NewUpstreamFormatError("subject selector not found", nil)
	}

	var subjects []Subject
	seen := map[string]bool{}
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		_, name, ok := strings.Cut(opt.Text(), "/")
		if !ok {
			return
		}
		name = strings.TrimSpace(strings.ReplaceAll(name, "\u00a0", " "))
		if name == "" || strings.HasPrefix(name, electivePrefix) {
			return
		}
		id, _ := opt.Attr("value")
		if seen[name] {
			// a repeated name replaces the earlier id
			for i := range subjects {
				if subjects[i].Name == name {
					subjects[i].ID = id
				}
			}
			return
		}
		seen[name] = true
		subjects = append(subjects, Subject{Name: name, ID: id})
	})
	return subjects, nil
}
