package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type monthHead struct {
	name string
	days []int
}

type studentLine struct {
	name    string
	marks   []string
	average string
	term    string
}

type pageFixture struct {
	teacher  string
	months   []monthHead
	types    []string
	untitled map[int]bool
	students []studentLine
	pager    string
}

func (f pageFixture) html() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if f.teacher != "" {
		fmt.Fprintf(&b, `<div class="line last">Учитель: %s</div>`, f.teacher)
	}
	if f.pager != "" {
		fmt.Fprintf(&b, `<p class="pages">%s</p>`, f.pager)
	}

	b.WriteString(`<table class="table"><thead><tr><td rowspan="3">№</td><td rowspan="3">ФИО</td>`)
	for _, m := range f.months {
		fmt.Fprintf(&b, `<td colspan="%d">%s</td>`, len(m.days), m.name)
	}
	b.WriteString(`<td rowspan="3">Ср.</td><td rowspan="3">Итог</td></tr><tr>`)
	for _, m := range f.months {
		for _, d := range m.days {
			fmt.Fprintf(&b, `<td colspan="1">%d</td>`, d)
		}
	}
	b.WriteString(`</tr><tr>`)
	for i, typ := range f.types {
		if f.untitled[i] {
			fmt.Fprintf(&b, `<td>%s</td>`, typ)
		} else {
			fmt.Fprintf(&b, `<td title="Тема: урок %d; ДЗ: упр. %d">%s</td>`, i+1, i+1, typ)
		}
	}
	b.WriteString(`</tr></thead><tbody>`)
	for i, s := range f.students {
		fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td>`, i+1, s.name)
		for _, m := range s.marks {
			fmt.Fprintf(&b, `<td> %s </td>`, m)
		}
		fmt.Fprintf(&b, `<td>%s</td><td>%s</td></tr>`, s.average, s.term)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// fakePortal serves canned pages keyed by URL and records every request.
type fakePortal struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
	err   error
}

func (f *fakePortal) Get(_ context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[rawURL]
	if !ok {
		return "<html></html>", nil
	}
	return page, nil
}
