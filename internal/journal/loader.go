package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts/domain"
)

// Portal paths used by the loader.
const (
	SchoolPath      = "/school"
	ClassSelectPath = "/school/journal/select_edu_class"
	EditorPath      = "/school/journal/school_editor"
)

// Fetcher returns the body of a portal page.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (string, error)
}

// Request identifies one gradebook table to load.
type Request struct {
	Grade   string
	GradeID string
	Subject Subject
	Term    int
	Years   []int
	// Light loads only the first page. It is enough for the term mark check.
	Light bool
}

// Gradebook is the normalized content of all pages of one GradeTerm.
// An empty Teacher means the gradebook is not kept and should be skipped.
type Gradebook struct {
	Teacher string
	Lessons []domain.LessonRecord
	Rows    []domain.StudentRow
}

// Empty reports whether there is nothing to evaluate.
func (g *Gradebook) Empty() bool {
	return g == nil || g.Teacher == ""
}

// Loader walks the portal pages of the gradebook.
type Loader struct {
	fetcher Fetcher
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewLoader creates a loader reading from fetcher. baseURL is the portal root.
func NewLoader(fetcher Fetcher, baseURL string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  infrastructure.WithComponent(logger, "journal"),
		now:     time.Now,
	}
}

// WithClock replaces the clock used to find future columns.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Years reads the calendar years of the current academic year.
func (l *Loader) Years(ctx context.Context) ([]int, error) {
	html, err := l.fetcher.Get(ctx, l.baseURL+SchoolPath)
	if err != nil {
		return nil, err
	}
	return ParseYears(html)
}

// Classes lists the classes of every class number in [from, to].
func (l *Loader) Classes(ctx context.Context, from, to int) ([]ClassLink, error) {
	var all []ClassLink
	for n := from; n <= to; n++ {
		html, err := l.fetcher.Get(ctx, fmt.Sprintf("%s%s?number=%d", l.baseURL, ClassSelectPath, n))
		if err != nil {
			return nil, err
		}
		classes, err := ParseClassList(html)
		if err != nil {
			return nil, err
		}
		all = append(all, classes...)
	}
	l.logger.DebugContext(ctx, "classes discovered", slog.Int("count", len(all)))
	return all, nil
}

// Subjects opens a class gradebook and returns the class id and its subjects.
func (l *Loader) Subjects(ctx context.Context, class ClassLink) (string, []Subject, error) {
	id, err := GradeID(class.Link)
	if err != nil {
		return "", nil, err
	}
	html, err := l.fetcher.Get(ctx, l.resolve(class.Link))
	if err != nil {
		return "", nil, err
	}
	subjects, err := ParseSubjects(html)
	if err != nil {
		return "", nil, err
	}
	return id, subjects, nil
}

// PageURL builds the editor URL of one gradebook page.
func (l *Loader) PageURL(req Request, page int) string {
	q := url.Values{}
	q.Set("term", strconv.Itoa(req.Term))
	q.Set("criteria", req.Subject.ID)
	q.Set("edu_class_id", req.GradeID)
	q.Set("show_moved_pupils", "0")
	q.Set("page", strconv.Itoa(page))
	return l.baseURL + EditorPath + "?" + q.Encode()
}

// Load fetches every page of req and merges them into one gradebook.
// Pages are read in order until the last page or until a page reaches past
// today; that page is kept up to today and nothing after it is fetched.
// Average and term mark come from the first page.
func (l *Loader) Load(ctx context.Context, req Request) (*Gradebook, error) {
	year, err := YearFor(req.Grade, req.Term, req.Years)
	if err != nil {
		return nil, err
	}
	today := l.now()

	firstHTML, err := l.fetcher.Get(ctx, l.PageURL(req, 1))
	if err != nil {
		return nil, err
	}
	first, err := parseDocument(firstHTML)
	if err != nil {
		return nil, err
	}

	book := &Gradebook{Teacher: Teacher(first)}
	if book.Teacher == "" {
		l.logger.DebugContext(ctx, "gradebook has no teacher, skipping",
			slog.String("grade", req.Grade),
			slog.String("subject", req.Subject.Name),
			slog.Int("term", req.Term))
		return book, nil
	}

	page, err := parseTable(first, year, today)
	if err != nil {
		return nil, withRequest(err, req, 1)
	}
	book.Lessons = page.Lessons
	book.Rows = page.Rows

	if req.Light || page.Truncated {
		return book, nil
	}

	last, err := l.lastPage(ctx, req, first)
	if err != nil {
		return nil, err
	}

	for n := 2; n <= last; n++ {
		html, err := l.fetcher.Get(ctx, l.PageURL(req, n))
		if err != nil {
			return nil, err
		}
		page, err := ParsePage(html, year, today)
		if err != nil {
			return nil, withRequest(err, req, n)
		}
		book.append(page)
		if page.Truncated {
			break
		}
	}

	l.logger.DebugContext(ctx, "gradebook loaded",
		slog.String("grade", req.Grade),
		slog.String("subject", req.Subject.Name),
		slog.Int("term", req.Term),
		slog.Int("pages", last),
		slog.Int("lessons", len(book.Lessons)),
		slog.Int("students", len(book.Rows)))
	return book, nil
}

// append adds the columns of a later page. Rows are matched by position.
func (g *Gradebook) append(page *Page) {
	width := len(page.Lessons)
	g.Lessons = append(g.Lessons, page.Lessons...)
	for i := range g.Rows {
		marks := make([]string, width)
		if i < len(page.Rows) {
			copy(marks, page.Rows[i].Marks)
		}
		g.Rows[i].Marks = append(g.Rows[i].Marks, marks...)
	}
}

// lastPage reads the pager of the first page. When the pager ends with
// ">>" the visible numbers are a window, so the page right after the window
// is opened to read the real last number.
func (l *Loader) lastPage(ctx context.Context, req Request, first *goquery.Document) (int, error) {
	tokens := pageTokens(first, true)
	if len(tokens) == 0 {
		return 1, nil
	}
	if tokens[len(tokens)-1] != ">>" {
		return pageNumber(tokens[len(tokens)-1])
	}
	if len(tokens) < 2 {
		return 1, nil
	}

	shown, err := pageNumber(tokens[len(tokens)-2])
	if err != nil {
		return 0, err
	}
	html, err := l.fetcher.Get(ctx, l.PageURL(req, shown+1))
	if err != nil {
		return 0, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return 0, err
	}
	tokens = pageTokens(doc, false)
	if len(tokens) == 0 {
		return shown + 1, nil
	}
	return pageNumber(tokens[len(tokens)-1])
}

func pageNumber(tok string) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, apperrors.NewUpstreamFormatError(fmt.Sprintf("bad pager entry %q", tok), err)
	}
	return n, nil
}

func (l *Loader) resolve(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return l.baseURL + link
}

func withRequest(err error, req Request, page int) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("grade", req.Grade).
			WithContext("subject", req.Subject.Name).
			WithContext("term", req.Term).
			WithContext("page", page)
	}
	return err
}
