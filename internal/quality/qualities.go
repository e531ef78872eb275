package quality

// Grid is a titled table ready for a workbook. Chart asks the exporter to
// draw a column chart over the numeric columns between the label and the
// trailing delta.
type Grid struct {
	Title  string
	Header []string
	Rows   [][]Value
	Chart  bool
}

// ChartWidth is the number of series drawn for the grid.
func (g Grid) ChartWidth() int {
	if len(g.Header) < 2 {
		return 0
	}
	return len(g.Header) - 2
}

// Qualities maps class labels to their quality value in insertion order.
type Qualities struct {
	order  []string
	values map[string]Value
}

// NewQualities returns an empty map.
func NewQualities() *Qualities {
	return &Qualities{values: make(map[string]Value)}
}

// Set stores v for grade. A repeated grade keeps its first position.
func (q *Qualities) Set(grade string, v Value) {
	if _, ok := q.values[grade]; !ok {
		q.order = append(q.order, grade)
	}
	q.values[grade] = v
}

// Get returns the value of grade.
func (q *Qualities) Get(grade string) (Value, bool) {
	if q == nil {
		return Value{}, false
	}
	v, ok := q.values[grade]
	return v, ok
}

// Grades returns the labels in insertion order.
func (q *Qualities) Grades() []string {
	if q == nil {
		return nil
	}
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}

// Len is the number of grades.
func (q *Qualities) Len() int {
	if q == nil {
		return 0
	}
	return len(q.order)
}

// Update copies every entry of other into q.
func (q *Qualities) Update(other *Qualities) {
	for _, g := range other.Grades() {
		v, _ := other.Get(g)
		q.Set(g, v)
	}
}

// MergeQualities builds trend rows from period maps given newest first.
// Each row is [grade, oldest, ..., newest, delta] for the grades of the
// newest period. Grades missing from an older period get н/д, and so does
// the delta when either of the last two values is not a number.
func MergeQualities(periods ...*Qualities) [][]Value {
	if len(periods) == 0 || periods[0] == nil {
		return nil
	}
	newest := periods[0]

	rows := make([][]Value, 0, newest.Len())
	for _, grade := range newest.Grades() {
		row := make([]Value, 0, len(periods)+2)
		row = append(row, Text(grade))
		for i := len(periods) - 1; i >= 0; i-- {
			v, ok := periods[i].Get(grade)
			if !ok {
				v = NA()
			}
			row = append(row, v)
		}
		if len(periods) < 2 {
			row = append(row, NA())
		} else {
			row = append(row, Delta(row[len(row)-2], row[len(row)-1]))
		}
		rows = append(rows, row)
	}
	return rows
}

// QualitiesTable renders merged period qualities under header.
func QualitiesTable(header []string, periods ...*Qualities) Grid {
	return Grid{Header: header, Rows: MergeQualities(periods...), Chart: true}
}
