package quality

import (
	"math"
	"strconv"
	"strings"
)

// NotAvailable marks a missing period or a delta that cannot be computed.
const NotAvailable = "н/д"

// Value is one report cell: a number or a piece of text.
type Value struct {
	Number   float64
	Text     string
	IsNumber bool
}

// Num returns a numeric value.
func Num(f float64) Value {
	return Value{Number: f, IsNumber: true}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{Text: s}
}

// NA is the "no data" cell.
func NA() Value {
	return Text(NotAvailable)
}

// Extract parses a report cell. Whole numbers and percentages become
// numbers, decimal commas are accepted and anything else stays text.
func Extract(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Text("")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Num(float64(n))
	}
	cleaned := strings.ReplaceAll(strings.TrimRight(s, "%"), ",", ".")
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return Num(f)
	}
	return Text(s)
}

// String renders the value as it appears in a sheet.
func (v Value) String() string {
	if !v.IsNumber {
		return v.Text
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// Cell returns the value in the form spreadsheet writers expect.
func (v Value) Cell() interface{} {
	if v.IsNumber {
		return v.Number
	}
	return v.Text
}

// Delta returns newer - older, or н/д when either side is not a number.
func Delta(older, newer Value) Value {
	if !older.IsNumber || !newer.IsNumber {
		return NA()
	}
	return Num(math.Round((newer.Number-older.Number)*100) / 100)
}

// Cells converts a row for spreadsheet writers.
func Cells(row []Value) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v.Cell()
	}
	return out
}
