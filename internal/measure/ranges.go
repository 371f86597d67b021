// Package measure holds the static measurement bounds: the per-gender body
// range table and the per-garment measurement-set templates.
package measure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Range is an inclusive [Min, Max] bound in inches.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// RangeTable maps gender -> field -> Range. Field lookup ignores case,
// spaces, underscores and hyphens.
type RangeTable struct {
	Version string
	ranges  map[string]map[string]namedRange
}

type namedRange struct {
	name string
	Range
}

// Result is the outcome of a single range check. Known is false when the
// table has no bounds for the (gender, field) pair; such values are valid.
type Result struct {
	Valid   bool             `json:"valid"`
	Known   bool             `json:"known"`
	Min     *decimal.Decimal `json:"min,omitempty"`
	Max     *decimal.Decimal `json:"max,omitempty"`
	Message string           `json:"message,omitempty"`
}

func r(lo, hi int64) Range {
	return Range{Min: decimal.NewFromInt(lo), Max: decimal.NewFromInt(hi)}
}

// DefaultRanges is the body range table in use.
var DefaultRanges = NewRangeTable("v1", map[string]map[string]Range{
	"M": {
		"Chest":        r(34, 52),
		"Waist":        r(28, 44),
		"Hips":         r(34, 48),
		"Shoulder":     r(15, 22),
		"SleeveLength": r(22, 27),
		"Neck":         r(14, 20),
	},
	"F": {
		"Bust":     r(30, 46),
		"Waist":    r(24, 40),
		"Hips":     r(32, 48),
		"Shoulder": r(13, 19),
		"UpperArm": r(10, 16),
	},
})

func NewRangeTable(version string, table map[string]map[string]Range) *RangeTable {
	t := &RangeTable{Version: version, ranges: make(map[string]map[string]namedRange, len(table))}
	for gender, fields := range table {
		m := make(map[string]namedRange, len(fields))
		for name, rg := range fields {
			m[NormalizeField(name)] = namedRange{name: name, Range: rg}
		}
		t.ranges[NormalizeGender(gender)] = m
	}
	return t
}

// NormalizeField lowercases name and strips spaces, underscores and hyphens.
func NormalizeField(name string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// NormalizeGender maps M / F / male / female (any case) to M or F.
func NormalizeGender(g string) string {
	switch g = strings.ToUpper(strings.TrimSpace(g)); g {
	case "MALE":
		return "M"
	case "FEMALE":
		return "F"
	}
	return g
}

// GenderWord returns "men" or "women" for M / F.
func GenderWord(gender string) string {
	switch NormalizeGender(gender) {
	case "M":
		return "men"
	case "F":
		return "women"
	}
	return strings.ToLower(gender)
}

// Validate checks value against the bounds for (gender, field).
func (t *RangeTable) Validate(gender, field string, value decimal.Decimal) Result {
	fields, ok := t.ranges[NormalizeGender(gender)]
	if !ok {
		return Result{Valid: true}
	}
	rg, ok := fields[NormalizeField(field)]
	if !ok {
		return Result{Valid: true}
	}
	lo, hi := rg.Min, rg.Max
	res := Result{Valid: true, Known: true, Min: &lo, Max: &hi}
	if value.LessThan(rg.Min) || value.GreaterThan(rg.Max) {
		res.Valid = false
		res.Message = fmt.Sprintf("Invalid %s measurement for %s - must be %s-%s inches",
			strings.ToLower(field), GenderWord(gender), rg.Min.String(), rg.Max.String())
	}
	return res
}

// FieldRange is one entry of a gender's range list.
type FieldRange struct {
	Field string          `json:"field"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
}

// Ranges lists the bounds for gender sorted by field name.
// ok is false for an unknown gender.
func (t *RangeTable) Ranges(gender string) ([]FieldRange, bool) {
	fields, ok := t.ranges[NormalizeGender(gender)]
	if !ok {
		return nil, false
	}
	out := make([]FieldRange, 0, len(fields))
	for _, rg := range fields {
		out = append(out, FieldRange{Field: rg.name, Min: rg.Min, Max: rg.Max})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, true
}
