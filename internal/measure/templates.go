package measure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Field upper bounds by physical meaning. The lower bound is always 0.
const (
	BoundCircumference = 200
	BoundWidth         = 100
	BoundLength        = 150
	BoundFeature       = 50
)

// Field is one bounded decimal field of a garment template.
type Field struct {
	Name     string          `json:"name"`
	Max      decimal.Decimal `json:"max"`
	Optional bool            `json:"optional,omitempty"`
}

// Template describes the measurement set for one garment and gender.
type Template struct {
	Key     string  `json:"key"`
	Garment string  `json:"garment"`
	Gender  string  `json:"gender"`
	Fields  []Field `json:"fields"`
}

func field(name string, bound int64) Field {
	return Field{Name: name, Max: decimal.NewFromInt(bound)}
}

func optional(name string, bound int64) Field {
	f := field(name, bound)
	f.Optional = true
	return f
}

var (
	pantMenFields = []Field{
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
		field("thigh", BoundLength),
		field("knee", BoundWidth),
		field("calf", BoundWidth),
		field("bottom_opening", BoundWidth),
		field("inseam_length", BoundLength),
		field("outseam_length", BoundLength),
		field("crotch_depth", BoundWidth),
	}

	shirtTail = []Field{
		field("shoulder_width", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("shirt_length", BoundLength),
		field("neck_circumference", BoundFeature),
		field("cuff_circumference", BoundFeature),
		field("back_width", BoundWidth),
	}
)

func join(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var templates = map[string]Template{
	"kurta_men": {Garment: "Kurta", Gender: "M", Fields: []Field{
		field("chest", BoundCircumference),
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
		field("shoulder_width", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("kurta_length", BoundLength),
		field("neck_depth", BoundFeature),
		field("neck_width", BoundFeature),
		field("side_slit_height", BoundFeature),
	}},
	"pant_men":    {Garment: "Pant", Gender: "M", Fields: join(pantMenFields, []Field{field("fly_length", BoundWidth)})},
	"payjama_men": {Garment: "Payjama", Gender: "M", Fields: join(pantMenFields)},
	"shirt_men": {Garment: "Shirt", Gender: "M", Fields: join([]Field{
		field("chest", BoundCircumference),
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
	}, shirtTail)},
	"tshirt_men": {Garment: "T-Shirt", Gender: "M", Fields: []Field{
		field("chest", BoundCircumference),
		field("waist", BoundCircumference),
		field("shoulder_width", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("tshirt_length", BoundLength),
		field("neck_width", BoundFeature),
	}},
	"blazer_women": {Garment: "Blazer", Gender: "F", Fields: []Field{
		field("bust", BoundCircumference),
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
		field("shoulder_width", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("blazer_length", BoundLength),
		field("neck_width", BoundFeature),
		field("back_width", BoundWidth),
		field("lapel_depth", BoundFeature),
	}},
	"kurti_women": {Garment: "Kurti", Gender: "F", Fields: []Field{
		field("bust", BoundCircumference),
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
		field("shoulder_width", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("kurti_length", BoundLength),
		field("neck_depth_front", BoundFeature),
		field("neck_depth_back", BoundFeature),
		field("neck_width", BoundFeature),
		field("shoulder_to_bust", BoundWidth),
		field("shoulder_to_waist", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("side_slit_height", BoundWidth),
	}},
	"payjama_women": {Garment: "Payjama", Gender: "F", Fields: []Field{
		field("waist_circumference", BoundCircumference),
		field("hip_circumference", BoundCircumference),
		field("thigh_circumference", BoundLength),
		field("knee_circumference", BoundWidth),
		field("calf_circumference", BoundWidth),
		field("bottom_opening", BoundWidth),
		field("inseam_length", BoundLength),
		field("outseam_length", BoundLength),
		field("crotch_depth", BoundWidth),
	}},
	"frock_women": {Garment: "Frock", Gender: "F", Fields: []Field{
		field("bust", BoundCircumference),
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
		field("shoulder_width", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("neck_depth_front", BoundFeature),
		field("neck_depth_back", BoundFeature),
		field("neck_width", BoundFeature),
		field("frock_length", BoundLength),
		field("flare_width", BoundCircumference),
		field("yoke_depth", BoundFeature),
	}},
	"top_women": {Garment: "Top", Gender: "F", Fields: []Field{
		field("bust", BoundCircumference),
		field("waist", BoundCircumference),
		optional("hip", BoundCircumference),
		field("shoulder_width", BoundWidth),
		field("armhole", BoundWidth),
		field("sleeve_length", BoundWidth),
		field("sleeve_circumference", BoundWidth),
		field("neck_depth", BoundFeature),
		field("neck_width", BoundFeature),
		field("top_length", BoundLength),
	}},
	"shirt_women": {Garment: "Shirt", Gender: "F", Fields: join([]Field{
		field("bust", BoundCircumference),
		field("waist", BoundCircumference),
		field("hip", BoundCircumference),
	}, shirtTail)},
}

func init() {
	for key, t := range templates {
		t.Key = key
		templates[key] = t
	}
}

// LookupTemplate returns the template registered under key.
func LookupTemplate(key string) (Template, bool) {
	t, ok := templates[strings.ToLower(strings.TrimSpace(key))]
	return t, ok
}

// Templates returns every template sorted by key.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TemplateFor finds the template for a garment type name and gender.
func TemplateFor(garment, gender string) (Template, bool) {
	g := NormalizeGender(gender)
	for _, t := range templates {
		if t.Gender == g && t.MatchesGarment(garment) {
			return t, true
		}
	}
	return Template{}, false
}

// MatchesGarment reports whether name refers to the template's garment.
func (t Template) MatchesGarment(name string) bool {
	return NormalizeField(name) == NormalizeField(t.Garment)
}

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations is returned as an error when a measurement set fails validation.
type Violations []Violation

func (v Violations) Error() string {
	msgs := make([]string, len(v))
	for i, x := range v {
		msgs[i] = x.Field + ": " + x.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate checks values against the template. Keys are matched ignoring
// case and separators; the returned map is keyed by canonical field names.
// Every field is checked independently against [0, Max].
func (t Template) Validate(values map[string]decimal.Decimal) (map[string]decimal.Decimal, Violations) {
	index := make(map[string]Field, len(t.Fields))
	for _, f := range t.Fields {
		index[NormalizeField(f.Name)] = f
	}

	var violations Violations
	out := make(map[string]decimal.Decimal, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := index[NormalizeField(k)]
		if !ok {
			violations = append(violations, Violation{Field: k, Message: fmt.Sprintf("unknown field for %s", t.Key)})
			continue
		}
		if _, dup := out[f.Name]; dup {
			violations = append(violations, Violation{Field: f.Name, Message: "duplicate field"})
			continue
		}
		v := values[k]
		if v.IsNegative() || v.GreaterThan(f.Max) {
			violations = append(violations, Violation{
				Field:   f.Name,
				Message: fmt.Sprintf("must be between 0 and %s", f.Max.String()),
			})
			continue
		}
		out[f.Name] = v
	}

	for _, f := range t.Fields {
		if f.Optional {
			continue
		}
		if _, ok := out[f.Name]; ok {
			continue
		}
		if !hasViolation(violations, f.Name) {
			violations = append(violations, Violation{Field: f.Name, Message: "is required"})
		}
	}
	return out, violations
}

func hasViolation(vs Violations, field string) bool {
	for _, v := range vs {
		if v.Field == field {
			return true
		}
	}
	return false
}
