package views

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loanportal/internal/models"
)

// Funcs are the helpers every template can call.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"currency": Currency,
		"date":     Date,
		"datetime": DateTime,
		"phone":    Phone,
		"percent":  Percent,
		"field":    Field,
		"cell":     Cell,
		"columns":  ListColumns,
		"details":  DetailColumns,
		"inputs":   FormInputs,
		"label":    func(e models.Entity, kind models.Kind) string { return e.Label(kind) },
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"join":     strings.Join,
		"lower":    strings.ToLower,
		"eqs":      func(a any, b string) bool { return fmt.Sprint(a) == b },
		"imgsrc":   ImageSource,
		"toJSON": func(v any) string {
			b, err := json.Marshal(v)
			if err != nil {
				return "null"
			}
			return string(b)
		},
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero, false
		}
		return *t, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	d, err := decimal.NewFromString(models.Text(v))
	return d, err == nil
}

// Currency renders $1,234.50; anything unparsable is $0.00.
func Currency(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return "$0.00"
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + group(whole) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Percent renders one decimal place, e.g. 60.0%.
func Percent(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		d = decimal.Zero
	}
	return d.StringFixed(1) + "%"
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(v any) (time.Time, string, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, "", false
	case time.Time:
		return t, "", true
	case *time.Time:
		if t == nil {
			return time.Time{}, "", false
		}
		return *t, "", true
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, s, true
		}
	}
	return time.Time{}, s, false
}

// Date renders YYYY-MM-DD; unparsable input comes back unchanged.
func Date(v any) string {
	t, raw, ok := parseTime(v)
	if !ok {
		return raw
	}
	return t.Format("2006-01-02")
}

func DateTime(v any) string {
	t, raw, ok := parseTime(v)
	if !ok {
		return raw
	}
	return t.Format("2006-01-02 15:04:05")
}

// Phone formats North American numbers and leaves the rest alone.
func Phone(v any) string {
	s := strings.TrimSpace(models.Text(v))
	if s == "" {
		return "Not provided"
	}
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
	case len(d) == 11 && d[0] == '1':
		return fmt.Sprintf("+1 (%s) %s-%s", d[1:4], d[4:7], d[7:])
	}
	return s
}

// ImageSource lets raster data URLs through to an img src; html/template
// would otherwise replace them with #ZgotmplZ. Anything else is left to
// the normal URL escaping.
func ImageSource(s string) any {
	for _, prefix := range []string{"data:image/png;base64,", "data:image/jpeg;base64,", "data:image/gif;base64,"} {
		if strings.HasPrefix(s, prefix) {
			return template.URL(s)
		}
	}
	return s
}

// Field reads one value from an entity for display; missing is "".
func Field(e models.Entity, name string) string {
	return e.String(name)
}
