package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Entity is one backend record as decoded JSON. The backend owns the
// schema, so fields are read through the typed accessors below.
type Entity map[string]any

// Field spellings seen across backend versions.
var (
	VINFields   = []string{"VIN", "Vin", "vin", "vehicle_vin"}
	YearFields  = []string{"Year", "year", "vehicle_year"}
	MakeFields  = []string{"Make", "make", "vehicle_make"}
	ModelFields = []string{"Model", "model", "vehicle_model"}

	// LoanContactFields are the loan fields that point at a contact.
	LoanContactFields = []string{"primary_contact", "contact_id", "secondary_contact"}
)

func (e Entity) ID() int {
	id, _ := e.Int("id")
	return id
}

// Has reports whether field is present with a non-empty value.
func (e Entity) Has(field string) bool {
	v, ok := e[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Int reads an integer field. Whole floats and numeric strings count.
func (e Entity) Int(field string) (int, bool) {
	return toInt(e[field])
}

// String renders a scalar field as text; missing and null give "".
func (e Entity) String(field string) string {
	return toString(e[field])
}

// Text renders a decoded JSON scalar as text; nil and composites give "".
func Text(v any) string { return toString(v) }

// FirstString returns the first non-blank value among fields, trimmed.
func (e Entity) FirstString(fields ...string) string {
	for _, f := range fields {
		if s := strings.TrimSpace(e.String(f)); s != "" {
			return s
		}
	}
	return ""
}

// Decimal reads a numeric field; absent or non-numeric values are zero.
func (e Entity) Decimal(field string) decimal.Decimal {
	switch v := e[field].(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return decimal.NewFromFloat(v)
		}
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// SameInt reports whether both entities carry the same integer in their
// respective fields. Missing values never match.
func SameInt(a Entity, aField string, b Entity, bField string) bool {
	av, ok := a.Int(aField)
	if !ok {
		return false
	}
	bv, ok := b.Int(bField)
	return ok && av == bv
}

// Label picks a human name for the entity, used in logs and the PDF.
func (e Entity) Label(kind Kind) string {
	var s string
	switch kind {
	case KindAccount:
		s = e.FirstString("account_name", "company_name", "name")
	case KindContact:
		s = strings.TrimSpace(e.String("first_name") + " " + e.String("last_name"))
	case KindLoan:
		s = e.FirstString("contract_number", "loan_number")
	case KindAsset:
		s = strings.Join(strings.Fields(strings.Join([]string{
			e.FirstString(YearFields...), e.FirstString(MakeFields...), e.FirstString(ModelFields...),
		}, " ")), " ")
	case KindCase:
		s = e.FirstString("subject", "case_number")
	}
	if s == "" {
		s = kind.Title() + " #" + strconv.Itoa(e.ID())
	}
	return s
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case decimal.Decimal:
		return s.String()
	}
	return ""
}
