package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type fieldType int

const (
	fieldText fieldType = iota
	fieldInt
	fieldNumber
)

type formField struct {
	Name    string
	Type    fieldType
	Default string
}

func text(names ...string) []formField {
	out := make([]formField, len(names))
	for i, n := range names {
		out[i] = formField{Name: n}
	}
	return out
}

func ints(names ...string) []formField {
	out := make([]formField, len(names))
	for i, n := range names {
		out[i] = formField{Name: n, Type: fieldInt}
	}
	return out
}

func numbers(names ...string) []formField {
	out := make([]formField, len(names))
	for i, n := range names {
		out[i] = formField{Name: n, Type: fieldNumber}
	}
	return out
}

func concat(groups ...[]formField) []formField {
	var out []formField
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var formFields = map[Kind][]formField{
	KindAccount: text("company_name", "account_type", "primary_email", "home_phone", "cell_phone",
		"work_phone", "street_address", "city", "state_province", "postal_code", "country", "notes", "tags"),
	KindContact: concat(
		text("first_name", "last_name", "email", "phone", "contact_type"),
		ints("account_id"),
	),
	KindLoan: concat(
		text("contract_number", "loan_type"),
		[]formField{{Name: "status", Default: "Active"}},
		ints("account_id", "contact_id"),
		numbers("loan_amount", "interest_rate", "loan_term", "monthly_payment", "principal_balance"),
		text("next_payment_date"),
	),
	KindAsset: concat(
		ints("Year"),
		text("Make", "Model", "VIN"),
		ints("mileage"),
		text("color"),
		[]formField{{Name: "status", Default: "Active"}},
		ints("account_id"),
		numbers("value", "purchase_price", "loan_balance"),
		text("condition", "location", "license_plate", "insurance_company", "notes",
			"purchase_date", "registration_date", "insurance_expiry"),
	),
	KindCase: concat(
		text("subject", "description", "case_type"),
		[]formField{{Name: "priority", Default: "Low"}, {Name: "status", Default: "Open"}},
		ints("account_id", "contact_id", "loan_id"),
		text("assigned_team", "due_date", "category", "resolution", "internal_notes"),
	),
}

// PayloadFromForm turns a submitted create/edit form into the JSON body the
// backend expects. Blank fields are left out. A malformed integer is an
// error; a malformed amount is dropped.
func PayloadFromForm(kind Kind, form url.Values) (Entity, error) {
	fields, ok := formFields[kind]
	if !ok {
		return nil, fmt.Errorf("no form for kind %q", kind)
	}
	out := Entity{}
	for _, f := range fields {
		raw := strings.TrimSpace(form.Get(f.Name))
		if raw == "" {
			raw = f.Default
		}
		if raw == "" {
			continue
		}
		switch f.Type {
		case fieldInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a whole number", f.Name, raw)
			}
			out[f.Name] = n
		case fieldNumber:
			d, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			out[f.Name] = json.Number(d.String())
		default:
			out[f.Name] = raw
		}
	}
	return out, nil
}

// FilterParam maps a list-page query parameter onto the backend's name.
type FilterParam struct {
	Query   string
	Backend string
	// Default applies when the parameter is absent from the URL; an
	// explicitly empty value means "all".
	Default string
}

var listFilters = map[Kind][]FilterParam{
	KindAccount: {{Query: "type", Backend: "account_type"}, {Query: "status", Backend: "status"}},
	KindContact: {{Query: "type", Backend: "contact_type"}},
	KindLoan: {
		{Query: "status", Backend: "loan_status"},
		{Query: "type", Backend: "loan_type"},
		{Query: "financial_institution", Backend: "financial_institution"},
	},
	KindAsset: {{Query: "make", Backend: "Make"}, {Query: "status", Backend: "status"}},
	KindCase: {
		{Query: "status", Backend: "status", Default: "New"},
		{Query: "priority", Backend: "priority"},
		{Query: "type", Backend: "case_type"},
		{Query: "financial_institution", Backend: "financial_institution"},
	},
}

func ListFilters(kind Kind) []FilterParam { return listFilters[kind] }

// Deletable reports whether the front end offers deletion for kind.
func (k Kind) Deletable() bool {
	return k == KindLoan || k == KindAsset || k == KindCase
}
