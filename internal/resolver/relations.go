package resolver

import "loanportal/internal/models"

// filter is one candidate server-side query: Field=<value of source[From]>.
// From "id" means the source's own id.
type filter struct {
	Field string
	From  string
}

// relation describes how targets of one kind are found from a source.
type relation struct {
	Direct  []string
	Filters []filter
	Scan    bool
}

func byID(field string) []filter { return []filter{{Field: field, From: "id"}} }

var relations = map[models.Kind]map[models.Kind]relation{
	models.KindAsset: {
		models.KindAccount: {Direct: []string{"account_id"}},
		models.KindContact: {Direct: []string{"contact_id"}},
		models.KindLoan: {
			Direct:  []string{"loan_id"},
			Filters: []filter{{Field: "account_id", From: "account_id"}, {Field: "contact_id", From: "contact_id"}},
			Scan:    true,
		},
		models.KindCase: {
			Filters: []filter{{Field: "loan_id", From: "loan_id"}, {Field: "account_id", From: "account_id"}},
			Scan:    true,
		},
	},
	models.KindLoan: {
		models.KindAccount: {Direct: []string{"account_id"}},
		models.KindContact: {Direct: []string{"primary_contact", "contact_id"}},
		models.KindAsset:   {Filters: byID("loan_id"), Scan: true},
		models.KindCase:    {Filters: byID("loan_id"), Scan: true},
	},
	models.KindCase: {
		models.KindAccount: {Direct: []string{"account_id"}},
		models.KindContact: {Direct: []string{"contact_id"}},
		models.KindLoan:    {Direct: []string{"loan_id"}},
		models.KindAsset: {
			Filters: []filter{{Field: "loan_id", From: "loan_id"}, {Field: "account_id", From: "account_id"}},
			Scan:    true,
		},
	},
	models.KindContact: {
		models.KindAccount: {Direct: []string{"account_id"}},
		models.KindLoan:    {Filters: byID("contact_id"), Scan: true},
		models.KindAsset:   {Filters: byID("contact_id"), Scan: true},
		models.KindCase:    {Filters: byID("contact_id"), Scan: true},
	},
	models.KindAccount: {
		models.KindContact: {Filters: byID("account_id"), Scan: true},
		models.KindLoan:    {Filters: byID("account_id"), Scan: true},
		models.KindAsset:   {Filters: byID("account_id"), Scan: true},
		models.KindCase:    {Filters: byID("account_id"), Scan: true},
	},
}

// Targets lists the kinds that can be resolved from source, in display order.
func Targets(source models.Kind) []models.Kind {
	var out []models.Kind
	for _, k := range models.Kinds {
		if _, ok := relations[source][k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func lookup(source, target models.Kind) (relation, bool) {
	rel, ok := relations[source][target]
	return rel, ok
}

// Singular reports whether source has at most one target of this kind,
// i.e. the relation is a plain foreign key with no query fallback.
func Singular(source, target models.Kind) bool {
	rel, ok := relations[source][target]
	return ok && len(rel.Direct) > 0 && len(rel.Filters) == 0 && !rel.Scan
}

// Related reports whether target can be resolved from source at all.
func Related(source, target models.Kind) bool {
	_, ok := relations[source][target]
	return ok
}
