package resolver

import (
	"strconv"
	"strings"

	"loanportal/internal/models"
)

type Weights struct {
	Identifier int
	Account    int
	Contact    int
	Descriptor int
}

type scorer struct {
	sourceKind models.Kind
	source     models.Entity
	target     models.Kind
	weights    Weights

	vin, year, make, model string
	contacts               map[int]bool
}

func newScorer(sourceKind models.Kind, source models.Entity, target models.Kind, w Weights) *scorer {
	return &scorer{
		sourceKind: sourceKind,
		source:     source,
		target:     target,
		weights:    w,
		vin:        norm(source.FirstString(models.VINFields...)),
		year:       norm(source.FirstString(models.YearFields...)),
		make:       norm(source.FirstString(models.MakeFields...)),
		model:      norm(source.FirstString(models.ModelFields...)),
		contacts:   contactIDs(sourceKind, source),
	}
}

// score adds up the signals linking candidate to the source.
func (s *scorer) score(candidate models.Entity) (int, []string) {
	var (
		total   int
		reasons []string
	)
	add := func(w int, reason string) {
		total += w
		reasons = append(reasons, reason)
	}

	if s.references(candidate) {
		add(s.weights.Identifier, "reference")
	}
	if s.vin != "" && s.vin == norm(candidate.FirstString(models.VINFields...)) {
		add(s.weights.Identifier, "vin")
	}
	if models.SameInt(s.source, "account_id", candidate, "account_id") {
		add(s.weights.Account, "account")
	}
	if s.sharesContact(candidate) {
		add(s.weights.Contact, "contact")
	}
	if models.SameInt(s.source, "loan_id", candidate, "loan_id") {
		add(s.weights.Descriptor, "loan")
	}
	// vehicle descriptors only count once some key links the pair
	if total == 0 {
		return 0, nil
	}
	if s.year != "" && s.year == norm(candidate.FirstString(models.YearFields...)) {
		add(s.weights.Descriptor, "year")
	}
	if s.make != "" && s.make == norm(candidate.FirstString(models.MakeFields...)) {
		add(s.weights.Descriptor, "make")
	}
	if s.model != "" && s.model == norm(candidate.FirstString(models.ModelFields...)) {
		add(s.weights.Descriptor, "model")
	}
	return total, reasons
}

// references reports a foreign key between the pair in either direction.
func (s *scorer) references(candidate models.Entity) bool {
	srcID, candID := s.source.ID(), candidate.ID()
	if srcID != 0 {
		fields := []string{s.sourceKind.FKField()}
		if s.sourceKind == models.KindContact && s.target == models.KindLoan {
			fields = models.LoanContactFields
		}
		for _, f := range fields {
			if id, ok := candidate.Int(f); ok && id == srcID {
				return true
			}
		}
	}
	if candID != 0 {
		if id, ok := s.source.Int(s.target.FKField()); ok && id == candID {
			return true
		}
	}
	return false
}

func (s *scorer) sharesContact(candidate models.Entity) bool {
	if len(s.contacts) == 0 {
		return false
	}
	for id := range contactIDs(s.target, candidate) {
		if s.contacts[id] {
			return true
		}
	}
	return false
}

func contactIDs(kind models.Kind, e models.Entity) map[int]bool {
	fields := []string{"contact_id"}
	if kind == models.KindLoan {
		fields = models.LoanContactFields
	}
	out := map[int]bool{}
	for _, f := range fields {
		if id, ok := e.Int(f); ok {
			out[id] = true
		}
	}
	return out
}

func norm(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	// years arrive as 2019, "2019" or 2019.0
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
