package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"loanportal/internal/models"
	"loanportal/internal/resolver"
)

// Detail is one entity together with everything resolved around it.
type Detail struct {
	Kind    models.Kind
	Entity  models.Entity
	Related map[models.Kind]*resolver.Resolution

	// Loans only.
	Financials       *models.Financials
	SecondaryContact models.Entity
}

// One returns the first related entity of kind, or nil.
func (d *Detail) One(kind models.Kind) models.Entity {
	return d.Related[kind].First()
}

// Many returns all related entities of kind; never nil.
func (d *Detail) Many(kind models.Kind) []models.Entity {
	if r := d.Related[kind]; r != nil {
		return r.Entities()
	}
	return []models.Entity{}
}

// Strategies reports how each related kind was found.
func (d *Detail) Strategies() map[string]resolver.Strategy {
	out := make(map[string]resolver.Strategy, len(d.Related))
	for k, r := range d.Related {
		out[string(k)] = r.Strategy
	}
	return out
}

// Vars flattens the detail for templates: the entity under its kind name,
// single relations under the singular name, lists under the plural.
func (d *Detail) Vars() map[string]any {
	vars := map[string]any{
		"kind":       d.Kind,
		"entity":     d.Entity,
		string(d.Kind): d.Entity,
		"strategies": d.Strategies(),
	}
	for _, target := range resolver.Targets(d.Kind) {
		if resolver.Singular(d.Kind, target) {
			vars[string(target)] = d.One(target)
		} else {
			vars[target.Collection()] = d.Many(target)
		}
	}
	if d.Kind == models.KindLoan {
		vars["primary_contact"] = d.One(models.KindContact)
		vars["secondary_contact"] = d.SecondaryContact
		if d.Financials != nil {
			vars["financials"] = d.Financials
		}
	}
	return vars
}

type DetailService struct {
	Backend  EntityBackend
	Resolver *resolver.Resolver
	log      *slog.Logger
}

func NewDetailService(b EntityBackend, r *resolver.Resolver, logger *slog.Logger) *DetailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailService{Backend: b, Resolver: r, log: logger.With("component", "detail")}
}

// Load fetches kind/id and resolves its related entities concurrently.
func (s *DetailService) Load(ctx context.Context, p *models.Principal, kind models.Kind, id int) (*Detail, error) {
	entity, err := s.fetch(ctx, p, kind, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Kind: kind, Entity: entity, Related: map[models.Kind]*resolver.Resolution{}}
	if kind == models.KindLoan {
		f := models.ComputeFinancials(entity)
		f.Apply(entity)
		d.Financials = &f
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range resolver.Targets(kind) {
		g.Go(func() error {
			res, err := s.Resolver.Resolve(gctx, p, kind, entity, target)
			if err != nil {
				return err
			}
			mu.Lock()
			d.Related[target] = res
			mu.Unlock()
			return nil
		})
	}
	if kind == models.KindLoan {
		if cid, ok := entity.Int("secondary_contact"); ok && cid > 0 {
			g.Go(func() error {
				c, err := s.Resolver.Fetch(gctx, p, models.KindContact, cid)
				if err != nil {
					return err
				}
				mu.Lock()
				d.SecondaryContact = c
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if kind == models.KindCase {
		if err := s.caseFallback(ctx, p, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// caseFallback borrows account and contact from the case's loan when the
// case itself references neither.
func (s *DetailService) caseFallback(ctx context.Context, p *models.Principal, d *Detail) error {
	loan := d.One(models.KindLoan)
	if loan == nil || d.One(models.KindAccount) != nil || d.One(models.KindContact) != nil {
		return nil
	}
	fill := func(target models.Kind, fields ...string) error {
		for _, f := range fields {
			id, ok := loan.Int(f)
			if !ok || id <= 0 {
				continue
			}
			e, err := s.Resolver.Fetch(ctx, p, target, id)
			if err != nil {
				return err
			}
			if e != nil {
				d.Related[target] = &resolver.Resolution{
					Source:   d.Kind,
					SourceID: d.Entity.ID(),
					Target:   target,
					Strategy: resolver.StrategyDirect,
					Matches: []resolver.Match{{
						Entity:   e,
						Strategy: resolver.StrategyDirect,
						Reasons:  []string{"via loan"},
					}},
				}
				return nil
			}
		}
		return nil
	}
	if err := fill(models.KindAccount, "account_id"); err != nil {
		return err
	}
	return fill(models.KindContact, "primary_contact", "contact_id")
}

// Related resolves one target kind for kind/id without loading the rest
// of the detail page.
func (s *DetailService) Related(ctx context.Context, p *models.Principal, kind models.Kind, id int, target models.Kind) (*resolver.Resolution, error) {
	if !resolver.Related(kind, target) {
		return nil, fmt.Errorf("%w: %s -> %s", resolver.ErrNoRelation, kind, target)
	}
	entity, err := s.fetch(ctx, p, kind, id)
	if err != nil {
		return nil, err
	}
	if kind == models.KindLoan {
		models.ComputeFinancials(entity).Apply(entity)
	}
	return s.Resolver.Resolve(ctx, p, kind, entity, target)
}

func (s *DetailService) fetch(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	entity, err := s.Backend.Get(ctx, p, kind, id)
	if err != nil {
		return nil, translate(err)
	}
	// Some backend builds answer unknown asset ids with a neighbouring row.
	if kind == models.KindAsset && entity.ID() != id {
		return nil, fmt.Errorf("%w: asset %d answered as %d", ErrIDMismatch, id, entity.ID())
	}
	return entity, nil
}
