// Package resolver finds the entities related to a source entity when the
// backend does not hand them over directly.
//
// Three strategies run in order and the first one that yields anything
// wins: a direct foreign-key lookup, one server-side filtered query, and a
// scored scan over the whole target collection. A failing step counts as
// "nothing found" and the chain moves on; only a 401 aborts.
package resolver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"loanportal/internal/backend"
	"loanportal/internal/config"
	"loanportal/internal/metrics"
	"loanportal/internal/models"
)

type Strategy string

const (
	StrategyDirect        Strategy = "direct"
	StrategyFilteredQuery Strategy = "filtered_query"
	StrategyHeuristicScan Strategy = "heuristic_scan"
	StrategyNone          Strategy = "none"
)

var (
	// ErrReauthenticate means the backend rejected the session token.
	ErrReauthenticate = errors.New("re-authentication required")
	ErrNoRelation     = errors.New("no relation between kinds")
)

// Backend is the read capability the resolver needs.
type Backend interface {
	Get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error)
	List(ctx context.Context, p *models.Principal, kind models.Kind, q backend.Query) (*backend.Page, error)
}

type Config struct {
	ProbeTimeout time.Duration
	ScanTimeout  time.Duration
	ScanPageSize int
	ScanMaxItems int
	Threshold    int
	Weights      Weights
}

func DefaultConfig() Config {
	d := config.Default()
	return ConfigFrom(d.Backend, d.Resolver)
}

func ConfigFrom(b config.BackendConfig, r config.ResolverConfig) Config {
	return Config{
		ProbeTimeout: b.ProbeTimeout,
		ScanTimeout:  b.ScanTimeout,
		ScanPageSize: b.ScanPageSize,
		ScanMaxItems: b.ScanMaxItems,
		Threshold:    r.Threshold,
		Weights: Weights{
			Identifier: r.Weights.Identifier,
			Account:    r.Weights.Account,
			Contact:    r.Weights.Contact,
			Descriptor: r.Weights.Descriptor,
		},
	}
}

// Match is one related entity and how it was found.
type Match struct {
	Entity   models.Entity `json:"entity"`
	Strategy Strategy      `json:"strategy"`
	Score    int           `json:"score,omitempty"`
	Reasons  []string      `json:"reasons,omitempty"`
}

type Resolution struct {
	Source   models.Kind `json:"source"`
	SourceID int         `json:"source_id"`
	Target   models.Kind `json:"target"`
	Strategy Strategy    `json:"strategy"`
	Matches  []Match     `json:"matches"`
}

func (r *Resolution) Entities() []models.Entity {
	out := make([]models.Entity, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Entity)
	}
	return out
}

// First returns the best match, or nil.
func (r *Resolution) First() models.Entity {
	if r == nil || len(r.Matches) == 0 {
		return nil
	}
	return r.Matches[0].Entity
}

type Resolver struct {
	backend Backend
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(b Backend, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = d.ProbeTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = d.ScanTimeout
	}
	if cfg.ScanPageSize <= 0 {
		cfg.ScanPageSize = d.ScanPageSize
	}
	if cfg.ScanMaxItems <= 0 {
		cfg.ScanMaxItems = d.ScanMaxItems
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = d.Threshold
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = d.Weights
	}
	return &Resolver{backend: b, cfg: cfg, log: logger.With("component", "resolver"), metrics: m}
}

// Resolve finds the target-kind entities related to source. An empty
// result is not an error. The error is ErrReauthenticate on a 401, the
// caller's context error if it was cancelled, or ErrNoRelation.
func (r *Resolver) Resolve(ctx context.Context, p *models.Principal, sourceKind models.Kind, source models.Entity, target models.Kind) (*Resolution, error) {
	rel, ok := lookup(sourceKind, target)
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRelation, sourceKind, target)
	}
	res := &Resolution{
		Source:   sourceKind,
		SourceID: source.ID(),
		Target:   target,
		Strategy: StrategyNone,
		Matches:  []Match{},
	}
	log := r.log.With("source", sourceKind, "source_id", res.SourceID, "target", target)

	steps := []struct {
		strategy Strategy
		run      func() ([]Match, error)
	}{
		{StrategyDirect, func() ([]Match, error) { return r.direct(ctx, p, rel, source, target) }},
		{StrategyFilteredQuery, func() ([]Match, error) { return r.filtered(ctx, p, rel, source, target) }},
		{StrategyHeuristicScan, func() ([]Match, error) {
			if !rel.Scan {
				return nil, nil
			}
			return r.scan(ctx, p, sourceKind, source, target)
		}},
	}
	for _, step := range steps {
		matches, err := step.run()
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) {
				log.Warn("backend rejected token, aborting resolution", "strategy", step.strategy)
				return nil, fmt.Errorf("%w: %w", ErrReauthenticate, err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("strategy failed, treating as no result", "strategy", step.strategy, "err", err)
			continue
		}
		if len(matches) > 0 {
			res.Strategy = step.strategy
			res.Matches = matches
			break
		}
	}

	r.metrics.ResolverOutcome(string(sourceKind), string(target), string(res.Strategy))
	log.Debug("resolved", "strategy", res.Strategy, "matches", len(res.Matches))
	return res, nil
}

// Fetch is a single guarded lookup by id: nil when it fails or does not
// exist, an error only when the token was rejected.
func (r *Resolver) Fetch(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	e, err := r.get(ctx, p, kind, id)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrReauthenticate, err)
		}
		if !backend.IsNotFound(err) {
			r.log.Warn("lookup failed", "kind", kind, "id", id, "err", err)
		}
		return nil, nil
	}
	return e, nil
}

func (r *Resolver) get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()
	return r.backend.Get(ctx, p, kind, id)
}

func (r *Resolver) direct(ctx context.Context, p *models.Principal, rel relation, source models.Entity, target models.Kind) ([]Match, error) {
	tried := map[int]bool{}
	var lastErr error
	for _, field := range rel.Direct {
		id, ok := source.Int(field)
		if !ok || id == 0 || tried[id] {
			continue
		}
		tried[id] = true
		e, err := r.get(ctx, p, target, id)
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) {
				return nil, err
			}
			if !backend.IsNotFound(err) {
				lastErr = err
			}
			continue
		}
		return []Match{{Entity: e, Strategy: StrategyDirect, Reasons: []string{field}}}, nil
	}
	return nil, lastErr
}

// filtered issues exactly one query, on the first filter the source can
// fill. Rows that carry the filter field with another value are dropped in
// case the backend ignored the parameter.
func (r *Resolver) filtered(ctx context.Context, p *models.Principal, rel relation, source models.Entity, target models.Kind) ([]Match, error) {
	for _, f := range rel.Filters {
		value, ok := source.Int(f.From)
		if !ok || value == 0 {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
		defer cancel()
		page, err := r.backend.List(pctx, p, target, backend.Query{
			Filters: map[string]string{f.Field: strconv.Itoa(value)},
		})
		if err != nil {
			return nil, err
		}
		var out []Match
		for _, e := range page.Items {
			if got, present := e.Int(f.Field); e.Has(f.Field) && (!present || got != value) {
				continue
			}
			out = append(out, Match{Entity: e, Strategy: StrategyFilteredQuery, Reasons: []string{f.Field}})
		}
		return out, nil
	}
	return nil, nil
}

func (r *Resolver) scan(ctx context.Context, p *models.Principal, sourceKind models.Kind, source models.Entity, target models.Kind) ([]Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ScanTimeout)
	defer cancel()

	candidates, err := r.collect(ctx, p, target)
	if err != nil {
		return nil, err
	}

	s := newScorer(sourceKind, source, target, r.cfg.Weights)
	var out []Match
	for _, c := range candidates {
		score, reasons := s.score(c)
		if score >= r.cfg.Threshold {
			out = append(out, Match{Entity: c, Strategy: StrategyHeuristicScan, Score: score, Reasons: reasons})
		}
	}
	slices.SortStableFunc(out, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Entity.ID(), b.Entity.ID())
	})
	return out, nil
}

// collect pages through the target collection up to ScanMaxItems. It stops
// early on a short page, a reached total, or a page with nothing new (a
// backend that ignores skip).
func (r *Resolver) collect(ctx context.Context, p *models.Principal, target models.Kind) ([]models.Entity, error) {
	var (
		out  []models.Entity
		seen = map[int]bool{}
	)
	for skip := 0; len(out) < r.cfg.ScanMaxItems; skip += r.cfg.ScanPageSize {
		page, err := r.backend.List(ctx, p, target, backend.Query{Skip: skip, Limit: r.cfg.ScanPageSize})
		if err != nil {
			return nil, err
		}
		fresh := 0
		for _, e := range page.Items {
			id := e.ID()
			if id != 0 && seen[id] {
				continue
			}
			seen[id] = true
			fresh++
			out = append(out, e)
			if len(out) >= r.cfg.ScanMaxItems {
				break
			}
		}
		if fresh == 0 || len(page.Items) < r.cfg.ScanPageSize || (page.Total != nil && skip+len(page.Items) >= *page.Total) {
			break
		}
	}
	return out, nil
}
