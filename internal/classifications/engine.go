package classifications

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/BerndBr/taskana/internal/classifications"

// AbsentPolicy decides what happens to stored classifications of an
// imported domain that the batch does not mention.
type AbsentPolicy string

const (
	AbsentKeep       AbsentPolicy = "keep"
	AbsentInvalidate AbsentPolicy = "invalidate"
)

// ParseAbsentPolicy validates a policy name. Blank selects AbsentKeep.
func ParseAbsentPolicy(s string) (AbsentPolicy, error) {
	switch AbsentPolicy(s) {
	case "", AbsentKeep:
		return AbsentKeep, nil
	case AbsentInvalidate:
		return AbsentInvalidate, nil
	}
	return "", &ValidationError{Reason: fmt.Sprintf("unknown absent policy %q", s)}
}

// ImportOptions controls a single import.
type ImportOptions struct {
	Absent AbsentPolicy `json:"absent"`
	DryRun bool         `json:"dry_run"`
}

// Result summarizes an applied (or previewed) batch.
type Result struct {
	Domains     []string `json:"domains"`
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	Invalidated int      `json:"invalidated"`
	DryRun      bool     `json:"dry_run"`
}

// Engine merges import batches into a Store. It holds no state between
// calls and never opens or commits a transaction.
type Engine struct {
	rules  Rules
	newID  func() string
	now    func() time.Time
	tracer trace.Tracer
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithIDGenerator replaces the generator used for new classification ids.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

// WithClock replaces the time source used for created and modified stamps.
func WithClock(fn func() time.Time) EngineOption {
	return func(e *Engine) { e.now = fn }
}

// NewEngine creates an Engine enforcing rules.
func NewEngine(rules Rules, opts ...EngineOption) *Engine {
	e := &Engine{
		rules:  rules,
		newID:  NewID,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewID generates a classification identifier.
func NewID() string {
	return "CLI:" + uuid.NewString()
}

// Merge validates batch completely and then upserts it into store in parent
// dependency order. Every validation failure is returned before the first
// write. On error the caller must roll back the transaction behind store.
func (e *Engine) Merge(ctx context.Context, store Store, batch []Record, opts ImportOptions) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "classifications.merge",
		trace.WithAttributes(
			attribute.Int("batch.size", len(batch)),
			attribute.String("absent.policy", string(opts.Absent)),
		),
	)
	defer span.End()

	result, err := e.merge(ctx, store, Normalize(batch), opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("result.created", result.Created),
		attribute.Int("result.updated", result.Updated),
		attribute.Int("result.invalidated", result.Invalidated),
	)
	return result, nil
}

func (e *Engine) merge(ctx context.Context, store Store, batch []Record, opts ImportOptions) (*Result, error) {
	if err := Detect(batch); err != nil {
		return nil, err
	}

	r, order, err := e.plan(ctx, store, batch)
	if err != nil {
		return nil, err
	}

	result := &Result{Domains: Domains(batch), DryRun: opts.DryRun}
	now := e.now().UTC().Truncate(time.Microsecond)

	_, span := e.tracer.Start(ctx, "classifications.apply")
	defer span.End()

	for _, idx := range order {
		n := r.nodes[idx]
		c := e.rules.apply(n.rec, n.existing, n.id, now)
		c.ParentID, c.ParentKey = "", ""
		if n.parent != nil {
			c.ParentID = r.targetID(*n.parent)
			c.ParentKey = r.targetKey(*n.parent)
		}

		if _, err := store.Upsert(ctx, c); err != nil {
			return nil, storeErr("upsert "+n.rec.ref(), err)
		}

		if n.existing == nil {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if opts.Absent == AbsentInvalidate {
		for _, domain := range result.Domains {
			n, err := e.invalidateAbsent(ctx, store, r, domain, now)
			if err != nil {
				return nil, err
			}
			result.Invalidated += n
		}
	}

	return result, nil
}

// plan runs every store-backed check and returns the resolved arena with
// its dependency order. It performs no writes.
func (e *Engine) plan(ctx context.Context, store Store, batch []Record) (*resolver, []int, error) {
	ctx, span := e.tracer.Start(ctx, "classifications.resolve")
	defer span.End()

	r := newResolver(store, batch)
	if err := r.identify(ctx, e.newID); err != nil {
		return nil, nil, err
	}

	for _, n := range r.nodes {
		if err := e.rules.check(n.rec, n.existing); err != nil {
			return nil, nil, err
		}
	}

	if err := r.resolveParents(ctx); err != nil {
		return nil, nil, err
	}

	order, err := r.order()
	if err != nil {
		return nil, nil, err
	}

	if err := r.checkAncestry(ctx); err != nil {
		return nil, nil, err
	}

	return r, order, nil
}

func (e *Engine) invalidateAbsent(ctx context.Context, store Store, r *resolver, domain string, now time.Time) (int, error) {
	stored, err := store.ListByDomain(ctx, domain)
	if err != nil {
		return 0, storeErr("list domain "+domain, err)
	}

	count := 0
	for _, c := range stored {
		if _, inBatch := r.byFinal[c.ID]; inBatch || !c.IsValidInDomain {
			continue
		}
		c.IsValidInDomain = false
		c.Modified = now
		if _, err := store.Upsert(ctx, c); err != nil {
			return 0, storeErr("invalidate "+c.Domain+"/"+c.Key, err)
		}
		count++
	}
	return count, nil
}

// Domains returns the sorted distinct domains of batch.
func Domains(batch []Record) []string {
	out := make([]string, 0, len(batch))
	for _, r := range batch {
		out = append(out, r.Domain)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
