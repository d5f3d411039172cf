package classifications

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/BerndBr/taskana/pkg/cache"
	"github.com/BerndBr/taskana/pkg/events"
	"github.com/BerndBr/taskana/pkg/limiter"
	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/query"
	"github.com/BerndBr/taskana/pkg/repository"
	"github.com/BerndBr/taskana/pkg/storage"
)

// EventImported is the event type published after a committed import.
const EventImported = "classifications.imported"

// ImportedEvent describes a committed import.
type ImportedEvent struct {
	Domains     []string  `json:"domains"`
	Created     int       `json:"created"`
	Updated     int       `json:"updated"`
	Invalidated int       `json:"invalidated"`
	Digest      string    `json:"digest"`
	ImportedAt  time.Time `json:"imported_at"`
}

type repo struct {
	db         *sql.DB
	engine     *Engine
	imports    *limiter.Limiter
	cache      cache.System
	events     events.System
	archive    storage.System
	metrics    *Metrics
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a classification repository implementing the System interface.
// Imports run through engine, bounded by imports; cache, events, and archive
// receive post-commit side effects and may be no-op systems.
func New(
	db *sql.DB,
	engine *Engine,
	imports *limiter.Limiter,
	cache cache.System,
	events events.System,
	archive storage.System,
	metrics *Metrics,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		engine:     engine,
		imports:    imports,
		cache:      cache,
		events:     events,
		archive:    archive,
		metrics:    metrics,
		logger:     logger.With("system", "classifications"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Classification], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Key", "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count classifications: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanClassification)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id string) (*Classification, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) FindByKey(ctx context.Context, key, domain string) (*Classification, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("Key", key).
		WhereEquals("Domain", domain).
		BuildSingleOrNull()

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

// Export serves cached documents keyed by the domain's export generation.
// Imports bump the generation, so a snapshot read before an import commits
// lands under a key no later export reads.
func (r *repo) Export(ctx context.Context, domain string) (*Export, error) {
	gen, err := r.generation(ctx, domain)
	cacheable := err == nil
	if !cacheable {
		r.logger.Warn("export generation read failed", "domain", domain, "error", err)
	}

	key := exportKey(domain, gen)
	if cacheable {
		if b, ok, err := r.cache.Get(ctx, key); err != nil {
			r.logger.Warn("export cache read failed", "domain", domain, "error", err)
		} else if ok {
			var exp Export
			if err := json.Unmarshal(b, &exp); err == nil {
				return &exp, nil
			}
		}
	}

	var filter *string
	if domain != "" {
		filter = &domain
	}

	q, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("Domain", filter).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, fmt.Errorf("export classifications: %w", err)
	}

	exp := &Export{Classifications: items}
	if !cacheable {
		return exp, nil
	}
	if b, err := json.Marshal(exp); err == nil {
		if err := r.cache.Set(ctx, key, b); err != nil {
			r.logger.Warn("export cache write failed", "domain", domain, "error", err)
		}
	}

	return exp, nil
}

func (r *repo) generation(ctx context.Context, domain string) (int64, error) {
	b, ok, err := r.cache.Get(ctx, generationKey(domain))
	if err != nil || !ok {
		return 0, err
	}
	gen, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse export generation %q: %w", b, err)
	}
	return gen, nil
}

// invalidateExports bumps the generation of every touched domain and of
// the all-domains export, then drops the superseded entries.
func (r *repo) invalidateExports(ctx context.Context, domains []string) {
	for _, d := range append([]string{""}, domains...) {
		gen, err := r.cache.Incr(ctx, generationKey(d))
		if err != nil {
			r.logger.Warn("export cache invalidation failed", "domain", d, "error", err)
			continue
		}
		if err := r.cache.Delete(ctx, exportKey(d, gen-1)); err != nil {
			r.logger.Warn("drop superseded export failed", "domain", d, "error", err)
		}
	}
}

func (r *repo) Import(ctx context.Context, batch []Record, opts ImportOptions) (*Result, error) {
	start := time.Now()
	batch = Normalize(batch)

	ctx, span := otel.Tracer("classifications").Start(ctx, "classifications.Import")
	defer span.End()
	span.SetAttributes(
		attribute.Int("records", len(batch)),
		attribute.String("absent", string(opts.Absent)),
		attribute.Bool("dry_run", opts.DryRun),
	)

	result, err := r.importBatch(ctx, batch, opts)
	r.metrics.ObserveImport(start, result, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		if errors.Is(err, ErrStoreFailure) {
			r.logger.Error("classification import failed", "records", len(batch), "error", err)
		} else {
			r.logger.Warn("classification import rejected", "records", len(batch), "error", err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.StringSlice("domains", result.Domains),
		attribute.Int("created", result.Created),
		attribute.Int("updated", result.Updated),
		attribute.Int("invalidated", result.Invalidated),
	)

	r.logger.Info("classifications imported",
		"domains", result.Domains,
		"created", result.Created,
		"updated", result.Updated,
		"invalidated", result.Invalidated,
		"dry_run", result.DryRun,
		"duration", time.Since(start),
	)

	if !opts.DryRun {
		r.afterCommit(context.WithoutCancel(ctx), batch, result)
	}

	return result, nil
}

func (r *repo) importBatch(ctx context.Context, batch []Record, opts ImportOptions) (*Result, error) {
	if err := Detect(batch); err != nil {
		return nil, err
	}

	release, err := r.imports.Acquire(ctx)
	if err != nil {
		if errors.Is(err, limiter.ErrBusy) {
			return nil, ErrBusy
		}
		return nil, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)

	merge := func(tx *sql.Tx) (*Result, error) {
		if err := repository.AdvisoryLock(ctx, tx, Domains(batch)...); err != nil {
			return nil, storeErr("lock domains", err)
		}
		return r.engine.Merge(ctx, NewSQLStore(tx), batch, opts)
	}

	var result *Result
	if opts.DryRun {
		result, err = repository.RollbackOnly(ctx, r.db, merge)
	} else {
		result, err = repository.WithTx(ctx, r.db, merge)
	}
	if err != nil {
		return nil, commitError(err)
	}
	return result, nil
}

// commitError keeps engine errors as they are and classifies the rest.
// A unique violation means a concurrent writer claimed a key first.
func commitError(err error) error {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, ErrDuplicate), repository.IsUniqueViolation(err):
		return &ConflictError{Reason: "classification key and domain written concurrently"}
	case repository.IsConcurrencyFailure(err):
		return &ConflictError{Reason: "import collided with a concurrent transaction"}
	}
	return storeErr("commit", err)
}

// afterCommit runs the side effects of a committed import. Failures are
// logged and never undo the import.
func (r *repo) afterCommit(ctx context.Context, batch []Record, result *Result) {
	r.invalidateExports(ctx, result.Domains)

	doc, digest, err := Canonical(batch)
	if err != nil {
		r.logger.Warn("canonicalize import failed", "error", err)
		return
	}

	now := time.Now().UTC()

	key := ArchiveKey(now, digest)
	if err := r.archive.Upload(ctx, key, bytes.NewReader(doc), "application/json"); err != nil {
		r.logger.Warn("import archive failed", "key", key, "error", err)
	}

	msg, err := events.NewMessage(EventImported, strings.Join(result.Domains, ","), ImportedEvent{
		Domains:     result.Domains,
		Created:     result.Created,
		Updated:     result.Updated,
		Invalidated: result.Invalidated,
		Digest:      digest,
		ImportedAt:  now,
	})
	if err != nil {
		r.logger.Warn("build import event failed", "error", err)
		return
	}
	if err := r.events.Publish(ctx, msg); err != nil {
		r.logger.Warn("publish import event failed", "digest", digest, "error", err)
	}
}

// Canonical returns the RFC 8785 form of the batch as an import document
// together with its hex SHA-256 digest.
func Canonical(batch []Record) ([]byte, string, error) {
	raw, err := json.Marshal(Definitions{Classifications: batch})
	if err != nil {
		return nil, "", fmt.Errorf("marshal batch: %w", err)
	}

	doc, err := jcs.Transform(raw)
	if err != nil {
		return nil, "", fmt.Errorf("canonicalize batch: %w", err)
	}

	sum := sha256.Sum256(doc)
	return doc, hex.EncodeToString(sum[:]), nil
}

// ArchiveKey returns the blob key for an import archived at t.
func ArchiveKey(t time.Time, digest string) string {
	return fmt.Sprintf("%s/%s.json", t.UTC().Format("2006/01/02"), digest)
}

func exportKey(domain string, gen int64) string {
	return fmt.Sprintf("classifications:export:%s:%d", domainKey(domain), gen)
}

func generationKey(domain string) string {
	return "classifications:generation:" + domainKey(domain)
}

func domainKey(domain string) string {
	if domain == "" {
		return "*"
	}
	return domain
}
