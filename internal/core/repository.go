// Package core implements the fowl repository: writes go to the remote
// document store first and are mirrored into the local cache, reads prefer
// the remote store and fall back to the cache when it fails. Breeding and
// lifecycle analytics are computed on top of the same records.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flockcore/internal/infra/cache/like"
	"flockcore/pkg/domain"
)

// FowlCollection is the remote collection holding fowl documents.
const FowlCollection = "fowls"

// Operation names reported to metrics, traces and logs.
const (
	OpAddFowl    = "add_fowl"
	OpUpdateFowl = "update_fowl"
	OpDeleteFowl = "delete_fowl"
	OpGetFowl    = "get_fowl"
	OpListFowls  = "list_fowls"
	OpSearch     = "search_fowls"
	OpRefresh    = "refresh"
)

// ErrValidation marks input rejected before any store is touched.
var ErrValidation = errors.New("invalid fowl")

// FowlRepository coordinates the remote document store and the local cache.
type FowlRepository struct {
	remote domain.DocumentStore
	cache  domain.FowlCache
	opts   options
	log    *zap.Logger
}

// NewFowlRepository wires a repository over remote and cache.
func NewFowlRepository(remote domain.DocumentStore, cache domain.FowlCache, opts ...Option) *FowlRepository {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &FowlRepository{remote: remote, cache: cache, opts: o, log: o.logger.Named("repository")}
}

// Cache returns the local cache backing the repository.
func (r *FowlRepository) Cache() domain.FowlCache { return r.cache }

// instrument starts a span and returns the func that records the outcome.
func (r *FowlRepository) instrument(ctx context.Context, op string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := r.opts.tracer.Start(ctx, op)
	return ctx, func(err error) {
		span.End(err)
		r.opts.metrics.Observe(ctx, op, err == nil, time.Since(started))
		if err != nil {
			r.log.Debug("operation failed", zap.String("operation", op), zap.Error(err))
		}
	}
}

func (r *FowlRepository) noteFallback(op string, remoteErr error) {
	if fr, ok := r.opts.metrics.(FallbackRecorder); ok {
		fr.CacheFallback(op)
	}
	r.log.Warn("remote store unavailable, serving cached data",
		zap.String("operation", op), zap.Error(remoteErr))
}

// AddFowl validates f, assigns an ID when missing, stores it remotely and then
// caches it. An ID already present remotely fails with domain.ErrDuplicate.
// A remote failure yields a failed Result carrying the remote error unchanged
// and leaves the cache untouched.
func (r *FowlRepository) AddFowl(ctx context.Context, f domain.Fowl) domain.Result[domain.Fowl] {
	ctx, done := r.instrument(ctx, OpAddFowl)
	out, err := r.addFowl(ctx, f)
	done(err)
	if err != nil {
		return domain.Failure[domain.Fowl](err)
	}
	return domain.Success(out)
}

func (r *FowlRepository) addFowl(ctx context.Context, f domain.Fowl) (domain.Fowl, error) {
	f = normalize(f.Clone())
	if f.ID == "" {
		f.ID = r.opts.newID()
	}
	now := r.opts.clock.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	if err := r.check(ctx, f); err != nil {
		return domain.Fowl{}, err
	}
	switch _, err := r.getRemote(ctx, f.ID); {
	case err == nil:
		return domain.Fowl{}, fmt.Errorf("fowl %s: %w", f.ID, domain.ErrDuplicate)
	case !isNotFound(err):
		return domain.Fowl{}, err
	}
	if err := r.putRemote(ctx, f); err != nil {
		return domain.Fowl{}, err
	}
	r.mirror(ctx, f)
	r.log.Info("fowl added", zap.String("id", f.ID), zap.String("owner_id", f.OwnerID))
	return f, nil
}

// UpdateFowl replaces an existing record, keeping its creation time.
func (r *FowlRepository) UpdateFowl(ctx context.Context, f domain.Fowl) domain.Result[domain.Fowl] {
	ctx, done := r.instrument(ctx, OpUpdateFowl)
	out, err := r.updateFowl(ctx, f)
	done(err)
	if err != nil {
		return domain.Failure[domain.Fowl](err)
	}
	return domain.Success(out)
}

func (r *FowlRepository) updateFowl(ctx context.Context, f domain.Fowl) (domain.Fowl, error) {
	f = normalize(f.Clone())
	if f.ID == "" {
		return domain.Fowl{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	existing, err := r.getRemote(ctx, f.ID)
	if err != nil {
		return domain.Fowl{}, err
	}
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = r.opts.clock.Now()
	if err := r.check(ctx, f); err != nil {
		return domain.Fowl{}, err
	}
	if err := r.putRemote(ctx, f); err != nil {
		return domain.Fowl{}, err
	}
	r.mirror(ctx, f)
	return f, nil
}

// DeleteFowl removes the record remotely and then from the cache.
func (r *FowlRepository) DeleteFowl(ctx context.Context, id string) domain.Result[struct{}] {
	ctx, done := r.instrument(ctx, OpDeleteFowl)
	err := r.remote.Delete(ctx, FowlCollection, id)
	if err == nil {
		if cerr := r.cache.Delete(ctx, id); cerr != nil {
			r.log.Warn("cache delete failed", zap.String("id", id), zap.Error(cerr))
		}
	}
	done(err)
	if err != nil {
		return domain.Failure[struct{}](err)
	}
	return domain.Success(struct{}{})
}

// GetFowl reads a record from the remote store, refreshing the cached copy.
// When the remote store fails the cached copy is returned instead.
func (r *FowlRepository) GetFowl(ctx context.Context, id string) domain.Result[domain.Fowl] {
	ctx, done := r.instrument(ctx, OpGetFowl)
	f, err := r.getRemote(ctx, id)
	switch {
	case err == nil:
		r.mirror(ctx, f)
	case isNotFound(err):
		if cerr := r.cache.Delete(ctx, id); cerr != nil {
			r.log.Warn("cache evict failed", zap.String("id", id), zap.Error(cerr))
		}
	default:
		if cached, cerr := r.cache.Get(ctx, id); cerr == nil {
			r.noteFallback(OpGetFowl, err)
			f, err = cached, nil
		}
	}
	done(err)
	if err != nil {
		return domain.Failure[domain.Fowl](err)
	}
	return domain.Success(f)
}

// ListFowls returns the birds owned by ownerID, or every bird when ownerID is
// empty. Remote failures fall back to the cache.
func (r *FowlRepository) ListFowls(ctx context.Context, ownerID string) domain.Result[[]domain.Fowl] {
	ctx, done := r.instrument(ctx, OpListFowls)
	ownerID = strings.TrimSpace(ownerID)
	all, err := r.listRemote(ctx)
	var out []domain.Fowl
	if err == nil {
		for _, f := range all {
			if ownerID == "" || f.OwnerID == ownerID {
				r.mirror(ctx, f)
				out = append(out, f)
			}
		}
	} else {
		var cached []domain.Fowl
		var cerr error
		if ownerID == "" {
			cached, cerr = r.cache.List(ctx)
		} else {
			cached, cerr = r.cache.QueryByField(ctx, domain.FieldOwnerID, like.Quote(ownerID))
			cached = ownedBy(cached, ownerID)
		}
		if cerr == nil {
			r.noteFallback(OpListFowls, err)
			out, err = cached, nil
		}
	}
	done(err)
	if err != nil {
		return domain.Failure[[]domain.Fowl](err)
	}
	return domain.Success(out)
}

// ownedBy keeps the records whose owner equals ownerID exactly. Cache LIKE
// matching folds case, owner IDs do not.
func ownedBy(fs []domain.Fowl, ownerID string) []domain.Fowl {
	out := fs[:0]
	for _, f := range fs {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out
}

// SearchFowls matches term anywhere in the cached fowl names. The term is
// trimmed and wrapped as %term%; LIKE metacharacters in it match literally.
func (r *FowlRepository) SearchFowls(ctx context.Context, term string) domain.Result[[]domain.Fowl] {
	ctx, done := r.instrument(ctx, OpSearch)
	out, err := r.cache.QueryByField(ctx, domain.FieldName, like.Contains(strings.TrimSpace(term)))
	done(err)
	if err != nil {
		return domain.Failure[[]domain.Fowl](err)
	}
	return domain.Success(out)
}

// RefreshStats summarises a Refresh run.
type RefreshStats struct {
	Synced int `json:"synced"`
	Pruned int `json:"pruned"`
}

// Refresh pulls every remote document into the cache and prunes cached
// records that no longer exist remotely.
func (r *FowlRepository) Refresh(ctx context.Context) (stats RefreshStats, err error) {
	ctx, done := r.instrument(ctx, OpRefresh)
	defer func() { done(err) }()

	remote, err := r.listRemote(ctx)
	if err != nil {
		return RefreshStats{}, err
	}
	cached, err := r.cache.List(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("list cache: %w", err)
	}
	live := make(map[string]struct{}, len(remote))
	for _, f := range remote {
		live[f.ID] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.concurrency)
	for _, f := range remote {
		g.Go(func() error { return upsert(gctx, r.cache, f) })
	}
	var stale []string
	for _, f := range cached {
		if _, ok := live[f.ID]; !ok {
			stale = append(stale, f.ID)
		}
	}
	for _, id := range stale {
		g.Go(func() error { return r.cache.Delete(gctx, id) })
	}
	if err := g.Wait(); err != nil {
		return RefreshStats{}, fmt.Errorf("refresh cache: %w", err)
	}
	stats = RefreshStats{Synced: len(remote), Pruned: len(stale)}
	r.log.Info("cache refreshed", zap.Int("synced", stats.Synced), zap.Int("pruned", stats.Pruned))
	return stats, nil
}

// Watch streams local cache mutations until ctx is done or the cache closes.
func (r *FowlRepository) Watch(ctx context.Context) <-chan domain.CacheEvent {
	sub, cancel := r.cache.Subscribe()
	out := make(chan domain.CacheEvent, cap(sub))
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (r *FowlRepository) check(ctx context.Context, f domain.Fowl) error {
	if err := validate(f); err != nil {
		return err
	}
	view, err := r.ruleView(ctx, f)
	if err != nil {
		return err
	}
	res, err := r.opts.rules.Evaluate(ctx, view, f)
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			r.log.Warn("rule warning", zap.String("rule", v.Rule), zap.String("id", f.ID), zap.String("message", v.Message))
		}
	}
	if res.HasBlocking() {
		return domain.RuleViolationError{Result: res}
	}
	return nil
}

func validate(f domain.Fowl) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case !f.Stage.Valid():
		return fmt.Errorf("%w: unknown lifecycle stage %q", ErrValidation, f.Stage)
	case !f.Sex.Valid():
		return fmt.Errorf("%w: unknown sex %q", ErrValidation, f.Sex)
	case f.WeightGrams < 0:
		return fmt.Errorf("%w: weight cannot be negative", ErrValidation)
	case f.AskingPrice < 0:
		return fmt.Errorf("%w: asking price cannot be negative", ErrValidation)
	}
	return nil
}

// normalize trims text fields and fills zero-valued enums with defaults.
func normalize(f domain.Fowl) domain.Fowl {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
	f.Breed = strings.TrimSpace(f.Breed)
	f.Bloodline = strings.TrimSpace(f.Bloodline)
	f.OwnerID = strings.TrimSpace(f.OwnerID)
	f.SireID = strings.TrimSpace(f.SireID)
	f.DamID = strings.TrimSpace(f.DamID)
	if f.Sex == "" {
		f.Sex = domain.SexUnknown
	}
	if f.Stage == "" {
		f.Stage = domain.StageChick
	}
	if f.Health == "" {
		f.Health = domain.HealthHealthy
	}
	return f
}

// ruleView indexes the cached flock so rules can resolve parents.
func (r *FowlRepository) ruleView(ctx context.Context, candidate domain.Fowl) (domain.RuleView, error) {
	cached, err := r.cache.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rule view: %w", err)
	}
	view := make(flockIndex, len(cached)+1)
	for _, f := range cached {
		view[f.ID] = f
	}
	view[candidate.ID] = candidate
	return view, nil
}

// flockIndex is an in-memory domain.RuleView.
type flockIndex map[string]domain.Fowl

func (ix flockIndex) FindFowl(id string) (domain.Fowl, bool) {
	f, ok := ix[id]
	return f, ok
}

func (r *FowlRepository) putRemote(ctx context.Context, f domain.Fowl) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fowl %s: %w", f.ID, err)
	}
	return r.remote.Put(ctx, domain.Document{Collection: FowlCollection, ID: f.ID, Data: data})
}

func (r *FowlRepository) getRemote(ctx context.Context, id string) (domain.Fowl, error) {
	doc, err := r.remote.Get(ctx, FowlCollection, id)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.Fowl{}, domain.ErrNotFound{Entity: domain.EntityFowl, ID: id}
	}
	if err != nil {
		return domain.Fowl{}, err
	}
	return decodeFowl(doc)
}

func (r *FowlRepository) listRemote(ctx context.Context) ([]domain.Fowl, error) {
	docs, err := r.remote.List(ctx, FowlCollection)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Fowl, 0, len(docs))
	for _, doc := range docs {
		f, err := decodeFowl(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// mirror copies a remotely persisted record into the cache. Cache failures
// are logged; the remote store stays authoritative.
func (r *FowlRepository) mirror(ctx context.Context, f domain.Fowl) {
	if err := upsert(ctx, r.cache, f); err != nil {
		r.log.Warn("cache write failed", zap.String("id", f.ID), zap.Error(err))
	}
}

func upsert(ctx context.Context, cache domain.FowlCache, f domain.Fowl) error {
	err := cache.Insert(ctx, f)
	if errors.Is(err, domain.ErrDuplicate) {
		return cache.Update(ctx, f)
	}
	return err
}

func decodeFowl(doc domain.Document) (domain.Fowl, error) {
	var f domain.Fowl
	if err := json.Unmarshal(doc.Data, &f); err != nil {
		return domain.Fowl{}, fmt.Errorf("decode fowl %s: %w", doc.ID, err)
	}
	if f.ID == "" {
		f.ID = doc.ID
	}
	return f, nil
}

func isNotFound(err error) bool {
	var nf domain.ErrNotFound
	return errors.As(err, &nf)
}
