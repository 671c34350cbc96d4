// Package resolver keeps track of which property a dashboard session is
// working on. The choice is persisted so a returning session picks up where
// it left off, and falls back to the caller's own properties when the
// remembered one is gone or no longer accessible.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hotel_rms/internal/adapters/observability"
	"hotel_rms/internal/domain"
)

const (
	keySelectedID     = "selected_property_id"
	keySelectedRecord = "selected_property"
)

type State struct {
	Property  *domain.Property `json:"property"`
	IsLoading bool             `json:"is_loading"`
}

type Option func(*Resolver)

// WithTTL expires the persisted selection after sec seconds; 0 keeps it.
func WithTTL(sec int) Option { return func(r *Resolver) { r.ttlSec = sec } }

func WithLogger(l zerolog.Logger) Option { return func(r *Resolver) { r.log = l } }

// Resolver holds the current property of one scope (usually a session).
//
// Every load gets a generation number. A response is applied only while its
// generation is still the newest, so a slow request that was superseded by
// a later one is dropped instead of overwriting the newer result.
type Resolver struct {
	fetch     domain.PropertyFetcher
	store     domain.Cache
	idKey     string
	recordKey string
	ttlSec    int
	log       zerolog.Logger

	mu       sync.Mutex
	current  *domain.Property
	loading  bool
	inflight string
	gen      uint64
}

// New builds a resolver whose persisted keys live under scope ("" for none).
func New(f domain.PropertyFetcher, store domain.Cache, scope string, opts ...Option) *Resolver {
	prefix := ""
	if scope != "" {
		prefix = scope + ":"
	}
	r := &Resolver{
		fetch:     f,
		store:     store,
		idKey:     prefix + keySelectedID,
		recordKey: prefix + keySelectedRecord,
		log:       log.Logger,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With().Str("scope", scope).Logger()
	return r
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Property: clone(r.current), IsLoading: r.loading}
}

func (r *Resolver) Current() (domain.Property, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return domain.Property{}, false
	}
	return *clone(r.current), true
}

func (r *Resolver) IsLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// SetCurrent replaces the current property (nil clears it) and mirrors the
// change into the store. It also supersedes any load still in flight.
func (r *Resolver) SetCurrent(ctx context.Context, p *domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.loading, r.inflight = false, ""
	return r.setCurrentLocked(ctx, p)
}

// setCurrentLocked is the only writer of the persisted selection. The id and
// the record are written together; if either write fails both keys are
// dropped so they never disagree.
func (r *Resolver) setCurrentLocked(ctx context.Context, p *domain.Property) error {
	r.current = clone(p)
	if p == nil {
		return errors.Join(r.store.Del(ctx, r.idKey), r.store.Del(ctx, r.recordKey))
	}
	err := r.store.Set(ctx, r.recordKey, p, r.ttlSec)
	if err == nil {
		err = r.store.Set(ctx, r.idKey, p.ID, r.ttlSec)
	}
	if err != nil {
		_ = r.store.Del(ctx, r.idKey)
		_ = r.store.Del(ctx, r.recordKey)
	}
	return err
}

// Resolve settles the current property:
//   - an explicit id is always loaded, whatever is current;
//   - otherwise a current property is kept and the store resynced to it;
//   - otherwise the persisted id, if any, is loaded.
//
// Failures never escape; they leave the current property as it was.
func (r *Resolver) Resolve(ctx context.Context, explicitID string) State {
	if explicitID != "" {
		r.load(ctx, explicitID)
		return r.State()
	}

	r.mu.Lock()
	if r.current != nil {
		r.resyncLocked(ctx)
		r.mu.Unlock()
		return r.State()
	}
	r.mu.Unlock()

	var id string
	ok, err := r.store.Get(ctx, r.idKey, &id)
	if err != nil {
		r.log.Warn().Err(err).Msg("read persisted property id failed")
	}
	if ok && id != "" {
		r.load(ctx, id)
	}
	return r.State()
}

// resyncLocked rewrites the store when it drifted from current.
func (r *Resolver) resyncLocked(ctx context.Context) {
	var id string
	okID, errID := r.store.Get(ctx, r.idKey, &id)
	var rec domain.Property
	okRec, errRec := r.store.Get(ctx, r.recordKey, &rec)
	if errID == nil && errRec == nil && okID && okRec && id == r.current.ID && rec.ID == r.current.ID {
		return
	}
	r.log.Debug().Str("stored", id).Str("current", r.current.ID).Msg("resyncing persisted property")
	if err := r.setCurrentLocked(ctx, r.current); err != nil {
		r.log.Warn().Err(err).Msg("resync persisted property failed")
	}
}

func (r *Resolver) load(ctx context.Context, id string) {
	r.mu.Lock()
	if r.current != nil && r.current.ID == id {
		// re-selecting the current property outranks a pending load of another
		if r.loading && r.inflight != id {
			r.gen++
			r.loading, r.inflight = false, ""
		}
		r.resyncLocked(ctx)
		r.mu.Unlock()
		return
	}
	if r.loading && r.inflight == id {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	r.loading, r.inflight = true, id
	r.mu.Unlock()

	p, err := r.fetch.FetchProperty(ctx, id)
	switch {
	case err == nil:
		r.finish(ctx, gen, &p, "ok")
	case domain.IsNotFoundOrDenied(err):
		r.log.Info().Str("id", id).Err(err).Msg("property unavailable, falling back to own properties")
		r.fallback(ctx, gen)
	default:
		r.log.Warn().Str("id", id).Err(err).Msg("property load failed")
		r.finish(ctx, gen, nil, "error")
	}
}

// fallback takes the first of the caller's properties, in backend order.
func (r *Resolver) fallback(ctx context.Context, gen uint64) {
	mine, err := r.fetch.ListMyProperties(ctx)
	if err != nil || len(mine) == 0 {
		r.log.Warn().Err(err).Int("owned", len(mine)).Msg("no fallback property")
		r.finish(ctx, gen, nil, "exhausted")
		return
	}
	if r.superseded(gen) {
		observability.ObservePropertyLoad("stale")
		return
	}
	p, err := r.fetch.FetchProperty(ctx, mine[0].ID)
	if err != nil {
		r.log.Warn().Str("id", mine[0].ID).Err(err).Msg("fallback property load failed")
		r.finish(ctx, gen, nil, "exhausted")
		return
	}
	r.finish(ctx, gen, &p, "fallback")
}

// finish applies the outcome of load generation gen. A superseded
// generation changes nothing; the newer load owns the loading state.
func (r *Resolver) finish(ctx context.Context, gen uint64, p *domain.Property, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		observability.ObservePropertyLoad("stale")
		return
	}
	if p != nil {
		if err := r.setCurrentLocked(ctx, p); err != nil {
			r.log.Warn().Err(err).Str("id", p.ID).Msg("persist property failed")
		}
	}
	r.loading, r.inflight = false, ""
	observability.ObservePropertyLoad(outcome)
}

func (r *Resolver) superseded(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen != r.gen
}

// clone deep-copies p so callers never share memory with the resolver.
func clone(p *domain.Property) *domain.Property {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Address = cloneVal(p.Address)
	cp.City = cloneVal(p.City)
	cp.Country = cloneVal(p.Country)
	cp.PMS = cloneVal(p.PMS)
	cp.PMSHotelID = cloneVal(p.PMSHotelID)
	cp.Rooms = cloneVal(p.Rooms)
	if p.RawJSON != nil {
		cp.RawJSON = append(json.RawMessage(nil), p.RawJSON...)
	}
	return &cp
}

func cloneVal[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
