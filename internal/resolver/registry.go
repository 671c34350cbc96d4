package resolver

import (
	"container/list"
	"sync"

	"hotel_rms/internal/domain"
)

const defaultMaxSessions = 10_000

// Registry hands out one Resolver per session. Idle sessions are evicted
// least-recently-used first; their selection survives in the store and is
// picked up again on the next Resolve.
type Registry struct {
	fetch domain.PropertyFetcher
	store domain.Cache
	opts  []Option
	max   int

	mu    sync.Mutex
	order *list.List // front = most recent
	byID  map[string]*list.Element
}

type entry struct {
	session string
	r       *Resolver
}

func NewRegistry(f domain.PropertyFetcher, store domain.Cache, maxSessions int, opts ...Option) *Registry {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Registry{
		fetch: f,
		store: store,
		opts:  opts,
		max:   maxSessions,
		order: list.New(),
		byID:  map[string]*list.Element{},
	}
}

func (g *Registry) For(session string) *Resolver {
	g.mu.Lock()
	defer g.mu.Unlock()
	if el, ok := g.byID[session]; ok {
		g.order.MoveToFront(el)
		return el.Value.(*entry).r
	}
	r := New(g.fetch, g.store, "session:"+session, g.opts...)
	g.byID[session] = g.order.PushFront(&entry{session: session, r: r})
	for g.order.Len() > g.max {
		old := g.order.Back()
		g.order.Remove(old)
		delete(g.byID, old.Value.(*entry).session)
	}
	return r
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}
