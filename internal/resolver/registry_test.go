package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_rms/internal/resolver"
)

func TestRegistry_OneResolverPerSession(t *testing.T) {
	store := newStore()
	g := resolver.NewRegistry(newFetcher(harbour, alpine), store, 0)
	ctx := context.Background()

	a := g.For("a")
	assert.Same(t, a, g.For("a"))

	a.Resolve(ctx, harbour.ID)
	g.For("b").Resolve(ctx, alpine.ID)

	idA, _ := store.selection(t, "session:a:")
	idB, _ := store.selection(t, "session:b:")
	assert.Equal(t, harbour.ID, idA)
	assert.Equal(t, alpine.ID, idB)
}

func TestRegistry_EvictedSessionRestoresFromStore(t *testing.T) {
	store := newStore()
	g := resolver.NewRegistry(newFetcher(harbour, alpine), store, 1)
	ctx := context.Background()

	g.For("a").Resolve(ctx, harbour.ID)
	g.For("b").Resolve(ctx, alpine.ID)
	assert.Equal(t, 1, g.Len())

	st := g.For("a").Resolve(ctx, "")
	require.NotNil(t, st.Property)
	assert.Equal(t, harbour.ID, st.Property.ID)
}
