package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_rms/internal/app"
	"hotel_rms/internal/domain"
)

func TestPropertyService_FetchProperty(t *testing.T) {
	client := &fakeClient{props: map[string]map[string]any{
		"p-1": {"name": "Harbour Inn", "rooms": 42.0},
	}}
	s := app.NewPropertyService(client)

	p, err := s.FetchProperty(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID, "id falls back to the requested one")
	assert.Equal(t, "Harbour Inn", p.Name)

	_, err = s.FetchProperty(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPropertyService_ListMyPropertiesKeepsOrder(t *testing.T) {
	client := &fakeClient{mine: []map[string]any{
		{"id": "p-9", "name": "Newest"},
		{"name": "no id"},
		{"id": 3.0, "name": "Older"},
	}}
	s := app.NewPropertyService(client)

	got, err := s.ListMyProperties(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-9", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}
