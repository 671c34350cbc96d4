package domain

import "context"

// RevenueClient is the remote revenue-management backend.
type RevenueClient interface {
	GetProperty(ctx context.Context, id string) (map[string]any, error)
	ListMyProperties(ctx context.Context) ([]map[string]any, error)
	GetPriceHistory(ctx context.Context, propertyID string, kind HistoryKind, year, month int) ([]map[string]any, error)
}

// PropertyFetcher is what the property resolver needs from the backend.
type PropertyFetcher interface {
	FetchProperty(ctx context.Context, id string) (Property, error)
	ListMyProperties(ctx context.Context) ([]Property, error)
}

type HistoryRepository interface {
	UpsertPriceHistory(ctx context.Context, propertyID string, kind HistoryKind, es []PriceHistoryEntry) error
	ListPriceHistory(ctx context.Context, propertyID string, kind HistoryKind, year, month int) ([]PriceHistoryEntry, error)
	LogMiss(ctx context.Context, propertyID string, status int, reason string) error
}

// Cache doubles as the persisted key-value store behind the selected property.
// ttlSec <= 0 means no expiry.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
