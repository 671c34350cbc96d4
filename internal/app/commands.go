package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotel_rms/internal/domain"
)

// SyncService mirrors backend price history into the local snapshot store.
type SyncService struct {
	client domain.RevenueClient
	repo   domain.HistoryRepository
	cache  domain.Cache
}

func NewSyncService(c domain.RevenueClient, r domain.HistoryRepository, cache domain.Cache) *SyncService {
	return &SyncService{client: c, repo: r, cache: cache}
}

// SyncMonth pulls every series of one property/month. Not-found and denied
// answers are recorded as misses and skipped; anything else is returned.
func (s *SyncService) SyncMonth(ctx context.Context, propertyID string, year, month int) error {
	for _, kind := range domain.HistoryKinds {
		rows, err := s.client.GetPriceHistory(ctx, propertyID, kind, year, month)
		if err != nil {
			if domain.IsNotFoundOrDenied(err) {
				status := domain.StatusCode(err)
				if status == 0 {
					status = 403
				}
				reason := fmt.Sprintf("%s:%04d-%02d", kind, year, month+1)
				_ = s.repo.LogMiss(ctx, propertyID, status, reason)
				s.invalidate(ctx, propertyID, kind, year, month)
				continue
			}
			return err
		}

		es := mapHistory(rows)
		if len(es) > 0 {
			if err := s.repo.UpsertPriceHistory(ctx, propertyID, kind, es); err != nil {
				return fmt.Errorf("upsert %s history failed for %s: %w", kind, propertyID, err)
			}
		}
		// even with zero rows, drop the cached month so the new snapshot is read
		s.invalidate(ctx, propertyID, kind, year, month)
	}
	return nil
}

// SyncProperty covers months consecutive months starting at (year, month).
func (s *SyncService) SyncProperty(ctx context.Context, propertyID string, year, month, months int) error {
	for i := 0; i < months; i++ {
		y, m := year+(month+i)/12, (month+i)%12
		if err := s.SyncMonth(ctx, propertyID, y, m); err != nil {
			return err
		}
		log.Debug().Str("property", propertyID).Int("year", y).Int("month", m+1).Msg("month synced")
	}
	return nil
}

func (s *SyncService) invalidate(ctx context.Context, propertyID string, kind domain.HistoryKind, year, month int) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, historyKey(propertyID, kind, year, month))
}
