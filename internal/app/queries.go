package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotel_rms/internal/adapters/observability"
	"hotel_rms/internal/calendar"
	"hotel_rms/internal/domain"
)

type CalendarService struct {
	repo     domain.HistoryRepository
	client   domain.RevenueClient
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewCalendarService: repo may be nil when no snapshot database is configured.
func NewCalendarService(r domain.HistoryRepository, c domain.RevenueClient, cache domain.Cache, ttl time.Duration) *CalendarService {
	return &CalendarService{repo: r, client: c, cache: cache, cacheTTL: ttl}
}

type MonthGrid struct {
	PropertyID string          `json:"property_id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Mode       calendar.Mode   `json:"mode"`
	Weeks      []calendar.Week `json:"weeks"`
}

// MonthGrid loads the series the mode needs in parallel and projects them.
func (s *CalendarService) MonthGrid(ctx context.Context, propertyID string, year, month int, mode calendar.Mode) (MonthGrid, error) {
	kinds := mode.Kinds()
	series := make([][]domain.PriceHistoryEntry, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		i, k := i, k
		g.Go(func() error {
			es, err := s.History(gctx, propertyID, k, year, month)
			if err != nil {
				return fmt.Errorf("%s history: %w", k, err)
			}
			series[i] = es
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MonthGrid{}, err
	}

	var in calendar.Series
	for i, k := range kinds {
		switch k {
		case domain.HistoryRegular:
			in.Regular = series[i]
		case domain.HistoryMSP:
			in.MSP = series[i]
		case domain.HistoryCompetitorAverage:
			in.CompetitorAverage = series[i]
		}
	}

	observability.ObserveProjection(string(mode))
	return MonthGrid{
		PropertyID: propertyID,
		Year:       year,
		Month:      month,
		Mode:       mode,
		Weeks:      calendar.Project(year, month, in, mode),
	}, nil
}

// History reads one series through cache, then snapshot, then the backend.
func (s *CalendarService) History(ctx context.Context, propertyID string, kind domain.HistoryKind, year, month int) ([]domain.PriceHistoryEntry, error) {
	key := historyKey(propertyID, kind, year, month)
	var out []domain.PriceHistoryEntry
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	if s.repo != nil {
		es, err := s.repo.ListPriceHistory(ctx, propertyID, kind, year, month)
		if err != nil {
			log.Warn().Err(err).Str("property", propertyID).Str("kind", string(kind)).Msg("snapshot read failed")
		} else if len(es) > 0 {
			_ = s.cache.Set(ctx, key, es, int(s.cacheTTL.Seconds()))
			return es, nil
		}
	}

	rows, err := s.client.GetPriceHistory(ctx, propertyID, kind, year, month)
	if err != nil {
		return nil, err
	}
	out = mapHistory(rows)
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func historyKey(propertyID string, kind domain.HistoryKind, year, month int) string {
	return fmt.Sprintf("history:%s:%s:%04d-%02d", propertyID, kind, year, month+1)
}
