package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"hotel_rms/internal/domain"
)

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Repo is the local price-history snapshot.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertPriceHistory(ctx context.Context, propertyID string, kind domain.HistoryKind, es []domain.PriceHistoryEntry) error {
	if len(es) == 0 {
		return nil
	}
	values := make([]string, 0, len(es))
	args := make([]any, 0, len(es)*6) // 6 params per row
	for _, e := range es {
		values = append(values, "(?,?,?,?,?,?)")
		args = append(args,
			propertyID,
			string(kind),
			e.CheckinDate,
			valF64(e.Price),
			valStr(e.OccupancyLevel),
			e.Overwrite,
		)
	}
	sqlStr := insertHistoryPrefix + strings.Join(values, ",") + insertHistoryOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListPriceHistory returns one series for a 0-indexed month, ordered by date.
func (r *Repo) ListPriceHistory(ctx context.Context, propertyID string, kind domain.HistoryKind, year, month int) ([]domain.PriceHistoryEntry, error) {
	from := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx, listHistorySQL,
		propertyID, string(kind), from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PriceHistoryEntry
	for rows.Next() {
		var (
			day       time.Time
			price     sql.NullFloat64
			occupancy sql.NullString
			overwrite bool
		)
		if err := rows.Scan(&day, &price, &occupancy, &overwrite); err != nil {
			return nil, fmt.Errorf("scan price_history: %w", err)
		}
		e := domain.PriceHistoryEntry{
			CheckinDate: day.Format(time.DateOnly),
			Overwrite:   overwrite,
		}
		if price.Valid {
			f := price.Float64
			e.Price = &f
		}
		if occupancy.Valid {
			e.OccupancyLevel = occupancy.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) LogMiss(ctx context.Context, propertyID string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, propertyID, status, reason)
	return err
}

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
