package domain

// HistoryKind selects one of the backend's per-date price series.
type HistoryKind string

const (
	HistoryRegular           HistoryKind = "regular"
	HistoryMSP               HistoryKind = "msp"
	HistoryCompetitorAverage HistoryKind = "competitor_average"
)

var HistoryKinds = []HistoryKind{HistoryRegular, HistoryMSP, HistoryCompetitorAverage}

const (
	OccupancyLow    = "low"
	OccupancyMedium = "medium"
	OccupancyHigh   = "high"
)

// PriceHistoryEntry is one calendar day of a price series.
// Price is nil when the backend sent no value.
type PriceHistoryEntry struct {
	CheckinDate    string   `json:"checkin_date"` // YYYY-MM-DD
	Price          *float64 `json:"price,omitempty"`
	OccupancyLevel string   `json:"occupancy_level,omitempty"`
	Overwrite      bool     `json:"overwrite"`
}

type MonthKey struct {
	Year  int
	Month int // 0-indexed, 0=January
}
