// Package calendar turns sparse per-date price series into the dense
// week-by-week grid the pricing calendar renders.
package calendar

import (
	"fmt"
	"strconv"
	"time"

	"hotel_rms/internal/domain"
)

type Mode string

const (
	ModeRegular           Mode = "regular"
	ModeMSP               Mode = "msp"
	ModeCompetitorAverage Mode = "competitorAverage"
)

const (
	textNoMSP  = "No MSP"
	textNoData = "No Data"
)

// ParseMode maps a query value onto a Mode. Empty means regular.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRegular:
		return ModeRegular, nil
	case ModeMSP, ModeCompetitorAverage:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown calendar mode %q", s)
}

// Kinds lists the history series a mode reads.
func (m Mode) Kinds() []domain.HistoryKind {
	switch m {
	case ModeMSP:
		return []domain.HistoryKind{domain.HistoryMSP}
	case ModeCompetitorAverage:
		return []domain.HistoryKind{domain.HistoryCompetitorAverage, domain.HistoryRegular}
	default:
		return []domain.HistoryKind{domain.HistoryRegular}
	}
}

type Cell struct {
	Day       int    `json:"day"`
	Price     string `json:"price"`
	Occupancy string `json:"occupancy"`
	Overwrite bool   `json:"overwrite"`
	IsNoMSP   bool   `json:"is_no_msp"`
}

// Week is one grid row; nil cells are the blanks outside the month.
type Week [7]*Cell

type Series struct {
	Regular           []domain.PriceHistoryEntry
	MSP               []domain.PriceHistoryEntry
	CompetitorAverage []domain.PriceHistoryEntry
}

type fact struct {
	price     *float64
	occupancy string
	overwrite bool
}

// Project builds the grid for (year, month); month is 0-indexed. Out of
// range months are normalized the way time.Date normalizes them.
func Project(year, month int, s Series, mode Mode) []Week {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	firstWeekday := int(first.Weekday())
	daysInMonth := time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()

	regular := index(s.Regular)
	msp := index(s.MSP)
	compAvg := index(s.CompetitorAverage)

	var (
		weeks []Week
		week  Week
		n     int
	)
	push := func(c *Cell) {
		week[n] = c
		n++
		if n == 7 {
			weeks = append(weeks, week)
			week, n = Week{}, 0
		}
	}

	for i := 0; i < firstWeekday; i++ {
		push(nil)
	}
	for day := 1; day <= daysInMonth; day++ {
		key := first.AddDate(0, 0, day-1).Format(time.DateOnly)
		switch mode {
		case ModeMSP:
			push(mspCell(day, msp[key]))
		case ModeCompetitorAverage:
			push(competitorCell(day, compAvg[key], regular[key]))
		default:
			push(regularCell(day, regular[key]))
		}
	}
	if n > 0 {
		// the zero tail of week is already blank
		weeks = append(weeks, week)
	}
	return weeks
}

func regularCell(day int, f *fact) *Cell {
	if f == nil {
		return &Cell{Day: day, Price: "$0", Occupancy: domain.OccupancyMedium}
	}
	return &Cell{Day: day, Price: money(f.price), Occupancy: occupancyOr(f.occupancy), Overwrite: f.overwrite}
}

// MSP has no occupancy dimension and is never an overwrite.
func mspCell(day int, f *fact) *Cell {
	if f == nil {
		return &Cell{Day: day, Price: textNoMSP, Occupancy: domain.OccupancyMedium, IsNoMSP: true}
	}
	return &Cell{Day: day, Price: money(f.price), Occupancy: domain.OccupancyMedium}
}

// Occupancy follows the regular series so coloring matches across modes.
func competitorCell(day int, avg, reg *fact) *Cell {
	c := &Cell{Day: day, Price: textNoData, Occupancy: domain.OccupancyMedium}
	if reg != nil {
		c.Occupancy = occupancyOr(reg.occupancy)
	}
	if avg != nil {
		c.Price = money(avg.price)
	}
	return c
}

func index(es []domain.PriceHistoryEntry) map[string]*fact {
	m := make(map[string]*fact, len(es))
	for _, e := range es {
		m[e.CheckinDate] = &fact{price: e.Price, occupancy: e.OccupancyLevel, overwrite: e.Overwrite}
	}
	return m
}

func money(p *float64) string {
	if p == nil {
		return "$0"
	}
	return "$" + strconv.FormatFloat(*p, 'f', -1, 64)
}

func occupancyOr(o string) string {
	if o == "" {
		return domain.OccupancyMedium
	}
	return o
}
