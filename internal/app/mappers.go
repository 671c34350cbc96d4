package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_rms/internal/domain"
)

/********** alias registries (single source of truth) **********/

var propertyAliases = map[string][]string{
	"id":           {"id", "property_id", "propertyId", "_id", "uuid"},
	"name":         {"name", "property_name", "propertyName", "hotel_name", "title"},
	"city":         {"address.city", "city", "locality", "town"},
	"country":      {"address.country", "country", "country_code", "countryCode"},
	"pms":          {"pms", "pms_name", "pms.name", "integration.pms", "pmsName"},
	"pms_hotel_id": {"pms_hotel_id", "pmsHotelId", "pms.hotel_id", "pms.property_id", "integration.hotel_id"},
}

var historyAliases = map[string][]string{
	"date":      {"checkin_date", "checkinDate", "date", "day", "stay_date"},
	"price":     {"price", "amount", "value", "msp", "average_price", "avg_price", "averagePrice", "rate"},
	"occupancy": {"occupancy_level", "occupancyLevel", "occupancy", "demand_level"},
	"overwrite": {"overwrite", "is_overwrite", "isOverwrite", "overwritten", "manual"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path, stringifying numeric ids; "" otherwise.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstIntFlexible(m map[string]any, paths ...string) *int {
	if f := getFloatFlexible(m, paths...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

// firstBoolFlexible accepts bools, 0/1 and "true"/"false".
func firstBoolFlexible(m map[string]any, paths ...string) bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		}
	}
	return false
}

/********** property mapper **********/

func mapProperty(p map[string]any) domain.Property {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("context", "mapProperty").Msg("failed to marshal property to JSON")
	}

	return domain.Property{
		ID:         deref(firstNonEmptyAlias(p, propertyAliases, "id")),
		Name:       deref(firstNonEmptyAlias(p, propertyAliases, "name")),
		City:       firstNonEmptyAlias(p, propertyAliases, "city"),
		Country:    firstNonEmptyAlias(p, propertyAliases, "country"),
		PMS:        firstNonEmptyAlias(p, propertyAliases, "pms"),
		PMSHotelID: firstNonEmptyAlias(p, propertyAliases, "pms_hotel_id"),
		Rooms:      firstIntFlexible(p, "rooms", "room_count", "roomCount", "number_of_rooms", "total_rooms"),
		Address: func() *string {
			// 1) Try known single-field aliases first
			for _, k := range []string{"address", "address_raw", "full_address", "formatted_address", "address.line"} {
				if s := strings.TrimSpace(lookupStr(p, k)); s != "" {
					return &s
				}
			}
			// 2) Compose from components if no single field is present
			parts := []string{
				lookupStr(p, "address.street"),
				lookupStr(p, "address.postcode"),
				lookupStr(p, "address.city"),
				lookupStr(p, "address.country"),
			}
			nonEmpty := make([]string, 0, len(parts))
			for _, part := range parts {
				if t := strings.TrimSpace(part); t != "" {
					nonEmpty = append(nonEmpty, t)
				}
			}
			if len(nonEmpty) > 0 {
				composed := strings.Join(nonEmpty, ", ")
				return &composed
			}
			return nil
		}(),
		RawJSON: raw,
	}
}

/********** price history mapper **********/

// mapHistory keeps rows with a parseable date; timestamps are cut to the day.
// The last row wins when a date repeats.
func mapHistory(in []map[string]any) []domain.PriceHistoryEntry {
	out := make([]domain.PriceHistoryEntry, 0, len(in))
	seen := make(map[string]int, len(in))
	for _, r := range in {
		date := normalizeDate(deref(firstNonEmptyAlias(r, historyAliases, "date")))
		if date == "" {
			log.Debug().Interface("row", r).Msg("history row without date skipped")
			continue
		}
		e := domain.PriceHistoryEntry{
			CheckinDate:    date,
			Price:          getFloatFlexible(r, historyAliases["price"]...),
			OccupancyLevel: normalizeOccupancy(deref(firstNonEmptyAlias(r, historyAliases, "occupancy"))),
			Overwrite:      firstBoolFlexible(r, historyAliases["overwrite"]...),
		}
		if i, ok := seen[date]; ok {
			out[i] = e
			continue
		}
		seen[date] = len(out)
		out = append(out, e)
	}
	return out
}

func normalizeDate(s string) string {
	if len(s) >= 10 {
		if t, err := time.Parse(time.DateOnly, s[:10]); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return ""
}

func normalizeOccupancy(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return domain.OccupancyLow
	case "medium", "mid", "moderate":
		return domain.OccupancyMedium
	case "high":
		return domain.OccupancyHigh
	}
	return ""
}
