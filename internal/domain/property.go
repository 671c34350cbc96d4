package domain

import "encoding/json"

type Property struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Address    *string         `json:"address,omitempty"`
	City       *string         `json:"city,omitempty"`
	Country    *string         `json:"country,omitempty"`
	PMS        *string         `json:"pms,omitempty"`          // linked PMS vendor, e.g. "mews"
	PMSHotelID *string         `json:"pms_hotel_id,omitempty"` // property id on the PMS side
	Rooms      *int            `json:"rooms,omitempty"`
	RawJSON    json.RawMessage `json:"raw,omitempty"` // full backend payload
}
