package app

import (
	"context"
	"fmt"

	"hotel_rms/internal/domain"
)

// PropertyService adapts the raw backend client to typed properties.
type PropertyService struct {
	client domain.RevenueClient
}

func NewPropertyService(c domain.RevenueClient) *PropertyService {
	return &PropertyService{client: c}
}

func (s *PropertyService) FetchProperty(ctx context.Context, id string) (domain.Property, error) {
	raw, err := s.client.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	p := mapProperty(raw)
	if p.ID == "" {
		// some backends omit the id on the detail endpoint
		p.ID = id
	}
	return p, nil
}

// ListMyProperties keeps the backend's order; entries without an id are dropped.
func (s *PropertyService) ListMyProperties(ctx context.Context) ([]domain.Property, error) {
	raws, err := s.client.ListMyProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list my properties: %w", err)
	}
	out := make([]domain.Property, 0, len(raws))
	for _, r := range raws {
		if p := mapProperty(r); p.ID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
