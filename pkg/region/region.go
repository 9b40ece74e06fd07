// Package region answers queries over the permitted food-truck operating regions.
package region

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// ErrInvalidQuery is returned for an empty address or a bad location query.
var ErrInvalidQuery = errors.New("invalid region query")

// addressFields are searched by FindByAddress.
var addressFields = []string{"city", "town", "roadAddress", "postAddress"}

// Region is a public site where food trucks are permitted to operate.
type Region struct {
	RegionName          string            `json:"regionName"`
	RegionType          int               `json:"regionType"`
	City                string            `json:"city"`
	Town                string            `json:"town"`
	RoadAddress         string            `json:"roadAddress"`
	PostAddress         string            `json:"postAddress"`
	GeoLocation         document.GeoPoint `json:"geoLocation"`
	Capacity            int               `json:"capacity"`
	Cost                string            `json:"cost"`
	PermissionStartDate string            `json:"permissionStartDate"`
	PermissionEndDate   string            `json:"permissionEndDate"`
	ClosedDays          string            `json:"closedDays"`
	WeekdayStartTime    string            `json:"weekdayStartTime"`
	WeekdayEndTime      string            `json:"weekdayEndTime"`
	WeekendStartTime    string            `json:"weekendStartTime"`
	WeekendEndTime      string            `json:"weekendEndTime"`
	RestrictedItems     string            `json:"restrictedItems"`
	AgencyName          string            `json:"agencyName"`
	AgencyTel           string            `json:"agencyTel"`
}

// Service queries the region index.
type Service struct {
	store document.Searcher
	index string
	log   logger.Logger
}

// NewService creates a region service over index.
func NewService(store document.Searcher, index string, log logger.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	if strings.TrimSpace(index) == "" {
		return nil, errors.New("region index is required")
	}
	return &Service{store: store, index: index, log: log}, nil
}

// FindAll returns every region, up to the maximum page size.
func (s *Service) FindAll(ctx context.Context) ([]Region, error) {
	return s.search(ctx, document.Query{Pagination: document.Pagination{PageSize: document.MaxPageSize}})
}

// FindByAddress matches address against the city, town and street address fields.
func (s *Service) FindByAddress(ctx context.Context, address string) ([]Region, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidQuery)
	}
	return s.search(ctx, document.Query{Match: &document.MultiMatch{Text: address, Fields: addressFields}})
}

// FindByLocation returns regions within distanceKm of center, nearest first.
func (s *Service) FindByLocation(ctx context.Context, center document.GeoPoint, distanceKm float64) ([]Region, error) {
	return s.search(ctx, document.Query{Near: &document.GeoFilter{
		Field:      "geoLocation",
		Center:     center,
		DistanceKm: distanceKm,
	}})
}

func (s *Service) search(ctx context.Context, q document.Query) ([]Region, error) {
	body, err := q.Body()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	raw, err := s.store.Search(ctx, s.index, body)
	if err != nil {
		return nil, fmt.Errorf("region search failed: %w", err)
	}
	res, err := document.DecodeHits[Region](raw)
	if err != nil {
		return nil, err
	}
	s.log.Debug("region search", "hits", len(res.Hits), "total", res.Total)
	return res.Docs(), nil
}
