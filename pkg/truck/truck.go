// Package truck stores food trucks and answers location and owner queries.
package truck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/collection"
	"github.com/gamakdragons/wheretruck/pkg/identity"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// GeoLocationField is the geo_point field trucks are located by.
const GeoLocationField = "geoLocation"

var (
	// ErrTruckNotFound is returned when no truck has the requested id.
	ErrTruckNotFound = errors.New("truck not found")
	// ErrInvalidTruck is returned for a truck or query that fails validation.
	ErrInvalidTruck = errors.New("invalid truck")
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint = document.GeoPoint

// Truck is a food truck and its embedded menu.
type Truck struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	UserID      string            `json:"userId"`
	Opened      bool              `json:"opened"`
	GeoLocation GeoPoint          `json:"geoLocation"`
	Foods       []collection.Item `json:"foods"`
}

// Service reads and writes trucks in the search store.
type Service struct {
	store document.Store
	index string
	ids   identity.Generator
	log   logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIdentityGenerator overrides the truck id generator.
func WithIdentityGenerator(g identity.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

// NewService creates a truck service over index.
func NewService(store document.Store, index string, log logger.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	if strings.TrimSpace(index) == "" {
		return nil, errors.New("truck index is required")
	}
	s := &Service{store: store, index: index, ids: identity.Default, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Index returns the index trucks are stored in.
func (s *Service) Index() string { return s.index }

// Get loads the truck with id.
func (s *Service) Get(ctx context.Context, id string) (Truck, error) {
	if strings.TrimSpace(id) == "" {
		return Truck{}, fmt.Errorf("%w: id is required", ErrInvalidTruck)
	}
	var t Truck
	if err := s.store.GetDocument(ctx, s.index, id, &t); err != nil {
		if errors.Is(err, document.ErrDocumentMissing) {
			return Truck{}, ErrTruckNotFound
		}
		return Truck{}, fmt.Errorf("failed to get truck %s: %w", id, err)
	}
	t.ID = id
	if t.Foods == nil {
		t.Foods = []collection.Item{}
	}
	return t, nil
}

// Save creates t under a new id and returns the id. Any id and foods on t are ignored.
func (s *Service) Save(ctx context.Context, t Truck) (string, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidTruck)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return "", fmt.Errorf("%w: owner is required", ErrInvalidTruck)
	}
	if err := t.GeoLocation.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTruck, err)
	}

	t.ID = s.ids.NewIdentity()
	t.Foods = []collection.Item{}
	if err := s.store.IndexDocument(ctx, s.index, t.ID, t); err != nil {
		return "", fmt.Errorf("failed to save truck: %w", err)
	}
	s.log.Info("truck created", "truck_id", t.ID, "user_id", t.UserID)
	return t.ID, nil
}

// Delete removes the truck with id. Deleting a missing truck is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTruck)
	}
	if err := s.store.DeleteDocument(ctx, s.index, id); err != nil {
		return fmt.Errorf("failed to delete truck %s: %w", id, err)
	}
	s.log.Info("truck deleted", "truck_id", id)
	return nil
}

// FindByLocation returns trucks within distanceKm of center, nearest first.
func (s *Service) FindByLocation(ctx context.Context, center GeoPoint, distanceKm float64) ([]Truck, error) {
	return s.search(ctx, document.Query{Near: &document.GeoFilter{
		Field:      GeoLocationField,
		Center:     center,
		DistanceKm: distanceKm,
	}})
}

// FindByUserID returns the trucks owned by userID.
func (s *Service) FindByUserID(ctx context.Context, userID string) ([]Truck, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidTruck)
	}
	return s.search(ctx, document.Query{Terms: map[string]interface{}{"userId": userID}})
}

func (s *Service) search(ctx context.Context, q document.Query) ([]Truck, error) {
	body, err := q.Body()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTruck, err)
	}
	raw, err := s.store.Search(ctx, s.index, body)
	if err != nil {
		return nil, fmt.Errorf("truck search failed: %w", err)
	}
	res, err := document.DecodeHits[Truck](raw)
	if err != nil {
		return nil, err
	}
	trucks := make([]Truck, 0, len(res.Hits))
	for _, h := range res.Hits {
		t := h.Source
		t.ID = h.ID
		if t.Foods == nil {
			t.Foods = []collection.Item{}
		}
		trucks = append(trucks, t)
	}
	return trucks, nil
}
