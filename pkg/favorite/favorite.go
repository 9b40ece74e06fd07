// Package favorite records which trucks a user has marked as a favorite.
package favorite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/identity"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
	"github.com/gamakdragons/wheretruck/pkg/truck"
)

var (
	// ErrInvalidFavorite is returned when a favorite lacks its truck or user.
	ErrInvalidFavorite = errors.New("invalid favorite")
	// ErrFavoriteNotFound is returned when deleting a favorite that does not exist.
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// Favorite links a user to a truck.
type Favorite struct {
	ID      string `json:"id"`
	TruckID string `json:"truckId"`
	UserID  string `json:"userId"`
}

// TruckReader loads trucks by id.
type TruckReader interface {
	Get(ctx context.Context, id string) (truck.Truck, error)
}

// Service stores favorites and resolves them to trucks.
type Service struct {
	store  document.Store
	index  string
	trucks TruckReader
	ids    identity.Generator
	log    logger.Logger
}

// NewService creates a favorite service over index.
func NewService(store document.Store, index string, trucks TruckReader, log logger.Logger, ids identity.Generator) (*Service, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	if trucks == nil {
		return nil, errors.New("truck reader is required")
	}
	if strings.TrimSpace(index) == "" {
		return nil, errors.New("favorite index is required")
	}
	if ids == nil {
		ids = identity.Default
	}
	return &Service{store: store, index: index, trucks: trucks, ids: ids, log: log}, nil
}

// Save records f and returns its id. Saving an existing truck/user pair returns the existing id.
func (s *Service) Save(ctx context.Context, f Favorite) (string, error) {
	f.TruckID = strings.TrimSpace(f.TruckID)
	f.UserID = strings.TrimSpace(f.UserID)
	if f.TruckID == "" || f.UserID == "" {
		return "", fmt.Errorf("%w: truck id and user id are required", ErrInvalidFavorite)
	}

	existing, err := s.find(ctx, document.Query{Terms: map[string]interface{}{"truckId": f.TruckID, "userId": f.UserID}})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	f.ID = s.ids.NewIdentity()
	if err := s.store.IndexDocument(ctx, s.index, f.ID, f); err != nil {
		return "", fmt.Errorf("failed to save favorite: %w", err)
	}
	s.log.Info("favorite saved", "favorite_id", f.ID, "truck_id", f.TruckID)
	return f.ID, nil
}

// Delete removes the favorite with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidFavorite)
	}
	if err := s.store.DeleteDocument(ctx, s.index, id); err != nil {
		return fmt.Errorf("failed to delete favorite %s: %w", id, err)
	}
	return nil
}

// Get loads the favorite with id.
func (s *Service) Get(ctx context.Context, id string) (Favorite, error) {
	var f Favorite
	if err := s.store.GetDocument(ctx, s.index, id, &f); err != nil {
		if errors.Is(err, document.ErrDocumentMissing) {
			return Favorite{}, ErrFavoriteNotFound
		}
		return Favorite{}, fmt.Errorf("failed to get favorite %s: %w", id, err)
	}
	f.ID = id
	return f, nil
}

// CountByTruckID returns how many users marked truckID as a favorite.
func (s *Service) CountByTruckID(ctx context.Context, truckID string) (int64, error) {
	if strings.TrimSpace(truckID) == "" {
		return 0, fmt.Errorf("%w: truck id is required", ErrInvalidFavorite)
	}
	body, err := document.Query{Terms: map[string]interface{}{"truckId": truckID}, CountOnly: true}.Body()
	if err != nil {
		return 0, err
	}
	raw, err := s.store.Search(ctx, s.index, body)
	if err != nil {
		return 0, fmt.Errorf("favorite count failed: %w", err)
	}
	res, err := document.DecodeHits[Favorite](raw)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// FindByUserID returns the trucks userID marked as favorites. Favorites of deleted trucks are skipped.
func (s *Service) FindByUserID(ctx context.Context, userID string) ([]truck.Truck, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidFavorite)
	}
	favorites, err := s.find(ctx, document.Query{
		Terms:      map[string]interface{}{"userId": userID},
		Pagination: document.Pagination{PageSize: document.MaxPageSize},
	})
	if err != nil {
		return nil, err
	}

	trucks := make([]truck.Truck, 0, len(favorites))
	for _, f := range favorites {
		t, err := s.trucks.Get(ctx, f.TruckID)
		if errors.Is(err, truck.ErrTruckNotFound) {
			s.log.Warn("favorite references missing truck", "favorite_id", f.ID, "truck_id", f.TruckID)
			continue
		}
		if err != nil {
			return nil, err
		}
		trucks = append(trucks, t)
	}
	return trucks, nil
}

func (s *Service) find(ctx context.Context, q document.Query) ([]Favorite, error) {
	body, err := q.Body()
	if err != nil {
		return nil, err
	}
	raw, err := s.store.Search(ctx, s.index, body)
	if err != nil {
		return nil, fmt.Errorf("favorite search failed: %w", err)
	}
	res, err := document.DecodeHits[Favorite](raw)
	if err != nil {
		return nil, err
	}
	out := make([]Favorite, 0, len(res.Hits))
	for _, h := range res.Hits {
		f := h.Source
		f.ID = h.ID
		out = append(out, f)
	}
	return out, nil
}
