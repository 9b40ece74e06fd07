package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/identity"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// Config names the stores the service writes to.
type Config struct {
	// ParentIndexName is the index holding the parent documents.
	ParentIndexName string
	// ResourceBucketName is the bucket holding item resources. Empty uses the store default.
	ResourceBucketName string
}

// ResourceStore keeps the binary resources referenced by items.
type ResourceStore interface {
	// Put stores res under bucket/key and returns its public URL.
	Put(ctx context.Context, bucket, key string, res Resource) (string, error)
	// Remove deletes bucket/key. Removing a missing object is not an error.
	Remove(ctx context.Context, bucket, key string) error
}

// ReleaseResult reports the best-effort release of an item's resources.
type ReleaseResult struct {
	ParentKey string
	ItemID    string
	// Skipped is set when no resource store is configured.
	Skipped bool
	Err     error
}

// Released reports whether the resources are known to be gone.
func (r ReleaseResult) Released() bool { return !r.Skipped && r.Err == nil }

// Option configures a Service.
type Option func(*Service)

// WithIdentityGenerator replaces the default UUID generator.
func WithIdentityGenerator(g identity.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithResourceStore enables image upload and release.
func WithResourceStore(rs ResourceStore) Option {
	return func(s *Service) { s.resources = rs }
}

// Service exposes the four collection operations. It holds no state between calls.
type Service struct {
	config     Config
	dispatcher *Dispatcher
	ids        identity.Generator
	resources  ResourceStore
	logger     logger.Logger
}

// NewService creates a collection service. A nil log discards output.
func NewService(cfg Config, dispatcher *Dispatcher, log logger.Logger, opts ...Option) (*Service, error) {
	cfg.ParentIndexName = strings.TrimSpace(cfg.ParentIndexName)
	if cfg.ParentIndexName == "" {
		return nil, fmt.Errorf("parent index name is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Service{
		config:     cfg,
		dispatcher: dispatcher,
		ids:        identity.Default,
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddItem appends a new item with a generated identity. A successful outcome is
// always Created and carries the new identity.
func (s *Service) AddItem(ctx context.Context, parentKey string, fields ItemFields) (Outcome, error) {
	if _, err := requireKey("parent key", parentKey); err != nil {
		return Outcome{}, err
	}
	if err := validateFields(fields); err != nil {
		return Outcome{}, err
	}

	item := Item{
		ID:          s.ids.NewIdentity(),
		Name:        fields.Name,
		Cost:        fields.Cost,
		Description: fields.Description,
		ImageURL:    fields.ImageURL,
	}
	uploaded := s.attach(ctx, parentKey, &item, fields.Image)

	op, err := NewAppend(parentKey, item)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.run(ctx, op)
	if err != nil {
		return Outcome{}, err
	}

	if out.Status == StatusUpdated {
		out.Status = StatusCreated
	}
	if !out.Succeeded() && uploaded {
		s.ReleaseResources(ctx, op.ParentKey(), item.ID)
	}
	return out, nil
}

// UpdateItem overwrites the mutable fields of item id. A new image replaces the
// stored one; otherwise fields.ImageURL is stored as given. An update that leaves
// the item without an image releases its stored resource, and an upload whose
// update fails is released.
func (s *Service) UpdateItem(ctx context.Context, parentKey, id string, fields ItemFields) (Outcome, error) {
	if _, err := requireKey("parent key", parentKey); err != nil {
		return Outcome{}, err
	}
	id, err := requireKey("item id", id)
	if err != nil {
		return Outcome{}, err
	}
	if err := validateFields(fields); err != nil {
		return Outcome{}, err
	}

	item := Item{
		ID:          id,
		Name:        fields.Name,
		Cost:        fields.Cost,
		Description: fields.Description,
		ImageURL:    fields.ImageURL,
	}
	uploaded := s.attach(ctx, parentKey, &item, fields.Image)

	op, err := NewUpdateFields(parentKey, item)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.run(ctx, op)
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case !out.Succeeded():
		if uploaded {
			s.ReleaseResources(ctx, op.ParentKey(), item.ID)
		}
	case item.ImageURL == "":
		s.ReleaseResources(ctx, op.ParentKey(), item.ID)
	}
	return out, nil
}

// RemoveItem removes item id and reports Deleted. Removing an absent item is a
// NoOp success. Resources are not released here; see ReleaseResources.
func (s *Service) RemoveItem(ctx context.Context, parentKey, id string) (Outcome, error) {
	op, err := NewRemoveByKey(parentKey, id)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.run(ctx, op)
	if err != nil {
		return Outcome{}, err
	}
	if out.Status == StatusUpdated {
		out.Status = StatusDeleted
	}
	return out, nil
}

// ReorderItems rebuilds the collection in the order of ids. Unlisted items are
// dropped and unknown ids are skipped.
func (s *Service) ReorderItems(ctx context.Context, parentKey string, ids []string) (Outcome, error) {
	op, err := NewReorder(parentKey, ids)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, op)
}

// ReleaseResources deletes the resources of item id. Failures are logged and
// returned in the result only.
func (s *Service) ReleaseResources(ctx context.Context, parentKey, id string) ReleaseResult {
	res := ReleaseResult{ParentKey: parentKey, ItemID: id}
	if s.resources == nil {
		res.Skipped = true
		return res
	}

	if err := s.resources.Remove(ctx, s.config.ResourceBucketName, resourceKey(parentKey, id)); err != nil {
		res.Err = err
		s.logger.WithContext(ctx).Warn("failed to release item resources",
			"parent_key", parentKey,
			"item_id", id,
			"error", err,
		)
	}
	return res
}

func (s *Service) run(ctx context.Context, op Operation) (Outcome, error) {
	script, err := BuildScript(op)
	if err != nil {
		return Outcome{}, err
	}
	return s.dispatcher.Dispatch(ctx, s.config.ParentIndexName, op, script), nil
}

// attach uploads img and points item at it. It reports whether an upload happened.
// Upload failures leave the item without a new image.
func (s *Service) attach(ctx context.Context, parentKey string, item *Item, img *Resource) bool {
	if img == nil {
		return false
	}
	log := s.logger.WithContext(ctx).With("parent_key", parentKey, "item_id", item.ID)
	if s.resources == nil {
		log.Warn("image ignored: no resource store configured")
		return false
	}

	url, err := s.resources.Put(ctx, s.config.ResourceBucketName, resourceKey(parentKey, item.ID), *img)
	if err != nil {
		log.Warn("image upload failed, storing item without new image", "error", err)
		return false
	}
	log.Debug("image uploaded", "url", url)
	item.ImageURL = url
	return true
}

func resourceKey(parentKey, id string) string {
	return strings.TrimSpace(parentKey) + "/" + id
}
