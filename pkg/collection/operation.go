// Package collection maintains the ordered food collection embedded in truck documents.
//
// Every mutation is a single scripted partial update against the search store. The
// scripts come from a closed set of static templates and receive caller values only as
// bound parameters.
package collection

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument is returned when caller input cannot form an operation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedOperation is returned for operations that bypassed the typed constructors.
	ErrMalformedOperation = errors.New("malformed operation")
)

// Kind identifies one of the supported collection mutations.
type Kind int

const (
	kindUnknown Kind = iota
	KindAppend
	KindUpdateFields
	KindRemoveByKey
	KindReorder
)

func (k Kind) String() string {
	switch k {
	case KindAppend:
		return "append"
	case KindUpdateFields:
		return "update_fields"
	case KindRemoveByKey:
		return "remove_by_key"
	case KindReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Item is a food embedded in a truck document.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Resource is binary content attached to an item, such as a food photo.
type Resource struct {
	Data        []byte
	ContentType string
}

// ItemFields are the caller-supplied mutable fields of an item.
type ItemFields struct {
	Name        string
	Cost        int
	Description string
	ImageURL    string
	// Image, when set, is uploaded and its URL replaces ImageURL.
	Image *Resource
}

// Operation is a validated, typed description of one collection mutation.
// The zero value is malformed.
type Operation struct {
	kind      Kind
	parentKey string
	item      Item
	id        string
	ids       []string
}

// Kind returns the mutation kind.
func (o Operation) Kind() Kind { return o.kind }

// ParentKey returns the key of the document holding the collection.
func (o Operation) ParentKey() string { return o.parentKey }

// ItemID returns the identity affected by the operation, or "" for reorders.
func (o Operation) ItemID() string {
	switch o.kind {
	case KindAppend, KindUpdateFields:
		return o.item.ID
	case KindRemoveByKey:
		return o.id
	default:
		return ""
	}
}

// NewAppend describes appending item at the tail of the collection of parentKey.
func NewAppend(parentKey string, item Item) (Operation, error) {
	parentKey, err := requireKey("parent key", parentKey)
	if err != nil {
		return Operation{}, err
	}
	item, err = shapeItem(item)
	if err != nil {
		return Operation{}, err
	}
	return Operation{kind: KindAppend, parentKey: parentKey, item: item}, nil
}

// NewUpdateFields describes overwriting the mutable fields of the item with item.ID.
func NewUpdateFields(parentKey string, item Item) (Operation, error) {
	parentKey, err := requireKey("parent key", parentKey)
	if err != nil {
		return Operation{}, err
	}
	item, err = shapeItem(item)
	if err != nil {
		return Operation{}, err
	}
	return Operation{kind: KindUpdateFields, parentKey: parentKey, item: item}, nil
}

// NewRemoveByKey describes removing every item with identity id.
func NewRemoveByKey(parentKey, id string) (Operation, error) {
	parentKey, err := requireKey("parent key", parentKey)
	if err != nil {
		return Operation{}, err
	}
	id, err = requireKey("item id", id)
	if err != nil {
		return Operation{}, err
	}
	return Operation{kind: KindRemoveByKey, parentKey: parentKey, id: id}, nil
}

// NewReorder describes rebuilding the collection in the order of ids.
// Duplicate ids keep their first position. An empty list empties the collection.
func NewReorder(parentKey string, ids []string) (Operation, error) {
	parentKey, err := requireKey("parent key", parentKey)
	if err != nil {
		return Operation{}, err
	}

	ordered := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id, err := requireKey("item id", raw)
		if err != nil {
			return Operation{}, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	return Operation{kind: KindReorder, parentKey: parentKey, ids: ordered}, nil
}

func requireKey(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
	}
	return value, nil
}

func shapeItem(item Item) (Item, error) {
	var err error
	if item.ID, err = requireKey("item id", item.ID); err != nil {
		return Item{}, err
	}
	if item.Name, err = requireKey("item name", item.Name); err != nil {
		return Item{}, err
	}
	if item.Cost < 0 {
		return Item{}, fmt.Errorf("%w: item cost must not be negative", ErrInvalidArgument)
	}
	item.Description = strings.TrimSpace(item.Description)
	item.ImageURL = strings.TrimSpace(item.ImageURL)
	return item, nil
}

func validateFields(fields ItemFields) error {
	if _, err := requireKey("item name", fields.Name); err != nil {
		return err
	}
	if fields.Cost < 0 {
		return fmt.Errorf("%w: item cost must not be negative", ErrInvalidArgument)
	}
	if fields.Image != nil && len(fields.Image.Data) == 0 {
		return fmt.Errorf("%w: image must not be empty", ErrInvalidArgument)
	}
	return nil
}
