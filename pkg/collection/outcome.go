package collection

// Status classifies the result of a dispatched operation.
type Status int

const (
	StatusCreated Status = iota + 1
	StatusUpdated
	StatusDeleted
	StatusNoOp
	StatusParentNotFound
	StatusItemNotFound
	StatusStoreError
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusUpdated:
		return "updated"
	case StatusDeleted:
		return "deleted"
	case StatusNoOp:
		return "noop"
	case StatusParentNotFound:
		return "parent_not_found"
	case StatusItemNotFound:
		return "item_not_found"
	case StatusStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// Outcome is the uniform result of a collection operation.
type Outcome struct {
	Status    Status
	Kind      Kind
	ParentKey string
	// ItemID is the affected identity, when the operation has one.
	ItemID string
	// Message describes a StoreError.
	Message string
	// Version is the parent document version reported by the store.
	Version int64
}

// Succeeded reports whether the collection is in the requested state.
func (o Outcome) Succeeded() bool {
	switch o.Status {
	case StatusCreated, StatusUpdated, StatusDeleted, StatusNoOp:
		return true
	default:
		return false
	}
}
