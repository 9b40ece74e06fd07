package collection

import "context"

// RemovalResult pairs the document outcome of a removal with the release of the
// item's resources.
type RemovalResult struct {
	Outcome Outcome
	Release ReleaseResult
}

// Orchestrator composes primary collection updates with their secondary steps.
type Orchestrator struct {
	service *Service
}

// NewOrchestrator wraps service.
func NewOrchestrator(service *Service) *Orchestrator {
	return &Orchestrator{service: service}
}

// RemoveItem removes item id and, once the collection no longer holds it, releases
// its resources. The release result never changes the outcome.
func (o *Orchestrator) RemoveItem(ctx context.Context, parentKey, id string) (RemovalResult, error) {
	out, err := o.service.RemoveItem(ctx, parentKey, id)
	if err != nil {
		return RemovalResult{}, err
	}

	res := RemovalResult{Outcome: out}
	if out.Succeeded() {
		res.Release = o.service.ReleaseResources(ctx, out.ParentKey, out.ItemID)
	}
	return res, nil
}
