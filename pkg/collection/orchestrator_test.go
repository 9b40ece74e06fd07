package collection

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestOrchestrator_RemoveReleasesAfterSuccess(t *testing.T) {
	store := newMemoryStore()
	store.addParent("T1", Item{ID: "X", Name: "a"})
	res := newMemoryResources()
	svc, _ := newTestService(store, WithResourceStore(res))

	got, err := NewOrchestrator(svc).RemoveItem(context.Background(), "T1", "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Outcome.Status != StatusDeleted || !got.Release.Released() {
		t.Fatalf("unexpected result %+v", got)
	}
	if !reflect.DeepEqual(res.removed, []string{"food-images/T1/X"}) {
		t.Fatalf("unexpected removals %v", res.removed)
	}
}

func TestOrchestrator_ReleaseFailureKeepsOutcome(t *testing.T) {
	store := newMemoryStore()
	store.addParent("T1", Item{ID: "X", Name: "a"})
	res := newMemoryResources()
	res.rmErr = errors.New("s3 down")
	svc, _ := newTestService(store, WithResourceStore(res))

	got, _ := NewOrchestrator(svc).RemoveItem(context.Background(), "T1", "X")
	if !got.Outcome.Succeeded() {
		t.Fatalf("release failure must not change the outcome: %+v", got.Outcome)
	}
	if got.Release.Err == nil {
		t.Fatal("expected release error to be reported")
	}
}

func TestOrchestrator_NoReleaseWhenParentMissing(t *testing.T) {
	res := newMemoryResources()
	svc, _ := newTestService(newMemoryStore(), WithResourceStore(res))

	got, _ := NewOrchestrator(svc).RemoveItem(context.Background(), "missing", "X")
	if got.Outcome.Status != StatusParentNotFound {
		t.Fatalf("unexpected outcome %+v", got.Outcome)
	}
	if len(res.removed) != 0 {
		t.Fatalf("resources must not be released for failed removals: %v", res.removed)
	}
}
