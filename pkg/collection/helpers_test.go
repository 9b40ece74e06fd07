package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gamakdragons/wheretruck/pkg/identity"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger keeps every entry, including the fields added through With.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  []any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := append(append([]any{}, l.fields...), args...)
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: all})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) With(args ...any) logger.Logger {
	return &recordingLogger{mu: l.mu, entries: l.entries, fields: append(append([]any{}, l.fields...), args...)}
}

func (l *recordingLogger) WithContext(context.Context) logger.Logger { return l }

func (l *recordingLogger) all() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), (*l.entries)...)
}

func (l *recordingLogger) count(level string) int {
	n := 0
	for _, e := range l.all() {
		if e.level == level {
			n++
		}
	}
	return n
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordOutcome(kind, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[kind+"/"+status]++
}

// memoryStore applies the script templates to in-memory documents the way the
// search store would.
type memoryStore struct {
	mu      sync.Mutex
	docs    map[string]*memoryDoc
	err     error
	scripts []document.Script
}

type memoryDoc struct {
	foods   []Item
	present bool
	version int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]*memoryDoc{}}
}

// addParent creates a parent without a foods field.
func (m *memoryStore) addParent(key string, foods ...Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := &memoryDoc{version: 1}
	if len(foods) > 0 {
		doc.foods = append([]Item(nil), foods...)
		doc.present = true
	}
	m.docs[key] = doc
}

func (m *memoryStore) foods(key string) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil
	}
	return append([]Item(nil), doc.foods...)
}

func (m *memoryStore) UpdateByScript(ctx context.Context, index, id string, script document.Script) (document.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, script)

	if m.err != nil {
		return document.UpdateResult{}, m.err
	}
	if err := ctx.Err(); err != nil {
		return document.UpdateResult{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return document.UpdateResult{}, fmt.Errorf("update %s/%s: %w", index, id, document.ErrDocumentMissing)
	}

	noop := false
	switch script.Source {
	case appendSource:
		doc.foods = append(doc.foods, itemFromParams(script.Params["item"]))
		doc.present = true
	case updateFieldsSource:
		want := itemFromParams(script.Params["item"])
		noop = true
		for i := range doc.foods {
			if doc.foods[i].ID == want.ID {
				doc.foods[i] = want
				noop = false
				break
			}
		}
	case removeByKeySource:
		target, _ := script.Params["id"].(string)
		kept := doc.foods[:0:0]
		for _, f := range doc.foods {
			if f.ID != target {
				kept = append(kept, f)
			}
		}
		noop = !doc.present || len(kept) == len(doc.foods)
		if !noop {
			doc.foods = kept
		}
	case reorderSource:
		ids, _ := script.Params["ids"].([]string)
		sorted := []Item{}
		for _, want := range ids {
			for _, f := range doc.foods {
				if f.ID == want {
					sorted = append(sorted, f)
					break
				}
			}
		}
		doc.foods = sorted
		doc.present = true
	default:
		return document.UpdateResult{}, errors.New("unknown script")
	}

	if noop {
		return document.UpdateResult{Result: document.ResultNoop, Version: doc.version}, nil
	}
	doc.version++
	return document.UpdateResult{Result: document.ResultUpdated, Version: doc.version}, nil
}

func itemFromParams(v interface{}) Item {
	p, _ := v.(map[string]interface{})
	item := Item{}
	item.ID, _ = p["id"].(string)
	item.Name, _ = p["name"].(string)
	item.Cost, _ = p["cost"].(int)
	item.Description, _ = p["description"].(string)
	item.ImageURL, _ = p["imageUrl"].(string)
	return item
}

type memoryResources struct {
	mu      sync.Mutex
	objects map[string]Resource
	putErr  error
	rmErr   error
	removed []string
}

func newMemoryResources() *memoryResources {
	return &memoryResources{objects: map[string]Resource{}}
}

func (r *memoryResources) Put(ctx context.Context, bucket, key string, res Resource) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return "", r.putErr
	}
	r.objects[bucket+"/"+key] = res
	return "https://" + bucket + ".example.com/" + key, nil
}

func (r *memoryResources) Remove(ctx context.Context, bucket, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, bucket+"/"+key)
	if r.rmErr != nil {
		return r.rmErr
	}
	delete(r.objects, bucket+"/"+key)
	return nil
}

func sequentialIDs(prefix string) identity.Generator {
	var mu sync.Mutex
	n := 0
	return identity.Func(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	})
}

const testIndex = "truck"

func newTestService(store *memoryStore, opts ...Option) (*Service, *recordingLogger) {
	log := newRecordingLogger()
	svc, err := NewService(
		Config{ParentIndexName: testIndex, ResourceBucketName: "food-images"},
		NewDispatcher(store, log, nil),
		log,
		opts...,
	)
	if err != nil {
		panic(err)
	}
	return svc, log
}

func itemIDs(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
