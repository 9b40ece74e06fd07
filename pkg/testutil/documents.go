package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// Documents is an in-memory document store for service tests. It understands the
// bool/term/multi_match/geo_distance bodies produced by document.Query.
type Documents struct {
	mu      sync.Mutex
	indices map[string]*memIndex
	queries []RecordedQuery

	// Err, when set, fails every call.
	Err error
}

// RecordedQuery is a search request seen by Documents.
type RecordedQuery struct {
	Index string
	Body  map[string]interface{}
}

type memIndex struct {
	order []string
	docs  map[string]json.RawMessage
}

// NewDocuments returns an empty store.
func NewDocuments() *Documents {
	return &Documents{indices: map[string]*memIndex{}}
}

func (d *Documents) index(name string) *memIndex {
	idx, ok := d.indices[name]
	if !ok {
		idx = &memIndex{docs: map[string]json.RawMessage{}}
		d.indices[name] = idx
	}
	return idx
}

// Put stores doc under index/id.
func (d *Documents) Put(index, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.index(index)
	if _, exists := idx.docs[id]; !exists {
		idx.order = append(idx.order, id)
	}
	idx.docs[id] = raw
	return nil
}

// Len returns the number of documents in index.
func (d *Documents) Len(index string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.index(index).docs)
}

// Queries returns every search request received so far.
func (d *Documents) Queries() []RecordedQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RecordedQuery(nil), d.queries...)
}

// UpdateByScript is not interpreted here.
func (d *Documents) UpdateByScript(context.Context, string, string, document.Script) (document.UpdateResult, error) {
	return document.UpdateResult{}, errors.New("testutil.Documents does not run scripts")
}

// GetDocument decodes index/id into out.
func (d *Documents) GetDocument(_ context.Context, index, id string, out interface{}) error {
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	raw, ok := d.index(index).docs[id]
	d.mu.Unlock()
	if !ok {
		return document.ErrDocumentMissing
	}
	return json.Unmarshal(raw, out)
}

// IndexDocument stores doc under index/id.
func (d *Documents) IndexDocument(_ context.Context, index, id string, doc interface{}) error {
	if d.Err != nil {
		return d.Err
	}
	return d.Put(index, id, doc)
}

// DeleteDocument removes index/id. Missing documents are ignored.
func (d *Documents) DeleteDocument(_ context.Context, index, id string) error {
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.index(index)
	if _, ok := idx.docs[id]; !ok {
		return nil
	}
	delete(idx.docs, id)
	for i, existing := range idx.order {
		if existing == id {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	return nil
}

// Search evaluates query against index and returns a search response body.
func (d *Documents) Search(_ context.Context, index string, query interface{}) (json.RawMessage, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	body, err := normalize(query)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.queries = append(d.queries, RecordedQuery{Index: index, Body: body})
	idx := d.index(index)
	type hit struct {
		ID     string          `json:"_id"`
		Source json.RawMessage `json:"_source"`
	}
	hits := []hit{}
	for _, id := range idx.order {
		raw := idx.docs[id]
		var src map[string]interface{}
		if err := json.Unmarshal(raw, &src); err != nil {
			d.mu.Unlock()
			return nil, err
		}
		ok, err := matches(body, src)
		if err != nil {
			d.mu.Unlock()
			return nil, err
		}
		if ok {
			hits = append(hits, hit{ID: id, Source: raw})
		}
	}
	d.mu.Unlock()

	total := len(hits)
	if size, ok := body["size"].(float64); ok && int(size) < len(hits) {
		hits = hits[:int(size)]
	}

	resp := map[string]interface{}{
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": total},
			"hits":  hits,
		},
	}
	return json.Marshal(resp)
}

func normalize(query interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func matches(body map[string]interface{}, src map[string]interface{}) (bool, error) {
	q, _ := body["query"].(map[string]interface{})
	b, _ := q["bool"].(map[string]interface{})
	if b == nil {
		return true, nil
	}

	if must, ok := b["must"].(map[string]interface{}); ok {
		if mm, ok := must["multi_match"].(map[string]interface{}); ok {
			text := strings.ToLower(fmt.Sprint(mm["query"]))
			found := false
			fields, _ := mm["fields"].([]interface{})
			for _, f := range fields {
				if v, ok := src[fmt.Sprint(f)].(string); ok && strings.Contains(strings.ToLower(v), text) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
	}

	filters, _ := b["filter"].([]interface{})
	for _, raw := range filters {
		f, _ := raw.(map[string]interface{})
		if term, ok := f["term"].(map[string]interface{}); ok {
			for field, want := range term {
				if fmt.Sprint(src[field]) != fmt.Sprint(want) {
					return false, nil
				}
			}
		}
		if geo, ok := f["geo_distance"].(map[string]interface{}); ok {
			ok, err := withinDistance(geo, src)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func withinDistance(geo map[string]interface{}, src map[string]interface{}) (bool, error) {
	limit, err := strconv.ParseFloat(strings.TrimSuffix(fmt.Sprint(geo["distance"]), "km"), 64)
	if err != nil {
		return false, fmt.Errorf("bad distance %v", geo["distance"])
	}
	for field, rawCenter := range geo {
		if field == "distance" {
			continue
		}
		center, _ := rawCenter.(map[string]interface{})
		point, _ := src[field].(map[string]interface{})
		if point == nil {
			return false, nil
		}
		return haversineKm(num(center["lat"]), num(center["lon"]), num(point["lat"]), num(point["lon"])) <= limit, nil
	}
	return false, errors.New("geo_distance without field")
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
