package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Page size bounds for search requests.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// ErrInvalidQuery is returned when a Query cannot be turned into a request body.
var ErrInvalidQuery = errors.New("invalid query")

// GeoPoint is a latitude/longitude pair as stored in geo_point fields.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point lies within WGS84 bounds.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidQuery, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidQuery, p.Lon)
	}
	return nil
}

// Pagination specifies page-based pagination parameters
type Pagination struct {
	Page     int
	PageSize int
}

// Offset calculates the offset of the first hit.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the page size, bounded by MaxPageSize.
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// MultiMatch is a full-text match of one string across several fields.
type MultiMatch struct {
	Text   string
	Fields []string
}

// GeoFilter keeps documents whose Field lies within DistanceKm of Center.
type GeoFilter struct {
	Field      string
	Center     GeoPoint
	DistanceKm float64
}

// Query describes a search request. The zero value matches every document.
type Query struct {
	// Terms are exact-match filters keyed by field.
	Terms      map[string]interface{}
	Match      *MultiMatch
	Near       *GeoFilter
	Pagination Pagination
	// CountOnly requests the total hit count without sources.
	CountOnly bool
}

// Body renders q as a query DSL request body. Results near a GeoFilter are sorted by distance.
func (q Query) Body() (map[string]interface{}, error) {
	boolQuery := map[string]interface{}{}

	if q.Match != nil {
		text := strings.TrimSpace(q.Match.Text)
		if text == "" || len(q.Match.Fields) == 0 {
			return nil, fmt.Errorf("%w: multi_match needs text and fields", ErrInvalidQuery)
		}
		boolQuery["must"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": q.Match.Fields,
			},
		}
	} else {
		boolQuery["must"] = map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	filters := make([]interface{}, 0, len(q.Terms)+1)
	fields := make([]string, 0, len(q.Terms))
	for field := range q.Terms {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{field: q.Terms[field]},
		})
	}

	body := map[string]interface{}{}

	if q.Near != nil {
		if q.Near.Field == "" {
			return nil, fmt.Errorf("%w: geo filter needs a field", ErrInvalidQuery)
		}
		if err := q.Near.Center.Validate(); err != nil {
			return nil, err
		}
		if q.Near.DistanceKm <= 0 {
			return nil, fmt.Errorf("%w: distance must be positive", ErrInvalidQuery)
		}
		filters = append(filters, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gkm", q.Near.DistanceKm),
				q.Near.Field: q.Near.Center,
			},
		})
		if !q.CountOnly {
			body["sort"] = []interface{}{
				map[string]interface{}{
					"_geo_distance": map[string]interface{}{
						q.Near.Field: q.Near.Center,
						"order":      "asc",
						"unit":       "km",
					},
				},
			}
		}
	}

	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	body["query"] = map[string]interface{}{"bool": boolQuery}

	if q.CountOnly {
		body["size"] = 0
		body["track_total_hits"] = true
		return body, nil
	}

	body["size"] = q.Pagination.Limit()
	if offset := q.Pagination.Offset(); offset > 0 {
		body["from"] = offset
	}
	return body, nil
}
