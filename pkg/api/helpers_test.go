package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/auth"
	"github.com/gamakdragons/wheretruck/pkg/collection"
	"github.com/gamakdragons/wheretruck/pkg/favorite"
	"github.com/gamakdragons/wheretruck/pkg/health"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/region"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
	"github.com/gamakdragons/wheretruck/pkg/truck"
	"github.com/gamakdragons/wheretruck/pkg/user"
	"github.com/gamakdragons/wheretruck/pkg/version"
)

const testSecret = "test-secret"

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) record(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockLogger) Debug(msg string, _ ...any)                { m.record(msg) }
func (m *mockLogger) Info(msg string, _ ...any)                 { m.record(msg) }
func (m *mockLogger) Warn(msg string, _ ...any)                 { m.record(msg) }
func (m *mockLogger) Error(msg string, _ ...any)                { m.record(msg) }
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

func (m *mockLogger) has(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, got := range m.messages {
		if got == msg {
			return true
		}
	}
	return false
}

type foodCall struct {
	parentKey string
	id        string
	fields    collection.ItemFields
	ids       []string
}

type mockFoods struct {
	out     collection.Outcome
	err     error
	release collection.ReleaseResult
	calls   []foodCall
}

func (m *mockFoods) AddItem(_ context.Context, parentKey string, fields collection.ItemFields) (collection.Outcome, error) {
	m.calls = append(m.calls, foodCall{parentKey: parentKey, fields: fields})
	return m.out, m.err
}

func (m *mockFoods) UpdateItem(_ context.Context, parentKey, id string, fields collection.ItemFields) (collection.Outcome, error) {
	m.calls = append(m.calls, foodCall{parentKey: parentKey, id: id, fields: fields})
	return m.out, m.err
}

func (m *mockFoods) ReorderItems(_ context.Context, parentKey string, ids []string) (collection.Outcome, error) {
	m.calls = append(m.calls, foodCall{parentKey: parentKey, ids: ids})
	return m.out, m.err
}

func (m *mockFoods) RemoveItem(_ context.Context, parentKey, id string) (collection.RemovalResult, error) {
	m.calls = append(m.calls, foodCall{parentKey: parentKey, id: id})
	return collection.RemovalResult{Outcome: m.out, Release: m.release}, m.err
}

type mockTrucks struct {
	trucks  map[string]truck.Truck
	saved   []truck.Truck
	deleted []string
	center  truck.GeoPoint
	err     error
}

func newMockTrucks(ts ...truck.Truck) *mockTrucks {
	m := &mockTrucks{trucks: map[string]truck.Truck{}}
	for _, t := range ts {
		m.trucks[t.ID] = t
	}
	return m
}

func (m *mockTrucks) Get(_ context.Context, id string) (truck.Truck, error) {
	if m.err != nil {
		return truck.Truck{}, m.err
	}
	t, ok := m.trucks[id]
	if !ok {
		return truck.Truck{}, truck.ErrTruckNotFound
	}
	return t, nil
}

func (m *mockTrucks) Save(_ context.Context, t truck.Truck) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if t.Name == "" {
		return "", truck.ErrInvalidTruck
	}
	t.ID = "t-new"
	m.saved = append(m.saved, t)
	return t.ID, nil
}

func (m *mockTrucks) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockTrucks) FindByLocation(_ context.Context, center truck.GeoPoint, _ float64) ([]truck.Truck, error) {
	m.center = center
	out := []truck.Truck{}
	for _, t := range m.trucks {
		out = append(out, t)
	}
	return out, m.err
}

func (m *mockTrucks) FindByUserID(_ context.Context, userID string) ([]truck.Truck, error) {
	out := []truck.Truck{}
	for _, t := range m.trucks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, m.err
}

type mockRegions struct {
	address string
	err     error
}

func (m *mockRegions) FindAll(context.Context) ([]region.Region, error) {
	return []region.Region{{RegionName: "a"}, {RegionName: "b"}}, m.err
}

func (m *mockRegions) FindByAddress(_ context.Context, address string) ([]region.Region, error) {
	m.address = address
	return []region.Region{{RegionName: "a", City: address}}, m.err
}

func (m *mockRegions) FindByLocation(context.Context, document.GeoPoint, float64) ([]region.Region, error) {
	return []region.Region{{RegionName: "near"}}, m.err
}

type mockFavorites struct {
	favorites map[string]favorite.Favorite
	saved     []favorite.Favorite
	deleted   []string
	count     int64
}

func (m *mockFavorites) Save(_ context.Context, f favorite.Favorite) (string, error) {
	if f.TruckID == "" {
		return "", favorite.ErrInvalidFavorite
	}
	m.saved = append(m.saved, f)
	return "f-new", nil
}

func (m *mockFavorites) Get(_ context.Context, id string) (favorite.Favorite, error) {
	f, ok := m.favorites[id]
	if !ok {
		return favorite.Favorite{}, favorite.ErrFavoriteNotFound
	}
	return f, nil
}

func (m *mockFavorites) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockFavorites) CountByTruckID(context.Context, string) (int64, error) {
	return m.count, nil
}

func (m *mockFavorites) FindByUserID(_ context.Context, userID string) ([]truck.Truck, error) {
	return []truck.Truck{{ID: "t-1", UserID: "owner"}}, nil
}

type mockUsers struct {
	result   user.LoginResult
	err      error
	provider string
	req      user.LoginRequest
	users    map[string]user.User
	deleted  []string
}

func (m *mockUsers) Login(_ context.Context, provider string, req user.LoginRequest) (user.LoginResult, error) {
	m.provider = provider
	m.req = req
	return m.result, m.err
}

func (m *mockUsers) Get(_ context.Context, id string) (user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUsers) UpdateNickName(_ context.Context, id, nickName string) (user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	if nickName == "" {
		return user.User{}, user.ErrInvalidUser
	}
	u.NickName = nickName
	m.users[id] = u
	return u, nil
}

func (m *mockUsers) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockHealth struct {
	result health.AggregatedResult
}

func (m *mockHealth) Check(context.Context) health.AggregatedResult { return m.result }

type httpCall struct {
	method, path string
	status       int
}

type mockRecorder struct {
	mu       sync.Mutex
	calls    []httpCall
	inFlight int
	maxSeen  int
}

func (m *mockRecorder) RecordHTTP(method, path string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, httpCall{method: method, path: path, status: status})
}

func (m *mockRecorder) IncInFlight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
}

func (m *mockRecorder) DecInFlight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
}

type testEnv struct {
	engine    *gin.Engine
	tokens    *auth.TokenIssuer
	log       *mockLogger
	recorder  *mockRecorder
	foods     *mockFoods
	trucks    *mockTrucks
	regions   *mockRegions
	favorites *mockFavorites
	users     *mockUsers
	health    *mockHealth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenIssuer(testSecret, "wheretruck", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	env := &testEnv{
		tokens:    tokens,
		log:       &mockLogger{},
		recorder:  &mockRecorder{},
		foods:     &mockFoods{},
		trucks:    newMockTrucks(truck.Truck{ID: "t-1", Name: "taco", UserID: "owner"}),
		regions:   &mockRegions{},
		favorites: &mockFavorites{favorites: map[string]favorite.Favorite{}},
		users:     &mockUsers{users: map[string]user.User{}},
		health:    &mockHealth{result: health.AggregatedResult{Status: health.StatusHealthy}},
	}
	env.engine = NewRouter(Deps{
		Logger:         env.log,
		Tokens:         tokens,
		Metrics:        env.recorder,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "# metrics\n") }),
		Health:         env.health,
		Version:        version.Info{Service: "wheretruck", Version: "v1.0.0"},
		Trucks:         env.trucks,
		Foods:          env.foods,
		Remover:        env.foods,
		Regions:        env.regions,
		Favorites:      env.favorites,
		Users:          env.users,
		MaxImageBytes:  16,
		MaxRequestSize: 1 << 10,
	})
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.tokens.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

// do sends a request; a non-empty userID authenticates it.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an ErrorResponse: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not a SuccessResponse: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v (%s)", err, resp.Data)
	}
}
