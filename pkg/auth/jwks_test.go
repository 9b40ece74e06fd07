package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

// createTestJWKS creates a JWKS response holding one RSA key under kid.
func createTestJWKS(t *testing.T, kid string) (JSONWebKeySet, *rsa.PrivateKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	jwk := JSONWebKey{
		Kid: kid,
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
	}
	return JSONWebKeySet{Keys: []JSONWebKey{jwk}}, privateKey
}

func serveJWKS(t *testing.T, resp JSONWebKeySet, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJWKSClient_GetKey_Success(t *testing.T) {
	jwksResp, privateKey := createTestJWKS(t, "apple-key-1")
	srv := serveJWKS(t, jwksResp, nil)

	client := NewJWKSClient(srv.URL, time.Hour, &mockLogger{})

	key, err := client.GetKey(context.Background(), "apple-key-1")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("expected *rsa.PublicKey, got %T", key)
	}
	if rsaKey.N.Cmp(privateKey.PublicKey.N) != 0 || rsaKey.E != privateKey.PublicKey.E {
		t.Fatal("decoded key does not match generated key")
	}
}

func TestJWKSClient_GetKey_NotFound(t *testing.T) {
	jwksResp, _ := createTestJWKS(t, "apple-key-1")
	srv := serveJWKS(t, jwksResp, nil)

	client := NewJWKSClient(srv.URL, time.Hour, &mockLogger{})

	_, err := client.GetKey(context.Background(), "other")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJWKSClient_CachesUntilExpiry(t *testing.T) {
	jwksResp, _ := createTestJWKS(t, "k1")
	var hits int32
	srv := serveJWKS(t, jwksResp, &hits)

	now := time.Unix(1_700_000_000, 0)
	client := NewJWKSClient(srv.URL, time.Minute, &mockLogger{}, WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if _, err := client.GetKey(context.Background(), "k1"); err != nil {
			t.Fatalf("GetKey failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 fetch while cached, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := client.GetKey(context.Background(), "k1"); err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected refetch after expiry, got %d fetches", got)
	}
}

func TestJWKSClient_ConcurrentMissesFetchOnce(t *testing.T) {
	jwksResp, _ := createTestJWKS(t, "k1")
	var hits int32
	srv := serveJWKS(t, jwksResp, &hits)

	client := NewJWKSClient(srv.URL, time.Hour, &mockLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetKey(context.Background(), "k1"); err != nil {
				t.Errorf("GetKey failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
}

func TestJWKSClient_EndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "no usable keys",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"keys":[{"kid":"ec","kty":"EC"}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewJWKSClient(srv.URL, time.Hour, &mockLogger{})
			if _, err := client.GetKey(context.Background(), "k1"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestJSONWebKey_Rejects(t *testing.T) {
	if _, err := (JSONWebKey{Kid: "ec", Kty: "EC"}).rsaPublicKey(); err == nil {
		t.Fatal("expected error for EC key")
	}
	if _, err := (JSONWebKey{Kid: "r", Kty: "RSA", N: "AQAB", E: ""}).rsaPublicKey(); err == nil {
		t.Fatal("expected error for empty exponent")
	}
}
