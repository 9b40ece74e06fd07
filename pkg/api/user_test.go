package api

import (
	"net/http"
	"testing"

	"github.com/gamakdragons/wheretruck/pkg/auth"
	"github.com/gamakdragons/wheretruck/pkg/region"
	"github.com/gamakdragons/wheretruck/pkg/user"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		created bool
		want    int
	}{
		{"first login", true, http.StatusCreated},
		{"returning user", false, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.users.result = user.LoginResult{
				User:        user.User{ID: "kakao_1", NickName: "kim", Role: user.RoleOwner},
				AccessToken: "access",
				Created:     tt.created,
			}

			rec := env.do(t, http.MethodPost, "/api/auth/login/kakao", LoginRequest{Token: "kakao-token", NickName: "kim", Role: "OWNER"}, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if env.users.provider != "kakao" || env.users.req.Token != "kakao-token" || env.users.req.Role != user.RoleOwner {
				t.Fatalf("unexpected login call %q %+v", env.users.provider, env.users.req)
			}
			var got LoginResponse
			decodeData(t, rec, &got)
			if got.AccessToken != "access" || got.User.ID != "kakao_1" {
				t.Fatalf("unexpected response %+v", got)
			}
		})
	}
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		err      error
		want     int
		wantCode string
	}{
		{"missing token", LoginRequest{}, nil, http.StatusBadRequest, CodeValidationFailed},
		{"unsupported provider", LoginRequest{Token: "x"}, auth.ErrUnsupportedProvider, http.StatusBadRequest, CodeUnsupportedProvider},
		{"rejected token", LoginRequest{Token: "x"}, auth.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized},
		{"invalid nick name", LoginRequest{Token: "x"}, user.ErrInvalidUser, http.StatusBadRequest, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.users.err = tt.err

			rec := env.do(t, http.MethodPost, "/api/auth/login/naver", tt.body, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := decodeError(t, rec); got.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestUser_Profile(t *testing.T) {
	env := newTestEnv(t)
	env.users.users["u-1"] = user.User{ID: "u-1", NickName: "old", Role: user.RoleCustomer}

	rec := env.do(t, http.MethodGet, "/api/user/me", nil, "u-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPut, "/api/user/me/nickname", NickNameRequest{NickName: "new"}, "u-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var got user.User
	decodeData(t, rec, &got)
	if got.NickName != "new" {
		t.Fatalf("unexpected user %+v", got)
	}

	rec = env.do(t, http.MethodDelete, "/api/user/me", nil, "u-1")
	if rec.Code != http.StatusOK || len(env.users.deleted) != 1 {
		t.Fatalf("status = %d, deletes %v", rec.Code, env.users.deleted)
	}

	if rec := env.do(t, http.MethodGet, "/api/user/me", nil, "ghost"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRegion_Routes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/region/address?q=Seoul", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if env.regions.address != "Seoul" {
		t.Fatalf("unexpected address %q", env.regions.address)
	}

	if rec := env.do(t, http.MethodGet, "/api/region/address", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/region/geo?lat=37&lon=127&distance=1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var got []region.Region
	decodeData(t, rec, &got)
	if len(got) != 1 || got[0].RegionName != "near" {
		t.Fatalf("unexpected regions %+v", got)
	}

	env.regions.err = region.ErrInvalidQuery
	if rec := env.do(t, http.MethodGet, "/api/region", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
