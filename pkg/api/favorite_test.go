package api

import (
	"net/http"
	"testing"

	"github.com/gamakdragons/wheretruck/pkg/favorite"
)

func TestFavorite_Save(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/favorite", FavoriteRequest{TruckID: "t-1"}, "u-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if len(env.favorites.saved) != 1 || env.favorites.saved[0].UserID != "u-1" || env.favorites.saved[0].TruckID != "t-1" {
		t.Fatalf("unexpected saved favorites %+v", env.favorites.saved)
	}

	rec = env.do(t, http.MethodPost, "/api/favorite", FavoriteRequest{}, "u-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFavorite_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.favorites.favorites["f-1"] = favorite.Favorite{ID: "f-1", TruckID: "t-1", UserID: "u-1"}

	if rec := env.do(t, http.MethodDelete, "/api/favorite/f-1", nil, "u-2"); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/favorite/missing", nil, "u-1"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/favorite/f-1", nil, "u-1"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if len(env.favorites.deleted) != 1 || env.favorites.deleted[0] != "f-1" {
		t.Fatalf("unexpected deletes %v", env.favorites.deleted)
	}
}

func TestFavorite_CountIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.favorites.count = 7

	rec := env.do(t, http.MethodGet, "/api/favorite/count/t-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var got struct {
		TruckID string `json:"truckId"`
		Count   int64  `json:"count"`
	}
	decodeData(t, rec, &got)
	if got.TruckID != "t-1" || got.Count != 7 {
		t.Fatalf("unexpected count %+v", got)
	}
}

func TestFavorite_MineRequiresUser(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/favorite/my", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/favorite/my", nil, "u-1"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
}
