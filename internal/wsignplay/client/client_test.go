package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newBackend(t *testing.T, r chi.Router) *Client {
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL + "/api/v1alpha1")
	require.NoError(t, err)
	return c
}

func TestClient_Pairing(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1alpha1/pairing/start", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, v1alpha1.PairingStartResponse{Code: "ABC123"})
	})
	r.Get("/api/v1alpha1/pairing/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ABC123", chi.URLParam(r, "code"))
		writeJSON(w, http.StatusOK, v1alpha1.PairingStatusResponse{Status: v1alpha1.PairingStatusPaired, Token: "tok"})
	})
	c := newBackend(t, r)

	code, err := c.StartPairing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABC123", code)

	status, err := c.PairingStatus(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.PairingStatusPaired, status.Status)
	assert.Equal(t, "tok", status.DeviceToken())
}

func TestClient_FetchPlaylist(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1alpha1/playlist", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"item_id":1,"type":"image","url":"https://x/a.png","display_order":0,"duration_seconds":5}]`))
	})
	c := newBackend(t, r)

	items, err := c.FetchPlaylist(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, v1alpha1.ItemID("1"), items[0].ItemID)
}

func TestClient_FetchPlaylist_Null(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1alpha1/playlist", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	items, err := newBackend(t, r).FetchPlaylist(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      interface{}
		suspended bool
		rejected  bool
	}{
		{name: "suspended code", status: http.StatusServiceUnavailable, body: v1alpha1.Error{Code: "SUSPENDED", Message: "paused"}, suspended: true},
		{name: "locked status", status: http.StatusLocked, suspended: true},
		{name: "rejected code", status: http.StatusBadRequest, body: v1alpha1.Error{Code: "CREDENTIAL_REJECTED"}, rejected: true},
		{name: "unauthorized", status: http.StatusUnauthorized, rejected: true},
		{name: "forbidden", status: http.StatusForbidden, body: map[string]string{"detail": "Invalid token"}, rejected: true},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "bad gateway", status: http.StatusBadGateway, body: "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/v1alpha1/playlist", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := newBackend(t, r).FetchPlaylist(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tt.suspended, werrors.IsSuspended(err))
			assert.Equal(t, tt.rejected, werrors.IsCredentialRejected(err))
			if !tt.suspended && !tt.rejected {
				assert.True(t, werrors.Is(err, werrors.ErrUnavailable))
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = c.FetchPlaylist(context.Background(), "tok")
	assert.True(t, werrors.Is(err, werrors.ErrUnavailable))

	_, err = c.StartPairing(context.Background())
	assert.True(t, werrors.Is(err, werrors.ErrUnavailable))
}

func TestClient_ControlURL(t *testing.T) {
	c, err := NewClient("https://signage.example.com/api/v1alpha1")
	require.NoError(t, err)
	assert.Equal(t, "wss://signage.example.com/api/v1alpha1/player/ws", c.ControlURL())

	_, err = NewClient("not a url")
	assert.Error(t, err)
}
