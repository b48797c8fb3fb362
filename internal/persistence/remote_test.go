package persistence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

func TestRemoteCollections_LoadAndSave(t *testing.T) {
	stored := map[string]json.RawMessage{"projects": json.RawMessage(`[{"id":1}]`)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		name := r.URL.Path[len("/api/collections/"):]
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			items, ok := stored[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{"items": items})
		case http.MethodPut:
			var body struct {
				Items json.RawMessage `json:"items"`
			}
			raw, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(raw, &body))
			stored[name] = body.Items
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	remote := NewRemoteCollections(&RemoteConfig{BaseURL: srv.URL + "/", Token: "secret"})
	ctx := context.Background()

	data, err := remote.Load(ctx, "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(data))

	data, err = remote.Load(ctx, "niches")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	require.NoError(t, remote.Save(ctx, "niches", []byte(`[{"id":"war"}]`)))
	assert.JSONEq(t, `[{"id":"war"}]`, string(stored["niches"]))
}

func TestRemoteCollections_AuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	ctx := context.Background()

	remote := NewRemoteCollections(&RemoteConfig{BaseURL: srv.URL, Token: "expired"})
	_, err := remote.Load(ctx, "projects")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.ErrorIs(t, remote.Save(ctx, "projects", []byte(`[]`)), domain.ErrAuthRequired)

	anonymous := NewRemoteCollections(&RemoteConfig{BaseURL: srv.URL})
	_, err = anonymous.Load(ctx, "projects")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestRemoteCollections_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewRemoteCollections(&RemoteConfig{BaseURL: srv.URL, Token: "t"})
	_, err := remote.Load(context.Background(), "projects")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAuthRequired)
}
