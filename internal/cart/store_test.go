package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/fabrica/internal/apiclient"
)

type authVault struct{ token string }

func (v *authVault) Token() string { return v.token }
func (v *authVault) Clear() error  { v.token = ""; return nil }

func newTestStore(t *testing.T, handler http.Handler) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api := apiclient.NewClient(srv.URL, 5*time.Second, &authVault{token: "tok"})
	return NewStore(api, nil)
}

const cartBody = `{"items":[
	{"id":1,"quantity":2,"price":450,"product":{"data":{"id":3,"attributes":{"name":"Cotton white"}}}},
	{"id":2,"quantity":1,"price":900,"title":"Linen blue"}
]}`

func TestFetchComputesCountAndTotal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(cartBody))
	})
	s := newTestStore(t, mux)
	s.Fetch(context.Background())

	snap := s.Snapshot()
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, 1800.0, snap.Total)
	assert.Equal(t, "Cotton white", snap.Lines[0].Title)
	assert.Equal(t, int64(3), snap.Lines[0].ProductID)
	assert.Equal(t, "Linen blue", snap.Lines[1].Title)
	assert.Equal(t, 900.0, snap.Lines[1].Sum)
}

func TestAddAppliesResponseCart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(cartBody))
	})
	s := newTestStore(t, mux)

	require.NoError(t, s.Add(context.Background(), 3, 0))
	assert.Len(t, s.Snapshot().Lines, 2)
}

func TestUpdateQuantityBelowOneRemovesLine(t *testing.T) {
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("/cart/items/1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	s := newTestStore(t, mux)

	require.NoError(t, s.UpdateQuantity(context.Background(), 1, 0))
	assert.Equal(t, "/cart/items/1", deleted)
	assert.Empty(t, s.Snapshot().Lines)
}

func TestClearEmptiesCart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = w.Write([]byte(cartBody))
		}
	})
	s := newTestStore(t, mux)
	s.Fetch(context.Background())
	require.NotEmpty(t, s.Snapshot().Lines)

	require.NoError(t, s.Clear(context.Background()))
	snap := s.Snapshot()
	assert.Empty(t, snap.Lines)
	assert.Zero(t, snap.Count)
	assert.Zero(t, snap.Total)
}

func TestFetchErrorResetsLines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	s := newTestStore(t, mux)
	s.Fetch(context.Background())

	snap := s.Snapshot()
	assert.Empty(t, snap.Lines)
	assert.Equal(t, "invalid credentials", snap.Err)
}
