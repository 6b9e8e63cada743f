package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	token   string
	cleared int
}

func (v *fakeVault) Token() string { return v.token }
func (v *fakeVault) Clear() error  { v.token = ""; v.cleared++; return nil }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeVault) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	vault := &fakeVault{token: "tok123"}
	return NewClient(srv.URL, 5*time.Second, vault), vault
}

func TestUnwrapSuccessEnvelopeStripped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"id":7,"title":"X"}`))
	})

	payload, err := c.Get(context.Background(), "/products/7", nil, false)
	require.NoError(t, err)
	record := payload.(map[string]interface{})
	_, hasSuccess := record["success"]
	assert.False(t, hasSuccess)
	assert.Equal(t, float64(7), record["id"])
	assert.Equal(t, "X", record["title"])
}

func TestUnwrapLegacyShapePassThrough(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"legacy"}`))
	})

	payload, err := c.Get(context.Background(), "/things/1", nil, false)
	require.NoError(t, err)
	record := payload.(map[string]interface{})
	assert.Equal(t, "legacy", record["name"])
}

func TestUnwrapArrayPassThrough(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	})

	payload, err := c.Get(context.Background(), "/things", nil, false)
	require.NoError(t, err)
	list := payload.([]interface{})
	assert.Len(t, list, 2)
}

func TestUnwrapSuccessFalse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"out of stock"}`))
	})

	_, err := c.Get(context.Background(), "/buy", nil, false)
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "out of stock", apiErr.Message)
}

func TestUnwrapErrorTrue(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"message":"bad input"}`))
	})

	_, err := c.Get(context.Background(), "/x", nil, false)
	require.Error(t, err)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, "bad input", apiErr.Message)
}

func TestNoContentReturnsNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	payload, err := c.Delete(context.Background(), "/cart", false)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestStatusDefaultsWhenBodyEmpty(t *testing.T) {
	cases := map[int]string{
		http.StatusUnauthorized:        "invalid credentials",
		http.StatusForbidden:           "forbidden",
		http.StatusNotFound:            "not found",
		http.StatusInternalServerError: "server error",
		http.StatusTeapot:              "request error",
	}
	for status, want := range cases {
		status, want := status, want
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.Get(context.Background(), "/x", nil, false)
		require.Error(t, err)
		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, want, apiErr.Message)
		assert.Equal(t, status, apiErr.Status)
	}
}

func TestErrorBodyMessagePreferred(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"title is required","error":"ignored"}`))
	})
	_, err := c.Get(context.Background(), "/x", nil, false)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, "title is required", apiErr.Message)
}

func TestErrorBodyStringErrorSecond(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"broken field"}`))
	})
	_, err := c.Get(context.Background(), "/x", nil, false)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, "broken field", apiErr.Message)
}

func TestErrorBodyRawTextThird(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})
	_, err := c.Get(context.Background(), "/x", nil, false)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestUnauthorizedPurgesToken(t *testing.T) {
	c, vault := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token revoked"}`))
	})

	var hookFired bool
	c.OnUnauthorized(func() { hookFired = true })

	_, err := c.Get(context.Background(), "/users/me", nil, true)
	require.Error(t, err)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token revoked", apiErr.Message)
	assert.Equal(t, 1, vault.cleared)
	assert.Empty(t, vault.token)
	assert.True(t, hookFired)
}

func TestAuthHeaderAttached(t *testing.T) {
	var gotAuth, gotReqID string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Get(context.Background(), "/users/me", nil, true)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestAuthHeaderOmittedWhenNotRequested(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Get(context.Background(), "/products", nil, false)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestQueryParamsForwarded(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("category")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Get(context.Background(), "/products", map[string]string{"category": "cotton"}, false)
	require.NoError(t, err)
	assert.Equal(t, "cotton", gotQuery)
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	vault := &fakeVault{}
	c := NewClient("http://127.0.0.1:1", time.Second, vault)
	_, err := c.Get(context.Background(), "/x", nil, false)
	require.Error(t, err)
	_, ok := AsAPIError(err)
	assert.False(t, ok)
}
