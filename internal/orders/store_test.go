package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/domain"
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

func TestFetchAllRequiresAuthHeader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[
			{"id":1,"attributes":{"status":"processing","total":900,"createdAt":"2024-04-01T00:00:00Z"}},
			{"id":2,"attributes":{"status":"delivered","total":450}}
		]}`))
	})
	s := newTestStore(t, mux)
	s.FetchAll(context.Background())

	snap := s.Snapshot()
	assert.Empty(t, snap.Err)
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, "processing", snap.Orders[0].Status)
	assert.Equal(t, 900.0, snap.Orders[0].Total)
	assert.Equal(t, 2024, snap.Orders[0].CreatedAt.Year())
}

func TestFetchAllUnauthorizedResetsOrders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	s := newTestStore(t, mux)
	s.FetchAll(context.Background())

	snap := s.Snapshot()
	assert.Empty(t, snap.Orders)
	assert.Equal(t, "invalid credentials", snap.Err)
}

func TestCreateValidatesDraft(t *testing.T) {
	var hits int64
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))

	res := s.Create(context.Background(), OrderDraft{Address: "somewhere"})
	assert.Equal(t, "order has no items", res.Error)

	res = s.Create(context.Background(), OrderDraft{
		Items: []domain.OrderItem{{ProductID: 1, Quantity: 2, Price: 450}},
	})
	assert.Equal(t, "address is required", res.Error)
	assert.Equal(t, int64(0), atomic.LoadInt64(&hits))
}

func TestCreateRefetchesHistory(t *testing.T) {
	var listHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data":{"id":42,"attributes":{"status":"created"}}}`))
			return
		}
		atomic.AddInt64(&listHits, 1)
		_, _ = w.Write([]byte(`[{"id":42,"status":"created","total":900}]`))
	})
	s := newTestStore(t, mux)

	res := s.Create(context.Background(), OrderDraft{
		Items:   []domain.OrderItem{{ProductID: 1, Quantity: 2, Price: 450}},
		Address: "Main st 1",
		Payment: "card",
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(42), res.OrderID)
	assert.Equal(t, int64(1), atomic.LoadInt64(&listHits))
	require.Len(t, s.Snapshot().Orders, 1)
}

func TestCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/42/cancel", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":42,"status":"cancelled"}]`))
	})
	s := newTestStore(t, mux)

	res := s.Cancel(context.Background(), 42)
	require.True(t, res.Success, res.Error)
	require.Len(t, s.Snapshot().Orders, 1)
	assert.Equal(t, "cancelled", s.Snapshot().Orders[0].Status)
}

func TestCancelRejectedByBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/42/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"order already shipped"}`))
	})
	s := newTestStore(t, mux)

	res := s.Cancel(context.Background(), 42)
	assert.Equal(t, "order already shipped", res.Error)
}

func TestTransformOrderItemsAndTotalRecompute(t *testing.T) {
	o := transformOrder(map[string]interface{}{
		"id":     float64(7),
		"status": "created",
		"items": []interface{}{
			map[string]interface{}{
				"quantity": float64(2),
				"price":    float64(450),
				"product": map[string]interface{}{
					"data": map[string]interface{}{
						"id":         float64(3),
						"attributes": map[string]interface{}{"name": "Cotton white"},
					},
				},
			},
			map[string]interface{}{
				"quantity": float64(1),
				"price":    float64(100),
				"title":    "Linen blue",
			},
		},
	})

	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(3), o.Items[0].ProductID)
	assert.Equal(t, "Cotton white", o.Items[0].Title)
	assert.Equal(t, "Linen blue", o.Items[1].Title)
	assert.Equal(t, 1000.0, o.Total)
}

func TestCanCancelOrder(t *testing.T) {
	assert.True(t, domain.CanCancelOrder(domain.OrderStatusCreated))
	assert.True(t, domain.CanCancelOrder(domain.OrderStatusProcessing))
	assert.False(t, domain.CanCancelOrder(domain.OrderStatusPaid))
	assert.False(t, domain.CanCancelOrder(domain.OrderStatusShipped))
	assert.False(t, domain.CanCancelOrder(domain.OrderStatusCancelled))
}
