package orders

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

func newTestNotifications(t *testing.T, handler http.Handler) *NotificationStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api := apiclient.NewClient(srv.URL, 5*time.Second, &authVault{token: "tok"})
	return NewNotificationStore(api, nil)
}

func notificationFeed() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"message":"order shipped","is_read":false,"order_id":42,"created_at":"2024-06-01T10:00:00Z"},
			{"id":2,"message":"welcome","isRead":true}
		]`))
	})
	mux.HandleFunc("/notifications/1/read", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	return mux
}

func TestNotificationsFetchAndUnreadCount(t *testing.T) {
	s := newTestNotifications(t, notificationFeed())
	s.FetchAll(context.Background())

	snap := s.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 1, snap.Unread)
	assert.Equal(t, int64(42), snap.Items[0].OrderID)
	assert.False(t, snap.Items[0].IsRead)
	assert.True(t, snap.Items[1].IsRead)
}

func TestNotificationsMarkRead(t *testing.T) {
	s := newTestNotifications(t, notificationFeed())
	s.FetchAll(context.Background())

	require.NoError(t, s.MarkRead(context.Background(), 1))
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Unread)
	assert.True(t, snap.Items[0].IsRead)
}

func TestNotificationsMarkReadFailureKeepsLocalState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"message":"m","is_read":false}]`))
	})
	mux.HandleFunc("/notifications/1/read", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	s := newTestNotifications(t, mux)
	s.FetchAll(context.Background())

	require.Error(t, s.MarkRead(context.Background(), 1))
	assert.Equal(t, 1, s.Snapshot().Unread)
}

func TestNotificationsMarkAllRead(t *testing.T) {
	s := newTestNotifications(t, notificationFeed())
	s.FetchAll(context.Background())

	require.NoError(t, s.MarkAllRead(context.Background()))
	assert.Equal(t, 0, s.Snapshot().Unread)
}

func TestTransformNotificationOrderRelation(t *testing.T) {
	n := transformNotification(map[string]interface{}{
		"id":      float64(5),
		"message": "paid",
		"order": map[string]interface{}{
			"data": map[string]interface{}{"id": float64(9), "attributes": map[string]interface{}{}},
		},
	})
	assert.Equal(t, int64(9), n.OrderID)
}
