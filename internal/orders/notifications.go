package orders

import (
	"context"
	"strconv"
	"sync"

	"github.com/araddon/dateparse"
	"github.com/asaskevich/EventBus"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/domain"
	"github.com/talkincode/fabrica/internal/shape"
)

// TopicNotifications is the bus topic notification snapshots are published on.
const TopicNotifications = "notifications.snapshot"

type NotificationSnapshot struct {
	Items   []domain.Notification
	Unread  int
	Loading bool
	Err     string
}

// NotificationStore mirrors the user's notification feed. It is refreshed by
// an application-level polling job; each poll is a plain fetch, stale results
// are discarded by the generation stamp like everywhere else.
type NotificationStore struct {
	api *apiclient.Client
	bus EventBus.Bus

	mu      sync.RWMutex
	items   []domain.Notification
	loading bool
	lastErr string
	seq     uint64
}

func NewNotificationStore(api *apiclient.Client, bus EventBus.Bus) *NotificationStore {
	return &NotificationStore{api: api, bus: bus}
}

func (s *NotificationStore) FetchAll(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.mu.Unlock()
	s.publish()

	payload, err := s.api.Get(ctx, "/notifications", nil, true)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.items = []domain.Notification{}
		s.loading = false
		s.lastErr = errMessage(err)
		s.mu.Unlock()
		s.publish()
		return
	}

	items := make([]domain.Notification, 0)
	for _, elem := range extractList(payload) {
		record, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		items = append(items, transformNotification(record))
	}
	s.items = items
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
}

// MarkRead flags one notification as read, optimistically updating the local
// copy after the backend confirms.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	_, err := s.api.Put(ctx, "/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, true)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
		}
	}
	s.mu.Unlock()
	s.publish()
	return nil
}

// MarkAllRead flags everything as read.
func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	_, err := s.api.Put(ctx, "/notifications/read-all", nil, true)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.items {
		s.items[i].IsRead = true
	}
	s.mu.Unlock()
	s.publish()
	return nil
}

func transformNotification(record map[string]interface{}) domain.Notification {
	flat := shape.UnwrapEntity(record)
	n := domain.Notification{
		ID:      cast.ToInt64(flat["id"]),
		Message: cast.ToString(flat["message"]),
		IsRead:  cast.ToBool(pick(flat, "is_read", "isRead")),
	}
	if ref := shape.ResolveRelation(flat["order"]); ref != nil {
		n.OrderID = ref.ID
	} else {
		n.OrderID = cast.ToInt64(pick(flat, "order_id", "orderId"))
	}
	if raw := cast.ToString(pick(flat, "created_at", "createdAt")); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			n.CreatedAt = t
		}
	}
	return n
}

func (s *NotificationStore) Snapshot() NotificationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unread := 0
	for _, n := range s.items {
		if !n.IsRead {
			unread++
		}
	}
	return NotificationSnapshot{
		Items:   append([]domain.Notification(nil), s.items...),
		Unread:  unread,
		Loading: s.loading,
		Err:     s.lastErr,
	}
}

func (s *NotificationStore) publish() {
	if s.bus != nil {
		s.bus.Publish(TopicNotifications, s.Snapshot())
	}
}

func (s *NotificationStore) Subscribe(fn func(NotificationSnapshot)) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(TopicNotifications, fn)
}
