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

// TopicSnapshot is the bus topic order snapshots are published on.
const TopicSnapshot = "orders.snapshot"

type Snapshot struct {
	Orders  []domain.Order
	Current *domain.Order
	Loading bool
	Err     string
}

// Result is returned by mutating order operations.
type Result struct {
	Success bool
	Error   string
	OrderID int64
}

// Store owns the authenticated user's order history. All reads require auth;
// status transitions go through explicit calls and legality stays with the
// backend.
type Store struct {
	api *apiclient.Client
	bus EventBus.Bus

	mu      sync.RWMutex
	orders  []domain.Order
	current *domain.Order
	loading bool
	lastErr string
	seq     uint64
}

func NewStore(api *apiclient.Client, bus EventBus.Bus) *Store {
	return &Store{api: api, bus: bus}
}

// FetchAll loads the user's order history.
func (s *Store) FetchAll(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.mu.Unlock()
	s.publish()

	payload, err := s.api.Get(ctx, "/orders", nil, true)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.orders = []domain.Order{}
		s.loading = false
		s.lastErr = errMessage(err)
		s.mu.Unlock()
		s.publish()
		return
	}

	orders := make([]domain.Order, 0)
	for _, elem := range extractList(payload) {
		record, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		orders = append(orders, transformOrder(record))
	}
	s.orders = orders
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
}

// FetchByID loads one order into the detail slot.
func (s *Store) FetchByID(ctx context.Context, id int64) {
	payload, err := s.api.Get(ctx, "/orders/"+strconv.FormatInt(id, 10), nil, true)

	s.mu.Lock()
	if err != nil {
		s.current = nil
		s.lastErr = errMessage(err)
		s.mu.Unlock()
		s.publish()
		return
	}
	record, _ := payload.(map[string]interface{})
	if inner, ok := record["data"].(map[string]interface{}); ok {
		record = inner
	}
	if record == nil {
		s.current = nil
		s.lastErr = "invalid server response"
		s.mu.Unlock()
		s.publish()
		return
	}
	o := transformOrder(record)
	s.current = &o
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
}

// OrderDraft carries the checkout fields.
type OrderDraft struct {
	Items   []domain.OrderItem
	Address string
	Payment string
	Comment string
}

// Create places an order and refetches the history on success.
func (s *Store) Create(ctx context.Context, draft OrderDraft) Result {
	if len(draft.Items) == 0 {
		return Result{Error: "order has no items"}
	}
	if draft.Address == "" {
		return Result{Error: "address is required"}
	}

	items := make([]map[string]interface{}, 0, len(draft.Items))
	for _, it := range draft.Items {
		items = append(items, map[string]interface{}{
			"product":  it.ProductID,
			"quantity": it.Quantity,
			"price":    it.Price,
		})
	}
	payload, err := s.api.Post(ctx, "/orders", map[string]interface{}{
		"items":   items,
		"address": draft.Address,
		"payment": draft.Payment,
		"comment": draft.Comment,
	}, true)
	if err != nil {
		return Result{Error: errMessage(err)}
	}

	var orderID int64
	if record, ok := payload.(map[string]interface{}); ok {
		if inner, ok := record["data"].(map[string]interface{}); ok {
			record = inner
		}
		orderID = cast.ToInt64(shape.UnwrapEntity(record)["id"])
	}
	s.FetchAll(ctx)
	return Result{Success: true, OrderID: orderID}
}

// Cancel requests cancellation; whether the transition is legal for the
// order's current status is decided by the backend.
func (s *Store) Cancel(ctx context.Context, id int64) Result {
	_, err := s.api.Post(ctx, "/orders/"+strconv.FormatInt(id, 10)+"/cancel", nil, true)
	if err != nil {
		return Result{Error: errMessage(err)}
	}
	s.FetchAll(ctx)
	return Result{Success: true}
}

func transformOrder(record map[string]interface{}) domain.Order {
	flat := shape.UnwrapEntity(record)
	o := domain.Order{
		ID:      cast.ToInt64(flat["id"]),
		Status:  cast.ToString(flat["status"]),
		Address: cast.ToString(flat["address"]),
		Payment: cast.ToString(flat["payment"]),
		Comment: cast.ToString(flat["comment"]),
	}
	if total, err := cast.ToFloat64E(flat["total"]); err == nil {
		o.Total = total
	}
	if raw := cast.ToString(pick(flat, "createdAt", "created_at")); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			o.CreatedAt = t
		}
	}
	if raw := cast.ToString(pick(flat, "updatedAt", "updated_at")); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			o.UpdatedAt = t
		}
	}

	if list, ok := flat["items"].([]interface{}); ok {
		o.Items = make([]domain.OrderItem, 0, len(list))
		for _, elem := range list {
			lineRecord, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}
			line := shape.UnwrapEntity(lineRecord)
			item := domain.OrderItem{
				Quantity: cast.ToInt(line["quantity"]),
			}
			if price, err := cast.ToFloat64E(line["price"]); err == nil {
				item.Price = price
			}
			if ref := shape.ResolveRelation(line["product"]); ref != nil {
				item.ProductID = ref.ID
				item.Title = ref.Name
			}
			if item.Title == "" {
				item.Title = cast.ToString(line["title"])
			}
			o.Items = append(o.Items, item)
		}
	}

	// recompute total when the backend omits it
	if o.Total == 0 {
		for _, it := range o.Items {
			o.Total += it.Price * float64(it.Quantity)
		}
	}
	return o
}

func extractList(payload interface{}) []interface{} {
	switch value := payload.(type) {
	case []interface{}:
		return value
	case map[string]interface{}:
		for _, key := range []string{"data", "items", "orders"} {
			if list, ok := value[key].([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

func pick(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Orders:  append([]domain.Order(nil), s.orders...),
		Loading: s.loading,
		Err:     s.lastErr,
	}
	if s.current != nil {
		cp := *s.current
		snap.Current = &cp
	}
	return snap
}

func (s *Store) publish() {
	if s.bus != nil {
		s.bus.Publish(TopicSnapshot, s.Snapshot())
	}
}

func (s *Store) Subscribe(fn func(Snapshot)) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(TopicSnapshot, fn)
}

func errMessage(err error) string {
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}
