package cart

import (
	"context"
	"strconv"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/domain"
	"github.com/talkincode/fabrica/internal/shape"
)

// TopicSnapshot is the bus topic cart snapshots are published on.
const TopicSnapshot = "cart.snapshot"

type Snapshot struct {
	Lines   []domain.CartLine
	Count   int
	Total   float64
	Loading bool
	Err     string
}

// Store mirrors the remote shopping cart. Every mutation round-trips through
// the backend and re-reads the authoritative cart from the response.
type Store struct {
	api *apiclient.Client
	bus EventBus.Bus

	mu      sync.RWMutex
	lines   []domain.CartLine
	loading bool
	lastErr string
	seq     uint64
}

func NewStore(api *apiclient.Client, bus EventBus.Bus) *Store {
	return &Store{api: api, bus: bus}
}

func (s *Store) Fetch(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.mu.Unlock()
	s.publish()

	payload, err := s.api.Get(ctx, "/cart", nil, true)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.applyLocked(payload, err)
	s.mu.Unlock()
	s.publish()
}

// Add puts quantity units of a product into the cart.
func (s *Store) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	payload, err := s.api.Post(ctx, "/cart/items", map[string]interface{}{
		"product":  productID,
		"quantity": quantity,
	}, true)
	s.mu.Lock()
	s.applyLocked(payload, err)
	s.mu.Unlock()
	s.publish()
	return err
}

// UpdateQuantity sets the quantity of one cart line.
func (s *Store) UpdateQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity < 1 {
		return s.Remove(ctx, lineID)
	}
	payload, err := s.api.Put(ctx, "/cart/items/"+strconv.FormatInt(lineID, 10), map[string]interface{}{
		"quantity": quantity,
	}, true)
	s.mu.Lock()
	s.applyLocked(payload, err)
	s.mu.Unlock()
	s.publish()
	return err
}

// Remove deletes one cart line.
func (s *Store) Remove(ctx context.Context, lineID int64) error {
	payload, err := s.api.Delete(ctx, "/cart/items/"+strconv.FormatInt(lineID, 10), true)
	s.mu.Lock()
	s.applyLocked(payload, err)
	s.mu.Unlock()
	s.publish()
	return err
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	payload, err := s.api.Delete(ctx, "/cart", true)
	s.mu.Lock()
	s.applyLocked(payload, err)
	s.mu.Unlock()
	s.publish()
	return err
}

// applyLocked folds a cart response into local state. Caller holds mu. A 204
// (nil payload with nil error) means an emptied cart.
func (s *Store) applyLocked(payload interface{}, err error) {
	s.loading = false
	if err != nil {
		s.lines = []domain.CartLine{}
		s.lastErr = errMessage(err)
		return
	}
	s.lastErr = ""
	if payload == nil {
		s.lines = []domain.CartLine{}
		return
	}

	base := s.api.BaseURL()
	lines := make([]domain.CartLine, 0)
	for _, elem := range extractLines(payload) {
		record, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		flat := shape.UnwrapEntity(record)
		line := domain.CartLine{
			ID:       cast.ToInt64(flat["id"]),
			Quantity: cast.ToInt(flat["quantity"]),
		}
		if price, err := cast.ToFloat64E(flat["price"]); err == nil {
			line.Price = price
		}
		if ref := shape.ResolveRelation(flat["product"]); ref != nil {
			line.ProductID = ref.ID
			line.Title = ref.Name
		}
		if line.Title == "" {
			line.Title = cast.ToString(flat["title"])
		}
		if img := flat["image"]; img != nil {
			line.Image = shape.ResolveImage(img, base)
		}
		line.Sum = line.Price * float64(line.Quantity)
		lines = append(lines, line)
	}
	s.lines = lines
}

func extractLines(payload interface{}) []interface{} {
	switch value := payload.(type) {
	case []interface{}:
		return value
	case map[string]interface{}:
		for _, key := range []string{"items", "data", "lines"} {
			if list, ok := value[key].([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Lines:   append([]domain.CartLine(nil), s.lines...),
		Loading: s.loading,
		Err:     s.lastErr,
	}
	for _, l := range s.lines {
		snap.Count += l.Quantity
		snap.Total += l.Sum
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
