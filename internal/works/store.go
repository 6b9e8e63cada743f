package works

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/araddon/dateparse"
	"github.com/asaskevich/EventBus"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/domain"
	"github.com/talkincode/fabrica/internal/shape"
	"golang.org/x/sync/singleflight"
)

// TopicSnapshot is the bus topic works snapshots are published on.
const TopicSnapshot = "works.snapshot"

const DefaultPageSize = 9

// Snapshot is the paginated portfolio view.
type Snapshot struct {
	Items      []domain.Work
	Current    *domain.Work
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int
	Loading    bool
	Err        string
}

// Store owns the read-only, paginated portfolio list.
type Store struct {
	api *apiclient.Client
	bus EventBus.Bus
	sf  singleflight.Group

	mu         sync.RWMutex
	items      []domain.Work
	current    *domain.Work
	page       int
	pageSize   int
	totalPages int
	totalItems int
	loading    bool
	lastErr    string
	seq        uint64
}

func NewStore(api *apiclient.Client, bus EventBus.Bus) *Store {
	return &Store{api: api, bus: bus, page: 1, pageSize: DefaultPageSize}
}

// FetchPage loads one page. When the backend answers with a bare array
// instead of a pagination envelope, totals are computed client-side from the
// array length; this compatibility fallback is part of the contract.
func (s *Store) FetchPage(ctx context.Context, page, pageSize int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.mu.Unlock()
	s.publish()

	key := "/works?" + strconv.Itoa(page) + "/" + strconv.Itoa(pageSize)
	payload, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.api.Get(ctx, "/works", map[string]string{
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(pageSize),
		}, false)
	})

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.items = []domain.Work{}
		s.loading = false
		s.lastErr = errMessage(err)
		s.mu.Unlock()
		s.publish()
		return
	}

	items, totalItems, totalPages := s.parsePage(payload, pageSize)
	s.items = items
	s.page = page
	s.pageSize = pageSize
	s.totalItems = totalItems
	s.totalPages = totalPages
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
}

// FetchByID loads one portfolio item into the detail slot.
func (s *Store) FetchByID(ctx context.Context, id int64) {
	payload, err := s.api.Get(ctx, "/works/"+strconv.FormatInt(id, 10), nil, false)

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
	w := transformWork(record, s.api.BaseURL())
	s.current = &w
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
}

func (s *Store) parsePage(payload interface{}, pageSize int) ([]domain.Work, int, int) {
	base := s.api.BaseURL()

	// bare array: compute totals client-side
	if list, ok := payload.([]interface{}); ok {
		items := transformWorks(list, base)
		total := len(items)
		pages := int(math.Ceil(float64(total) / float64(pageSize)))
		return items, total, pages
	}

	record, ok := payload.(map[string]interface{})
	if !ok {
		return []domain.Work{}, 0, 0
	}
	var list []interface{}
	for _, key := range []string{"data", "items", "works"} {
		if l, ok := record[key].([]interface{}); ok {
			list = l
			break
		}
	}
	items := transformWorks(list, base)

	total := len(items)
	pages := int(math.Ceil(float64(total) / float64(pageSize)))
	if meta, ok := record["meta"].(map[string]interface{}); ok {
		if pg, ok := meta["pagination"].(map[string]interface{}); ok {
			if v := cast.ToInt(pg["total"]); v > 0 {
				total = v
			}
			if v := cast.ToInt(pg["pageCount"]); v > 0 {
				pages = v
			}
		}
	}
	return items, total, pages
}

func transformWorks(list []interface{}, base string) []domain.Work {
	items := make([]domain.Work, 0, len(list))
	for _, elem := range list {
		record, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		items = append(items, transformWork(record, base))
	}
	return items
}

func transformWork(record map[string]interface{}, base string) domain.Work {
	flat := shape.UnwrapEntity(record)
	w := domain.Work{
		ID:          cast.ToInt64(flat["id"]),
		Title:       cast.ToString(flat["title"]),
		Description: cast.ToString(flat["description"]),
		Link:        cast.ToString(flat["link"]),
		Image:       shape.ResolveImage(flat["image"], base),
	}
	if raw := cast.ToString(flat["createdAt"]); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			w.CreatedAt = t
		}
	}
	return w
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Items:      append([]domain.Work(nil), s.items...),
		Page:       s.page,
		PageSize:   s.pageSize,
		TotalPages: s.totalPages,
		TotalItems: s.totalItems,
		Loading:    s.loading,
		Err:        s.lastErr,
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
