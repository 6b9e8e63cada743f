package catalog

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/btree"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TopicSnapshot is the bus topic catalog snapshots are published on.
const TopicSnapshot = "catalog.snapshot"

// Snapshot is the immutable catalog view handed to subscribers. Each fetch
// family owns its loading/error pair; a failed fetch resets its collection,
// there is no partial-success state.
type Snapshot struct {
	Products []domain.Product
	Loading  bool
	Err      string

	Current        *domain.Product
	CurrentLoading bool
	CurrentErr     string

	Categories        []domain.Ref
	CategoriesLoading bool
	CategoriesErr     string

	Brands        []domain.Ref
	BrandsLoading bool
	BrandsErr     string
}

// Store owns the in-memory product/category/brand state and republishes it
// as snapshots after every mutation.
type Store struct {
	api *apiclient.Client
	bus EventBus.Bus
	sf  singleflight.Group
	rnd *rand.Rand

	mu       sync.RWMutex
	products []domain.Product
	current  *domain.Product
	cats     []domain.Ref
	brands   []domain.Ref

	loading, currentLoading, catsLoading, brandsLoading bool
	err, currentErr, catsErr, brandsErr                 string

	catsLoaded, brandsLoaded bool

	// index keeps products ordered by id for the "newest N" view
	index *btree.BTreeG[domain.Product]

	// generation stamps: a fetch result is discarded when a newer fetch of
	// the same family started after it
	productsSeq, currentSeq, catsSeq, brandsSeq uint64
}

func NewStore(api *apiclient.Client, bus EventBus.Bus) *Store {
	return &Store{
		api:   api,
		bus:   bus,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		index: btree.NewG[domain.Product](2, func(a, b domain.Product) bool { return a.ID < b.ID }),
	}
}

// FetchAll loads the product list. Fire-and-forget from the caller's view:
// results land in the snapshot, errors land in the snapshot's Err.
func (s *Store) FetchAll(ctx context.Context, filters map[string]string) {
	s.fetchProducts(ctx, filters, "")
}

// FetchByCategorySlug loads the full unfiltered set and filters client-side
// by category slug after the transform. The backend filter parameter is
// deliberately not used on this path.
func (s *Store) FetchByCategorySlug(ctx context.Context, slug string) {
	s.fetchProducts(ctx, nil, slug)
}

func (s *Store) fetchProducts(ctx context.Context, filters map[string]string, slug string) {
	s.mu.Lock()
	s.productsSeq++
	seq := s.productsSeq
	s.loading = true
	s.mu.Unlock()
	s.publish()

	payload, err, _ := s.sf.Do(productsKey(filters), func() (interface{}, error) {
		return s.api.Get(ctx, "/products", filters, false)
	})

	s.mu.Lock()
	if seq != s.productsSeq {
		// a newer fetch superseded this one
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.products = []domain.Product{}
		s.index.Clear(false)
		s.loading = false
		s.err = errMessage(err)
		s.mu.Unlock()
		s.publish()
		return
	}

	base := s.api.BaseURL()
	products := make([]domain.Product, 0)
	for _, elem := range extractList(payload) {
		record, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		p := transformProduct(record, base)
		if slug != "" {
			if p.Category == nil || p.Category.Slug != slug {
				continue
			}
		}
		products = append(products, p)
	}

	s.products = products
	s.index.Clear(false)
	for _, p := range products {
		s.index.ReplaceOrInsert(p)
	}
	s.loading = false
	s.err = ""
	s.mu.Unlock()
	s.publish()

	zap.L().Debug("catalog refreshed", zap.Int("products", len(products)))
}

// FetchByID loads one product into the single-item slot.
func (s *Store) FetchByID(ctx context.Context, id int64) {
	s.mu.Lock()
	s.currentSeq++
	seq := s.currentSeq
	s.currentLoading = true
	s.mu.Unlock()
	s.publish()

	payload, err := s.api.Get(ctx, "/products/"+formatID(id), nil, false)

	s.mu.Lock()
	if seq != s.currentSeq {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.current = nil
		s.currentLoading = false
		s.currentErr = errMessage(err)
		s.mu.Unlock()
		s.publish()
		return
	}

	record := extractRecord(payload)
	if record == nil {
		s.current = nil
		s.currentLoading = false
		s.currentErr = "invalid server response"
		s.mu.Unlock()
		s.publish()
		return
	}
	p := transformProduct(record, s.api.BaseURL())
	s.current = &p
	s.currentLoading = false
	s.currentErr = ""
	s.mu.Unlock()
	s.publish()
}

// FetchCategories loads reference data once per session; cached until
// RefreshCategories. Concurrent first loads collapse into one request.
func (s *Store) FetchCategories(ctx context.Context) {
	s.mu.RLock()
	loaded := s.catsLoaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	s.fetchRefs(ctx, "/categories", refCategories)
}

func (s *Store) FetchBrands(ctx context.Context) {
	s.mu.RLock()
	loaded := s.brandsLoaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	s.fetchRefs(ctx, "/brands", refBrands)
}

// RefreshCategories drops the session cache and refetches.
func (s *Store) RefreshCategories(ctx context.Context) {
	s.mu.Lock()
	s.catsLoaded = false
	s.mu.Unlock()
	s.fetchRefs(ctx, "/categories", refCategories)
}

func (s *Store) RefreshBrands(ctx context.Context) {
	s.mu.Lock()
	s.brandsLoaded = false
	s.mu.Unlock()
	s.fetchRefs(ctx, "/brands", refBrands)
}

type refKind int

const (
	refCategories refKind = iota
	refBrands
)

func (s *Store) fetchRefs(ctx context.Context, path string, kind refKind) {
	s.mu.Lock()
	var seq uint64
	if kind == refCategories {
		s.catsSeq++
		seq = s.catsSeq
		s.catsLoading = true
	} else {
		s.brandsSeq++
		seq = s.brandsSeq
		s.brandsLoading = true
	}
	s.mu.Unlock()
	s.publish()

	payload, err, _ := s.sf.Do(path, func() (interface{}, error) {
		return s.api.Get(ctx, path, nil, false)
	})

	s.mu.Lock()
	if kind == refCategories {
		if seq != s.catsSeq {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.cats = []domain.Ref{}
			s.catsLoading = false
			s.catsErr = errMessage(err)
		} else {
			s.cats = transformRefs(payload)
			s.catsLoading = false
			s.catsErr = ""
			s.catsLoaded = true
		}
	} else {
		if seq != s.brandsSeq {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.brands = []domain.Ref{}
			s.brandsLoading = false
			s.brandsErr = errMessage(err)
		} else {
			s.brands = transformRefs(payload)
			s.brandsLoading = false
			s.brandsErr = ""
			s.brandsLoaded = true
		}
	}
	s.mu.Unlock()
	s.publish()
}

// Invalidate drops all cached collections; the next fetches reload. Admin
// mutations call this before refetching.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.catsLoaded = false
	s.brandsLoaded = false
	s.mu.Unlock()
}

// Newest returns up to n products ordered by id descending.
func (s *Store) Newest(n int) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, n)
	s.index.Descend(func(p domain.Product) bool {
		out = append(out, p)
		return len(out) < n
	})
	return out
}

// Discounted returns up to n products with a positive discount percent.
func (s *Store) Discounted(n int) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, n)
	for _, p := range s.products {
		if p.DiscountPercent > 0 {
			out = append(out, p)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// Sample returns up to n random products.
func (s *Store) Sample(n int) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	shuffled := make([]domain.Product, len(s.products))
	copy(shuffled, s.products)
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Products:          append([]domain.Product(nil), s.products...),
		Loading:           s.loading,
		Err:               s.err,
		CurrentLoading:    s.currentLoading,
		CurrentErr:        s.currentErr,
		Categories:        append([]domain.Ref(nil), s.cats...),
		CategoriesLoading: s.catsLoading,
		CategoriesErr:     s.catsErr,
		Brands:            append([]domain.Ref(nil), s.brands...),
		BrandsLoading:     s.brandsLoading,
		BrandsErr:         s.brandsErr,
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

// Subscribe registers a snapshot consumer on the bus.
func (s *Store) Subscribe(fn func(Snapshot)) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(TopicSnapshot, fn)
}

func productsKey(filters map[string]string) string {
	if len(filters) == 0 {
		return "/products"
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("/products?")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(filters[k])
		b.WriteByte('&')
	}
	return b.String()
}

func errMessage(err error) string {
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
