package admin

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/catalog"
	"github.com/talkincode/fabrica/internal/domain"
	"github.com/talkincode/fabrica/internal/shape"
	"github.com/talkincode/fabrica/internal/works"
	"go.uber.org/zap"
)

// Service is the back-office client. Every mutation goes straight to the
// backend and then invalidates + refetches the affected store, the local
// state is never patched ahead of the server.
type Service struct {
	api     *apiclient.Client
	catalog *catalog.Store
	works   *works.Store
}

func NewService(api *apiclient.Client, catalogStore *catalog.Store, worksStore *works.Store) *Service {
	return &Service{api: api, catalog: catalogStore, works: worksStore}
}

// ---- products ----

func (s *Service) CreateProduct(ctx context.Context, fields map[string]interface{}) (int64, error) {
	if err := validateProductFields(fields); err != nil {
		return 0, err
	}
	payload, err := s.api.Post(ctx, "/admin/products", fields, true)
	if err != nil {
		return 0, err
	}
	id := recordID(payload)
	s.refetchCatalog(ctx)
	return id, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, fields map[string]interface{}) error {
	if err := validateProductFields(fields); err != nil {
		return err
	}
	if _, err := s.api.Put(ctx, "/admin/products/"+formatID(id), fields, true); err != nil {
		return err
	}
	s.refetchCatalog(ctx)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, "/admin/products/"+formatID(id), true); err != nil {
		return err
	}
	s.refetchCatalog(ctx)
	return nil
}

// UploadProductImage attaches an image file to a product via multipart form.
func (s *Service) UploadProductImage(ctx context.Context, id int64, filePath string) error {
	_, err := s.api.Upload(ctx, "/admin/products/"+formatID(id)+"/image",
		map[string]string{"file": filePath}, nil, true)
	if err != nil {
		return err
	}
	s.refetchCatalog(ctx)
	return nil
}

func validateProductFields(fields map[string]interface{}) error {
	if title, ok := fields["title"]; ok {
		if strings.TrimSpace(cast.ToString(title)) == "" {
			return errors.New("title is required")
		}
	}
	if raw, ok := fields["price"]; ok {
		price, err := cast.ToFloat64E(raw)
		if err != nil || price < 0 {
			return errors.New("price must be >= 0")
		}
		if rawDiscount, ok := fields["discountPrice"]; ok && rawDiscount != nil {
			discount, err := cast.ToFloat64E(rawDiscount)
			if err != nil || discount < 0 || discount > price {
				return errors.New("discount price must be between 0 and price")
			}
		}
	}
	return nil
}

// ---- categories / brands ----

func (s *Service) CreateCategory(ctx context.Context, name, slug string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("name is required")
	}
	payload, err := s.api.Post(ctx, "/admin/categories", map[string]string{"name": name, "slug": slug}, true)
	if err != nil {
		return 0, err
	}
	s.catalog.RefreshCategories(ctx)
	return recordID(payload), nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, "/admin/categories/"+formatID(id), true); err != nil {
		return err
	}
	s.catalog.RefreshCategories(ctx)
	return nil
}

func (s *Service) CreateBrand(ctx context.Context, name, slug string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("name is required")
	}
	payload, err := s.api.Post(ctx, "/admin/brands", map[string]string{"name": name, "slug": slug}, true)
	if err != nil {
		return 0, err
	}
	s.catalog.RefreshBrands(ctx)
	return recordID(payload), nil
}

func (s *Service) DeleteBrand(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, "/admin/brands/"+formatID(id), true); err != nil {
		return err
	}
	s.catalog.RefreshBrands(ctx)
	return nil
}

// ---- works ----

func (s *Service) CreateWork(ctx context.Context, fields map[string]interface{}) (int64, error) {
	payload, err := s.api.Post(ctx, "/admin/works", fields, true)
	if err != nil {
		return 0, err
	}
	s.works.FetchPage(ctx, 1, works.DefaultPageSize)
	return recordID(payload), nil
}

func (s *Service) UpdateWork(ctx context.Context, id int64, fields map[string]interface{}) error {
	if _, err := s.api.Put(ctx, "/admin/works/"+formatID(id), fields, true); err != nil {
		return err
	}
	s.works.FetchPage(ctx, 1, works.DefaultPageSize)
	return nil
}

func (s *Service) DeleteWork(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, "/admin/works/"+formatID(id), true); err != nil {
		return err
	}
	s.works.FetchPage(ctx, 1, works.DefaultPageSize)
	return nil
}

// ---- orders ----

// UpdateOrderStatus moves an order along the pipeline. The client checks the
// vocabulary only; transition legality stays with the backend.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case domain.OrderStatusCreated, domain.OrderStatusProcessing, domain.OrderStatusPaid,
		domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled:
	default:
		return errors.Errorf("unknown order status %q", status)
	}
	_, err := s.api.Put(ctx, "/admin/orders/"+formatID(id)+"/status",
		map[string]string{"status": status}, true)
	return err
}

// ---- users ----

func (s *Service) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	payload, err := s.api.Get(ctx, "/admin/users", nil, true)
	if err != nil {
		return nil, err
	}
	users := make([]domain.Profile, 0)
	for _, elem := range listOf(payload) {
		record, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		flat := shape.UnwrapEntity(record)
		users = append(users, domain.Profile{
			ID:        cast.ToInt64(flat["id"]),
			FirstName: cast.ToString(firstOf(flat, "firstName", "first_name")),
			LastName:  cast.ToString(firstOf(flat, "lastName", "last_name")),
			Email:     cast.ToString(flat["email"]),
			Phone:     cast.ToString(flat["phone"]),
			Role:      roleName(flat["role"]),
		})
	}
	return users, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, fields map[string]interface{}) error {
	_, err := s.api.Put(ctx, "/admin/users/"+formatID(id), fields, true)
	return err
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.api.Delete(ctx, "/admin/users/"+formatID(id), true)
	return err
}

// ---- helpers ----

func (s *Service) refetchCatalog(ctx context.Context) {
	s.catalog.Invalidate()
	s.catalog.FetchAll(ctx, nil)
	zap.L().Debug("catalog refetched after admin mutation")
}

func recordID(payload interface{}) int64 {
	record, ok := payload.(map[string]interface{})
	if !ok {
		return 0
	}
	if inner, ok := record["data"].(map[string]interface{}); ok {
		record = inner
	}
	return cast.ToInt64(shape.UnwrapEntity(record)["id"])
}

func roleName(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		return cast.ToString(m["name"])
	}
	return cast.ToString(v)
}

func listOf(payload interface{}) []interface{} {
	switch value := payload.(type) {
	case []interface{}:
		return value
	case map[string]interface{}:
		for _, key := range []string{"data", "items", "users"} {
			if list, ok := value[key].([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

func firstOf(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
