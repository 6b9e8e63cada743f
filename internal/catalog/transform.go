package catalog

import (
	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/internal/domain"
	"github.com/talkincode/fabrica/internal/shape"
)

// transformProduct flattens one raw backend record into the client Product
// shape. The input may be the wrapped {id, attributes:{...}} form or an
// already-flat record; relations and media may arrive in any of the
// supported shapes. Output shape is a UI compatibility contract, do not
// reorder the resolution chains.
func transformProduct(raw map[string]interface{}, base string) domain.Product {
	flat := shape.UnwrapEntity(raw)

	p := domain.Product{
		ID:          cast.ToInt64(flat["id"]),
		Title:       cast.ToString(flat["title"]),
		Description: cast.ToString(flat["description"]),
		Article:     cast.ToString(flat["article"]),
		Composition: cast.ToString(flat["composition"]),
		Width:       cast.ToString(flat["width"]),
		Density:     cast.ToString(flat["density"]),
		Country:     cast.ToString(flat["country"]),
	}
	if p.Title == "" {
		p.Title = cast.ToString(flat["name"])
	}

	// prices arrive as numbers or numeric strings
	if price, err := cast.ToFloat64E(flat["price"]); err == nil {
		p.Price = price
	}
	if raw, ok := flat["discountPrice"]; ok && raw != nil {
		if dp, err := cast.ToFloat64E(raw); err == nil && dp > 0 {
			p.DiscountPrice = &dp
		}
	}
	if percent, err := cast.ToFloat64E(flat["discountPercent"]); err == nil {
		p.DiscountPercent = percent
	}
	p.Stock = cast.ToInt(flat["stock"])
	p.InStock = p.Stock > 0

	p.Category = shape.ResolveRelation(flat["category"])
	p.Brand = shape.ResolveRelation(flat["brand"])

	p.Image = shape.ResolveImage(flat["image"], base)
	p.Images = shape.ResolveImages(flat["images"], base)

	if t, err := dateparse.ParseAny(cast.ToString(pick(flat, "createdAt", "created_at"))); err == nil {
		p.CreatedAt = t
	}
	if t, err := dateparse.ParseAny(cast.ToString(pick(flat, "updatedAt", "updated_at"))); err == nil {
		p.UpdatedAt = t
	}
	return p
}

// transformRefs flattens a category/brand collection payload.
func transformRefs(payload interface{}) []domain.Ref {
	refs := make([]domain.Ref, 0)
	for _, elem := range extractList(payload) {
		if ref := shape.ResolveRelation(elem); ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs
}

// extractList digs the collection out of a payload that may be a bare
// array or an envelope with data/items/products keys.
func extractList(payload interface{}) []interface{} {
	switch value := payload.(type) {
	case []interface{}:
		return value
	case map[string]interface{}:
		for _, key := range []string{"data", "items", "products"} {
			if list, ok := value[key].([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

// extractRecord digs a single record out of a detail payload.
func extractRecord(payload interface{}) map[string]interface{} {
	record, ok := payload.(map[string]interface{})
	if !ok {
		return nil
	}
	if inner, ok := record["data"].(map[string]interface{}); ok {
		return inner
	}
	return record
}

func pick(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
