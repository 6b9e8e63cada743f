// Package shape flattens the polymorphic payload shapes the backend emits.
// Depending on populate depth, the same relation may arrive as an inline
// object, a {data:{attributes}} wrapper, a bare {attributes} wrapper, an
// array, or a numeric foreign key. Each resolver here is an ordered chain
// over those shapes; order is part of the contract.
package shape

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/internal/domain"
)

// PlaceholderImage is the fallback path when no image shape resolves.
const PlaceholderImage = "/images/no-photo.png"

// UnwrapEntity merges a {id, attributes:{...}} record into a single flat
// map. A record without attributes is returned as-is.
func UnwrapEntity(record map[string]interface{}) map[string]interface{} {
	attrs, ok := record["attributes"].(map[string]interface{})
	if !ok {
		return record
	}
	flat := make(map[string]interface{}, len(attrs)+1)
	for k, v := range attrs {
		flat[k] = v
	}
	if id, ok := record["id"]; ok {
		flat["id"] = id
	}
	return flat
}

// ResolveRelation flattens one relation value into a Ref, or nil when the
// relation is absent/null.
func ResolveRelation(v interface{}) *domain.Ref {
	switch value := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		// {data: {...}} wrapper, data may be null
		if inner, ok := value["data"]; ok {
			return ResolveRelation(inner)
		}
		return decodeRef(UnwrapEntity(value))
	case []interface{}:
		// bare array: first element wins
		if len(value) == 0 {
			return nil
		}
		return ResolveRelation(value[0])
	default:
		// numeric foreign key
		id, err := cast.ToInt64E(v)
		if err != nil || id == 0 {
			return nil
		}
		return &domain.Ref{ID: id}
	}
}

func decodeRef(flat map[string]interface{}) *domain.Ref {
	var ref domain.Ref
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ref,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil
	}
	if err := decoder.Decode(flat); err != nil {
		return nil
	}
	if ref.ID == 0 && ref.Name == "" && ref.Slug == "" {
		return nil
	}
	return &ref
}

// ResolveImage resolves one image value to a URL, following the priority
// chain: absolute string, {data:{attributes:{url}}}, {attributes:{url}},
// {url}, then the placeholder.
func ResolveImage(v interface{}, base string) string {
	if url := resolveImageURL(v); url != "" {
		return absoluteURL(url, base)
	}
	return PlaceholderImage
}

// ResolveImages maps the same chain over an array value, dropping elements
// that only resolve to the placeholder. A single non-array value yields a
// one-element slice when resolvable.
func ResolveImages(v interface{}, base string) []string {
	var elems []interface{}
	switch value := v.(type) {
	case nil:
		return nil
	case []interface{}:
		elems = value
	case map[string]interface{}:
		if inner, ok := value["data"].([]interface{}); ok {
			elems = inner
		} else {
			elems = []interface{}{value}
		}
	default:
		elems = []interface{}{value}
	}

	urls := make([]string, 0, len(elems))
	for _, e := range elems {
		if url := resolveImageURL(e); url != "" {
			urls = append(urls, absoluteURL(url, base))
		}
	}
	return urls
}

func resolveImageURL(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case map[string]interface{}:
		if data, ok := value["data"].(map[string]interface{}); ok {
			if attrs, ok := data["attributes"].(map[string]interface{}); ok {
				if url := cast.ToString(attrs["url"]); url != "" {
					return url
				}
			}
		}
		if attrs, ok := value["attributes"].(map[string]interface{}); ok {
			if url := cast.ToString(attrs["url"]); url != "" {
				return url
			}
		}
		if url := cast.ToString(value["url"]); url != "" {
			return url
		}
	}
	return ""
}

func absoluteURL(url, base string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	if base == "" {
		return url
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return strings.TrimSuffix(base, "/") + url
}
