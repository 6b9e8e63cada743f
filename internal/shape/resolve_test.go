package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelationShapes(t *testing.T) {
	// inline object
	ref := ResolveRelation(map[string]interface{}{
		"id": float64(3), "name": "Cotton", "slug": "cotton",
	})
	require.NotNil(t, ref)
	assert.Equal(t, int64(3), ref.ID)
	assert.Equal(t, "Cotton", ref.Name)
	assert.Equal(t, "cotton", ref.Slug)

	// {data:{id, attributes:{...}}} wrapper
	ref = ResolveRelation(map[string]interface{}{
		"data": map[string]interface{}{
			"id": float64(3),
			"attributes": map[string]interface{}{
				"name": "Cotton", "slug": "cotton",
			},
		},
	})
	require.NotNil(t, ref)
	assert.Equal(t, int64(3), ref.ID)
	assert.Equal(t, "Cotton", ref.Name)

	// {attributes:{...}} direct
	ref = ResolveRelation(map[string]interface{}{
		"id": float64(5),
		"attributes": map[string]interface{}{
			"name": "Linen", "slug": "linen",
		},
	})
	require.NotNil(t, ref)
	assert.Equal(t, int64(5), ref.ID)
	assert.Equal(t, "Linen", ref.Name)

	// bare array: first element
	ref = ResolveRelation([]interface{}{
		map[string]interface{}{"id": float64(9), "name": "Silk"},
		map[string]interface{}{"id": float64(10), "name": "Wool"},
	})
	require.NotNil(t, ref)
	assert.Equal(t, int64(9), ref.ID)

	// numeric foreign key
	ref = ResolveRelation(float64(42))
	require.NotNil(t, ref)
	assert.Equal(t, int64(42), ref.ID)
	assert.Empty(t, ref.Name)
}

func TestResolveRelationAbsent(t *testing.T) {
	assert.Nil(t, ResolveRelation(nil))
	assert.Nil(t, ResolveRelation(map[string]interface{}{"data": nil}))
	assert.Nil(t, ResolveRelation([]interface{}{}))
	assert.Nil(t, ResolveRelation(float64(0)))
}

func TestResolveImagePriorityChain(t *testing.T) {
	base := "https://cdn.example"

	// absolute string wins untouched
	assert.Equal(t, "https://other/pic.jpg", ResolveImage("https://other/pic.jpg", base))

	// relative string gets the base prefix
	assert.Equal(t, "https://cdn.example/u/1.jpg", ResolveImage("/u/1.jpg", base))

	// {data:{attributes:{url}}}
	assert.Equal(t, "https://cdn.example/u/2.jpg", ResolveImage(map[string]interface{}{
		"data": map[string]interface{}{
			"attributes": map[string]interface{}{"url": "/u/2.jpg"},
		},
	}, base))

	// {attributes:{url}}
	assert.Equal(t, "https://cdn.example/u/3.jpg", ResolveImage(map[string]interface{}{
		"attributes": map[string]interface{}{"url": "/u/3.jpg"},
	}, base))

	// {url}
	assert.Equal(t, "https://cdn.example/u/4.jpg", ResolveImage(map[string]interface{}{
		"url": "/u/4.jpg",
	}, base))

	// nothing resolvable: placeholder
	assert.Equal(t, PlaceholderImage, ResolveImage(nil, base))
	assert.Equal(t, PlaceholderImage, ResolveImage(map[string]interface{}{"data": nil}, base))
}

func TestResolveImagesFiltersUnresolvable(t *testing.T) {
	urls := ResolveImages([]interface{}{
		map[string]interface{}{"url": "/a.jpg"},
		map[string]interface{}{"data": nil}, // drops, not placeholder
		"/b.jpg",
	}, "https://cdn.example")
	assert.Equal(t, []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, urls)

	assert.Empty(t, ResolveImages(nil, ""))
	assert.Empty(t, ResolveImages([]interface{}{map[string]interface{}{"data": nil}}, ""))
}

func TestResolveImagesDataWrapper(t *testing.T) {
	urls := ResolveImages(map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{
				"attributes": map[string]interface{}{"url": "/x.jpg"},
			},
		},
	}, "https://cdn.example")
	assert.Equal(t, []string{"https://cdn.example/x.jpg"}, urls)
}

func TestUnwrapEntity(t *testing.T) {
	flat := UnwrapEntity(map[string]interface{}{
		"id": float64(7),
		"attributes": map[string]interface{}{
			"title": "X",
		},
	})
	assert.Equal(t, float64(7), flat["id"])
	assert.Equal(t, "X", flat["title"])

	plain := map[string]interface{}{"id": float64(1), "title": "Y"}
	assert.Equal(t, plain, UnwrapEntity(plain))
}
