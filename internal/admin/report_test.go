package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talkincode/fabrica/internal/domain"
)

func TestBuildPriceReport(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Price: 100, InStock: true},
		{ID: 2, Price: 200, DiscountPercent: 10, InStock: true},
		{ID: 3, Price: 300},
		{ID: 4, Price: 400, DiscountPercent: 25, InStock: true},
	}

	r := BuildPriceReport(products)
	assert.Equal(t, 4, r.Count)
	assert.Equal(t, 250.0, r.MeanPrice)
	assert.Equal(t, 250.0, r.MedianPrice)
	assert.Equal(t, 0.5, r.DiscountedShare)
	assert.Equal(t, 0.75, r.InStockShare)
	assert.GreaterOrEqual(t, r.P90Price, r.MedianPrice)
}

func TestBuildPriceReportEmpty(t *testing.T) {
	r := BuildPriceReport(nil)
	assert.Zero(t, r.Count)
	assert.Zero(t, r.MeanPrice)
	assert.Zero(t, r.DiscountedShare)
}
