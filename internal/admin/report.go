package admin

import (
	"github.com/montanaflynn/stats"
	"github.com/talkincode/fabrica/internal/domain"
)

// PriceReport summarizes the catalog for the back-office dashboard.
type PriceReport struct {
	Count           int
	MeanPrice       float64
	MedianPrice     float64
	P90Price        float64
	DiscountedShare float64
	InStockShare    float64
}

// BuildPriceReport computes price statistics over a product set.
func BuildPriceReport(products []domain.Product) PriceReport {
	report := PriceReport{Count: len(products)}
	if len(products) == 0 {
		return report
	}

	prices := make([]float64, 0, len(products))
	discounted, inStock := 0, 0
	for i := range products {
		prices = append(prices, products[i].Price)
		if products[i].DiscountPercent > 0 {
			discounted++
		}
		if products[i].InStock {
			inStock++
		}
	}

	if v, err := stats.Mean(prices); err == nil {
		report.MeanPrice = v
	}
	if v, err := stats.Median(prices); err == nil {
		report.MedianPrice = v
	}
	if v, err := stats.Percentile(prices, 90); err == nil {
		report.P90Price = v
	}
	report.DiscountedShare = float64(discounted) / float64(len(products))
	report.InStockShare = float64(inStock) / float64(len(products))
	return report
}

// PriceReportForCatalog builds the report from the service's current
// catalog snapshot.
func (s *Service) PriceReportForCatalog() PriceReport {
	return BuildPriceReport(s.catalog.Snapshot().Products)
}
