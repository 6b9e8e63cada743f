package admin

import (
	"context"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/talkincode/fabrica/internal/domain"
	"go.uber.org/zap"
)

// productRow is the CSV exchange shape for bulk product import/export.
type productRow struct {
	ID              int64   `csv:"id"`
	Title           string  `csv:"title"`
	Description     string  `csv:"description"`
	Price           float64 `csv:"price"`
	DiscountPercent float64 `csv:"discount_percent"`
	Stock           int     `csv:"stock"`
	Article         string  `csv:"article"`
	Composition     string  `csv:"composition"`
	Width           string  `csv:"width"`
	Density         string  `csv:"density"`
	Country         string  `csv:"country"`
	Category        string  `csv:"category"`
	Brand           string  `csv:"brand"`
}

// ExportProductsCSV writes the current catalog snapshot to a CSV file.
func (s *Service) ExportProductsCSV(path string) error {
	snap := s.catalog.Snapshot()
	rows := make([]*productRow, 0, len(snap.Products))
	for i := range snap.Products {
		rows = append(rows, toRow(&snap.Products[i]))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}

func toRow(p *domain.Product) *productRow {
	row := &productRow{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
		Stock:           p.Stock,
		Article:         p.Article,
		Composition:     p.Composition,
		Width:           p.Width,
		Density:         p.Density,
		Country:         p.Country,
	}
	if p.Category != nil {
		row.Category = p.Category.Name
	}
	if p.Brand != nil {
		row.Brand = p.Brand.Name
	}
	return row
}

// ImportProductsCSV creates products from a CSV file through the admin API
// with a bounded worker pool. Returns the number of rows imported
// successfully; the catalog is refetched once at the end.
func (s *Service) ImportProductsCSV(ctx context.Context, path string, workers int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open import file")
	}
	defer f.Close()

	var rows []*productRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return 0, errors.Wrap(err, "parse import file")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if workers < 1 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return 0, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		imported int64
	)
	for _, row := range rows {
		row := row
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			fields := map[string]interface{}{
				"title":           row.Title,
				"description":     row.Description,
				"price":           row.Price,
				"discountPercent": row.DiscountPercent,
				"stock":           row.Stock,
				"article":         row.Article,
				"composition":     row.Composition,
				"width":           row.Width,
				"density":         row.Density,
				"country":         row.Country,
			}
			if err := validateProductFields(fields); err != nil {
				zap.S().Warnf("skip import row %q: %s", row.Title, err)
				return
			}
			if _, err := s.api.Post(ctx, "/admin/products", fields, true); err != nil {
				zap.S().Warnf("import row %q failed: %s", row.Title, err)
				return
			}
			atomic.AddInt64(&imported, 1)
		}); err != nil {
			wg.Done()
		}
	}
	wg.Wait()

	s.refetchCatalog(ctx)
	return int(imported), nil
}

// ExportCatalogXLSX writes the catalog to an Excel workbook.
func (s *Service) ExportCatalogXLSX(path string) error {
	snap := s.catalog.Snapshot()

	xlsx := excelize.NewFile()
	headers := []string{"ID", "Title", "Price", "Discount %", "Stock", "Category", "Brand", "Country"}
	cols := "ABCDEFGH"
	for i, h := range headers {
		xlsx.SetCellValue("Sheet1", string(cols[i])+"1", h)
	}
	for i := range snap.Products {
		p := &snap.Products[i]
		rowNum := i + 2
		row := []interface{}{p.ID, p.Title, p.Price, p.DiscountPercent, p.Stock, "", "", p.Country}
		if p.Category != nil {
			row[5] = p.Category.Name
		}
		if p.Brand != nil {
			row[6] = p.Brand.Name
		}
		for col, v := range row {
			xlsx.SetCellValue("Sheet1", cellAxis(string(cols[col]), rowNum), v)
		}
	}
	return xlsx.SaveAs(path)
}

func cellAxis(col string, row int) string {
	return col + strconv.Itoa(row)
}
