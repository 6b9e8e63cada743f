package admin

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportProductsCSVRoundTrip(t *testing.T) {
	var created int64
	env := newTestService(t, adminBackend(&created, nil))
	env.catalog.FetchAll(context.Background(), nil)
	require.Len(t, env.catalog.Snapshot().Products, 2)

	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, env.svc.ExportProductsCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	var rows []*productRow
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	_ = f.Close()
	require.Len(t, rows, 2)
	assert.Equal(t, "Linen", rows[0].Title)
	assert.Equal(t, 900.0, rows[0].Price)
	assert.Equal(t, 10.0, rows[1].DiscountPercent)

	count, err := env.svc.ImportProductsCSV(context.Background(), path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(2), atomic.LoadInt64(&created))
}

func TestImportProductsCSVSkipsInvalidRows(t *testing.T) {
	var created int64
	env := newTestService(t, adminBackend(&created, nil))

	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"id,title,description,price,discount_percent,stock,article,composition,width,density,country,category,brand\n"+
			"1,Good fabric,,100,0,5,,,,,,,\n"+
			"2,,,50,0,1,,,,,,,\n"+
			"3,Bad price,,-5,0,1,,,,,,,\n",
	), 0644))

	count, err := env.svc.ImportProductsCSV(context.Background(), path, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(1), atomic.LoadInt64(&created))
}

func TestImportProductsCSVEmptyFile(t *testing.T) {
	env := newTestService(t, adminBackend(nil, nil))

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"id,title,description,price,discount_percent,stock,article,composition,width,density,country,category,brand\n",
	), 0644))

	count, err := env.svc.ImportProductsCSV(context.Background(), path, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExportCatalogXLSX(t *testing.T) {
	env := newTestService(t, adminBackend(nil, nil))
	env.catalog.FetchAll(context.Background(), nil)

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, env.svc.ExportCatalogXLSX(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
