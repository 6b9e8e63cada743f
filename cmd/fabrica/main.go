package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkincode/fabrica/config"
	"github.com/talkincode/fabrica/internal/app"
	"go.uber.org/zap"
)

var (
	cfile      = flag.String("c", "fabrica.yml", "config file")
	exportCSV  = flag.String("export-csv", "", "export catalog to a CSV file and exit")
	exportXLSX = flag.String("export-xlsx", "", "export catalog to an XLSX file and exit")
	importCSV  = flag.String("import-csv", "", "bulk-import products from a CSV file and exit")
	workers    = flag.Int("workers", 4, "worker pool size for bulk import")
)

func main() {
	flag.Parse()

	cfg := config.LoadConfig(*cfile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %s\n", err)
		os.Exit(1)
	}
	defer application.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	application.Boot(ctx)

	// one-shot admin tool modes
	switch {
	case *importCSV != "":
		count, err := application.Admin().ImportProductsCSV(ctx, *importCSV, *workers)
		if err != nil {
			zap.S().Fatalf("import failed: %s", err)
		}
		zap.S().Infof("imported %d products", count)
		return
	case *exportCSV != "":
		if err := application.Admin().ExportProductsCSV(*exportCSV); err != nil {
			zap.S().Fatalf("export failed: %s", err)
		}
		zap.S().Infof("catalog exported to %s", *exportCSV)
		return
	case *exportXLSX != "":
		if err := application.Admin().ExportCatalogXLSX(*exportXLSX); err != nil {
			zap.S().Fatalf("export failed: %s", err)
		}
		zap.S().Infof("catalog exported to %s", *exportXLSX)
		return
	}

	// daemon mode: background jobs keep the mirror fresh
	zap.S().Info("fabrica sync daemon started")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down")
}
