// Command sheetcheck downloads the product and order sheets once and reports
// how many rows the storefront would accept. It exits non-zero when either
// sheet is unusable.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"FurniStore/internal/catalog"
	"FurniStore/internal/config"
	"FurniStore/internal/orders"
	"FurniStore/internal/sheets"
	"FurniStore/pkg/kit"
)

// countingRows remembers how many data rows the last fetch returned.
type countingRows struct {
	client *sheets.Client
	rows   int
}

func (c *countingRows) FetchRows(ctx context.Context, sheetID string) ([][]string, error) {
	rows, err := c.client.FetchRows(ctx, sheetID)
	c.rows = max(len(rows)-1, 0)
	return rows, err
}

func main() {
	// Only the sheet settings matter here; session and store checks do not.
	cfg, err := config.Load()
	if err != nil && cfg.ProductsSheetID == "" {
		cfg = config.Defaults()
	}

	productsID := flag.String("products", cfg.ProductsSheetID, "product sheet id")
	ordersID := flag.String("orders", cfg.OrdersSheetID, "order sheet id")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	log := kit.NewLogger("sheetcheck", "debug")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := sheets.NewClient(sheets.Options{BaseURL: cfg.SheetsBaseURL, Timeout: cfg.SheetTimeout}, log)
	rows := &countingRows{client: client}
	parser := sheets.NewParser(log, prometheus.NewRegistry())
	src := &catalog.SheetSource{Rows: rows, Parser: parser, SheetID: *productsID}

	products, err := src.FetchProducts(ctx)
	if err != nil {
		log.Error("product sheet unusable", zap.String("sheet_id", *productsID), zap.Error(err))
		os.Exit(1)
	}

	inStock := 0
	for _, p := range products {
		if p.InStock {
			inStock++
		}
	}
	log.Info("product sheet ok",
		zap.Int("rows", rows.rows),
		zap.Int("accepted", len(products)),
		zap.Int("dropped", rows.rows-len(products)),
		zap.Int("in_stock", inStock),
	)

	all, total, err := orders.NewService(client, parser, *ordersID, log).All(ctx)
	if err != nil {
		log.Error("order sheet unreachable", zap.String("sheet_id", *ordersID), zap.Error(err))
		os.Exit(1)
	}
	log.Info("order sheet ok",
		zap.Int("rows", total),
		zap.Int("accepted", len(all)),
		zap.Int("dropped", total-len(all)),
	)
}
