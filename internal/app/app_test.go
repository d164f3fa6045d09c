package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bartek5186/pimsync/internal/catalog"
	conf "github.com/bartek5186/pimsync/internal/config"
	"github.com/bartek5186/pimsync/internal/db"
	"github.com/bartek5186/pimsync/internal/integrations"
	"github.com/bartek5186/pimsync/internal/sheet"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubFetcher struct{}

func (stubFetcher) Name() string { return "STUB" }

func (stubFetcher) Fetch(ctx context.Context, id string) (*catalog.ProductRecord, error) {
	if id != "1234567" {
		return nil, integrations.ErrNotFound
	}
	return &catalog.ProductRecord{
		SupplierSKU: id, Name: "LM358N", MPN: "LM358N", Cost: decimal.RequireFromString("0.42"),
		Currency: "GBP", Stock: 10, Warehouse: "UK", MOQ: 1, Multiple: 1,
	}, nil
}

func init() {
	integrations.Register("stub", func(log zerolog.Logger, raw json.RawMessage) (integrations.Fetcher, error) {
		return stubFetcher{}, nil
	})
}

func TestApp_RunEndToEnd(t *testing.T) {
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer rates.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "input.txt"), []byte("1234567\n555\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := conf.Default()
	cfg.Supplier = "stub"
	cfg.InputFile = "input.txt"
	cfg.Assets.Index = "memory"
	cfg.Pricing.RatesURL = rates.URL
	cfg.Changelog.JSONLPath = "changes.jsonl"
	cfg.Metrics.Textfile = "pimsync.prom"

	a, err := Open(zerolog.Nop(), cfg, dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	sum, err := a.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Processed != 2 || sum.New != 1 || sum.NotFound != 1 {
		t.Fatalf("summary: %+v", sum)
	}

	// SQL jest głównym magazynem, skoroszyt kopią
	tbl, err := db.NewCatalogStore(a.DB).Load(context.Background())
	if err != nil || tbl.Len() != 1 {
		t.Fatalf("sql catalog: %v %v", tbl, err)
	}
	// kurs GBP z wartości zapasowej (4.3): 0.42*4.3*1.18 = 2.13
	if !tbl.Rows[0].PriceWithVAT.Decimal.Equal(decimal.RequireFromString("2.13")) {
		t.Fatalf("price: %v", tbl.Rows[0].PriceWithVAT)
	}
	book, err := sheet.NewCatalogStore(filepath.Join(dir, cfg.Catalog.Workbook), decimal.Zero).Load(context.Background())
	if err != nil || book.Len() != 1 || book.Rows[0].SKU != "7654321" {
		t.Fatalf("workbook mirror: %v %v", book, err)
	}

	for _, name := range []string{"changes_log.xlsx", "changes.jsonl", "pimsync.prom"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	prom, _ := os.ReadFile(filepath.Join(dir, "pimsync.prom"))
	if !strings.Contains(string(prom), `pimsync_items_total{outcome="new"} 1`) {
		t.Errorf("prom:\n%s", prom)
	}

	run, err := a.DB.LastRun(context.Background())
	if err != nil || run == nil || run.Status != db.RunDone || run.New != 1 || run.Supplier != "STUB" {
		t.Fatalf("run history: %+v %v", run, err)
	}
}

func TestApp_UnknownSupplier(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "input.txt"), []byte("1\n"), 0o644)
	cfg := conf.Default()
	cfg.Supplier = "nope"
	cfg.InputFile = "input.txt"
	cfg.Assets.Index = "memory"

	a, err := Open(zerolog.Nop(), cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err := a.Run(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "unknown supplier") {
		t.Fatalf("want unknown supplier, got %v", err)
	}
}
