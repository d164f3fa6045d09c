package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bartek5186/pimsync/internal/integrations/farnell"
)

func TestLoadOrCreate_DefaultThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", "config.json")

	cfg, first, err := LoadOrCreate(path)
	if err != nil || !first {
		t.Fatalf("first run: %v %v", first, err)
	}
	if cfg.Pricing.SellCurrency != "ILS" || cfg.Pricing.VATRate != 0.18 || cfg.Catalog.Source != SourceSQL {
		t.Fatalf("defaults: %+v", cfg)
	}

	again, first, err := LoadOrCreate(path)
	if err != nil || first {
		t.Fatalf("reload: %v %v", first, err)
	}
	var fc farnell.Config
	if err := again.UnmarshalIntegration("farnell", &fc); err != nil {
		t.Fatal(err)
	}
	if fc.StoreID != "il.farnell.com" || fc.RequestsPerMinute != 60 {
		t.Fatalf("farnell: %+v", fc)
	}
	if err := again.UnmarshalIntegration("mouser", &fc); err == nil {
		t.Fatal("want error for missing integration")
	}
}

func TestLoadOrCreate_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
sync_interval_minutes: 30
supplier: farnell
catalog:
  source: workbook
  workbook: out/products.xlsx
pricing:
  vat_rate: 0.17
  currencies: [GBP]
changelog:
  kafka_brokers: ["localhost:9092"]
  kafka_topic: pim.changes
integrations:
  farnell:
    api_key: k1
    requests_per_minute: 30
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, first, err := LoadOrCreate(path)
	if err != nil || first {
		t.Fatalf("load: %v %v", first, err)
	}
	if cfg.Interval() != 30*time.Minute || cfg.Catalog.Source != SourceWorkbook || cfg.Pricing.VATRate != 0.17 {
		t.Fatalf("cfg: %+v", cfg)
	}
	// pola spoza pliku zostają domyślne
	if cfg.Pricing.SellCurrency != "ILS" || cfg.Retention() != 180*24*time.Hour {
		t.Fatalf("defaults lost: %+v", cfg.Pricing)
	}
	var fc farnell.Config
	if err := cfg.UnmarshalIntegration("farnell", &fc); err != nil || fc.APIKey != "k1" || fc.RequestsPerMinute != 30 {
		t.Fatalf("farnell: %+v %v", fc, err)
	}

	// zapis YAML zachowuje integracje
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	back, _, err := LoadOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := back.UnmarshalIntegration("farnell", &fc); err != nil || fc.APIKey != "k1" {
		t.Fatalf("after save: %+v %v", fc, err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	cfg.Catalog.Source = "csv"
	cfg.Pricing.VATRate = 1.5
	cfg.Changelog.KafkaBrokers = []string{"b:9092"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error")
	}

	cfg = Default()
	cfg.Pricing.Currencies = []string{"gbp", "XXQ"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), `"XXQ"`) || strings.Contains(err.Error(), `"gbp"`) {
		t.Fatalf("currency check: %v", err)
	}
}

func TestPath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "data"
	if got := cfg.Path("/app", "products.xlsx"); got != filepath.Join("/app", "data", "products.xlsx") {
		t.Fatalf("got %s", got)
	}
	abs := filepath.Join(t.TempDir(), "x.xlsx")
	if got := cfg.Path("/app", abs); got != abs {
		t.Fatalf("abs changed: %s", got)
	}
}
