// internal/config/config.go
package conf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/integrations/farnell"
	"github.com/bartek5186/pimsync/internal/pricing"
	"gopkg.in/yaml.v3"
)

// Główny config aplikacji
type Config struct {
	AutoStart           bool   `json:"auto_start" yaml:"auto_start"`
	SyncIntervalMinutes int    `json:"sync_interval_minutes" yaml:"sync_interval_minutes"`
	InputFile           string `json:"input_file" yaml:"input_file"`
	InputCharset        string `json:"input_charset,omitempty" yaml:"input_charset,omitempty"`
	DataDir             string `json:"data_dir" yaml:"data_dir"` // względne ścieżki liczone od tego katalogu

	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
	Pricing   PricingConfig   `json:"pricing" yaml:"pricing"`
	Assets    AssetsConfig    `json:"assets" yaml:"assets"`
	Changelog ChangelogConfig `json:"changelog" yaml:"changelog"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`

	LogRetentionDays int `json:"log_retention_days" yaml:"log_retention_days"`

	Supplier     string                     `json:"supplier" yaml:"supplier"` // nazwa z rejestru integracji
	Integrations map[string]json.RawMessage `json:"integrations" yaml:"-"`    // nazwa -> surowy JSON integracji
}

type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"` // sqlite | sqlite3 | postgres | mysql
	DSN    string `json:"dsn" yaml:"dsn"`
}

const (
	SourceSQL      = "sql"
	SourceWorkbook = "workbook"
)

type CatalogConfig struct {
	Source          string `json:"source" yaml:"source"` // główny magazyn, drugi jest kopią
	Workbook        string `json:"workbook" yaml:"workbook"`
	ChangesWorkbook string `json:"changes_workbook" yaml:"changes_workbook"`
}

type PricingConfig struct {
	BaseCurrency      string             `json:"base_currency" yaml:"base_currency"`
	SellCurrency      string             `json:"sell_currency" yaml:"sell_currency"`
	VATRate           float64            `json:"vat_rate" yaml:"vat_rate"`
	PreferredSupplier string             `json:"preferred_supplier" yaml:"preferred_supplier"`
	Currencies        []string           `json:"currencies" yaml:"currencies"`
	FallbackRates     map[string]float64 `json:"fallback_rates" yaml:"fallback_rates"`
	RatesURL          string             `json:"rates_url,omitempty" yaml:"rates_url,omitempty"`
	TimeoutSec        int                `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

type AssetsConfig struct {
	Index       string `json:"index" yaml:"index"` // pebble | memory
	ValidatePDF bool   `json:"validate_pdf" yaml:"validate_pdf"`
	TimeoutSec  int    `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

type ChangelogConfig struct {
	JSONLPath    string   `json:"jsonl_path,omitempty" yaml:"jsonl_path,omitempty"`
	KafkaBrokers []string `json:"kafka_brokers,omitempty" yaml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `json:"kafka_topic,omitempty" yaml:"kafka_topic,omitempty"`
}

type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
	Listen   string `json:"listen,omitempty" yaml:"listen,omitempty"` // np. 127.0.0.1:9310
}

// Przykładowy config integracji Farnell (używany do domyślnego JSON-a)
var farnellDefaults = farnell.Config{
	BaseURL:           farnell.DefaultBaseURL,
	APIKey:            "xxx",
	SecretKey:         "xxx",
	StoreID:           "il.farnell.com",
	Currency:          "GBP",
	TimeoutSec:        10,
	RequestsPerMinute: 60,
}

func Default() *Config {
	rawFarnell, _ := json.Marshal(farnellDefaults)
	return &Config{
		AutoStart:           false,
		SyncIntervalMinutes: 24 * 60,
		InputFile:           "input.xlsx",
		DataDir:             ".",
		Database:            DatabaseConfig{Driver: "sqlite", DSN: "pimsync.db"},
		Catalog: CatalogConfig{
			Source:          SourceSQL,
			Workbook:        "products_db.xlsx",
			ChangesWorkbook: "changes_log.xlsx",
		},
		Pricing: PricingConfig{
			BaseCurrency:      "ILS",
			SellCurrency:      "ILS",
			VATRate:           0.18,
			PreferredSupplier: "FARNELL",
			Currencies:        []string{"GBP", "USD", "EUR"},
			FallbackRates:     map[string]float64{"GBP": 4.3, "USD": 3.7, "EUR": 4.0},
		},
		Assets:           AssetsConfig{Index: "pebble", ValidatePDF: true},
		LogRetentionDays: 180,
		Supplier:         "farnell",
		Integrations: map[string]json.RawMessage{
			"farnell": rawFarnell,
		},
	}
}

// LoadOrCreate wczytuje config (JSON albo YAML po rozszerzeniu); brak pliku = zapis domyślnego.
func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}

	cfg := Default()
	cfg.Integrations = nil
	if isYAML(path) {
		err = decodeYAML(data, cfg)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(cfg)
	}
	if err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Integrations == nil {
		cfg.Integrations = map[string]json.RawMessage{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// integracje w YAML to zwykłe mapy – przerabiamy je na JSON dla fabryk
func decodeYAML(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	var raw struct {
		Integrations map[string]any `yaml:"integrations"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Integrations) == 0 {
		return nil
	}
	cfg.Integrations = make(map[string]json.RawMessage, len(raw.Integrations))
	for name, v := range raw.Integrations {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("integracja %q: %w", name, err)
		}
		cfg.Integrations[name] = b
	}
	return nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		out := struct {
			Config       `yaml:",inline"`
			Integrations map[string]any `yaml:"integrations,omitempty"`
		}{Config: *cfg, Integrations: map[string]any{}}
		for name, raw := range cfg.Integrations {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("integracja %q: %w", name, err)
			}
			out.Integrations[name] = v
		}
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Catalog.Source {
	case "", SourceSQL, SourceWorkbook:
	default:
		errs = append(errs, fmt.Errorf("catalog.source: %q (sql|workbook)", c.Catalog.Source))
	}
	for _, code := range append([]string{c.Pricing.BaseCurrency, c.Pricing.SellCurrency}, c.Pricing.Currencies...) {
		if code != "" && !pricing.ValidCode(code) {
			errs = append(errs, fmt.Errorf("pricing: nieznany kod waluty %q", code))
		}
	}
	if c.Pricing.VATRate < 0 || c.Pricing.VATRate >= 1 {
		errs = append(errs, fmt.Errorf("pricing.vat_rate: %v poza zakresem [0,1)", c.Pricing.VATRate))
	}
	if c.SyncIntervalMinutes < 0 || c.LogRetentionDays < 0 {
		errs = append(errs, errors.New("sync_interval_minutes i log_retention_days nie mogą być ujemne"))
	}
	if len(c.Changelog.KafkaBrokers) > 0 && c.Changelog.KafkaTopic == "" {
		errs = append(errs, errors.New("changelog.kafka_topic wymagany przy kafka_brokers"))
	}
	return errors.Join(errs...)
}

// Helper do odczytu konkretnej integracji do struktury docelowej
func (c *Config) UnmarshalIntegration(name string, v any) error {
	raw, ok := c.Integrations[name]
	if !ok {
		return fmt.Errorf("brak integracji %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}

// Path – ścieżka względna liczona od DataDir (baseDir, gdy DataDir też jest względny)
func (c *Config) Path(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}
	return filepath.Join(dir, p)
}

func (c *Config) Interval() time.Duration {
	if c.SyncIntervalMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

func (c *Config) Retention() time.Duration {
	if c.LogRetentionDays <= 0 {
		return 180 * 24 * time.Hour
	}
	return time.Duration(c.LogRetentionDays) * 24 * time.Hour
}
