// Package app składa pipeline z configu: baza, arkusze, kursy, dostawca, publikacja logu zmian.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/assets"
	"github.com/bartek5186/pimsync/internal/changelog"
	conf "github.com/bartek5186/pimsync/internal/config"
	"github.com/bartek5186/pimsync/internal/db"
	"github.com/bartek5186/pimsync/internal/input"
	"github.com/bartek5186/pimsync/internal/integrations"
	_ "github.com/bartek5186/pimsync/internal/integrations/farnell" // rejestracja
	"github.com/bartek5186/pimsync/internal/metrics"
	"github.com/bartek5186/pimsync/internal/pipeline"
	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/bartek5186/pimsync/internal/reconcile"
	"github.com/bartek5186/pimsync/internal/sheet"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// App trzyma zasoby żyjące dłużej niż jeden przebieg (baza, indeks assetów, writery, metryki).
type App struct {
	log     zerolog.Logger
	cfg     *conf.Config
	baseDir string

	DB      *db.Handle
	Metrics *metrics.Registry

	index     assets.Index
	publisher *changelog.MultiWriter
}

// Open otwiera bazę (z migracją), indeks assetów i writery logu zmian.
func Open(log zerolog.Logger, cfg *conf.Config, baseDir string) (*App, error) {
	a := &App{
		log:     log.With().Str("component", "app").Logger(),
		cfg:     cfg,
		baseDir: baseDir,
		Metrics: metrics.NewRegistry(),
	}

	dsn := cfg.Database.DSN
	switch strings.ToLower(cfg.Database.Driver) {
	case "", "sqlite", "sqlite3":
		if dsn == "" {
			dsn = "pimsync.db"
		}
		dsn = cfg.Path(baseDir, dsn)
	}
	h, err := db.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := h.Migrate(); err != nil {
		h.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DB = h
	a.log.Info().Str("driver", cfg.Database.Driver).Str("db", h.Path).Msg("DB ready")

	if strings.EqualFold(cfg.Assets.Index, "pebble") {
		idx, err := assets.OpenPebbleIndex(a.dataPath("assets.pebble"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("asset index: %w", err)
		}
		a.index = idx
	} else {
		a.index = assets.NewInMemoryIndex()
	}

	var writers []changelog.Writer
	if p := cfg.Changelog.JSONLPath; p != "" {
		fw, err := changelog.NewFileWriter(a.dataPath(p))
		if err != nil {
			a.Close()
			return nil, err
		}
		writers = append(writers, fw)
	}
	if len(cfg.Changelog.KafkaBrokers) > 0 {
		writers = append(writers, changelog.NewKafkaWriter(cfg.Changelog.KafkaBrokers, cfg.Changelog.KafkaTopic))
	}
	a.publisher = changelog.NewMultiWriter(writers...)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func (a *App) dataPath(p string) string { return a.cfg.Path(a.baseDir, p) }

// Paths – pliki, które pokazuje komenda "paths"
func (a *App) Paths() map[string]string {
	return map[string]string{
		"Input":     a.dataPath(input.ExpandHome(a.cfg.InputFile)),
		"Database":  a.DB.Path,
		"Workbook":  a.dataPath(a.cfg.Catalog.Workbook),
		"Changes":   a.dataPath(a.cfg.Catalog.ChangesWorkbook),
		"Assets":    a.dataPath("assets"),
		"Changelog": a.dataPath(a.cfg.Changelog.JSONLPath),
	}
}

// Run wykonuje jeden pełny przebieg dla pliku wejściowego (pusty = input_file z configu)
// i zapisuje go w historii przebiegów.
func (a *App) Run(ctx context.Context, inputPath string) (pipeline.Summary, error) {
	cfg := a.cfg
	if inputPath == "" {
		inputPath = cfg.InputFile
	}
	inputPath = a.dataPath(input.ExpandHome(inputPath))

	ids, err := input.ReadIdentifiers(inputPath, cfg.InputCharset)
	if err != nil {
		return pipeline.Summary{}, err
	}
	sha, _ := input.FileSHA256(inputPath)

	fetcher, err := integrations.New(cfg.Supplier, a.log, cfg.Integrations[cfg.Supplier])
	if err != nil {
		return pipeline.Summary{}, err
	}

	p, err := pipeline.New(a.log, a.deps(fetcher), a.options())
	if err != nil {
		return pipeline.Summary{}, err
	}

	run, err := a.DB.StartRun(ctx, filepath.Base(inputPath), sha, fetcher.Name(), len(ids))
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("start run: %w", err)
	}
	sum, runErr := p.Run(ctx, ids)

	run.Processed, run.New, run.Updated, run.Skipped = sum.Processed, sum.New, sum.Updated, sum.Skipped
	run.NotFound, run.Failed, run.Overflow, run.Changes = sum.NotFound, sum.Failed, sum.Overflow, sum.Changes
	// kontekst mógł już zostać anulowany – historia ma się zapisać mimo to
	if err := a.DB.FinishRun(context.WithoutCancel(ctx), run, runErr); err != nil {
		a.log.Warn().Err(err).Msg("run history not saved")
	}
	if err := a.Metrics.WriteTextfile(a.dataPath(cfg.Metrics.Textfile)); err != nil {
		a.log.Warn().Err(err).Msg("metrics textfile not written")
	}
	return sum, runErr
}

func (a *App) deps(fetcher integrations.Fetcher) pipeline.Deps {
	cfg := a.cfg
	vat := decimal.NewFromFloat(cfg.Pricing.VATRate)

	sqlCatalog := db.NewCatalogStore(a.DB)
	sqlChanges := db.NewChangeLogStore(a.DB)
	var catalogStore pipeline.CatalogStore = sqlCatalog
	var changeStore pipeline.ChangeLogStore = sqlChanges

	if cfg.Catalog.Workbook != "" {
		book := sheet.NewCatalogStore(a.dataPath(cfg.Catalog.Workbook), vat)
		if cfg.Catalog.Source == conf.SourceWorkbook {
			catalogStore = pipeline.MirrorCatalog{Primary: book, Mirrors: []pipeline.CatalogStore{sqlCatalog}}
		} else {
			catalogStore = pipeline.MirrorCatalog{Primary: sqlCatalog, Mirrors: []pipeline.CatalogStore{book}}
		}
	}
	if cfg.Catalog.ChangesWorkbook != "" {
		book := sheet.NewChangeLogStore(a.dataPath(cfg.Catalog.ChangesWorkbook))
		if cfg.Catalog.Source == conf.SourceWorkbook {
			changeStore = pipeline.MirrorChangeLog{Primary: book, Mirrors: []pipeline.ChangeLogStore{sqlChanges}}
		} else {
			changeStore = pipeline.MirrorChangeLog{Primary: sqlChanges, Mirrors: []pipeline.ChangeLogStore{book}}
		}
	}

	timeout := time.Duration(cfg.Pricing.TimeoutSec) * time.Second
	rates := pricing.NewProvider(a.log, pricing.ProviderConfig{
		Base:          cfg.Pricing.BaseCurrency,
		URL:           cfg.Pricing.RatesURL,
		FallbackRates: cfg.Pricing.FallbackRates,
		Timeout:       timeout,
	}, db.NewRateCache(a.DB))

	store := assets.NewStore(a.log, assets.Options{
		DataDir:     a.dataPath("."),
		Timeout:     time.Duration(cfg.Assets.TimeoutSec) * time.Second,
		ValidatePDF: cfg.Assets.ValidatePDF,
	}, a.index)

	deps := pipeline.Deps{
		Fetcher:   fetcher,
		Rates:     rates,
		Catalog:   catalogStore,
		ChangeLog: changeStore,
		Assets:    store,
		Issues:    a.DB,
		Metrics:   a.Metrics,
	}
	if a.publisher.Len() > 0 {
		deps.Publisher = a.publisher
	}
	return deps
}

func (a *App) options() pipeline.Options {
	cfg := a.cfg
	return pipeline.Options{
		Pricing: reconcile.Pricing{
			PreferredSupplier: cfg.Pricing.PreferredSupplier,
			SellCurrency:      cfg.Pricing.SellCurrency,
			VATRate:           decimal.NewFromFloat(cfg.Pricing.VATRate),
		},
		Currencies: cfg.Pricing.Currencies,
		Retention:  cfg.Retention(),
	}
}
