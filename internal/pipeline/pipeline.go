// Package pipeline drives one sync run: fetch -> locate -> gate -> slot -> recalculate -> diff,
// with the catalog and the change log persisted once at the end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/assets"
	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/db"
	"github.com/bartek5186/pimsync/internal/integrations"
	"github.com/bartek5186/pimsync/internal/metrics"
	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/bartek5186/pimsync/internal/reconcile"
	"github.com/bartek5186/pimsync/internal/tracker"
	"github.com/rs/zerolog"
)

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, id string) (*catalog.ProductRecord, error)
}

type RateProvider interface {
	Snapshot(ctx context.Context, codes []string) pricing.Rates
}

type AssetStore interface {
	Materialize(ctx context.Context, kind assets.Kind, url, key string) string
}

type CatalogStore interface {
	Load(ctx context.Context) (*catalog.Table, error)
	Save(ctx context.Context, t *catalog.Table, rates pricing.Rates) error
}

type ChangeLogStore interface {
	LoadRecent(ctx context.Context, retention time.Duration) ([]tracker.Entry, error)
	Save(ctx context.Context, entries []tracker.Entry) error
}

// Publisher – changelog.Writer
type Publisher interface {
	Append(ctx context.Context, e tracker.Entry) error
}

type IssueRecorder interface {
	RecordIssue(ctx context.Context, sku, reason, key, details string) error
}

// Deps – współpracownicy przebiegu. Assets, Publisher, Issues i Metrics mogą być nil.
type Deps struct {
	Fetcher   Fetcher
	Rates     RateProvider
	Catalog   CatalogStore
	ChangeLog ChangeLogStore
	Assets    AssetStore
	Publisher Publisher
	Issues    IssueRecorder
	Metrics   *metrics.Registry
}

type Options struct {
	Pricing    reconcile.Pricing
	Currencies []string // kody, dla których pobieramy kursy
	Retention  time.Duration
	Now        func() time.Time
}

// Outcome – wynik jednej pozycji wejścia (etykieta metryki pimsync_items_total)
type Outcome string

const (
	OutcomeNew        Outcome = metrics.OutcomeNew
	OutcomeUpdated    Outcome = metrics.OutcomeUpdated
	OutcomeSkipped    Outcome = metrics.OutcomeSkipped
	OutcomeNotFound   Outcome = metrics.OutcomeNotFound
	OutcomeFetchError Outcome = metrics.OutcomeFetchError
	OutcomeOverflow   Outcome = metrics.OutcomeOverflow
)

type Summary struct {
	Processed int
	New       int
	Updated   int
	Skipped   int
	NotFound  int
	Failed    int
	Overflow  int
	Changes   int
	Rows      int
}

func (s Summary) String() string {
	return fmt.Sprintf("processed %d, new %d, updated %d, skipped %d", s.Processed, s.New, s.Updated, s.Skipped)
}

// ErrPersist – zapis katalogu albo logu zmian się nie udał; wyniki przebiegu nie trafiły na dysk
var ErrPersist = errors.New("persist failed")

type Pipeline struct {
	log  zerolog.Logger
	deps Deps
	opts Options
}

func New(log zerolog.Logger, deps Deps, opts Options) (*Pipeline, error) {
	if deps.Fetcher == nil || deps.Rates == nil || deps.Catalog == nil || deps.ChangeLog == nil {
		return nil, errors.New("pipeline: fetcher, rates, catalog and change log are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retention <= 0 {
		opts.Retention = tracker.DefaultRetention
	}
	if opts.Pricing.SellCurrency == "" {
		opts.Pricing.SellCurrency = "ILS"
	}
	return &Pipeline{
		log:  log.With().Str("component", "pipeline").Logger(),
		deps: deps,
		opts: opts,
	}, nil
}

// run – stan jednego przebiegu
type run struct {
	table    *catalog.Table
	rates    pricing.Rates
	tracker  *tracker.Tracker
	supplier string
	summary  Summary
}

// Run przetwarza identyfikatory po kolei. Przerwanie kontekstu kończy przebieg bez zapisu.
func (p *Pipeline) Run(ctx context.Context, ids []string) (sum Summary, err error) {
	started := p.opts.Now()
	logSize := 0
	defer func() {
		if p.deps.Metrics != nil {
			p.deps.Metrics.RunFinished(started, sum.Rows, logSize, err)
		}
	}()

	table, err := p.deps.Catalog.Load(ctx)
	if err != nil {
		return sum, fmt.Errorf("load catalog: %w", err)
	}
	existing, err := p.deps.ChangeLog.LoadRecent(ctx, p.opts.Retention)
	if err != nil {
		return sum, fmt.Errorf("load change log: %w", err)
	}

	codes := p.currencies(table)
	rates := p.deps.Rates.Snapshot(ctx, codes)
	for _, c := range codes {
		if !rates.Known(c) {
			p.log.Warn().Str("currency", c).Msg("no rate for currency, using 1.0")
		}
	}
	r := &run{
		table:    table,
		rates:    rates,
		tracker:  tracker.New(rates, p.opts.Pricing, p.opts.Now, existing),
		supplier: strings.ToUpper(strings.TrimSpace(p.deps.Fetcher.Name())),
	}
	p.log.Info().Int("items", len(ids)).Int("rows", table.Len()).Int("log_entries", len(existing)).
		Str("supplier", r.supplier).Msg("run start")

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			p.log.Warn().Int("done", i).Int("items", len(ids)).Msg("run cancelled, nothing saved")
			return r.summary, err
		}
		out, err := p.processItem(ctx, r, id)
		if err != nil {
			return r.summary, err
		}
		r.count(out)
		if p.deps.Metrics != nil {
			p.deps.Metrics.Item(string(out))
		}
	}

	p.reportDuplicates(ctx, r.table)

	added := r.tracker.Added()
	r.summary.Changes = len(added)
	r.summary.Rows = r.table.Len()

	// błąd samej kopii (MirrorError) nie wstrzymuje zapisu logu zmian
	entries := r.tracker.All()
	var mirrorErrs []error
	if err := p.deps.Catalog.Save(ctx, r.table, r.rates); err != nil {
		if !IsMirrorError(err) {
			p.log.Error().Err(err).Msg("catalog save failed")
			return r.summary, fmt.Errorf("%w: catalog: %v", ErrPersist, err)
		}
		p.log.Error().Err(err).Msg("catalog mirror save failed")
		mirrorErrs = append(mirrorErrs, fmt.Errorf("catalog: %w", err))
	}
	if err := p.deps.ChangeLog.Save(ctx, entries); err != nil {
		if !IsMirrorError(err) {
			p.log.Error().Err(err).Msg("change log save failed")
			return r.summary, fmt.Errorf("%w: change log: %v", ErrPersist, err)
		}
		p.log.Error().Err(err).Msg("change log mirror save failed")
		mirrorErrs = append(mirrorErrs, fmt.Errorf("change log: %w", err))
	}
	p.publish(ctx, added)
	if len(mirrorErrs) > 0 {
		return r.summary, fmt.Errorf("%w: %w", ErrPersist, errors.Join(mirrorErrs...))
	}
	logSize = len(entries)

	p.log.Info().Int("processed", r.summary.Processed).Int("new", r.summary.New).
		Int("updated", r.summary.Updated).Int("skipped", r.summary.Skipped).
		Int("changes", r.summary.Changes).Dur("took", p.opts.Now().Sub(started)).Msg("run done")
	return r.summary, nil
}

func (r *run) count(o Outcome) {
	r.summary.Processed++
	switch o {
	case OutcomeNew:
		r.summary.New++
	case OutcomeUpdated:
		r.summary.Updated++
	case OutcomeSkipped:
		r.summary.Skipped++
	case OutcomeOverflow:
		r.summary.Overflow++
		r.summary.Skipped++
	case OutcomeNotFound:
		r.summary.NotFound++
	case OutcomeFetchError:
		r.summary.Failed++
	}
}

// processItem – jedna pozycja jako jednostka: zmiany liczone na kopii wiersza,
// do tabeli trafiają dopiero razem z wpisami logu.
func (p *Pipeline) processItem(ctx context.Context, r *run, id string) (Outcome, error) {
	log := p.log.With().Str("id", id).Str("supplier", r.supplier).Logger()
	now := p.opts.Now()

	rec, err := p.deps.Fetcher.Fetch(ctx, id)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil || rec == nil {
		return p.absent(r, id, err, now, log), nil
	}

	status := reconcile.Classify(rec)
	idx := reconcile.Locate(r.table, rec.MPN, id, r.supplier)

	var row catalog.Row
	var before *catalog.Row
	if idx == reconcile.NotFound {
		if !reconcile.Sellable(status) {
			log.Info().Str("status", string(status)).Msg("new product rejected by validity gate")
			return OutcomeSkipped, nil
		}
		row = reconcile.NewRow(rec)
	} else {
		prev := r.table.Rows[idx].Clone()
		before = &prev
		row = prev.Clone()
	}
	log = log.With().Str("sku", row.SKU).Logger()

	slot, _, ok := reconcile.FindTargetSlot(&row, r.supplier)
	if !ok {
		log.Warn().Msg("no free supplier slot, row left unchanged")
		p.issue(ctx, row.SKU, db.IssueSlotOverflow, r.supplier,
			fmt.Sprintf("%s %s: all %d slots taken", r.supplier, id, catalog.MaxSlots))
		return OutcomeOverflow, nil
	}
	reconcile.UpdateSlot(&row, slot, rec, r.supplier, status, now)
	row.USStock = rec.USStock
	p.materialize(ctx, &row, rec, log)
	reconcile.Recalculate(&row, r.rates, p.opts.Pricing, now)

	r.tracker.Track(row.Key(), before, row)
	if before == nil {
		r.table.Rows = append(r.table.Rows, row)
	} else {
		r.table.Rows[idx] = row
	}

	log.Info().Int("slot", slot).Str("status", string(status)).Str("winner", row.WinnerName).Msg("item reconciled")
	if before == nil {
		return OutcomeNew, nil
	}
	return OutcomeUpdated, nil
}

// absent – brak produktu albo błąd pobrania. Istniejący wiersz dostaje status Not Found,
// nowy identyfikator jest pomijany.
func (p *Pipeline) absent(r *run, id string, err error, now time.Time, log zerolog.Logger) Outcome {
	out := OutcomeNotFound
	if err != nil && !integrations.IsNotFound(err) {
		out = OutcomeFetchError
		log.Warn().Err(err).Msg("fetch failed")
	} else {
		log.Info().Msg("product not found")
	}

	idx := reconcile.Locate(r.table, "", id, r.supplier)
	if idx == reconcile.NotFound {
		return out
	}
	before := r.table.Rows[idx].Clone()
	row := before.Clone()
	if !reconcile.MarkSlotNotFound(&row, r.supplier, now) {
		return out
	}
	reconcile.Recalculate(&row, r.rates, p.opts.Pricing, now)
	r.tracker.Track(row.Key(), &before, row)
	r.table.Rows[idx] = row
	return out
}

// materialize pobiera obraz i kartę katalogową tylko, gdy wiersz ich jeszcze nie ma.
func (p *Pipeline) materialize(ctx context.Context, row *catalog.Row, rec *catalog.ProductRecord, log zerolog.Logger) {
	if p.deps.Assets == nil {
		return
	}
	if row.Image == "" && rec.ImageURL != "" {
		if ref := p.deps.Assets.Materialize(ctx, assets.KindImage, rec.ImageURL, row.SKU); ref != "" {
			row.Image = ref
		} else {
			log.Warn().Str("url", rec.ImageURL).Msg("image download failed")
		}
	}
	if row.Datasheet == "" && rec.DatasheetURL != "" {
		if ref := p.deps.Assets.Materialize(ctx, assets.KindDatasheet, rec.DatasheetURL, row.SKU); ref != "" {
			row.Datasheet = ref
		} else {
			log.Warn().Str("url", rec.DatasheetURL).Msg("datasheet download failed")
		}
	}
}

func (p *Pipeline) reportDuplicates(ctx context.Context, t *catalog.Table) {
	dups := reconcile.DuplicateMPNs(t)
	mpns := make([]string, 0, len(dups))
	for m := range dups {
		mpns = append(mpns, m)
	}
	sort.Strings(mpns)
	for _, m := range mpns {
		rows := dups[m]
		skus := make([]string, 0, len(rows))
		for _, i := range rows {
			skus = append(skus, t.Rows[i].SKU)
		}
		p.log.Warn().Str("mpn", m).Strs("skus", skus).Msg("duplicate MPN in catalog")
		p.issue(ctx, t.Rows[rows[0]].SKU, db.IssueDuplicateMPN, m,
			"rows "+strconv.Itoa(len(rows))+": "+strings.Join(skus, ", "))
	}
}

func (p *Pipeline) issue(ctx context.Context, sku, reason, key, details string) {
	if p.deps.Issues == nil {
		return
	}
	if err := p.deps.Issues.RecordIssue(ctx, sku, reason, key, details); err != nil {
		p.log.Warn().Err(err).Str("sku", sku).Str("reason", reason).Msg("issue not recorded")
	}
}

// publish – wpisy z tego przebiegu na zewnątrz (jsonl/kafka); błąd nie cofa zapisu
func (p *Pipeline) publish(ctx context.Context, added []tracker.Entry) {
	pub := p.deps.Publisher
	for i, e := range added {
		if p.deps.Metrics != nil {
			p.deps.Metrics.Change(e.ChangeType)
		}
		if pub == nil {
			continue
		}
		if err := pub.Append(ctx, e); err != nil {
			// po pierwszym błędzie nie publikujemy reszty tego przebiegu
			p.log.Warn().Err(err).Int("pending", len(added)-i).Msg("change log publish failed")
			pub = nil
		}
	}
}

// currencies – skonfigurowane kody plus waluty spotykane w slotach
func (p *Pipeline) currencies(t *catalog.Table) []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		c = pricing.NormalizeCode(c)
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range p.opts.Currencies {
		add(c)
	}
	add(p.opts.Pricing.SellCurrency)
	for _, r := range t.Rows {
		for _, s := range r.Slots {
			add(s.Currency)
		}
	}
	return out
}
