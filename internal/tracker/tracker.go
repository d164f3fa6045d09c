// Package tracker diffs catalog rows before/after a sync and builds the change log.
package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/reconcile"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Typy zmian zapisywane w logu
const (
	NewProduct           = "New Product"
	InitialCost          = "Initial Cost"
	CostIncrease         = "Cost Increase"
	CostDecrease         = "Cost Decrease"
	PriceChange          = "Price Change"
	SellingPriceUpdate   = "Selling Price Update"
	WinnerChanged        = "Winner Changed"
	SupplierAdded        = "Supplier Added"
	SupplierRemoved      = "Supplier Removed"
	SupplierReplaced     = "Supplier Replaced"
	SupplierStatusChange = "Supplier Status Change"
	Update               = "Update"
	AssetAdded           = "Asset Added"
	AssetRemoved         = "Asset Removed"
)

// DefaultRetention – jak długo trzymamy wpisy w logu
const DefaultRetention = 180 * 24 * time.Hour

// Entry – jeden wpis logu zmian, po zapisaniu niezmienny
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	SKU        string    `json:"sku"`
	Field      string    `json:"field"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	ChangeType string    `json:"change_type"`
	Details    string    `json:"details,omitempty"`
}

// Tracker zbiera wpisy z całego przebiegu.
type Tracker struct {
	rates    reconcile.RateSource
	pricing  reconcile.Pricing
	now      func() time.Time
	existing []Entry
	added    []Entry
}

func New(rates reconcile.RateSource, p reconcile.Pricing, now func() time.Time, existing []Entry) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{rates: rates, pricing: p, now: now, existing: existing}
}

// Added – wpisy dodane w tym przebiegu
func (t *Tracker) Added() []Entry { return t.added }

// All – nowe wpisy na początku, potem zachowane ze starego logu
func (t *Tracker) All() []Entry {
	out := make([]Entry, 0, len(t.added)+len(t.existing))
	out = append(out, t.added...)
	return append(out, t.existing...)
}

// Prune odrzuca wpisy starsze niż okno retencji (liczone od północy dnia now).
// Wpisy bez daty zostają.
func Prune(entries []Entry, retention time.Duration, now time.Time) []Entry {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Add(-retention)
	out := entries[:0:0]
	for _, e := range entries {
		if e.Timestamp.IsZero() || e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Track porównuje stan sprzed i po przetworzeniu wiersza. before == nil oznacza nowy produkt.
// Zwraca wpisy dodane dla tego wiersza.
func (t *Tracker) Track(sku string, before *catalog.Row, after catalog.Row) []Entry {
	start := len(t.added)
	if before == nil {
		t.trackNew(sku, after)
		return t.added[start:]
	}
	t.trackCost(sku, *before, after)

	oldPrice, newPrice := normNull(before.PriceWithVAT), normNull(after.PriceWithVAT)
	if oldPrice != newPrice {
		t.add(sku, "Price (VAT)", oldPrice, newPrice, SellingPriceUpdate, "")
	}

	oldWinner, newWinner := Normalize(before.WinnerName), Normalize(after.WinnerName)
	if oldWinner != newWinner {
		t.add(sku, "Best Supplier", orNone(oldWinner), orNone(newWinner), WinnerChanged, "")
	}

	for i := 0; i < catalog.MaxSlots; i++ {
		t.trackSlot(sku, i+1, before.Slots[i], after.Slots[i])
	}

	for _, f := range simpleFields {
		o, n := f.get(*before), f.get(after)
		if Normalize(o) != Normalize(n) {
			t.add(sku, f.name, o, n, Update, "")
		}
	}

	for _, a := range assetFields {
		o, n := Normalize(a.get(*before)), Normalize(a.get(after))
		switch {
		case o == "" && n != "":
			t.add(sku, a.name, "None", "Added", AssetAdded, "New "+a.name)
		case o != "" && n == "":
			t.add(sku, a.name, "Exists", "Removed", AssetRemoved, "")
		}
	}
	return t.added[start:]
}

func (t *Tracker) trackNew(sku string, after catalog.Row) {
	t.add(sku, "Product", "", "Created", NewProduct, "Product added to DB")
	cost := normNull(after.Cost)
	msg := fmt.Sprintf("%s %s", cost, after.Currency)
	if after.Cost.Valid {
		msg = fmt.Sprintf("%s %s (~%s %s)", cost, after.Currency, t.inBase(after.Cost.Decimal, after.Currency), t.pricing.SellCurrency)
	}
	t.add(sku, "Cost", "", cost, InitialCost, strings.TrimSpace(msg))
}

func (t *Tracker) trackCost(sku string, before, after catalog.Row) {
	o, n := normNull(before.Cost), normNull(after.Cost)
	if o == n {
		return
	}
	kind := PriceChange
	msg := fmt.Sprintf("Changed: %s -> %s %s", o, n, after.Currency)
	if before.Cost.Valid && after.Cost.Valid {
		switch after.Cost.Decimal.Round(2).Cmp(before.Cost.Decimal.Round(2)) {
		case 1:
			kind = CostIncrease
		case -1:
			kind = CostDecrease
		}
		msg = fmt.Sprintf("%s (~%s %s)", msg, t.inBase(after.Cost.Decimal, after.Currency), t.pricing.SellCurrency)
	}
	t.add(sku, "Cost", o, n, kind, strings.TrimSpace(msg))
}

func (t *Tracker) trackSlot(sku string, idx int, before, after catalog.SupplierSlot) {
	field := fmt.Sprintf("Supplier %d", idx)
	o, n := Normalize(before.Name), Normalize(after.Name)
	switch {
	case o == n:
	case o == "":
		t.add(sku, field, "", n, SupplierAdded, "")
	case n == "":
		t.add(sku, field, o, "", SupplierRemoved, "")
	default:
		t.add(sku, field, o, n, SupplierReplaced, "")
	}

	if n == "" {
		return
	}
	oldSt, newSt := Normalize(string(before.Status)), Normalize(string(after.Status))
	if oldSt != newSt {
		t.add(sku, field+" Status", oldSt, newSt, SupplierStatusChange, fmt.Sprintf("%s: %s -> %s", n, oldSt, newSt))
	}
}

func (t *Tracker) inBase(cost decimal.Decimal, currency string) string {
	return cost.Mul(t.rates.Rate(currency)).StringFixed(2)
}

func (t *Tracker) add(sku, field, oldV, newV, kind, details string) {
	t.added = append(t.added, Entry{
		ID:         uuid.New(),
		Timestamp:  t.now(),
		SKU:        sku,
		Field:      field,
		OldValue:   oldV,
		NewValue:   newV,
		ChangeType: kind,
		Details:    details,
	})
}

type trackedField struct {
	name string
	get  func(r catalog.Row) string
}

var simpleFields = []trackedField{
	{"SKU", func(r catalog.Row) string { return strings.TrimSpace(r.SKU) }},
	{"MOQ", func(r catalog.Row) string { return intOrEmpty(r.MOQ) }},
	{"Multiple", func(r catalog.Row) string { return intOrEmpty(r.Multiple) }},
	{"Show in Catalog", func(r catalog.Row) string { return strconv.FormatBool(r.ShowInCatalog) }},
	{"Product Name", func(r catalog.Row) string { return strings.TrimSpace(r.Name) }},
	{"Description", func(r catalog.Row) string { return strings.TrimSpace(r.Description) }},
}

var assetFields = []trackedField{
	{"Image", func(r catalog.Row) string { return r.Image }},
	{"Datasheet", func(r catalog.Row) string { return r.Datasheet }},
}

// Normalize: trim; liczby porównujemy jako liczby (całkowite bez części ułamkowej, reszta z 2 miejscami).
func Normalize(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}

func normNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return Normalize(d.Decimal.String())
}

// 0 traktujemy jak puste – tak wygląda brak wartości w arkuszu
func intOrEmpty(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
