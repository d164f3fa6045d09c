package tracker

import (
	"testing"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/bartek5186/pimsync/internal/reconcile"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newTracker(existing []Entry) *Tracker {
	rates := pricing.NewRates("ILS", map[string]decimal.Decimal{"GBP": decimal.RequireFromString("4.3")})
	p := reconcile.Pricing{PreferredSupplier: "FARNELL", SellCurrency: "ILS", VATRate: decimal.RequireFromString("0.18")}
	return New(rates, p, func() time.Time { return fixedNow }, existing)
}

func baseRow() catalog.Row {
	r := catalog.Row{SKU: "7654321", Name: "LM358N", MOQ: 5, Multiple: 5, ShowInCatalog: true, WinnerName: "FARNELL", WinnerSlot: 1}
	r.Cost = decimal.NewNullDecimal(decimal.RequireFromString("10"))
	r.Currency = "GBP"
	r.PriceWithVAT = decimal.NewNullDecimal(decimal.RequireFromString("50.74"))
	r.Slots[0] = catalog.SupplierSlot{Name: "FARNELL", Status: catalog.StatusValid, Cost: r.Cost, Currency: "GBP"}
	return r
}

func types(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ChangeType
	}
	return out
}

func TestTrack_NewProduct(t *testing.T) {
	tr := newTracker(nil)
	got := tr.Track("7654321", nil, baseRow())
	if len(got) != 2 || got[0].ChangeType != NewProduct || got[1].ChangeType != InitialCost {
		t.Fatalf("got %v", types(got))
	}
	if got[1].Details != "10 GBP (~43.00 ILS)" {
		t.Fatalf("initial cost message: %q", got[1].Details)
	}
	if !got[0].Timestamp.Equal(fixedNow) {
		t.Fatalf("timestamp: %v", got[0].Timestamp)
	}
}

func TestTrack_NoChangesIsSilent(t *testing.T) {
	tr := newTracker(nil)
	before := baseRow()
	after := before.Clone()
	// te same wartości, inny zapis
	after.Cost = decimal.NewNullDecimal(decimal.RequireFromString("10.000"))
	after.PriceWithVAT = decimal.NewNullDecimal(decimal.RequireFromString("50.740"))
	after.Slots[0].LastChecked = fixedNow

	if got := tr.Track("7654321", &before, after); len(got) != 0 {
		t.Fatalf("expected no entries, got %v", types(got))
	}
}

func TestTrack_CostAndPrice(t *testing.T) {
	tr := newTracker(nil)
	before := baseRow()
	after := before.Clone()
	after.Cost = decimal.NewNullDecimal(decimal.RequireFromString("12.5"))
	after.PriceWithVAT = decimal.NewNullDecimal(decimal.RequireFromString("63.43"))

	got := tr.Track("7654321", &before, after)
	if len(got) != 2 || got[0].ChangeType != CostIncrease || got[1].ChangeType != SellingPriceUpdate {
		t.Fatalf("got %v", types(got))
	}
	if got[0].Details != "Changed: 10 -> 12.50 GBP (~53.75 ILS)" {
		t.Fatalf("details: %q", got[0].Details)
	}

	lower := before.Clone()
	lower.Cost = decimal.NewNullDecimal(decimal.RequireFromString("9.99"))
	got = tr.Track("7654321", &before, lower)
	if got[0].ChangeType != CostDecrease {
		t.Fatalf("got %v", types(got))
	}

	// bez zwycięzcy koszt znika – kierunek nieznany
	gone := before.Clone()
	gone.Cost = decimal.NullDecimal{}
	got = tr.Track("7654321", &before, gone)
	if got[0].ChangeType != PriceChange {
		t.Fatalf("got %v", types(got))
	}
}

func TestTrack_SuppliersAndStatus(t *testing.T) {
	tr := newTracker(nil)
	before := baseRow()
	before.Slots[2] = catalog.SupplierSlot{Name: "DIGIKEY", Status: catalog.StatusValid}
	after := before.Clone()
	after.Slots[0].Status = catalog.StatusNotFound
	after.Slots[1] = catalog.SupplierSlot{Name: "MOUSER", Status: catalog.StatusValid}
	after.Slots[2] = catalog.SupplierSlot{Name: "ARROW", Status: catalog.StatusValid}
	after.WinnerName = "MOUSER"

	got := tr.Track("7654321", &before, after)
	want := []string{WinnerChanged, SupplierStatusChange, SupplierAdded, SupplierStatusChange, SupplierReplaced}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", types(got), want)
	}
	for i := range want {
		if got[i].ChangeType != want[i] {
			t.Fatalf("got %v, want %v", types(got), want)
		}
	}
	if got[1].Details != "FARNELL: Valid -> Not Found" {
		t.Fatalf("status details: %q", got[1].Details)
	}

	removed := before.Clone()
	removed.Slots[2] = catalog.SupplierSlot{}
	got = tr.Track("7654321", &before, removed)
	if len(got) != 1 || got[0].ChangeType != SupplierRemoved {
		t.Fatalf("got %v", types(got))
	}
}

func TestTrack_SimpleFieldsAndAssets(t *testing.T) {
	tr := newTracker(nil)
	before := baseRow()
	before.Image = "assets/images/7654321.jpg"
	after := before.Clone()
	after.MOQ = 10
	after.ShowInCatalog = false
	after.Image = "assets/images/other.jpg" // zmiana treści – nie śledzimy
	after.Datasheet = "assets/datasheets/7654321.pdf"

	got := tr.Track("7654321", &before, after)
	want := []string{Update, Update, AssetAdded}
	if len(got) != len(want) {
		t.Fatalf("got %v", types(got))
	}
	for i := range want {
		if got[i].ChangeType != want[i] {
			t.Fatalf("got %v", types(got))
		}
	}

	noImage := before.Clone()
	noImage.Image = ""
	got = tr.Track("7654321", &before, noImage)
	if len(got) != 1 || got[0].ChangeType != AssetRemoved {
		t.Fatalf("got %v", types(got))
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		" 1 ":     "1",
		"1.0":     "1",
		"1.005":   "1.01",
		"12.5":    "12.50",
		"abc ":    "abc",
		"":        "",
		"FARNELL": "FARNELL",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrune(t *testing.T) {
	entries := []Entry{
		{SKU: "fresh", Timestamp: fixedNow.AddDate(0, 0, -10)},
		{SKU: "old", Timestamp: fixedNow.AddDate(0, 0, -200)},
		{SKU: "undated"},
	}
	got := Prune(entries, DefaultRetention, fixedNow)
	if len(got) != 2 || got[0].SKU != "fresh" || got[1].SKU != "undated" {
		t.Fatalf("got %+v", got)
	}
}

func TestAll_NewFirst(t *testing.T) {
	tr := newTracker([]Entry{{SKU: "old"}})
	tr.Track("new", nil, baseRow())
	all := tr.All()
	if len(all) != 3 || all[0].SKU != "new" || all[2].SKU != "old" {
		t.Fatalf("got %+v", all)
	}
	if len(tr.Added()) != 2 {
		t.Fatalf("added: %d", len(tr.Added()))
	}
}
