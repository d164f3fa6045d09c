package reconcile

import (
	"testing"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	day1 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

func rates() pricing.Rates {
	return pricing.NewRates("ILS", map[string]decimal.Decimal{
		"GBP": decimal.RequireFromString("4.3"),
		"USD": decimal.RequireFromString("3.7"),
	})
}

func stdPricing() Pricing {
	return Pricing{PreferredSupplier: "FARNELL", SellCurrency: "ILS", VATRate: decimal.RequireFromString("0.18")}
}

func validRecord() *catalog.ProductRecord {
	return &catalog.ProductRecord{
		SupplierSKU:  "1234567",
		Name:         "LM358N",
		Description:  "Op-amp, dual",
		Manufacturer: "Acme",
		MPN:          "LM358N",
		Cost:         decimal.RequireFromString("0.52"),
		Currency:     "GBP",
		Stock:        1200,
		LeadTime:     "2 Weeks",
		Status:       "STOCKED",
		Warehouse:    "UK",
		MOQ:          5,
		Multiple:     5,
		Category:     "OPAMP",
	}
}

func slot(name string, status catalog.Status, cost string, cur string, stock int) catalog.SupplierSlot {
	s := catalog.SupplierSlot{Name: name, Status: status, Currency: cur, Stock: stock}
	if cost != "" {
		s.Cost = decimal.NewNullDecimal(decimal.RequireFromString(cost))
	}
	return s
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		mut  func(r *catalog.ProductRecord)
		want catalog.Status
	}{
		{"valid", func(r *catalog.ProductRecord) {}, catalog.StatusValid},
		{"direct ship flag", func(r *catalog.ProductRecord) { r.DirectShip = true }, catalog.StatusDirectShip},
		{"direct ship status", func(r *catalog.ProductRecord) { r.Status = "direct_ship" }, catalog.StatusDirectShip},
		{"usa overrides direct ship", func(r *catalog.ProductRecord) {
			r.Warehouse = "USA"
			r.Status = "DIRECT_SHIP"
			r.DirectShip = true
		}, catalog.StatusValid},
		{"usa overrides zero cost", func(r *catalog.ProductRecord) {
			r.Warehouse = "usa"
			r.Cost = decimal.Zero
		}, catalog.StatusValid},
		{"nlm no stock", func(r *catalog.ProductRecord) {
			r.Status = "NO_LONGER_MANUFACTURED"
			r.Stock = 0
		}, catalog.StatusNoLongerManufactured},
		{"nls no stock", func(r *catalog.ProductRecord) {
			r.Status = "nls"
			r.Stock = 0
		}, catalog.StatusNoLongerStocked},
		{"obsolete no stock", func(r *catalog.ProductRecord) {
			r.Status = "Obsolete"
			r.Stock = 0
		}, catalog.StatusNoLongerStocked},
		{"nlm with stock lasts", func(r *catalog.ProductRecord) {
			r.Status = "NLM"
			r.Stock = 3
		}, catalog.StatusValid},
		{"zero cost", func(r *catalog.ProductRecord) { r.Cost = decimal.Zero }, catalog.StatusError},
		{"missing name", func(r *catalog.ProductRecord) { r.Name = "  " }, catalog.StatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRecord()
			tc.mut(r)
			if got := Classify(r); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}

	if Classify(nil) != catalog.StatusNotFound {
		t.Fatalf("nil record should be NotFound")
	}
}

func TestLocate(t *testing.T) {
	tbl := &catalog.Table{Rows: []catalog.Row{
		{SKU: "a", MPN: "MPN-1"},
		{SKU: "b", Slots: [catalog.MaxSlots]catalog.SupplierSlot{
			{Name: "OTHERCO", SKU: "777"},
			{Name: "FARNELL", SKU: "777"},
		}},
		{SKU: "c", MPN: "MPN-1"},
	}}

	if got := Locate(tbl, " MPN-1 ", "x", "FARNELL"); got != 0 {
		t.Fatalf("mpn match: got %d", got)
	}
	if got := Locate(tbl, "", "777", "farnell"); got != 1 {
		t.Fatalf("supplier sku match: got %d", got)
	}
	if got := Locate(tbl, "MPN-404", "777", "MOUSER"); got != NotFound {
		t.Fatalf("sku with other supplier should not match: got %d", got)
	}
	if got := Locate(tbl, "", "", "FARNELL"); got != NotFound {
		t.Fatalf("empty input: got %d", got)
	}

	dups := DuplicateMPNs(tbl)
	if len(dups["MPN-1"]) != 2 {
		t.Fatalf("duplicates: %+v", dups)
	}
}

func TestFindTargetSlot(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = slot("OtherCo", catalog.StatusValid, "1", "USD", 1)
	row.Slots[1] = slot("Farnell", catalog.StatusValid, "1", "GBP", 1)

	idx, upd, ok := FindTargetSlot(&row, "FARNELL")
	if !ok || !upd || idx != 2 {
		t.Fatalf("existing: got %d %v %v", idx, upd, ok)
	}
	idx, upd, ok = FindTargetSlot(&row, "MOUSER")
	if !ok || upd || idx != 3 {
		t.Fatalf("first empty: got %d %v %v", idx, upd, ok)
	}

	row.Slots[2] = slot("DIGIKEY", catalog.StatusValid, "1", "USD", 1)
	if _, _, ok := FindTargetSlot(&row, "MOUSER"); ok {
		t.Fatalf("full row must overflow")
	}
}

func TestUpdateSlot_FirstWriterWins(t *testing.T) {
	row := catalog.Row{SKU: "x", Manufacturer: "Acme", Name: "Existing"}
	rec := validRecord()
	rec.Manufacturer = "OtherBrand"
	rec.Name = "New name"
	rec.Hazardous = true

	UpdateSlot(&row, 1, rec, "FARNELL", catalog.StatusValid, day1)

	if row.Manufacturer != "Acme" || row.Name != "Existing" {
		t.Fatalf("static fields overwritten: %+v", row)
	}
	if row.MPN != "LM358N" || row.Description != "Op-amp, dual" || !row.Hazardous {
		t.Fatalf("empty static fields should be filled: %+v", row)
	}
	s := row.Slots[0]
	if s.Name != "FARNELL" || s.SKU != "1234567" || s.Status != catalog.StatusValid || s.Stock != 1200 ||
		!s.Cost.Decimal.Equal(decimal.RequireFromString("0.52")) || s.Currency != "GBP" || s.MOQ != 5 ||
		s.Multiple != 5 || s.Category != "OPAMP" || !s.LastChecked.Equal(day1) {
		t.Fatalf("slot not written: %+v", s)
	}
}

func TestMarkSlotNotFound(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = slot("FARNELL", catalog.StatusValid, "10.50", "GBP", 40)

	if !MarkSlotNotFound(&row, "farnell", day2) {
		t.Fatalf("expected slot to be marked")
	}
	s := row.Slots[0]
	if s.Status != catalog.StatusNotFound || s.Stock != 0 || !s.LastChecked.Equal(day2) {
		t.Fatalf("bad slot: %+v", s)
	}
	if !s.Cost.Valid || !s.Cost.Decimal.Equal(decimal.RequireFromString("10.50")) || s.Currency != "GBP" {
		t.Fatalf("last known cost must be kept: %+v", s)
	}

	before := row
	if MarkSlotNotFound(&row, "MOUSER", day2) {
		t.Fatalf("supplier without slot must be a no-op")
	}
	if row != before {
		t.Fatalf("row changed on no-op")
	}
}

func TestSelectWinner_PreferredSupplier(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = slot("Farnell UK", catalog.StatusValid, "10", "USD", 0)
	row.Slots[1] = slot("OtherCo", catalog.StatusValid, "1", "USD", 1000)

	w := Recalculate(&row, rates(), stdPricing(), day1)
	if w == nil || w.Slot != 1 || row.WinnerSlot != 1 || row.WinnerName != "Farnell UK" {
		t.Fatalf("preferred supplier must win: %+v / %+v", w, row)
	}
}

func TestSelectWinner_PriceThenStock(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = slot("A", catalog.StatusValid, "5", "ILS", 10)
	row.Slots[1] = slot("B", catalog.StatusValid, "5", "ILS", 50)
	row.Slots[2] = slot("C", catalog.StatusValid, "6", "ILS", 5000)

	Recalculate(&row, rates(), Pricing{SellCurrency: "ILS"}, day1)
	if row.WinnerName != "B" {
		t.Fatalf("equal cost -> higher stock wins, got %q", row.WinnerName)
	}

	// 1 GBP = 4.3 ILS, 4 USD = 14.8 ILS
	row.Slots[0] = slot("A", catalog.StatusValid, "4", "GBP", 1)
	row.Slots[1] = slot("B", catalog.StatusValid, "4", "USD", 1)
	row.Slots[2] = slot("C", catalog.StatusNotFound, "0.01", "ILS", 0)
	Recalculate(&row, rates(), Pricing{SellCurrency: "ILS"}, day1)
	if row.WinnerName != "B" {
		t.Fatalf("lower normalized cost wins, got %q", row.WinnerName)
	}
}

func TestSelectWinner_UnparseableCostNeverWins(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = catalog.SupplierSlot{Name: "BROKEN", Status: catalog.StatusValid, Stock: 99999}
	row.Slots[1] = slot("OK", catalog.StatusValid, "500", "ILS", 1)

	Recalculate(&row, rates(), Pricing{SellCurrency: "ILS"}, day1)
	if row.WinnerName != "OK" {
		t.Fatalf("sentinel cost must lose, got %q", row.WinnerName)
	}
}

func TestRecalculate_Aggregates(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = slot("FARNELL", catalog.StatusValid, "10", "GBP", 7)
	row.Slots[0].LeadTime = "3 Weeks"
	row.Slots[0].MOQ = 2
	row.Slots[0].Multiple = 2

	Recalculate(&row, rates(), stdPricing(), day1)

	// 10 * 4.3 = 43; 43 * 1.18 = 50.74
	if !row.PriceWithVAT.Decimal.Equal(decimal.RequireFromString("50.74")) {
		t.Fatalf("price with vat: %s", row.PriceWithVAT.Decimal)
	}
	if !row.RealCost.Decimal.Equal(decimal.NewFromInt(43)) || !row.VAT.Decimal.Equal(decimal.RequireFromString("7.74")) {
		t.Fatalf("real cost / vat: %s / %s", row.RealCost.Decimal, row.VAT.Decimal)
	}
	if row.Stock != 7 || row.Currency != "GBP" || row.LeadTime != "3 Weeks" || row.MOQ != 2 || row.SellCurrency != "ILS" {
		t.Fatalf("aggregates not copied: %+v", row)
	}
	if !row.ShowInCatalog || row.DropDate != nil || row.DateUpdated == nil {
		t.Fatalf("winner flags: %+v", row)
	}
}

func TestRecalculate_DropDateWrittenOnce(t *testing.T) {
	row := catalog.Row{}
	row.Slots[0] = slot("FARNELL", catalog.StatusValid, "10", "GBP", 7)
	Recalculate(&row, rates(), stdPricing(), day1)
	if !row.ShowInCatalog {
		t.Fatalf("should be shown")
	}

	row.Slots[0].Status = catalog.StatusNotFound
	Recalculate(&row, rates(), stdPricing(), day1)
	if row.ShowInCatalog || row.DropDate == nil || row.Stock != 0 || row.WinnerSlot != 0 {
		t.Fatalf("no winner state: %+v", row)
	}
	first := *row.DropDate

	Recalculate(&row, rates(), stdPricing(), day2)
	if !row.DropDate.Equal(first) {
		t.Fatalf("drop date re-dated: %v -> %v", first, *row.DropDate)
	}

	row.Slots[0].Status = catalog.StatusValid
	Recalculate(&row, rates(), stdPricing(), day2)
	if row.DropDate != nil || !row.ShowInCatalog {
		t.Fatalf("drop date must clear when a valid slot returns: %+v", row)
	}
}

func TestNewRow(t *testing.T) {
	rec := validRecord()
	rec.USStock = true
	row := NewRow(rec)
	if row.SKU != "7654321" || row.Name != "LM358N" || !row.USStock {
		t.Fatalf("new row: %+v", row)
	}
	if catalog.DeriveSKU(row.SKU) != rec.SupplierSKU {
		t.Fatalf("sku transform must be reversible")
	}
}
