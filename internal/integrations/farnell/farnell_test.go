package farnell

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/integrations"
	"github.com/bartek5186/pimsync/internal/reconcile"
	"github.com/rs/zerolog"
)

const productJSON = `{
  "premierFarnellPartNumberReturn": {
    "numberOfResults": 1,
    "products": [{
      "sku": "1234567",
      "displayName": "LM358N -  Operational Amplifier, <b>Dual</b>",
      "productStatus": "STOCKED",
      "brandName": "Texas Instruments",
      "translatedManufacturerPartNumber": "LM358N",
      "inv": 120,
      "commodityClassCode": "070500",
      "translatedMinimumOrderQuality": 5,
      "prices": [
        {"from": 10, "to": 99, "cost": 0.35},
        {"from": 1, "to": 9, "cost": 0.42}
      ],
      "stock": {
        "level": 120,
        "leastLeadTime": 10,
        "breakdown": [{"inv": 120, "region": "UK", "warehouse": "UK1"}]
      },
      "image": {"baseName": "/42269483.jpg"},
      "datasheets": [{"url": "https://example.com/lm358.pdf"}, {"url": "https://example.com/other.pdf"}],
      "attributes": [{"attributeLabel": "Hazardous", "attributeValue": "false"}]
    }]
  }
}`

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(zerolog.Nop(), Config{BaseURL: srv.URL, APIKey: "key", SecretKey: "secret", CustomerID: "42", RequestsPerMinute: 6000})
	c.now = func() time.Time { return time.Date(2026, 3, 1, 10, 20, 30, 123000000, time.UTC) }
	return c
}

func TestSign(t *testing.T) {
	got := Sign("secret", "searchByPremierFarnellPartNumber", "2026-03-01T10:20:30.123")
	if got != "U9CzraT+TUMqVWT1T0P63aDNWhw=" {
		t.Fatalf("signature %q", got)
	}
}

func TestFetch_MapsProduct(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("term") != "id:1234567" {
			t.Errorf("term = %q", q.Get("term"))
		}
		if q.Get("userInfo.timestamp") != "2026-03-01T10:20:30.123" {
			t.Errorf("timestamp = %q", q.Get("userInfo.timestamp"))
		}
		if want := Sign("secret", opName, "2026-03-01T10:20:30.123"); q.Get("userInfo.signature") != want {
			t.Errorf("signature = %q, want %q", q.Get("userInfo.signature"), want)
		}
		if q.Get("storeInfo.id") != "il.farnell.com" || q.Get("callInfo.apiKey") != "key" {
			t.Errorf("query: %v", q)
		}
		w.Write([]byte(productJSON))
	})

	rec, err := c.Fetch(context.Background(), " 1234567 ")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec.SupplierSKU != "1234567" || rec.Name != "LM358N" || rec.MPN != "LM358N" || rec.Manufacturer != "Texas Instruments" {
		t.Fatalf("identity: %+v", rec)
	}
	if rec.Description != "LM358N -  Operational Amplifier, Dual" {
		t.Fatalf("description: %q", rec.Description)
	}
	if rec.Cost.String() != "0.42" || rec.Currency != "GBP" {
		t.Fatalf("cost: %s %s", rec.Cost, rec.Currency)
	}
	if rec.Stock != 120 || rec.LeadTime != "2 Weeks" || rec.MOQ != 5 || rec.Multiple != 5 {
		t.Fatalf("logistics: %+v", rec)
	}
	if rec.Warehouse != "UK" || rec.USStock || rec.DirectShip || rec.Hazardous {
		t.Fatalf("flags: %+v", rec)
	}
	if rec.ImageURL != imageBaseUK+"/42269483.jpg" || rec.DatasheetURL != "https://example.com/lm358.pdf" {
		t.Fatalf("assets: %q %q", rec.ImageURL, rec.DatasheetURL)
	}
	if rec.Category != "070500" {
		t.Fatalf("category: %q", rec.Category)
	}
	if reconcile.Classify(rec) != catalog.StatusValid {
		t.Fatalf("classified as %s", reconcile.Classify(rec))
	}
}

func TestFetch_NotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"premierFarnellPartNumberReturn":{"numberOfResults":0}}`))
	})
	_, err := c.Fetch(context.Background(), "999")
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFetch_HTTPErrorIsFetchError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})
	_, err := c.Fetch(context.Background(), "1234567")
	var fe *integrations.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want FetchError, got %v", err)
	}
	if fe.Supplier != SupplierName || fe.ID != "1234567" || fe.Reason != "http 403" {
		t.Fatalf("fetch error: %+v", fe)
	}
	if integrations.IsNotFound(err) {
		t.Fatal("http error must not look like not found")
	}
}

func TestFetch_BadJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"premierFarnellPartNumberReturn":`))
	})
	_, err := c.Fetch(context.Background(), "1")
	var fe *integrations.FetchError
	if !errors.As(err, &fe) || fe.Reason != "decode" {
		t.Fatalf("got %v", err)
	}
}

func TestToRecord_USWarehouseAndDirectShip(t *testing.T) {
	p := apiProduct{
		SKU:           "555",
		DisplayName:   "Relay",
		ProductStatus: "DIRECT_SHIP",
		Inv:           "3",
		Prices:        []apiPrice{{From: "1", To: "10", Cost: "2.5"}},
		Stock: &apiStock{Breakdown: []apiWarehouse{
			{Inv: "0", Region: "US", Warehouse: "US1"},
			{Inv: "3", Region: "UK", Warehouse: "DIRECT_UK"},
		}},
		Image: &apiImage{BaseName: "/1.jpg"},
	}
	rec := toRecord(p, "GBP")
	if rec.Warehouse != "UK" || !rec.DirectShip {
		t.Fatalf("empty US warehouse must not count: %+v", rec)
	}
	if reconcile.Classify(rec) != catalog.StatusDirectShip {
		t.Fatalf("got %s", reconcile.Classify(rec))
	}

	p.Stock.Breakdown[0].Inv = "7"
	rec = toRecord(p, "GBP")
	if rec.Warehouse != "USA" || !rec.USStock || rec.ImageURL != imageBaseUS+"/1.jpg" {
		t.Fatalf("us stock: %+v", rec)
	}
	if reconcile.Classify(rec) != catalog.StatusValid {
		t.Fatalf("us stock should override direct ship, got %s", reconcile.Classify(rec))
	}
	if rec.Name != "Relay" || rec.MOQ != 1 || rec.Category != "Needs Mapping" {
		t.Fatalf("defaults: %+v", rec)
	}
}

func TestLeadTime(t *testing.T) {
	days := func(s string) *apiStock {
		n := json.Number(s)
		return &apiStock{LeastLeadTime: &n}
	}
	cases := []struct {
		status string
		stock  int
		s      *apiStock
		want   string
	}{
		{"NO_LONGER_STOCKED", 4, days("14"), leadTimeLastStock},
		{"NLM", 0, days("8"), "2 Weeks"},
		{"STOCKED", 0, days("7"), "1 Weeks"},
		{"STOCKED", 0, nil, leadTimeUnknown},
	}
	for _, c := range cases {
		if got := leadTime(c.status, c.stock, c.s); got != c.want {
			t.Errorf("leadTime(%s, %d) = %q, want %q", c.status, c.stock, got, c.want)
		}
	}
}

func TestPriceForQty1_FallsBackToFirstTier(t *testing.T) {
	got := priceForQty1([]apiPrice{{From: "5", To: "9", Cost: "1.10"}, {From: "10", To: "", Cost: "0.90"}})
	if got.String() != "1.1" {
		t.Fatalf("got %s", got)
	}
	if !priceForQty1(nil).IsZero() {
		t.Fatal("no prices should give zero")
	}
}

func TestRegistry(t *testing.T) {
	f, err := integrations.New("farnell", zerolog.Nop(), []byte(`{"api_key":"k"}`))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if f.Name() != SupplierName {
		t.Fatalf("name %q", f.Name())
	}
	if _, err := integrations.New("nope", zerolog.Nop(), nil); err == nil {
		t.Fatal("unknown supplier should fail")
	}
}
