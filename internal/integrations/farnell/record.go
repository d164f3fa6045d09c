// internal/integrations/farnell/record.go
package farnell

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/reconcile"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

const (
	imageBaseUS = "https://www.newark.com/productimages/standard/en_US"
	imageBaseUK = "https://uk.farnell.com/productimages/standard/en_GB"

	leadTimeUnknown   = "Unknown"
	leadTimeLastStock = "Available until stock lasts"
)

var textPolicy = bluemonday.StrictPolicy()

func toRecord(p apiProduct, currency string) *catalog.ProductRecord {
	warehouse := warehouseRegion(p.Stock)
	stock := int(numInt(p.Inv))
	status := strings.TrimSpace(p.ProductStatus)
	if status == "" {
		status = "Unknown"
	}

	name := cleanText(p.TranslatedMPN)
	if name == "" {
		name = cleanText(p.DisplayName)
	}
	mpn := strings.TrimSpace(p.ManufacturerPartNo)
	if mpn == "" {
		mpn = strings.TrimSpace(p.TranslatedMPN)
	}
	moq := int(numInt(p.TranslatedMinimumQty))
	if moq <= 0 {
		moq = 1
	}
	category := strings.TrimSpace(p.CommodityClassCode)
	if category == "" {
		category = "Needs Mapping"
	}

	rec := &catalog.ProductRecord{
		SupplierSKU:  strings.TrimSpace(p.SKU),
		Name:         name,
		Description:  cleanText(p.DisplayName),
		Manufacturer: cleanText(p.BrandName),
		MPN:          mpn,
		Cost:         priceForQty1(p.Prices),
		Currency:     currency,
		Stock:        stock,
		LeadTime:     leadTime(status, stock, p.Stock),
		Status:       status,
		Warehouse:    warehouse,
		DirectShip:   directShip(p),
		Hazardous:    hazardous(p.Attributes),
		USStock:      warehouse == "USA",
		Category:     category,
		ImageURL:     imageURL(p.Image, warehouse),
		MOQ:          moq,
		Multiple:     moq,
	}
	if len(p.Datasheets) > 0 {
		rec.DatasheetURL = strings.TrimSpace(p.Datasheets[0].URL)
	}
	return rec
}

// priceForQty1 – cena z progu obejmującego 1 szt., inaczej pierwszy próg
func priceForQty1(prices []apiPrice) decimal.Decimal {
	for _, p := range prices {
		from, err := p.From.Int64()
		if err != nil && p.From != "" {
			continue
		}
		to := int64(math.MaxInt64)
		if p.To != "" {
			if to, err = p.To.Int64(); err != nil {
				continue
			}
		}
		if from <= 1 && 1 <= to {
			return numDec(p.Cost)
		}
	}
	if len(prices) > 0 {
		return numDec(prices[0].Cost)
	}
	return decimal.Zero
}

// warehouseRegion – "USA" gdy jakikolwiek magazyn w US ma towar
func warehouseRegion(s *apiStock) string {
	if s == nil {
		return "UK"
	}
	for _, wh := range s.Breakdown {
		if numInt(wh.Inv) <= 0 {
			continue
		}
		region := strings.ToUpper(strings.TrimSpace(wh.Region))
		if region == "US" || region == "USA" || strings.Contains(strings.ToUpper(wh.Warehouse), "US") {
			return "USA"
		}
	}
	return "UK"
}

func directShip(p apiProduct) bool {
	if strings.Contains(strings.ToUpper(p.ProductStatus), "DIRECT") {
		return true
	}
	if p.Stock == nil {
		return false
	}
	for _, wh := range p.Stock.Breakdown {
		if strings.Contains(strings.ToUpper(wh.Warehouse), "DIRECT") {
			return true
		}
	}
	return false
}

func hazardous(attrs []apiAttribute) bool {
	for _, a := range attrs {
		if strings.EqualFold(strings.TrimSpace(a.Label), "hazardous") {
			return strings.EqualFold(strings.TrimSpace(a.Value), "true")
		}
	}
	return false
}

func leadTime(status string, stock int, s *apiStock) string {
	if reconcile.IsBadStatus(status) && stock > 0 {
		return leadTimeLastStock
	}
	if s == nil || s.LeastLeadTime == nil {
		return leadTimeUnknown
	}
	days, err := s.LeastLeadTime.Float64()
	if err != nil {
		return leadTimeUnknown
	}
	return fmt.Sprintf("%d Weeks", int(math.Ceil(days/7)))
}

func imageURL(img *apiImage, warehouse string) string {
	if img == nil {
		return ""
	}
	base := strings.TrimSpace(img.BaseName)
	switch {
	case base == "":
		return ""
	case strings.HasPrefix(base, "http"):
		return base
	case warehouse == "USA":
		return imageBaseUS + base
	default:
		return imageBaseUK + base
	}
}

// cleanText zdejmuje ewentualne tagi HTML z pól tekstowych API
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func numInt(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return int64(f)
}

func numDec(n json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
