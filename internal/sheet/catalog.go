// internal/sheet/catalog.go
package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// CatalogStore – katalog jako skoroszyt xlsx (arkusz Products + Financial Variables).
type CatalogStore struct {
	path    string
	vatRate decimal.Decimal
	now     func() time.Time
}

func NewCatalogStore(path string, vatRate decimal.Decimal) *CatalogStore {
	return &CatalogStore{path: path, vatRate: vatRate, now: time.Now}
}

func (s *CatalogStore) Path() string { return s.path }

// Load czyta arkusz Products. Brak pliku = pusty katalog.
func (s *CatalogStore) Load(ctx context.Context) (*catalog.Table, error) {
	rows, err := readSheet(s.path, ProductsSheet)
	if errors.Is(err, os.ErrNotExist) {
		return &catalog.Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &catalog.Table{}, nil
	}

	idx := headerIndex(rows[0])
	t := &catalog.Table{}
	for _, cells := range rows[1:] {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}
		r := parseRow(get)
		if r.SKU == "" && r.Name == "" && r.MPN == "" {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

// Save nadpisuje skoroszyt w całości.
func (s *CatalogStore) Save(ctx context.Context, t *catalog.Table, rates pricing.Rates) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ProductsSheet); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	cols := Columns()
	if err := writeHeader(f, ProductsSheet, cols, st.header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(cols))

	finRange, err := writeFinancialSheet(f, rates, s.vatRate, s.now(), st)
	if err != nil {
		return err
	}

	for i, r := range t.Rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		excelRow := i + 2
		vals := rowValues(r)
		line := make([]interface{}, len(cols))
		for c, name := range cols {
			line[c] = vals[name]
		}
		cell, _ := excelize.CoordinatesToCellName(1, excelRow)
		if err := f.SetSheetRow(ProductsSheet, cell, &line); err != nil {
			return fmt.Errorf("row %d: %w", excelRow, err)
		}
		if err := writeSlotFormulas(f, cols, excelRow, finRange); err != nil {
			return err
		}
		if excelRow%2 == 1 {
			if err := f.SetCellStyle(ProductsSheet, "A"+strconv.Itoa(excelRow), last+strconv.Itoa(excelRow), st.zebra); err != nil {
				return err
			}
		}
	}

	if err := layoutProducts(f, cols, t.Len()); err != nil {
		return err
	}
	return saveAs(f, s.path)
}

// wartości komórek wiersza, klucz = nagłówek
func rowValues(r catalog.Row) map[string]interface{} {
	v := map[string]interface{}{
		"Product Name":             r.Name,
		"SKU":                      r.SKU,
		"Manufacturer":             r.Manufacturer,
		"Manufacturer Part Number": r.MPN,
		"Description":              r.Description,
		"Best Supplier Name":       r.WinnerName,
		"Best Supplier Slot":       intCell(r.WinnerSlot),
		"Cost":                     decCell(r.Cost),
		"Buy Currency":             r.Currency,
		"Real ILS Cost":            decCell(r.RealCost),
		"Price No VAT":             decCell(r.PriceNoVAT),
		"VAT":                      decCell(r.VAT),
		"Price With VAT":           decCell(r.PriceWithVAT),
		"Sell Currency":            r.SellCurrency,
		"Stock":                    r.Stock,
		"Lead Time":                r.LeadTime,
		"MOQ":                      intCell(r.MOQ),
		"Multiple":                 intCell(r.Multiple),
		"Hazardous":                r.Hazardous,
		"US Stock":                 r.USStock,
		"Show in Catalog":          r.ShowInCatalog,
		"Drop Date":                dateCell(r.DropDate),
		"Image":                    r.Image,
		"Datasheet":                r.Datasheet,
		"Date Updated":             dateCell(r.DateUpdated),
	}
	for i, sl := range r.Slots {
		n := i + 1
		if sl.Empty() {
			continue
		}
		v[slotColumn(n, "Name")] = sl.Name
		v[slotColumn(n, "SKU")] = sl.SKU
		v[slotColumn(n, "Status")] = string(sl.Status)
		v[slotColumn(n, "Cost")] = decCell(sl.Cost)
		v[slotColumn(n, "Currency")] = sl.Currency
		v[slotColumn(n, "Stock")] = sl.Stock
		v[slotColumn(n, "Lead Time")] = sl.LeadTime
		v[slotColumn(n, "MOQ")] = intCell(sl.MOQ)
		v[slotColumn(n, "Multiple")] = intCell(sl.Multiple)
		v[slotColumn(n, "Category")] = sl.Category
		if !sl.LastChecked.IsZero() {
			v[slotColumn(n, "Last Checked")] = sl.LastChecked.UTC().Format(dateTimeLayout)
		}
	}
	return v
}

func parseRow(get func(string) string) catalog.Row {
	r := catalog.Row{
		Name:          get("Product Name"),
		SKU:           get("SKU"),
		Manufacturer:  get("Manufacturer"),
		MPN:           get("Manufacturer Part Number"),
		Description:   get("Description"),
		WinnerName:    get("Best Supplier Name"),
		WinnerSlot:    parseInt(get("Best Supplier Slot")),
		Cost:          parseDec(get("Cost")),
		Currency:      get("Buy Currency"),
		RealCost:      parseDec(get("Real ILS Cost")),
		PriceNoVAT:    parseDec(get("Price No VAT")),
		VAT:           parseDec(get("VAT")),
		PriceWithVAT:  parseDec(get("Price With VAT")),
		SellCurrency:  get("Sell Currency"),
		Stock:         parseInt(get("Stock")),
		LeadTime:      get("Lead Time"),
		MOQ:           parseInt(get("MOQ")),
		Multiple:      parseInt(get("Multiple")),
		Hazardous:     parseBool(get("Hazardous")),
		USStock:       parseBool(get("US Stock")),
		ShowInCatalog: parseBool(get("Show in Catalog")),
		DropDate:      parseDate(get("Drop Date")),
		Image:         get("Image"),
		Datasheet:     get("Datasheet"),
		DateUpdated:   parseDate(get("Date Updated")),
	}
	for i := range r.Slots {
		n := i + 1
		name := get(slotColumn(n, "Name"))
		if name == "" {
			continue
		}
		r.Slots[i] = catalog.SupplierSlot{
			Name:     name,
			SKU:      get(slotColumn(n, "SKU")),
			Status:   catalog.ParseStatus(get(slotColumn(n, "Status"))),
			Cost:     parseDec(get(slotColumn(n, "Cost"))),
			Currency: get(slotColumn(n, "Currency")),
			Stock:    parseInt(get(slotColumn(n, "Stock"))),
			LeadTime: get(slotColumn(n, "Lead Time")),
			MOQ:      parseInt(get(slotColumn(n, "MOQ"))),
			Multiple: parseInt(get(slotColumn(n, "Multiple"))),
			Category: get(slotColumn(n, "Category")),
		}
		if t, err := time.Parse(dateTimeLayout, get(slotColumn(n, "Last Checked"))); err == nil {
			r.Slots[i].LastChecked = t
		}
	}
	return r
}

// Supplier N Cost ILS = koszt * kurs z arkusza Financial Variables
func writeSlotFormulas(f *excelize.File, cols []string, excelRow int, finRange string) error {
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i + 1
	}
	for n := 1; n <= catalog.MaxSlots; n++ {
		costCell, _ := excelize.CoordinatesToCellName(pos[slotColumn(n, "Cost")], excelRow)
		curCell, _ := excelize.CoordinatesToCellName(pos[slotColumn(n, "Currency")], excelRow)
		target, _ := excelize.CoordinatesToCellName(pos[slotColumn(n, slotFormulaField)], excelRow)
		formula := fmt.Sprintf(`IF(%s="","",%s*IFERROR(VLOOKUP(%s,%s,2,FALSE),1))`, costCell, costCell, curCell, finRange)
		if err := f.SetCellFormula(ProductsSheet, target, formula); err != nil {
			return err
		}
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup && h != "" {
			idx[h] = i
		}
	}
	return idx
}

func decCell(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func intCell(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func dateCell(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// parseDec – pusta albo nieczytelna wartość -> Valid=false
func parseDec(s string) decimal.NullDecimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseInt(s string) int {
	d := parseDec(s)
	if !d.Valid {
		return 0
	}
	return int(d.Decimal.IntPart())
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, dateTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	// data zapisana przez Excela jako liczba seryjna
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return &t
		}
	}
	return nil
}
