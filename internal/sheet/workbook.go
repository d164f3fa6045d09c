// internal/sheet/workbook.go
package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type styles struct {
	header int
	zebra  int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.zebra, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
	})
	if err != nil {
		return st, fmt.Errorf("zebra style: %w", err)
	}
	st.money, err = f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	return st, nil
}

func writeHeader(f *excelize.File, sheet string, cols []string, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(cols))
	return f.SetCellStyle(sheet, "A1", last+"1", style)
}

func layoutProducts(f *excelize.File, cols []string, rows int) error {
	for i, c := range cols {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := 14.0
		switch {
		case c == "Product Name" || c == "Description":
			width = 40
		case c == "Image" || c == "Datasheet" || strings.HasSuffix(c, "Lead Time"):
			width = 28
		}
		if err := f.SetColWidth(ProductsSheet, name, name, width); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(ProductsSheet, 1, 30); err != nil {
		return err
	}
	if err := f.SetPanes(ProductsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(cols))
	return f.AutoFilter(ProductsSheet, fmt.Sprintf("A1:%s%d", last, rows+1), nil)
}

// writeFinancialSheet: waluta | kurs | data aktualizacji, potem stała VAT.
// Zwraca zakres do VLOOKUP.
func writeFinancialSheet(f *excelize.File, rates pricing.Rates, vat decimal.Decimal, now time.Time, st styles) (string, error) {
	if _, err := f.NewSheet(FinancialSheet); err != nil {
		return "", err
	}
	if err := writeHeader(f, FinancialSheet, []string{"Currency", "Rate", "Updated"}, st.header); err != nil {
		return "", err
	}

	updated := now.Format(dateTimeLayout)
	codes := append([]string{rates.Base}, rates.Codes()...)
	for i, code := range codes {
		row := []interface{}{code, rates.Rate(code).InexactFloat64(), updated}
		if err := f.SetSheetRow(FinancialSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return "", err
		}
	}
	lastRate := len(codes) + 1

	vatRow := []interface{}{"VAT", vat.InexactFloat64()}
	if err := f.SetSheetRow(FinancialSheet, fmt.Sprintf("A%d", lastRate+2), &vatRow); err != nil {
		return "", err
	}
	if err := f.SetCellStyle(FinancialSheet, "B2", fmt.Sprintf("B%d", lastRate), st.money); err != nil {
		return "", err
	}
	if err := f.SetColWidth(FinancialSheet, "A", "C", 20); err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s'!$A$2:$B$%d", FinancialSheet, lastRate), nil
}

// ReadRates odczytuje migawkę kursów i VAT z arkusza Financial Variables.
func ReadRates(path string) (pricing.Rates, decimal.Decimal, error) {
	rows, err := readSheet(path, FinancialSheet)
	if err != nil {
		return pricing.Rates{}, decimal.Zero, err
	}
	base := ""
	table := map[string]decimal.Decimal{}
	vat := decimal.Zero
	for i, r := range rows {
		if i == 0 || len(r) < 2 {
			continue
		}
		v, err := decimal.NewFromString(strings.TrimSpace(r[1]))
		if err != nil {
			continue
		}
		code := strings.TrimSpace(r[0])
		switch {
		case code == "VAT":
			vat = v
		case base == "":
			base = code
		default:
			table[code] = v
		}
	}
	return pricing.NewRates(base, table), vat, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if i, err := f.GetSheetIndex(sheet); err != nil || i < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", path, sheet, err)
	}
	return rows, nil
}

// saveAs – zapis do pliku tymczasowego i podmiana; stary skoroszyt zostaje przy błędzie
func saveAs(f *excelize.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	ext := filepath.Ext(path)
	tmp := strings.TrimSuffix(path, ext) + ".tmp" + ext
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
