// internal/sheet/columns.go
package sheet

import (
	"fmt"

	"github.com/bartek5186/pimsync/internal/catalog"
)

const (
	ProductsSheet  = "Products"
	FinancialSheet = "Financial Variables"
	ChangesSheet   = "Changes Log"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// kolumny statyczne i agregaty – w tej kolejności w arkuszu
var (
	headColumns = []string{
		"Product Name", "SKU", "Manufacturer", "Manufacturer Part Number", "Description",
		"Best Supplier Name", "Best Supplier Slot",
		"Cost", "Buy Currency", "Real ILS Cost", "Price No VAT", "VAT", "Price With VAT", "Sell Currency",
		"Stock", "Lead Time", "MOQ", "Multiple", "Hazardous", "US Stock", "Show in Catalog", "Drop Date",
	}
	slotFields = []string{
		"Name", "SKU", "Status", "Cost", "Currency", "Cost ILS", "Stock", "Lead Time",
		"MOQ", "Multiple", "Category", "Last Checked",
	}
	tailColumns = []string{"Image", "Datasheet", "Date Updated"}

	changeColumns = []string{"ID", "Timestamp", "SKU", "Field", "Old Value", "New Value", "Change Type", "Details"}
)

// kolumna tylko do prezentacji (formuła), przy odczycie ignorowana
const slotFormulaField = "Cost ILS"

func slotColumn(i int, field string) string { return fmt.Sprintf("Supplier %d %s", i, field) }

// Columns – pełna lista nagłówków arkusza Products
func Columns() []string {
	out := append([]string(nil), headColumns...)
	for i := 1; i <= catalog.MaxSlots; i++ {
		for _, f := range slotFields {
			out = append(out, slotColumn(i, f))
		}
	}
	return append(out, tailColumns...)
}
