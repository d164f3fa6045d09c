package reconcile

import (
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/shopspring/decimal"
)

// FindTargetSlot zwraca slot (1..MaxSlots) dla dostawcy.
// update=true – dostawca już siedzi w tym slocie; ok=false – brak miejsca.
func FindTargetSlot(row *catalog.Row, supplier string) (idx int, update bool, ok bool) {
	name := strings.TrimSpace(supplier)
	for i := range row.Slots {
		if !row.Slots[i].Empty() && strings.EqualFold(strings.TrimSpace(row.Slots[i].Name), name) {
			return i + 1, true, true
		}
	}
	for i := range row.Slots {
		if row.Slots[i].Empty() {
			return i + 1, false, true
		}
	}
	return 0, false, false
}

// UpdateSlot zapisuje dane dostawcy do slotu i uzupełnia puste pola statyczne
// (pierwszy zapis wygrywa – kolejni dostawcy nie nadpisują).
func UpdateSlot(row *catalog.Row, idx int, rec *catalog.ProductRecord, supplier string, status catalog.Status, now time.Time) {
	slot := row.Slot(idx)
	if slot == nil || rec == nil {
		return
	}
	slot.Name = supplier
	slot.Status = status
	slot.LastChecked = now
	slot.SKU = rec.SupplierSKU
	slot.Cost = decimal.NewNullDecimal(rec.Cost)
	slot.Currency = strings.ToUpper(strings.TrimSpace(rec.Currency))
	slot.Stock = rec.Stock
	slot.LeadTime = rec.LeadTime
	slot.MOQ = rec.MOQ
	slot.Multiple = rec.Multiple
	slot.Category = rec.Category

	fillStatic(row, rec)
}

// MarkSlotNotFound – produkt zniknął u dostawcy. Koszt zostaje jako ostatnia znana cena.
// Jeśli dostawca nie ma slotu w wierszu – nic się nie dzieje.
func MarkSlotNotFound(row *catalog.Row, supplier string, now time.Time) bool {
	idx, update, ok := FindTargetSlot(row, supplier)
	if !ok || !update {
		return false
	}
	slot := row.Slot(idx)
	slot.Status = catalog.StatusNotFound
	slot.Stock = 0
	slot.LastChecked = now
	return true
}

// NewRow tworzy wiersz dla produktu, którego jeszcze nie ma w katalogu.
func NewRow(rec *catalog.ProductRecord) catalog.Row {
	row := catalog.Row{SKU: catalog.DeriveSKU(rec.SupplierSKU)}
	fillStatic(&row, rec)
	row.USStock = rec.USStock
	return row
}

func fillStatic(row *catalog.Row, rec *catalog.ProductRecord) {
	setIfEmpty(&row.Name, rec.Name)
	setIfEmpty(&row.Manufacturer, rec.Manufacturer)
	setIfEmpty(&row.MPN, rec.MPN)
	setIfEmpty(&row.Description, rec.Description)
	if !row.Hazardous && rec.Hazardous {
		row.Hazardous = true
	}
}

func setIfEmpty(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}
