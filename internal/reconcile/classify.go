// Package reconcile holds the multi-supplier rules: validity, row lookup,
// slot assignment and winner selection.
package reconcile

import (
	"strings"

	"github.com/bartek5186/pimsync/internal/catalog"
)

var (
	homeRegions = map[string]bool{"USA": true, "US": true}

	nlmStatuses = map[string]bool{"NO_LONGER_MANUFACTURED": true, "NLM": true}
	nlsStatuses = map[string]bool{"NO_LONGER_STOCKED": true, "NLS": true, "OBSOLETE": true}
)

func normStatus(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// IsBadStatus – status "wycofany" (NLS/NLM/obsolete)
func IsBadStatus(raw string) bool {
	s := normStatus(raw)
	return nlmStatuses[s] || nlsStatuses[s]
}

// Classify zwraca szczegółowy status rekordu. Kolejność reguł ma znaczenie:
// magazyn w regionie macierzystym wygrywa ze wszystkim, także z direct-ship.
func Classify(rec *catalog.ProductRecord) catalog.Status {
	if rec == nil {
		return catalog.StatusNotFound
	}
	if homeRegions[strings.ToUpper(strings.TrimSpace(rec.Warehouse))] {
		return catalog.StatusValid
	}

	status := normStatus(rec.Status)
	if rec.DirectShip || strings.Contains(status, "DIRECT") {
		return catalog.StatusDirectShip
	}

	if rec.Stock == 0 {
		if nlmStatuses[status] {
			return catalog.StatusNoLongerManufactured
		}
		if nlsStatuses[status] { // OBSOLETE też ląduje tutaj
			return catalog.StatusNoLongerStocked
		}
	}

	if !rec.Cost.IsPositive() || strings.TrimSpace(rec.Name) == "" {
		return catalog.StatusError
	}
	return catalog.StatusValid
}

// Sellable – czy status pozwala na sprzedaż
func Sellable(s catalog.Status) bool { return s == catalog.StatusValid }
