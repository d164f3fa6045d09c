package reconcile

import (
	"strings"

	"github.com/bartek5186/pimsync/internal/catalog"
)

// NotFound – Locate nie znalazł wiersza, trzeba utworzyć nowy
const NotFound = -1

// Locate szuka istniejącego wiersza: najpierw po MPN, potem po parze
// (SKU dostawcy, nazwa dostawcy) w kolejnych slotach. Zwraca pierwszy trafiony indeks.
func Locate(t *catalog.Table, mpn, inputID, supplier string) int {
	if t == nil {
		return NotFound
	}
	if m := strings.TrimSpace(mpn); m != "" {
		for i := range t.Rows {
			if strings.TrimSpace(t.Rows[i].MPN) == m {
				return i
			}
		}
	}

	id := strings.TrimSpace(inputID)
	if id == "" {
		return NotFound
	}
	for s := 0; s < catalog.MaxSlots; s++ {
		for i := range t.Rows {
			slot := t.Rows[i].Slots[s]
			if strings.TrimSpace(slot.SKU) == id && strings.EqualFold(strings.TrimSpace(slot.Name), supplier) {
				return i
			}
		}
	}
	return NotFound
}

// DuplicateMPNs zwraca MPN-y występujące w więcej niż jednym wierszu (indeksy wierszy).
func DuplicateMPNs(t *catalog.Table) map[string][]int {
	seen := make(map[string][]int)
	for i, r := range t.Rows {
		m := strings.TrimSpace(r.MPN)
		if m == "" {
			continue
		}
		seen[m] = append(seen[m], i)
	}
	out := make(map[string][]int)
	for m, idx := range seen {
		if len(idx) > 1 {
			out[m] = idx
		}
	}
	return out
}
