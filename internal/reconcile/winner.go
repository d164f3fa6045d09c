package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/shopspring/decimal"
)

// RateSource – kurs waluty względem waluty bazowej (pricing.Rates)
type RateSource interface {
	Rate(code string) decimal.Decimal
}

// SentinelCost – koszt porównawczy dla slotu z nieczytelną ceną, żeby nigdy nie wygrał
var SentinelCost = decimal.NewFromInt(999999)

// Pricing – stałe potrzebne do przeliczenia wiersza
type Pricing struct {
	PreferredSupplier string          // dopasowanie podciągiem, bez rozróżniania wielkości liter
	SellCurrency      string          // jedna waluta raportowa katalogu
	VATRate           decimal.Decimal // np. 0.18
}

// Candidate – ważny slot biorący udział w wyborze
type Candidate struct {
	Slot     int
	Name     string
	Cost     decimal.Decimal // koszt po przeliczeniu na walutę bazową
	Stock    int
	Currency string
}

// Candidates zbiera sloty o statusie Valid.
func Candidates(row *catalog.Row, rates RateSource) []Candidate {
	var out []Candidate
	for i, s := range row.Slots {
		if s.Empty() || s.Status != catalog.StatusValid {
			continue
		}
		out = append(out, Candidate{
			Slot:     i + 1,
			Name:     s.Name,
			Cost:     NormalizedCost(s.Cost, s.Currency, rates),
			Stock:    s.Stock,
			Currency: s.Currency,
		})
	}
	return out
}

// NormalizedCost = koszt * kurs; brak/niepoprawna cena -> SentinelCost.
func NormalizedCost(cost decimal.NullDecimal, currency string, rates RateSource) decimal.Decimal {
	if !cost.Valid {
		return SentinelCost
	}
	return cost.Decimal.Mul(rates.Rate(currency))
}

// SelectWinner: preferowany dostawca wygrywa od razu, potem najniższy koszt,
// przy równym koszcie większy stan. Nil gdy brak kandydatów.
func SelectWinner(cands []Candidate, preferred string) *Candidate {
	if len(cands) == 0 {
		return nil
	}
	if p := strings.ToUpper(strings.TrimSpace(preferred)); p != "" {
		for i := range cands {
			if strings.Contains(strings.ToUpper(cands[i].Name), p) {
				return &cands[i]
			}
		}
	}

	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Cost.Cmp(sorted[j].Cost); c != 0 {
			return c < 0
		}
		return sorted[i].Stock > sorted[j].Stock
	})
	return &sorted[0]
}

// Recalculate wybiera zwycięzcę i przepisuje pola agregatów do wiersza.
func Recalculate(row *catalog.Row, rates RateSource, p Pricing, now time.Time) *Candidate {
	row.SellCurrency = strings.ToUpper(strings.TrimSpace(p.SellCurrency))
	today := truncateDay(now)

	winner := SelectWinner(Candidates(row, rates), p.PreferredSupplier)
	if winner == nil {
		row.WinnerName = ""
		row.WinnerSlot = 0
		clearAggregates(row)

		if row.ShowInCatalog || row.DropDate == nil {
			row.DropDate = &today
		}
		row.ShowInCatalog = false
		row.Stock = 0
		return nil
	}

	slot := row.Slot(winner.Slot)
	row.WinnerName = slot.Name
	row.WinnerSlot = winner.Slot
	row.Cost = slot.Cost
	row.Currency = slot.Currency
	row.Stock = slot.Stock
	row.LeadTime = slot.LeadTime
	row.MOQ = slot.MOQ
	row.Multiple = slot.Multiple

	if slot.Cost.Valid {
		baseCost := slot.Cost.Decimal.Mul(rates.Rate(slot.Currency))
		noVAT := SellPrice(baseCost, rates, row.SellCurrency)
		vat := noVAT.Mul(p.VATRate)
		row.RealCost = decimal.NewNullDecimal(baseCost.Round(4))
		row.PriceNoVAT = decimal.NewNullDecimal(noVAT.Round(2))
		row.VAT = decimal.NewNullDecimal(vat.Round(2))
		row.PriceWithVAT = decimal.NewNullDecimal(noVAT.Add(vat).Round(2))
	} else {
		clearPrices(row)
	}

	row.ShowInCatalog = true
	row.DropDate = nil
	row.DateUpdated = &today
	return winner
}

// SellPrice – koszt w walucie bazowej przeliczony przez kurs waluty sprzedaży.
func SellPrice(baseCost decimal.Decimal, rates RateSource, sellCurrency string) decimal.Decimal {
	return baseCost.Mul(rates.Rate(sellCurrency))
}

func clearAggregates(row *catalog.Row) {
	row.Cost = decimal.NullDecimal{}
	row.Currency = ""
	row.LeadTime = ""
	row.MOQ = 0
	row.Multiple = 0
	clearPrices(row)
}

func clearPrices(row *catalog.Row) {
	row.RealCost = decimal.NullDecimal{}
	row.PriceNoVAT = decimal.NullDecimal{}
	row.VAT = decimal.NullDecimal{}
	row.PriceWithVAT = decimal.NullDecimal{}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
