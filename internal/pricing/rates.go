// internal/pricing/rates.go
package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Rates – migawka kursów: kod waluty -> kurs względem waluty bazowej.
// Kurs waluty bazowej to 1, nieznana waluta też liczy się jako 1.
type Rates struct {
	Base  string
	table map[string]decimal.Decimal
}

func NewRates(base string, table map[string]decimal.Decimal) Rates {
	r := Rates{Base: NormalizeCode(base), table: make(map[string]decimal.Decimal, len(table))}
	for k, v := range table {
		r.table[NormalizeCode(k)] = v
	}
	return r
}

// Rate nigdy nie zwraca błędu.
func (r Rates) Rate(code string) decimal.Decimal {
	c := NormalizeCode(code)
	if c == "" || c == r.Base {
		return decimal.NewFromInt(1)
	}
	if v, ok := r.table[c]; ok && v.IsPositive() {
		return v
	}
	return decimal.NewFromInt(1)
}

// Known mówi, czy kurs pochodzi z tabeli (a nie z domyślnego 1.0).
func (r Rates) Known(code string) bool {
	c := NormalizeCode(code)
	if c == r.Base {
		return true
	}
	_, ok := r.table[c]
	return ok
}

// Codes – posortowane kody (bez waluty bazowej), np. dla arkusza "Financial Variables".
func (r Rates) Codes() []string {
	out := make([]string, 0, len(r.table))
	for k := range r.table {
		if k == r.Base {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NormalizeCode zwraca kod ISO 4217 wielkimi literami; śmieci zostają tylko przycięte.
func NormalizeCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if u, err := currency.ParseISO(c); err == nil {
		return u.String()
	}
	return c
}

// ValidCode – czy kod jest poprawnym kodem ISO 4217
func ValidCode(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}
