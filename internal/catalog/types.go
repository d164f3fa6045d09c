// internal/catalog/types.go
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxSlots – ilu dostawców mieści się w jednym wierszu katalogu
const MaxSlots = 3

// Status to szczegółowy status slotu dostawcy
type Status string

const (
	StatusValid                Status = "Valid"
	StatusDirectShip           Status = "Direct Ship"
	StatusNoLongerStocked      Status = "No Longer Stocked"
	StatusNoLongerManufactured Status = "No Longer Manufactured"
	StatusNotFound             Status = "Not Found"
	StatusError                Status = "Error"
)

// ParseStatus akceptuje też skróty używane w starszych arkuszach (NLS/NLM).
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VALID":
		return StatusValid
	case "DIRECT SHIP", "DIRECT_SHIP":
		return StatusDirectShip
	case "NO LONGER STOCKED", "NO_LONGER_STOCKED", "NLS":
		return StatusNoLongerStocked
	case "NO LONGER MANUFACTURED", "NO_LONGER_MANUFACTURED", "NLM":
		return StatusNoLongerManufactured
	case "NOT FOUND", "NOT_FOUND":
		return StatusNotFound
	case "ERROR":
		return StatusError
	case "":
		return ""
	default:
		return Status(strings.TrimSpace(s))
	}
}

// ProductRecord – znormalizowany rekord od dostawcy, żyje tylko w trakcie przetwarzania jednej pozycji
type ProductRecord struct {
	SupplierSKU  string
	Name         string
	Description  string
	Manufacturer string
	MPN          string
	Cost         decimal.Decimal
	Currency     string
	Stock        int
	LeadTime     string
	Status       string // surowy status od dostawcy
	Warehouse    string // region magazynu, np. "USA", "UK"
	DirectShip   bool
	Hazardous    bool
	USStock      bool
	Category     string
	ImageURL     string
	DatasheetURL string
	MOQ          int
	Multiple     int
}

// SupplierSlot – dane jednego dostawcy w wierszu. Pusty, gdy Name == "".
type SupplierSlot struct {
	Name        string
	SKU         string
	Status      Status
	Cost        decimal.NullDecimal // Valid=false: brak albo nieparsowalna wartość
	Currency    string
	Stock       int
	LeadTime    string
	MOQ         int
	Multiple    int
	Category    string
	LastChecked time.Time
}

func (s SupplierSlot) Empty() bool { return strings.TrimSpace(s.Name) == "" }

// Row – jeden produkt w katalogu
type Row struct {
	// statyczne
	SKU          string
	Name         string
	Manufacturer string
	MPN          string
	Description  string
	Hazardous    bool
	USStock      bool
	Image        string
	Datasheet    string

	Slots [MaxSlots]SupplierSlot

	// zwycięzca i agregaty
	WinnerName   string
	WinnerSlot   int // 1..MaxSlots, 0 = brak
	Cost         decimal.NullDecimal
	Currency     string
	Stock        int
	LeadTime     string
	MOQ          int
	Multiple     int
	RealCost     decimal.NullDecimal // koszt w walucie bazowej
	PriceNoVAT   decimal.NullDecimal
	VAT          decimal.NullDecimal
	PriceWithVAT decimal.NullDecimal
	SellCurrency string

	ShowInCatalog bool
	DropDate      *time.Time
	DateUpdated   *time.Time
}

// Clone robi głęboką kopię (sloty są tablicą, więc kopiują się same – zostają wskaźniki dat).
func (r Row) Clone() Row {
	out := r
	if r.DropDate != nil {
		d := *r.DropDate
		out.DropDate = &d
	}
	if r.DateUpdated != nil {
		d := *r.DateUpdated
		out.DateUpdated = &d
	}
	return out
}

// Slot zwraca slot o indeksie 1..MaxSlots (nil dla złego indeksu).
func (r *Row) Slot(i int) *SupplierSlot {
	if i < 1 || i > MaxSlots {
		return nil
	}
	return &r.Slots[i-1]
}

// Key – klucz wiersza w logu zmian
func (r Row) Key() string {
	if r.SKU != "" {
		return r.SKU
	}
	return "unknown"
}

// Table – cały katalog trzymany w pamięci na czas przebiegu
type Table struct {
	Rows []Row
}

func (t *Table) Len() int { return len(t.Rows) }

// DeriveSKU – wewnętrzny SKU to odwrócony SKU pierwszego dostawcy (odwracalne)
func DeriveSKU(supplierSKU string) string {
	rs := []rune(strings.TrimSpace(supplierSKU))
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return string(rs)
}
