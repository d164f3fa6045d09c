// internal/db/models.go
package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// catalog_rows – jeden produkt katalogu; Position trzyma kolejność wierszy
type CatalogRow struct {
	ID           uint   `gorm:"primaryKey"`
	Position     int    `gorm:"index"`
	SKU          string `gorm:"index"`
	Name         string
	Manufacturer string
	MPN          string `gorm:"index"`
	Description  string `gorm:"type:text"`
	Hazardous    bool
	USStock      bool
	Image        string
	Datasheet    string

	WinnerName   string
	WinnerSlot   int
	Cost         decimal.NullDecimal `gorm:"type:varchar(40)"`
	Currency     string
	Stock        int
	LeadTime     string
	MOQ          int
	Multiple     int
	RealCost     decimal.NullDecimal `gorm:"type:varchar(40)"`
	PriceNoVAT   decimal.NullDecimal `gorm:"type:varchar(40)"`
	VAT          decimal.NullDecimal `gorm:"type:varchar(40)"`
	PriceWithVAT decimal.NullDecimal `gorm:"type:varchar(40)"`
	SellCurrency string

	ShowInCatalog bool `gorm:"index"`
	DropDate      *time.Time
	DateUpdated   *time.Time

	Slots []SupplierSlot `gorm:"foreignKey:RowID;constraint:OnDelete:CASCADE"`
}

// supplier_slots – zajęte sloty dostawców (Slot 1..3)
type SupplierSlot struct {
	ID          uint   `gorm:"primaryKey"`
	RowID       uint   `gorm:"index;uniqueIndex:uniq_row_slot"`
	Slot        int    `gorm:"uniqueIndex:uniq_row_slot"`
	Name        string `gorm:"index"`
	SKU         string `gorm:"index"`
	Status      string
	Cost        decimal.NullDecimal `gorm:"type:varchar(40)"`
	Currency    string
	Stock       int
	LeadTime    string
	MOQ         int
	Multiple    int
	Category    string
	LastChecked *time.Time
}

// change_log – wpisy są tylko dopisywane; czyszczone po okresie retencji
type ChangeLogEntry struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Position   int       `gorm:"index"`
	Timestamp  time.Time `gorm:"index"`
	SKU        string    `gorm:"index"`
	Field      string
	OldValue   string `gorm:"type:text"`
	NewValue   string `gorm:"type:text"`
	ChangeType string `gorm:"index"`
	Details    string `gorm:"type:text"`
}

func (ChangeLogEntry) TableName() string { return "change_log" }

// runs – historia przebiegów
type Run struct {
	RunID      uint   `gorm:"primaryKey;column:run_id"`
	UUID       string `gorm:"uniqueIndex;size:36"`
	InputFile  string
	SHA256     string `gorm:"index"`
	Supplier   string
	Items      int
	Processed  int
	New        int
	Updated    int
	Skipped    int
	NotFound   int
	Failed     int
	Overflow   int
	Changes    int
	Status     int       `gorm:"index"` // 0=running, 1=done, 2=error
	LastError  string    `gorm:"type:text"`
	StartedAt  time.Time `gorm:"autoCreateTime"`
	FinishedAt *time.Time
}

const (
	RunRunning = 0
	RunDone    = 1
	RunError   = 2
)

// issues – problemy z jakością danych (zduplikowany MPN, brak miejsca na dostawcę)
type Issue struct {
	ID        uint   `gorm:"primaryKey"`
	SKU       string `gorm:"size:64;uniqueIndex:uniq_issue_key"`
	Reason    string `gorm:"size:64;uniqueIndex:uniq_issue_key"`
	IssueKey  string `gorm:"size:128;uniqueIndex:uniq_issue_key"`
	Details   string `gorm:"type:text"`
	Seen      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type KV struct {
	K string `gorm:"primaryKey;size:128"`
	V string
}
