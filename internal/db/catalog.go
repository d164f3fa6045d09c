// internal/db/catalog.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/pricing"
	"gorm.io/gorm"
)

// CatalogStore – katalog w bazie SQL. Zapis zawsze nadpisuje całość w jednej transakcji.
type CatalogStore struct {
	h *Handle
}

func NewCatalogStore(h *Handle) *CatalogStore { return &CatalogStore{h: h} }

func (s *CatalogStore) Load(ctx context.Context) (*catalog.Table, error) {
	var rows []CatalogRow
	err := s.h.DB.WithContext(ctx).
		Preload("Slots", func(tx *gorm.DB) *gorm.DB { return tx.Order("slot") }).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	t := &catalog.Table{Rows: make([]catalog.Row, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, fromModel(r))
	}
	return t, nil
}

func (s *CatalogStore) Save(ctx context.Context, t *catalog.Table, rates pricing.Rates) error {
	models := make([]CatalogRow, 0, t.Len())
	for i, r := range t.Rows {
		models = append(models, toModel(i, r))
	}

	err := s.h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&SupplierSlot{}).Error; err != nil {
			return fmt.Errorf("clear supplier_slots: %w", err)
		}
		if err := all.Delete(&CatalogRow{}).Error; err != nil {
			return fmt.Errorf("clear catalog_rows: %w", err)
		}
		if len(models) > 0 {
			if err := tx.CreateInBatches(&models, 200).Error; err != nil {
				return fmt.Errorf("insert catalog_rows: %w", err)
			}
		}
		return putRates(tx, rates, time.Now())
	})
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

func toModel(pos int, r catalog.Row) CatalogRow {
	m := CatalogRow{
		Position:      pos,
		SKU:           r.SKU,
		Name:          r.Name,
		Manufacturer:  r.Manufacturer,
		MPN:           r.MPN,
		Description:   r.Description,
		Hazardous:     r.Hazardous,
		USStock:       r.USStock,
		Image:         r.Image,
		Datasheet:     r.Datasheet,
		WinnerName:    r.WinnerName,
		WinnerSlot:    r.WinnerSlot,
		Cost:          r.Cost,
		Currency:      r.Currency,
		Stock:         r.Stock,
		LeadTime:      r.LeadTime,
		MOQ:           r.MOQ,
		Multiple:      r.Multiple,
		RealCost:      r.RealCost,
		PriceNoVAT:    r.PriceNoVAT,
		VAT:           r.VAT,
		PriceWithVAT:  r.PriceWithVAT,
		SellCurrency:  r.SellCurrency,
		ShowInCatalog: r.ShowInCatalog,
		DropDate:      r.DropDate,
		DateUpdated:   r.DateUpdated,
	}
	for i, sl := range r.Slots {
		if sl.Empty() {
			continue
		}
		m.Slots = append(m.Slots, SupplierSlot{
			Slot:        i + 1,
			Name:        sl.Name,
			SKU:         sl.SKU,
			Status:      string(sl.Status),
			Cost:        sl.Cost,
			Currency:    sl.Currency,
			Stock:       sl.Stock,
			LeadTime:    sl.LeadTime,
			MOQ:         sl.MOQ,
			Multiple:    sl.Multiple,
			Category:    sl.Category,
			LastChecked: timePtr(sl.LastChecked),
		})
	}
	return m
}

func fromModel(m CatalogRow) catalog.Row {
	r := catalog.Row{
		SKU:           m.SKU,
		Name:          m.Name,
		Manufacturer:  m.Manufacturer,
		MPN:           m.MPN,
		Description:   m.Description,
		Hazardous:     m.Hazardous,
		USStock:       m.USStock,
		Image:         m.Image,
		Datasheet:     m.Datasheet,
		WinnerName:    m.WinnerName,
		WinnerSlot:    m.WinnerSlot,
		Cost:          m.Cost,
		Currency:      m.Currency,
		Stock:         m.Stock,
		LeadTime:      m.LeadTime,
		MOQ:           m.MOQ,
		Multiple:      m.Multiple,
		RealCost:      m.RealCost,
		PriceNoVAT:    m.PriceNoVAT,
		VAT:           m.VAT,
		PriceWithVAT:  m.PriceWithVAT,
		SellCurrency:  m.SellCurrency,
		ShowInCatalog: m.ShowInCatalog,
		DropDate:      m.DropDate,
		DateUpdated:   m.DateUpdated,
	}
	for _, sl := range m.Slots {
		dst := r.Slot(sl.Slot)
		if dst == nil {
			continue
		}
		*dst = catalog.SupplierSlot{
			Name:     sl.Name,
			SKU:      sl.SKU,
			Status:   catalog.ParseStatus(sl.Status),
			Cost:     sl.Cost,
			Currency: sl.Currency,
			Stock:    sl.Stock,
			LeadTime: sl.LeadTime,
			MOQ:      sl.MOQ,
			Multiple: sl.Multiple,
			Category: sl.Category,
		}
		if sl.LastChecked != nil {
			dst.LastChecked = *sl.LastChecked
		}
	}
	return r
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
