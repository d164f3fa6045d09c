// internal/db/kv.go
package db

import (
	"errors"
	"time"

	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ratePrefix = "rate:"

func (h *Handle) GetKV(k string) (string, bool, error) {
	var kv KV
	err := h.DB.Where("k = ?", k).Take(&kv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return kv.V, true, nil
}

func (h *Handle) SetKV(k, v string) error {
	return setKV(h.DB, k, v)
}

func setKV(tx *gorm.DB, k, v string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v"}),
	}).Create(&KV{K: k, V: v}).Error
}

// RateCache – ostatnie znane kursy walut w tabeli kvs (pricing.Cache)
type RateCache struct {
	h *Handle
}

func NewRateCache(h *Handle) *RateCache { return &RateCache{h: h} }

func (c *RateCache) GetRate(code string) (decimal.Decimal, bool) {
	v, ok, err := c.h.GetKV(ratePrefix + code)
	if err != nil || !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func (c *RateCache) PutRate(code string, rate decimal.Decimal, at time.Time) error {
	return c.h.DB.Transaction(func(tx *gorm.DB) error {
		return putRate(tx, code, rate, at)
	})
}

func putRate(tx *gorm.DB, code string, rate decimal.Decimal, at time.Time) error {
	if err := setKV(tx, ratePrefix+code, rate.String()); err != nil {
		return err
	}
	return setKV(tx, ratePrefix+code+":at", at.UTC().Format(time.RFC3339))
}

// putRates zapisuje migawkę kursów użytą przy zapisie katalogu
func putRates(tx *gorm.DB, rates pricing.Rates, at time.Time) error {
	for _, code := range rates.Codes() {
		if err := putRate(tx, code, rates.Rate(code), at); err != nil {
			return err
		}
	}
	return setKV(tx, "rates:base", rates.Base)
}
