// internal/db/changes.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/bartek5186/pimsync/internal/tracker"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChangeLogStore struct {
	h   *Handle
	now func() time.Time
}

func NewChangeLogStore(h *Handle) *ChangeLogStore { return &ChangeLogStore{h: h, now: time.Now} }

// LoadRecent zwraca wpisy z okna retencji (najnowsze pierwsze). Baza zmienia się dopiero w Save.
func (s *ChangeLogStore) LoadRecent(ctx context.Context, retention time.Duration) ([]tracker.Entry, error) {
	var rows []ChangeLogEntry
	if err := s.h.DB.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load change log: %w", err)
	}

	all := make([]tracker.Entry, 0, len(rows))
	for _, r := range rows {
		id, _ := uuid.Parse(r.ID)
		all = append(all, tracker.Entry{
			ID:         id,
			Timestamp:  r.Timestamp,
			SKU:        r.SKU,
			Field:      r.Field,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
			ChangeType: r.ChangeType,
			Details:    r.Details,
		})
	}
	return tracker.Prune(all, retention, s.now()), nil
}

// Save nadpisuje log podaną listą (kolejność = Position).
func (s *ChangeLogStore) Save(ctx context.Context, entries []tracker.Entry) error {
	rows := make([]ChangeLogEntry, 0, len(entries))
	for i, e := range entries {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		rows = append(rows, ChangeLogEntry{
			ID:         id.String(),
			Position:   i,
			Timestamp:  e.Timestamp,
			SKU:        e.SKU,
			Field:      e.Field,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			ChangeType: e.ChangeType,
			Details:    e.Details,
		})
	}

	err := s.h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ChangeLogEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 500).Error
	})
	if err != nil {
		return fmt.Errorf("save change log: %w", err)
	}
	return nil
}
