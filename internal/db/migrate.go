package db

import (
	"fmt"
)

// Migrate tworzy/aktualizuje schemat bazy.
func (h *Handle) Migrate() error {
	gdb := h.DB

	if err := gdb.AutoMigrate(
		&CatalogRow{},
		&SupplierSlot{},
		&ChangeLogEntry{},
		&Run{},
		&Issue{},
		&KV{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	return nil
}
