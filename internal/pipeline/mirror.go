package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/pricing"
	"github.com/bartek5186/pimsync/internal/tracker"
)

// MirrorError – główny magazyn zapisany, nie udała się co najmniej jedna kopia.
type MirrorError struct {
	Err error
}

func (e *MirrorError) Error() string { return "mirror: " + e.Err.Error() }

func (e *MirrorError) Unwrap() error { return e.Err }

// IsMirrorError – true, gdy zapis głównego magazynu się udał, a zawiodła tylko kopia
func IsMirrorError(err error) bool {
	var me *MirrorError
	return errors.As(err, &me)
}

func mirrorErr(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &MirrorError{Err: errors.Join(errs...)}
}

// MirrorCatalog czyta z głównego magazynu, zapisuje do głównego i wszystkich kopii
// (np. baza SQL + skoroszyt xlsx).
type MirrorCatalog struct {
	Primary CatalogStore
	Mirrors []CatalogStore
}

func (m MirrorCatalog) Load(ctx context.Context) (*catalog.Table, error) {
	return m.Primary.Load(ctx)
}

func (m MirrorCatalog) Save(ctx context.Context, t *catalog.Table, rates pricing.Rates) error {
	if err := m.Primary.Save(ctx, t, rates); err != nil {
		return err
	}
	var errs []error
	for i, s := range m.Mirrors {
		if err := s.Save(ctx, t, rates); err != nil {
			errs = append(errs, fmt.Errorf("copy %d: %w", i+1, err))
		}
	}
	return mirrorErr(errs)
}

type MirrorChangeLog struct {
	Primary ChangeLogStore
	Mirrors []ChangeLogStore
}

func (m MirrorChangeLog) LoadRecent(ctx context.Context, retention time.Duration) ([]tracker.Entry, error) {
	return m.Primary.LoadRecent(ctx, retention)
}

func (m MirrorChangeLog) Save(ctx context.Context, entries []tracker.Entry) error {
	if err := m.Primary.Save(ctx, entries); err != nil {
		return err
	}
	var errs []error
	for i, s := range m.Mirrors {
		if err := s.Save(ctx, entries); err != nil {
			errs = append(errs, fmt.Errorf("copy %d: %w", i+1, err))
		}
	}
	return mirrorErr(errs)
}
