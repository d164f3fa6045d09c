// internal/sheet/changes.go
package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/tracker"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ChangeLogStore – log zmian w osobnym skoroszycie (arkusz "Changes Log").
type ChangeLogStore struct {
	path string
	now  func() time.Time
}

func NewChangeLogStore(path string) *ChangeLogStore {
	return &ChangeLogStore{path: path, now: time.Now}
}

func (s *ChangeLogStore) Path() string { return s.path }

// LoadRecent zwraca wpisy z okna retencji w kolejności z pliku.
func (s *ChangeLogStore) LoadRecent(ctx context.Context, retention time.Duration) ([]tracker.Entry, error) {
	rows, err := readSheet(s.path, ChangesSheet)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	idx := headerIndex(rows[0])
	entries := make([]tracker.Entry, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}
		e := tracker.Entry{
			SKU:        get("SKU"),
			Field:      get("Field"),
			OldValue:   get("Old Value"),
			NewValue:   get("New Value"),
			ChangeType: get("Change Type"),
			Details:    get("Details"),
		}
		if e.SKU == "" && e.ChangeType == "" {
			continue
		}
		e.ID, _ = uuid.Parse(get("ID"))
		if ts := parseDate(get("Timestamp")); ts != nil {
			e.Timestamp = *ts
		}
		entries = append(entries, e)
	}
	return tracker.Prune(entries, retention, s.now()), nil
}

// Save nadpisuje cały skoroszyt logu.
func (s *ChangeLogStore) Save(ctx context.Context, entries []tracker.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ChangesSheet); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeHeader(f, ChangesSheet, changeColumns, st.header); err != nil {
		return err
	}

	for i, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.UTC().Format(dateTimeLayout)
		}
		// wartości jako tekst, żeby "0.40" nie zmieniło się w 0.4
		line := []interface{}{id.String(), ts, e.SKU, e.Field, e.OldValue, e.NewValue, e.ChangeType, e.Details}
		if err := f.SetSheetRow(ChangesSheet, fmt.Sprintf("A%d", i+2), &line); err != nil {
			return fmt.Errorf("change row %d: %w", i+2, err)
		}
	}

	widths := map[string]float64{"A": 38, "B": 20, "C": 14, "D": 22, "E": 24, "F": 24, "G": 24, "H": 50}
	for col, w := range widths {
		if err := f.SetColWidth(ChangesSheet, col, col, w); err != nil {
			return err
		}
	}
	if err := f.SetPanes(ChangesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return saveAs(f, s.path)
}
