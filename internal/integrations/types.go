// internal/integrations/types.go
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/rs/zerolog"
)

// Fetcher – źródło danych dostawcy: identyfikator -> znormalizowany rekord.
type Fetcher interface {
	Name() string // nazwa dostawcy w slocie, np. "FARNELL"
	Fetch(ctx context.Context, id string) (*catalog.ProductRecord, error)
}

type Factory func(log zerolog.Logger, raw json.RawMessage) (Fetcher, error)

// ErrNotFound – dostawca nie zna produktu
var ErrNotFound = errors.New("product not found")

// FetchError – nie udało się zapytać dostawcy (sieć, HTTP, zła odpowiedź)
type FetchError struct {
	Supplier string
	ID       string
	Reason   string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch %s: %s: %v", e.Supplier, e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s fetch %s: %s", e.Supplier, e.ID, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound – true dla ErrNotFound (także opakowanego)
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
