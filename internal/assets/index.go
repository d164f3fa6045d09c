// internal/assets/index.go
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// Record – co i skąd zostało pobrane
type Record struct {
	Kind      Kind      `json:"kind"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Path      string    `json:"path"` // względem katalogu danych
	SHA256    string    `json:"sha256"`
	Size      int64     `json:"size"`
	Pages     int       `json:"pages,omitempty"` // tylko karty katalogowe
	FetchedAt time.Time `json:"fetched_at"`
}

// Index pamięta pobrane pliki, żeby nie ściągać ich drugi raz.
type Index interface {
	Get(kind Kind, key string) (Record, bool, error)
	Put(r Record) error
	Close() error
}

func indexKey(kind Kind, key string) []byte { return []byte(string(kind) + "/" + key) }

// InMemoryIndex – do testów i trybu bez katalogu danych
type InMemoryIndex struct {
	mu sync.RWMutex
	m  map[string]Record
}

func NewInMemoryIndex() *InMemoryIndex { return &InMemoryIndex{m: make(map[string]Record)} }

func (x *InMemoryIndex) Get(kind Kind, key string) (Record, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.m[string(indexKey(kind, key))]
	return r, ok, nil
}

func (x *InMemoryIndex) Put(r Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.m[string(indexKey(r.Kind, r.Key))] = r
	return nil
}

func (x *InMemoryIndex) Close() error { return nil }

// PebbleIndex trzyma rekordy jako JSON w PebbleDB
type PebbleIndex struct {
	db *pebble.DB
}

func OpenPebbleIndex(dir string) (*PebbleIndex, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleIndex{db: d}, nil
}

func (p *PebbleIndex) Get(kind Kind, key string) (Record, bool, error) {
	v, closer, err := p.db.Get(indexKey(kind, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	defer closer.Close()

	var r Record
	if err := json.Unmarshal(v, &r); err != nil {
		return Record{}, false, fmt.Errorf("decode asset %s/%s: %w", kind, key, err)
	}
	return r, true, nil
}

func (p *PebbleIndex) Put(r Record) error {
	b, err := json.Marshal(&r)
	if err != nil {
		return err
	}
	return p.db.Set(indexKey(r.Kind, r.Key), b, pebble.Sync)
}

// Range – wszystkie rekordy w kolejności kluczy
func (p *PebbleIndex) Range(fn func(r Record) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		var r Record
		if err := json.Unmarshal(append([]byte(nil), it.Value()...), &r); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (p *PebbleIndex) Close() error { return p.db.Close() }
