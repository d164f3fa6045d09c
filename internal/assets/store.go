// internal/assets/store.go
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindImage     Kind = "image"
	KindDatasheet Kind = "datasheet"
)

const maxAssetBytes = 50 << 20

type Options struct {
	DataDir     string // assets/ powstaje w środku
	Timeout     time.Duration
	ValidatePDF bool // karty katalogowe sprawdzane przez pdfcpu przed zapisem
}

// Store pobiera zdjęcia i karty katalogowe do katalogu danych.
type Store struct {
	log   zerolog.Logger
	opts  Options
	http  *http.Client
	index Index
	now   func() time.Time
}

func NewStore(log zerolog.Logger, opts Options, index Index) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if index == nil {
		index = NewInMemoryIndex()
	}
	return &Store{
		log:   log.With().Str("component", "assets").Logger(),
		opts:  opts,
		http:  &http.Client{Timeout: opts.Timeout},
		index: index,
		now:   time.Now,
	}
}

// RelPath – ścieżka pliku względem katalogu danych, np. assets/images/<key>.jpg
func RelPath(kind Kind, key string) string {
	switch kind {
	case KindDatasheet:
		return path.Join("assets", "datasheets", safeName(key)+".pdf")
	default:
		return path.Join("assets", "images", safeName(key)+".jpg")
	}
}

// Materialize zwraca lokalną ścieżkę zasobu. Jeśli plik już jest – nic nie pobiera.
// Pusty wynik oznacza porażkę (nie przerywa przebiegu).
func (s *Store) Materialize(ctx context.Context, kind Kind, url, key string) string {
	url = strings.TrimSpace(url)
	if url == "" || strings.TrimSpace(key) == "" {
		return ""
	}
	rel := RelPath(kind, key)
	full := filepath.Join(s.opts.DataDir, filepath.FromSlash(rel))

	if _, err := os.Stat(full); err == nil {
		return rel
	}

	log := s.log.With().Str("kind", string(kind)).Str("key", key).Logger()
	body, err := s.download(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("asset download failed")
		return ""
	}

	rec := Record{Kind: kind, Key: key, URL: url, Path: rel, Size: int64(len(body)), FetchedAt: s.now().UTC()}
	if kind == KindDatasheet && s.opts.ValidatePDF {
		pages, err := pdfPages(body)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("datasheet is not a valid pdf")
			return ""
		}
		rec.Pages = pages
	}

	sum := sha256.Sum256(body)
	rec.SHA256 = hex.EncodeToString(sum[:])

	if err := writeFile(full, body); err != nil {
		log.Warn().Err(err).Msg("asset write failed")
		return ""
	}
	if err := s.index.Put(rec); err != nil {
		log.Warn().Err(err).Msg("asset index put failed")
	}
	log.Debug().Str("path", rel).Int64("size", rec.Size).Msg("asset saved")
	return rel
}

// Lookup – rekord z indeksu (np. do raportów)
func (s *Store) Lookup(kind Kind, key string) (Record, bool, error) {
	return s.index.Get(kind, key)
}

func (s *Store) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "pimsync/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxAssetBytes {
		return nil, fmt.Errorf("asset larger than %d bytes", maxAssetBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return body, nil
}

func pdfPages(b []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(b), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}

// zapis przez plik tymczasowy – przerwany zapis nie zostawia połówki pliku
func writeFile(full string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp := full + ".part"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}

func safeName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, strings.TrimSpace(key))
}
