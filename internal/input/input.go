// internal/input/input.go
package input

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/charset"
)

// nagłówek kolumny z identyfikatorami w plikach xlsx/csv
const HeaderSKU = "SKU"

// ReadIdentifiers czyta listę identyfikatorów do przetworzenia, w kolejności z pliku.
// xlsx: kolumna "SKU" (albo pierwsza), csv: j.w., inne: jeden identyfikator w linii.
// cs – kodowanie plików tekstowych (puste = utf-8).
func ReadIdentifiers(path, cs string) ([]string, error) {
	path = ExpandHome(path)
	var (
		ids []string
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ids, err = readXLSX(path)
	case ".csv":
		ids, err = readText(path, cs, readCSV)
	default:
		ids, err = readText(path, cs, readLines)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return ids, nil
}

func readXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fromTable(rows), nil
}

func readText(path, cs string, parse func(io.Reader) ([]string, error)) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if c := normalizeCharset(cs); c != "" && c != "utf-8" {
		r, err = charset.NewReaderLabel(c, r)
		if err != nil {
			return nil, fmt.Errorf("charset %q: %w", cs, err)
		}
	}
	return parse(r)
}

func readCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return fromTable(rows), nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if v := clean(sc.Text()); v != "" {
			out = append(out, v)
		}
	}
	return out, sc.Err()
}

// fromTable – kolumna z nagłówkiem SKU; bez nagłówka cała pierwsza kolumna
func fromTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	col, start := 0, 0
	for i, h := range rows[0] {
		if strings.EqualFold(clean(h), HeaderSKU) {
			col, start = i, 1
			break
		}
	}
	var out []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		if v := clean(row[col]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}

// FileSHA256 – skrót pliku wejściowego (historia przebiegów)
func FileSHA256(path string) (string, error) {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func ExpandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// ErrEmpty – plik wejściowy nie zawiera żadnego identyfikatora
var ErrEmpty = errors.New("input file has no identifiers")

// normalizeCharset mapuje nietypowe etykiety na standardowe nazwy rozpoznawane przez charset.NewReaderLabel
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "", "utf8", "utf-8":
		return "utf-8"
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	case "cp1255", "windows1255", "win-1255", "hebrew":
		return "windows-1255"
	default:
		return c
	}
}
