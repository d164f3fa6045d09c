// internal/pricing/provider.go
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DefaultRatesURL = "https://api.frankfurter.app/latest"

// Cache przechowuje ostatnio pobrane kursy między przebiegami (np. tabela KV w bazie).
type Cache interface {
	GetRate(code string) (decimal.Decimal, bool)
	PutRate(code string, rate decimal.Decimal, at time.Time) error
}

type ProviderConfig struct {
	Base          string
	URL           string
	FallbackRates map[string]float64
	Timeout       time.Duration
}

// Provider pobiera kursy na żywo, a przy błędzie sięga do cache i stałych wartości.
type Provider struct {
	log   zerolog.Logger
	cfg   ProviderConfig
	http  *http.Client
	cache Cache
}

func NewProvider(log zerolog.Logger, cfg ProviderConfig, cache Cache) *Provider {
	if cfg.URL == "" {
		cfg.URL = DefaultRatesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Base == "" {
		cfg.Base = "ILS"
	}
	return &Provider{
		log:   log.With().Str("component", "rates").Logger(),
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: cache,
	}
}

// Snapshot buduje migawkę kursów dla podanych walut. Nie zwraca błędu – zawsze jest jakiś kurs.
func (p *Provider) Snapshot(ctx context.Context, codes []string) Rates {
	table := make(map[string]decimal.Decimal, len(codes))
	for _, c := range codes {
		code := NormalizeCode(c)
		if code == "" || code == NormalizeCode(p.cfg.Base) {
			continue
		}
		table[code] = p.Rate(ctx, code)
	}
	return NewRates(p.cfg.Base, table)
}

// Rate: live -> cache -> stała -> 1.0
func (p *Provider) Rate(ctx context.Context, code string) decimal.Decimal {
	code = NormalizeCode(code)
	base := NormalizeCode(p.cfg.Base)
	if code == "" || code == base {
		return decimal.NewFromInt(1)
	}

	rate, err := p.fetch(ctx, code)
	if err == nil {
		p.log.Info().Str("currency", code).Str("rate", rate.String()).Msg("live rate")
		if p.cache != nil {
			if err := p.cache.PutRate(code, rate, time.Now()); err != nil {
				p.log.Warn().Err(err).Str("currency", code).Msg("rate cache write failed")
			}
		}
		return rate
	}
	p.log.Warn().Err(err).Str("currency", code).Msg("live rate unavailable, using fallback")

	if p.cache != nil {
		if v, ok := p.cache.GetRate(code); ok && v.IsPositive() {
			return v
		}
	}
	if v, ok := p.cfg.FallbackRates[code]; ok && v > 0 {
		return decimal.NewFromFloat(v)
	}
	return decimal.NewFromInt(1)
}

type frankfurterResp struct {
	Rates map[string]json.Number `json:"rates"`
}

func (p *Provider) fetch(ctx context.Context, code string) (decimal.Decimal, error) {
	base := NormalizeCode(p.cfg.Base)
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates url: %w", err)
	}
	q := u.Query()
	q.Set("from", code)
	q.Set("to", base)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rates %s: http %d", code, resp.StatusCode)
	}

	var body frankfurterResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates %s: %w", code, err)
	}
	raw, ok := body.Rates[base]
	if !ok {
		return decimal.Zero, fmt.Errorf("rates %s: no %s in response", code, base)
	}
	v, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates %s: %w", code, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("rates %s: non-positive rate %s", code, v)
	}
	return v, nil
}
