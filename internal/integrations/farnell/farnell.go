// internal/integrations/farnell/farnell.go
package farnell

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bartek5186/pimsync/internal/catalog"
	"github.com/bartek5186/pimsync/internal/integrations"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	SupplierName = "FARNELL"

	DefaultBaseURL = "https://api.element14.com/catalog/products"
	opName         = "searchByPremierFarnellPartNumber"
	responseGroup  = "large,prices,inventory,datasheets,images,attributes"
)

type Config struct {
	BaseURL           string `json:"base_url"`
	APIKey            string `json:"api_key"`
	SecretKey         string `json:"secret_key"`
	CustomerID        string `json:"customer_id"`
	StoreID           string `json:"store_id"` // np. il.farnell.com
	Currency          string `json:"currency"` // waluta cennika sklepu, domyślnie GBP
	TimeoutSec        int    `json:"timeout_sec"`
	RequestsPerMinute int    `json:"requests_per_minute"`
}

type Client struct {
	log     zerolog.Logger
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

func New(log zerolog.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.StoreID == "" {
		cfg.StoreID = "il.farnell.com"
	}
	if cfg.Currency == "" {
		cfg.Currency = "GBP"
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 10
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	return &Client{
		log:     log,
		cfg:     cfg,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		now:     time.Now,
	}
}

func (c *Client) Name() string { return SupplierName }

// Fetch pobiera produkt po numerze Farnell. Brak wyników -> integrations.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, id string) (*catalog.ProductRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, integrations.ErrNotFound
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(id, "rate limit", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(id), nil)
	if err != nil {
		return nil, c.fail(id, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pimsync/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(id, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 100))
		c.log.Warn().Str("id", id).Int("http", resp.StatusCode).Str("body", string(body)).Msg("farnell api error")
		return nil, c.fail(id, fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, c.fail(id, "decode", err)
	}
	if n, _ := sr.Return.NumberOfResults.Int64(); n == 0 || len(sr.Return.Products) == 0 {
		c.log.Debug().Str("id", id).Msg("zero results")
		return nil, integrations.ErrNotFound
	}
	return toRecord(sr.Return.Products[0], c.cfg.Currency), nil
}

func (c *Client) requestURL(id string) string {
	ts := timestamp(c.now())
	q := url.Values{}
	q.Set("term", "id:"+id)
	q.Set("storeInfo.id", c.cfg.StoreID)
	q.Set("resultsSettings.responseGroup", responseGroup)
	q.Set("callInfo.responseDataFormat", "JSON")
	q.Set("resultsSettings.numberOfResults", "1")
	q.Set("callInfo.apiKey", c.cfg.APIKey)
	q.Set("userInfo.customerId", c.cfg.CustomerID)
	q.Set("userInfo.timestamp", ts)
	q.Set("userInfo.signature", Sign(c.cfg.SecretKey, opName, ts))
	return c.cfg.BaseURL + "?" + q.Encode()
}

func (c *Client) fail(id, reason string, err error) error {
	return &integrations.FetchError{Supplier: SupplierName, ID: id, Reason: reason, Err: err}
}

// Sign – base64(HMAC-SHA1(secret, op+timestamp))
func Sign(secret, op, ts string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(op + ts))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// timestamp w formacie oczekiwanym przez API: UTC, milisekundy, bez strefy
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000")
}

func factory(log zerolog.Logger, raw json.RawMessage) (integrations.Fetcher, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("farnell config: %w", err)
	}
	return New(log, cfg), nil
}

func init() {
	integrations.Register("farnell", factory)
}
