// Package search builds and executes property search requests against the
// upstream search service.
package search

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/pricing"
)

// SearchPath is the upstream route for property searches.
const SearchPath = "/api/properties/search"

// DefaultMaxPriceLakhs is the ceiling used when no price could ever be parsed (100 Cr).
const DefaultMaxPriceLakhs = 10000.0

// Credential header names expected by the upstream service.
const (
	HeaderFirecrawlKey = "x-firecrawl-api-key"
	HeaderOpenAIKey    = "x-openai-api-key"
	HeaderModelID      = "x-model-id"
)

var (
	// ErrAPIDisabled is returned when a request is built for a search that asked
	// for the fixture path. The fixture path is a separate branch, not a fallback.
	ErrAPIDisabled = errors.New("api search is disabled for this submission")

	// ErrInvalidParams covers search criteria that cannot produce a request.
	ErrInvalidParams = errors.New("invalid search parameters")
)

// BuildError reports why a request could not be built.
type BuildError struct {
	Err    error
	Reason string
}

func (e *BuildError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Reason)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func invalidParams(format string, args ...interface{}) *BuildError {
	return &BuildError{Err: ErrInvalidParams, Reason: fmt.Sprintf(format, args...)}
}

// Credentials are the upstream API credentials. They are supplied by
// configuration and never logged in clear text.
type Credentials struct {
	FirecrawlAPIKey string
	OpenAIAPIKey    string
	ModelID         string
}

// Complete reports whether every credential is set.
func (c Credentials) Complete() bool {
	return c.FirecrawlAPIKey != "" && c.OpenAIAPIKey != "" && c.ModelID != ""
}

func (c Credentials) apply(h http.Header) {
	if c.FirecrawlAPIKey != "" {
		h.Set(HeaderFirecrawlKey, c.FirecrawlAPIKey)
	}
	if c.OpenAIAPIKey != "" {
		h.Set(HeaderOpenAIKey, c.OpenAIAPIKey)
	}
	if c.ModelID != "" {
		h.Set(HeaderModelID, c.ModelID)
	}
}

// RequestBody is the JSON body sent to the upstream search route.
type RequestBody struct {
	City             string  `json:"city"`
	Area             string  `json:"area"`
	MaxPrice         float64 `json:"max_price"`
	PropertyCategory string  `json:"property_category"`
	PropertyType     string  `json:"property_type"`
}

// Request is a fully specified upstream call.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    RequestBody
}

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	// DefaultMaxPriceLakhs is used when the price text cannot be normalized and
	// no earlier price was. Defaults to DefaultMaxPriceLakhs.
	DefaultMaxPriceLakhs float64
	Credentials          Credentials
}

// Builder turns search parameters into upstream requests. It holds no
// per-consumer state and is safe to share between sessions.
type Builder struct {
	cfg BuilderConfig
	log *logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg BuilderConfig, log *logger.Logger) *Builder {
	if cfg.DefaultMaxPriceLakhs <= 0 {
		cfg.DefaultMaxPriceLakhs = DefaultMaxPriceLakhs
	}
	return &Builder{cfg: cfg, log: log}
}

// Build validates params and produces the upstream request for baseURL.
// prices is the submitting consumer's price memory: an unparseable price reuses
// its last good value. A nil prices falls back to the configured ceiling.
func (b *Builder) Build(params models.SearchParams, baseURL string, prices *PriceMemory) (*Request, error) {
	if !params.UseAPI {
		return nil, &BuildError{Err: ErrAPIDisabled}
	}

	endpoint, err := searchURL(baseURL)
	if err != nil {
		return nil, err
	}

	city := strings.ToLower(strings.TrimSpace(params.City))
	area := strings.ToLower(strings.TrimSpace(params.Area))
	if area != "" && city == "" {
		return nil, invalidParams("area %q given without a city", params.Area)
	}
	if !params.PropertyCategory.Valid() {
		return nil, invalidParams("unknown property category %q", params.PropertyCategory)
	}
	if !params.PropertyType.Valid() {
		return nil, invalidParams("unknown property type %q", params.PropertyType)
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	b.cfg.Credentials.apply(headers)

	req := &Request{
		Method:  http.MethodPost,
		URL:     endpoint,
		Headers: headers,
		Body: RequestBody{
			City:             city,
			Area:             area,
			MaxPrice:         b.maxPrice(params.MaxPriceText, prices),
			PropertyCategory: string(params.PropertyCategory),
			PropertyType:     string(params.PropertyType),
		},
	}

	b.log.Debug("Built search request", map[string]interface{}{
		"url":          req.URL,
		"city":         city,
		"area":         area,
		"max_price":    req.Body.MaxPrice,
		"firecrawl":    logger.Redact(b.cfg.Credentials.FirecrawlAPIKey),
		"openai":       logger.Redact(b.cfg.Credentials.OpenAIAPIKey),
		"model_id_set": b.cfg.Credentials.ModelID != "",
	})

	return req, nil
}

// maxPrice normalizes text, falling back to the consumer's last good value or
// the configured ceiling.
func (b *Builder) maxPrice(text string, prices *PriceMemory) float64 {
	value, err := pricing.Normalize(text)
	if err == nil {
		prices.remember(value)
		return value
	}

	fallback := b.cfg.DefaultMaxPriceLakhs
	source := "default"
	if last, ok := prices.Last(); ok {
		fallback = last
		source = "previous"
	}

	b.log.Warn("Could not normalize max price, using fallback", map[string]interface{}{
		"max_price_text": text,
		"fallback":       fallback,
		"source":         source,
	})
	return fallback
}

func searchURL(baseURL string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return "", invalidParams("base url is empty")
	}

	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", invalidParams("base url %q is not an http(s) url", baseURL)
	}

	return base + SearchPath, nil
}
