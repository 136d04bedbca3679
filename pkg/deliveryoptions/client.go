// Package deliveryoptions queries the public MyParcel discovery API for
// delivery windows and pickup locations. Responses are cached and the
// endpoint is guarded by a circuit breaker so checkout pricing can fall back
// quickly when the API is down.
package deliveryoptions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://api.myparcel.nl"
	DefaultPlatform    = "belgie"
	DefaultPackageType = "package"

	pathDeliveryOptions = "/delivery_options"
	pathPickupLocations = "/pickup_locations"
)

// Fetcher looks up delivery windows and pickup locations.
type Fetcher interface {
	DeliveryOptions(ctx context.Context, p Params) (Result, error)
	PickupLocations(ctx context.Context, p Params) (Result, error)
}

// Params describe the destination being quoted. Empty fields are left out
// of the query.
type Params struct {
	Carrier     string
	CC          string
	PostalCode  string
	City        string
	Street      string
	Number      string
	Platform    string
	PackageType string
}

// Complete reports whether the destination has enough detail to query.
func (p Params) Complete() bool {
	return p.CC != "" && p.PostalCode != ""
}

func (p Params) values(includeOptions bool) url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			q.Set(key, value)
		}
	}
	platform := p.Platform
	if platform == "" {
		platform = DefaultPlatform
	}
	packageType := p.PackageType
	if packageType == "" {
		packageType = DefaultPackageType
	}
	set("platform", platform)
	set("carrier", p.Carrier)
	set("cc", p.CC)
	set("postal_code", p.PostalCode)
	set("city", p.City)
	set("street", p.Street)
	set("number", p.Number)
	set("package_type", packageType)
	if includeOptions {
		set("include", "shipment_options")
	}
	return q
}

// Result holds the normalised lists returned by either endpoint.
type Result struct {
	Deliveries      []jsonmap.Map `json:"deliveries"`
	PickupLocations []jsonmap.Map `json:"pickup_locations"`
}

// Config holds discovery client configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
	// Now overrides the cache clock.
	Now func() time.Time
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Zero means 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open. Zero means 30s.
	OpenTimeout time.Duration
}

// Client is the production Fetcher.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      *Cache
	breaker    *gobreaker.CircuitBreaker
	logger     *otelzap.Logger
}

// New creates a discovery client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "medusa-myparcel"
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		cache:      NewCache(cfg.CacheTTL, cfg.Now),
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "myparcel-discovery",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A 4xx is an answer about the request, not about the endpoint's health.
			var ce *carrier.Error
			if errors.As(err, &ce) && ce.StatusCode >= 400 && ce.StatusCode < 500 {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Discovery circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// Cache exposes the response cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// DeliveryOptions returns delivery windows for the destination.
func (c *Client) DeliveryOptions(ctx context.Context, p Params) (Result, error) {
	return c.fetch(ctx, pathDeliveryOptions, p.values(true))
}

// PickupLocations returns pickup points near the destination.
func (c *Client) PickupLocations(ctx context.Context, p Params) (Result, error) {
	return c.fetch(ctx, pathPickupLocations, p.values(false))
}

func (c *Client) fetch(ctx context.Context, path string, q url.Values) (Result, error) {
	key := path + "?" + q.Encode()
	if res, ok := c.cache.Get(key); ok {
		return res, nil
	}

	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, path, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{}, carrier.ErrUnavailable.WithCause(err)
		}
		return Result{}, err
	}

	res := v.(Result)
	c.cache.Set(key, res)
	return res, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json;version=2.0")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, carrier.ErrUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, carrier.NewRequestError("delivery options", resp.StatusCode, string(body))
	}

	doc, err := jsonmap.Decode(body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return parseResult(doc, path == pathPickupLocations), nil
}

func parseResult(doc jsonmap.Map, pickupEndpoint bool) Result {
	var data jsonmap.Map = doc
	switch inner := doc["data"].(type) {
	case map[string]any:
		data = inner
	case []any:
		// Bare list under data: the list is whatever the endpoint returns.
		if pickupEndpoint {
			return Result{PickupLocations: jsonmap.Maps(inner)}
		}
		return Result{Deliveries: jsonmap.Maps(inner)}
	}
	return Result{
		Deliveries:      jsonmap.Maps(jsonmap.FirstPath(data, "deliveries", "delivery")),
		PickupLocations: jsonmap.Maps(jsonmap.FirstPath(data, "pickup_locations", "pickup")),
	}
}

// Ensure Client implements Fetcher
var _ Fetcher = (*Client)(nil)
