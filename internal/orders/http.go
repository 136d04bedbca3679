package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tournevent/myparcel/pkg/carrier"
)

// orderFields limits the admin API response to what export needs.
const orderFields = "id,display_id,email,*shipping_address,*items,*items.variant,*shipping_methods"

// HTTPStoreConfig holds configuration for the commerce admin API.
type HTTPStoreConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPStore reads orders from the commerce platform's admin API.
type HTTPStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPStore creates an order store.
func NewHTTPStore(cfg HTTPStoreConfig) *HTTPStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RetrieveOrder fetches GET /admin/orders/{id}. The order may be wrapped in
// an "order" envelope or returned bare.
func (s *HTTPStore) RetrieveOrder(ctx context.Context, id string) (*Order, error) {
	endpoint := fmt.Sprintf("%s/admin/orders/%s?fields=%s", s.baseURL, url.PathEscape(id), url.QueryEscape(orderFields))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, carrier.ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("order service error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Order *Order `json:"order"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading order: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON from order service: %w", err)
	}
	if envelope.Order != nil {
		return envelope.Order, nil
	}

	var bare Order
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("invalid JSON from order service: %w", err)
	}
	if bare.ID == "" {
		return nil, carrier.ErrOrderNotFound
	}
	return &bare, nil
}

var _ Store = (*HTTPStore)(nil)
