package myparcel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

const (
	// DefaultBaseURL is the SendMyParcel (Belgium) API.
	DefaultBaseURL   = "https://api.sendmyparcel.be"
	DefaultUserAgent = "medusa-myparcel"

	contentTypeJSON           = "application/json"
	contentTypeShipment       = "application/vnd.shipment+json;charset=utf-8"
	contentTypeReturnShipment = "application/vnd.return_shipment+json;charset=utf-8"
	acceptLabelLink           = "application/vnd.shipment_label_link+json; charset=utf8"
	acceptPDF                 = "application/pdf"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPAPIClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateShipments books shipments via POST /shipments.
func (c *HTTPAPIClient) CreateShipments(ctx context.Context, apiKey string, req *ShipmentsRequest) (jsonmap.Map, error) {
	return c.doJSON(ctx, apiKey, http.MethodPost, "/shipments", req, contentTypeShipment, contentTypeJSON)
}

// CreateReturnShipments requests emailed return labels via POST /shipments.
func (c *HTTPAPIClient) CreateReturnShipments(ctx context.Context, apiKey string, req *ReturnShipmentsRequest) (jsonmap.Map, error) {
	return c.doJSON(ctx, apiKey, http.MethodPost, "/shipments", req, contentTypeReturnShipment, contentTypeJSON)
}

// GetShipment fetches GET /shipments/{id}.
func (c *HTTPAPIClient) GetShipment(ctx context.Context, apiKey string, shipmentID string) (jsonmap.Map, error) {
	return c.doJSON(ctx, apiKey, http.MethodGet, "/shipments/"+url.PathEscape(shipmentID), nil, "", contentTypeJSON)
}

// ListShipments fetches GET /shipments.
func (c *HTTPAPIClient) ListShipments(ctx context.Context, apiKey string) (jsonmap.Map, error) {
	return c.doJSON(ctx, apiKey, http.MethodGet, "/shipments", nil, "", contentTypeJSON)
}

// GetLabelPDF fetches GET /shipment_labels/{id} as application/pdf.
func (c *HTTPAPIClient) GetLabelPDF(ctx context.Context, apiKey string, shipmentID string, query url.Values) ([]byte, error) {
	resp, err := c.doRequest(ctx, apiKey, http.MethodGet, labelPath(shipmentID, query), nil, "", acceptPDF)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseError(resp, "label")
	}
	return io.ReadAll(resp.Body)
}

// GetLabelLink fetches GET /shipment_labels/{id} as a label link document.
func (c *HTTPAPIClient) GetLabelLink(ctx context.Context, apiKey string, shipmentID string, query url.Values) (jsonmap.Map, error) {
	return c.doJSON(ctx, apiKey, http.MethodGet, labelPath(shipmentID, query), nil, "", acceptLabelLink)
}

// Download fetches a label link. Relative links resolve against the base URL.
func (c *HTTPAPIClient) Download(ctx context.Context, apiKey string, link string) ([]byte, error) {
	target := link
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(link, "/")
	}
	resp, err := c.send(ctx, apiKey, http.MethodGet, target, nil, "", acceptPDF)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseError(resp, "label")
	}
	return io.ReadAll(resp.Body)
}

func labelPath(shipmentID string, query url.Values) string {
	path := "/shipment_labels/" + url.PathEscape(shipmentID)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

func (c *HTTPAPIClient) doJSON(ctx context.Context, apiKey, method, path string, body any, contentType, accept string) (jsonmap.Map, error) {
	resp, err := c.doRequest(ctx, apiKey, method, path, body, contentType, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseError(resp, "")
	}
	if resp.StatusCode == http.StatusNoContent {
		return jsonmap.Map{}, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	doc, err := jsonmap.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return doc, nil
}

func (c *HTTPAPIClient) doRequest(ctx context.Context, apiKey, method, path string, body any, contentType, accept string) (*http.Response, error) {
	return c.send(ctx, apiKey, method, c.baseURL+path, body, contentType, accept)
}

func (c *HTTPAPIClient) send(ctx context.Context, apiKey, method, target string, body any, contentType, accept string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType == "" {
		contentType = contentTypeJSON
	}
	req.Header.Set("Authorization", "basic "+base64.StdEncoding.EncodeToString([]byte(apiKey)))
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, carrier.ErrUnavailable.WithCause(err)
	}
	return resp, nil
}

func (c *HTTPAPIClient) parseError(resp *http.Response, label string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return carrier.NewRequestError(label, resp.StatusCode, string(body))
}

// Ensure HTTPAPIClient implements APIClient
var _ APIClient = (*HTTPAPIClient)(nil)
