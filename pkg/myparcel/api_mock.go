package myparcel

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// MockAPIClient is a mock implementation of APIClient for testing and local
// development. It records calls so tests can assert on carrier traffic.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipments       func(ctx context.Context, apiKey string, req *ShipmentsRequest) (jsonmap.Map, error)
	OnCreateReturnShipments func(ctx context.Context, apiKey string, req *ReturnShipmentsRequest) (jsonmap.Map, error)
	OnGetShipment           func(ctx context.Context, apiKey string, shipmentID string) (jsonmap.Map, error)
	OnListShipments         func(ctx context.Context, apiKey string) (jsonmap.Map, error)
	OnGetLabelPDF           func(ctx context.Context, apiKey string, shipmentID string, query url.Values) ([]byte, error)
	OnGetLabelLink          func(ctx context.Context, apiKey string, shipmentID string, query url.Values) (jsonmap.Map, error)
	OnDownload              func(ctx context.Context, apiKey string, link string) ([]byte, error)

	mu        sync.Mutex
	nextID    int64
	calls     map[string]int
	shipments []*ShipmentsRequest
	returns   []*ReturnShipmentsRequest
}

// MockLabel is the PDF body served by the mock.
var MockLabel = []byte("%PDF-1.4\n% mock label\n")

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		nextID: 100000,
		calls:  make(map[string]int),
	}
}

func (m *MockAPIClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return carrier.NewRequestError("", 500, `{"message":"Simulated API error"}`)
	}
	return nil
}

// Calls returns how often a method was invoked.
func (m *MockAPIClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (m *MockAPIClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// LastShipment returns the most recently submitted shipment.
func (m *MockAPIClient) LastShipment() *Shipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.shipments) == 0 || len(m.shipments[len(m.shipments)-1].Data.Shipments) == 0 {
		return nil
	}
	return &m.shipments[len(m.shipments)-1].Data.Shipments[0]
}

// LastReturnShipment returns the most recently submitted return shipment.
func (m *MockAPIClient) LastReturnShipment() *ReturnShipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.returns) == 0 || len(m.returns[len(m.returns)-1].Data.ReturnShipments) == 0 {
		return nil
	}
	return &m.returns[len(m.returns)-1].Data.ReturnShipments[0]
}

func (m *MockAPIClient) newID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return strconv.FormatInt(m.nextID, 10)
}

// CreateShipments returns ids for the submitted shipments.
func (m *MockAPIClient) CreateShipments(ctx context.Context, apiKey string, req *ShipmentsRequest) (jsonmap.Map, error) {
	m.record("CreateShipments")
	m.mu.Lock()
	m.shipments = append(m.shipments, req)
	m.mu.Unlock()

	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateShipments != nil {
		return m.OnCreateShipments(ctx, apiKey, req)
	}

	ids := make([]any, 0, len(req.Data.Shipments))
	for _, s := range req.Data.Shipments {
		id, _ := strconv.ParseFloat(m.newID(), 64)
		ids = append(ids, map[string]any{
			"id":                   id,
			"reference_identifier": s.ReferenceIdentifier,
		})
	}
	return jsonmap.Map{"data": map[string]any{"ids": ids}}, nil
}

// CreateReturnShipments returns an id for the return shipment.
func (m *MockAPIClient) CreateReturnShipments(ctx context.Context, apiKey string, req *ReturnShipmentsRequest) (jsonmap.Map, error) {
	m.record("CreateReturnShipments")
	m.mu.Lock()
	m.returns = append(m.returns, req)
	m.mu.Unlock()

	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateReturnShipments != nil {
		return m.OnCreateReturnShipments(ctx, apiKey, req)
	}

	id, _ := strconv.ParseFloat(m.newID(), 64)
	return jsonmap.Map{"data": map[string]any{"ids": []any{map[string]any{"id": id}}}}, nil
}

// GetShipment returns a registered shipment with a barcode.
func (m *MockAPIClient) GetShipment(ctx context.Context, apiKey string, shipmentID string) (jsonmap.Map, error) {
	m.record("GetShipment")
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetShipment != nil {
		return m.OnGetShipment(ctx, apiKey, shipmentID)
	}

	barcode := "3SMYPA" + uuid.New().String()[:8]
	return jsonmap.Map{
		"data": map[string]any{
			"shipments": []any{
				map[string]any{
					"id":      shipmentID,
					"status":  float64(2),
					"barcode": barcode,
					"track_trace": map[string]any{
						"link":   "https://track.bpost.cloud/btr/web/#/search?itemCode=" + barcode,
						"status": "registered",
					},
				},
			},
		},
	}, nil
}

// ListShipments returns an empty shipment list.
func (m *MockAPIClient) ListShipments(ctx context.Context, apiKey string) (jsonmap.Map, error) {
	m.record("ListShipments")
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnListShipments != nil {
		return m.OnListShipments(ctx, apiKey)
	}
	return jsonmap.Map{"data": map[string]any{"shipments": []any{}, "results": float64(0)}}, nil
}

// GetLabelPDF returns MockLabel.
func (m *MockAPIClient) GetLabelPDF(ctx context.Context, apiKey string, shipmentID string, query url.Values) ([]byte, error) {
	m.record("GetLabelPDF")
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabelPDF != nil {
		return m.OnGetLabelPDF(ctx, apiKey, shipmentID, query)
	}
	return MockLabel, nil
}

// GetLabelLink returns a relative download link.
func (m *MockAPIClient) GetLabelLink(ctx context.Context, apiKey string, shipmentID string, query url.Values) (jsonmap.Map, error) {
	m.record("GetLabelLink")
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabelLink != nil {
		return m.OnGetLabelLink(ctx, apiKey, shipmentID, query)
	}
	return jsonmap.Map{"data": map[string]any{"pdfs": map[string]any{"url": "/pdfs/" + shipmentID}}}, nil
}

// Download returns MockLabel.
func (m *MockAPIClient) Download(ctx context.Context, apiKey string, link string) ([]byte, error) {
	m.record("Download")
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnDownload != nil {
		return m.OnDownload(ctx, apiKey, link)
	}
	return MockLabel, nil
}

// Ensure MockAPIClient implements APIClient
var _ APIClient = (*MockAPIClient)(nil)
