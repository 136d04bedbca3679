// Package myparcel is a client for the authenticated SendMyParcel carrier API.
//
// Responses are returned as loosely typed documents because the API answers
// with several envelope shapes for the same resource; helpers in response.go
// pull the interesting fields out of them.
package myparcel

import (
	"context"
	"net/url"

	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// APIClient defines the interface for MyParcel API operations.
// Every call is authenticated with the tenant's API key, which is passed per
// call so a single client can serve settings changes without a restart.
type APIClient interface {
	// CreateShipments books shipments. This is the irreversible call.
	CreateShipments(ctx context.Context, apiKey string, req *ShipmentsRequest) (jsonmap.Map, error)

	// CreateReturnShipments asks the carrier to email return labels.
	CreateReturnShipments(ctx context.Context, apiKey string, req *ReturnShipmentsRequest) (jsonmap.Map, error)

	// GetShipment returns one shipment with its track and trace state.
	GetShipment(ctx context.Context, apiKey string, shipmentID string) (jsonmap.Map, error)

	// ListShipments lists shipments; used to verify credentials.
	ListShipments(ctx context.Context, apiKey string) (jsonmap.Map, error)

	// GetLabelPDF downloads label bytes for a shipment.
	GetLabelPDF(ctx context.Context, apiKey string, shipmentID string, query url.Values) ([]byte, error)

	// GetLabelLink asks for a download link instead of the PDF itself.
	GetLabelLink(ctx context.Context, apiKey string, shipmentID string, query url.Values) (jsonmap.Map, error)

	// Download fetches an absolute or API-relative URL with authentication.
	Download(ctx context.Context, apiKey string, link string) ([]byte, error)
}

// ShipmentsRequest is the body of POST /shipments.
type ShipmentsRequest struct {
	Data ShipmentsData `json:"data"`
}

// ShipmentsData wraps the shipment list.
type ShipmentsData struct {
	Shipments []Shipment `json:"shipments"`
}

// Shipment is a single consignment as submitted to the carrier.
type Shipment struct {
	Carrier             int                 `json:"carrier"`
	ReferenceIdentifier string              `json:"reference_identifier,omitempty"`
	Recipient           Recipient           `json:"recipient"`
	Options             map[string]any      `json:"options"`
	Pickup              *Pickup             `json:"pickup,omitempty"`
	PhysicalProperties  *PhysicalProperties `json:"physical_properties,omitempty"`
}

// Recipient is the consignee address and contact.
type Recipient struct {
	CC           string `json:"cc"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Number       string `json:"number,omitempty"`
	NumberSuffix string `json:"number_suffix,omitempty"`
	Region       string `json:"region,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Person       string `json:"person,omitempty"`
	Company      string `json:"company,omitempty"`
}

// Pickup is the retail location a pickup shipment is delivered to.
type Pickup struct {
	LocationCode    string `json:"location_code,omitempty"`
	RetailNetworkID string `json:"retail_network_id,omitempty"`
	LocationName    string `json:"location_name,omitempty"`
	CC              string `json:"cc,omitempty"`
	City            string `json:"city,omitempty"`
	Number          string `json:"number,omitempty"`
	NumberSuffix    string `json:"number_suffix,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	Street          string `json:"street,omitempty"`
}

// MissingFields lists required pickup fields that are empty, in the order the
// carrier documents them.
func (p *Pickup) MissingFields() []string {
	if p == nil {
		p = &Pickup{}
	}
	required := []struct {
		name  string
		value string
	}{
		{"location_code", p.LocationCode},
		{"location_name", p.LocationName},
		{"cc", p.CC},
		{"city", p.City},
		{"street", p.Street},
		{"postal_code", p.PostalCode},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// PhysicalProperties carries the parcel weight in grams.
type PhysicalProperties struct {
	Weight int `json:"weight"`
}

// ReturnShipmentsRequest is the body of a return-label request.
type ReturnShipmentsRequest struct {
	Data ReturnShipmentsData `json:"data"`
}

// ReturnShipmentsData wraps the return shipment list.
type ReturnShipmentsData struct {
	ReturnShipments []ReturnShipment `json:"return_shipments"`
}

// ReturnShipment references the outbound (parent) shipment.
type ReturnShipment struct {
	Parent  int64  `json:"parent"`
	Carrier int    `json:"carrier"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}
