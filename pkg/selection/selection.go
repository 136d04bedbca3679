// Package selection recognises the delivery choice a shopper made at
// checkout. Storefront widgets store that choice in shipping-method data
// under a variety of shapes; Normalize turns any of them into a Selection.
package selection

import (
	"strings"

	"github.com/tournevent/myparcel/pkg/carrier"
)

// Selection is the normalised checkout choice.
type Selection struct {
	Carrier         string               `json:"carrier,omitempty"`
	IsPickup        *bool                `json:"is_pickup,omitempty"`
	DeliveryType    carrier.DeliveryType `json:"delivery_type,omitempty"`
	Date            string               `json:"date,omitempty"`
	TimeFrame       *TimeFrame           `json:"time_frame,omitempty"`
	ShipmentOptions map[string]any       `json:"shipment_options,omitempty"`
	Pickup          *Pickup              `json:"pickup,omitempty"`
	PackageType     string               `json:"package_type,omitempty"`
	Platform        string               `json:"platform,omitempty"`
	Price           *Price               `json:"price,omitempty"`
}

// TimeFrame is a delivery window in HH:MM.
type TimeFrame struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Price is the amount the storefront showed for the choice.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// Pickup is the chosen pickup point.
type Pickup struct {
	LocationCode    string        `json:"location_code,omitempty"`
	RetailNetworkID string        `json:"retail_network_id,omitempty"`
	LocationName    string        `json:"location_name,omitempty"`
	Address         PickupAddress `json:"address"`
}

// PickupAddress is the pickup point's street address.
type PickupAddress struct {
	CC           string `json:"cc,omitempty"`
	City         string `json:"city,omitempty"`
	Number       string `json:"number,omitempty"`
	NumberSuffix string `json:"number_suffix,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Street       string `json:"street,omitempty"`
}

// PickupChosen reports whether the shopper chose a pickup point.
func (s *Selection) PickupChosen() bool {
	return s != nil && s.IsPickup != nil && *s.IsPickup
}

// EffectiveDeliveryType is the stated delivery type, else pickup for pickup
// selections, else standard.
func (s *Selection) EffectiveDeliveryType() carrier.DeliveryType {
	if s != nil && !s.DeliveryType.IsZero() {
		return s.DeliveryType
	}
	if s.PickupChosen() {
		return carrier.DeliveryPickup
	}
	return carrier.DeliveryStandard
}

// CarrierKey returns the lowercase carrier name, or "" when none was stated.
func (s *Selection) CarrierKey() string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.Carrier))
}

// Merge overlays override on base field by field; set override fields win.
// Either argument may be nil.
func Merge(base, override *Selection) *Selection {
	if base == nil && override == nil {
		return nil
	}
	out := &Selection{}
	if base != nil {
		*out = *base
	}
	if override == nil {
		return out
	}
	if override.Carrier != "" {
		out.Carrier = override.Carrier
	}
	if override.IsPickup != nil {
		v := *override.IsPickup
		out.IsPickup = &v
	}
	if !override.DeliveryType.IsZero() {
		out.DeliveryType = override.DeliveryType
	}
	if override.Date != "" {
		out.Date = override.Date
	}
	if override.TimeFrame != nil {
		out.TimeFrame = override.TimeFrame
	}
	if override.ShipmentOptions != nil {
		merged := make(map[string]any, len(out.ShipmentOptions)+len(override.ShipmentOptions))
		for k, v := range out.ShipmentOptions {
			merged[k] = v
		}
		for k, v := range override.ShipmentOptions {
			merged[k] = v
		}
		out.ShipmentOptions = merged
	}
	if override.Pickup != nil {
		out.Pickup = override.Pickup
	}
	if override.PackageType != "" {
		out.PackageType = override.PackageType
	}
	if override.Platform != "" {
		out.Platform = override.Platform
	}
	if override.Price != nil {
		out.Price = override.Price
	}
	return out
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
