// Package orders reads orders from the commerce platform.
package orders

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// Store retrieves orders by id.
type Store interface {
	RetrieveOrder(ctx context.Context, id string) (*Order, error)
}

// Order is the part of a commerce order the carrier integration reads.
type Order struct {
	ID              string           `json:"id"`
	DisplayID       FlexString       `json:"display_id"`
	Email           string           `json:"email"`
	ShippingAddress *Address         `json:"shipping_address"`
	Items           []LineItem       `json:"items"`
	ShippingMethods []ShippingMethod `json:"shipping_methods"`
}

// Address is a postal address as stored on the order.
type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Province    string `json:"province"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

// FullName joins first and last name.
func (a *Address) FullName() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// LineItem is an ordered product.
type LineItem struct {
	Quantity int      `json:"quantity"`
	Variant  *Variant `json:"variant"`
}

// Variant carries the shipping weight in grams.
type Variant struct {
	Weight *float64 `json:"weight"`
}

// ShippingMethod is a shipping line; Data holds what checkout stored on it.
type ShippingMethod struct {
	ID   string      `json:"id"`
	Data jsonmap.Map `json:"data"`
}

// ShippingMethodData returns the data of every shipping method in order.
func (o *Order) ShippingMethodData() []jsonmap.Map {
	out := make([]jsonmap.Map, 0, len(o.ShippingMethods))
	for _, m := range o.ShippingMethods {
		out = append(out, m.Data)
	}
	return out
}

// Reference is the display id when present, else the order id.
func (o *Order) Reference() string {
	if o.DisplayID != "" {
		return string(o.DisplayID)
	}
	return o.ID
}

// FlexString accepts a JSON string or number.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, _ := jsonmap.String(v)
	*f = FlexString(s)
	return nil
}
