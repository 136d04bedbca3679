// Package fulfillment implements the commerce platform's fulfillment
// provider contract for MyParcel shipping options.
package fulfillment

import (
	"context"
	"strings"

	"github.com/tournevent/myparcel/internal/pricing"
	"github.com/tournevent/myparcel/pkg/address"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/selection"
)

// Identifier is the provider id registered with the platform.
const Identifier = "myparcel"

// Option is a fulfillment option offered by the provider.
type Option struct {
	ID string `json:"id"`
}

// Provider answers the platform's fulfillment provider calls.
type Provider struct {
	prices *pricing.Resolver
}

// NewProvider creates a Provider pricing through prices.
func NewProvider(prices *pricing.Resolver) *Provider {
	return &Provider{prices: prices}
}

// GetFulfillmentOptions lists the single MyParcel option.
func (p *Provider) GetFulfillmentOptions(ctx context.Context) []Option {
	return []Option{{ID: Identifier}}
}

// ValidateFulfillmentData checks that a checkout selection can be shipped
// to the context's shipping address. Data without a selection is returned
// unchanged.
func (p *Provider) ValidateFulfillmentData(ctx context.Context, optionData, data, pctx jsonmap.Map) (jsonmap.Map, error) {
	if _, ok := selection.FromData(data); !ok {
		return data, nil
	}

	addr, _ := jsonmap.AsMap(pctx["shipping_address"])
	cc := strings.ToUpper(jsonmap.StringAt(addr, "country_code"))
	if cc == "" {
		return nil, carrier.ErrAddressRequired
	}

	if carrier.IsNLOrBE(cc) {
		street := address.Parse(jsonmap.StringAt(addr, "address_1"), jsonmap.StringAt(addr, "address_2"))
		if street.Street == "" || !street.HasNumber() {
			return nil, carrier.ErrHouseNumberRequired.Withf("House number is required for NL/BE shipping addresses")
		}
	}
	return data, nil
}

// CalculatePrice prices the option for the selection in data.
func (p *Provider) CalculatePrice(ctx context.Context, optionData, data, pctx jsonmap.Map) pricing.Price {
	return p.prices.Calculate(ctx, optionData, data, pctx)
}

// CanCalculate reports that prices are always calculated.
func (p *Provider) CanCalculate(ctx context.Context, optionData jsonmap.Map) bool {
	return true
}
