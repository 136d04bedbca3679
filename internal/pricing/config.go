// Package pricing computes checkout shipping prices for MyParcel options.
//
// Amounts are handled in minor units (cents) and rounded to the nearest
// cent at every conversion. Only the final result is reported in major
// units.
package pricing

import (
	"math"
	"strings"

	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// OptionConfig is the merchant configuration stored on a shipping option.
type OptionConfig struct {
	// FallbackPrices maps a delivery type name to a price in minor units.
	FallbackPrices map[string]int64
	// FallbackPricesByCarrier overrides FallbackPrices per carrier.
	FallbackPricesByCarrier map[string]map[string]int64
	// FreeShippingThresholds maps an upper-case country code to the minimum
	// cart total, in minor units, that ships for free.
	FreeShippingThresholds map[string]int64
	DefaultCarrier         string
	PricesIncludeTax       bool
}

// ParseOptionConfig reads option data in snake_case or camelCase.
func ParseOptionConfig(data jsonmap.Map) OptionConfig {
	cfg := OptionConfig{PricesIncludeTax: true}
	if data == nil {
		return cfg
	}

	if m, ok := jsonmap.MapAt(data, "fallback_prices", "fallbackPrices"); ok {
		cfg.FallbackPrices = priceTable(m)
	}
	if m, ok := jsonmap.MapAt(data, "fallback_prices_by_carrier", "fallbackPricesByCarrier"); ok {
		cfg.FallbackPricesByCarrier = make(map[string]map[string]int64, len(m))
		for name, v := range m {
			if table, ok := jsonmap.AsMap(v); ok {
				cfg.FallbackPricesByCarrier[strings.ToLower(name)] = priceTable(table)
			}
		}
	}
	if m, ok := jsonmap.MapAt(data, "free_shipping_thresholds", "freeShippingThresholds"); ok {
		cfg.FreeShippingThresholds = make(map[string]int64, len(m))
		for cc, v := range m {
			if n, ok := jsonmap.Number(v); ok {
				cfg.FreeShippingThresholds[strings.ToUpper(cc)] = round(n)
			}
		}
	}

	cfg.DefaultCarrier = strings.ToLower(jsonmap.StringAt(data, "default_carrier", "defaultCarrier"))
	if v, ok := jsonmap.Bool(jsonmap.FirstPath(data, "prices_include_tax", "pricesIncludeTax")); ok {
		cfg.PricesIncludeTax = v
	}
	return cfg
}

func priceTable(m jsonmap.Map) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		if n, ok := jsonmap.Number(v); ok {
			out[strings.ToLower(k)] = round(n)
		}
	}
	return out
}

// BasePrice returns the fallback price for a delivery type and carrier: the
// carrier table's entry for the type, then the flat table's entry for the
// type, then the flat "standard" entry, then zero.
func (c OptionConfig) BasePrice(carrierKey, deliveryType string) int64 {
	if deliveryType == "" {
		deliveryType = "standard"
	}
	if v, ok := c.FallbackPricesByCarrier[carrierKey][deliveryType]; ok {
		return v
	}
	if v, ok := c.FallbackPrices[deliveryType]; ok {
		return v
	}
	if v, ok := c.FallbackPrices["standard"]; ok {
		return v
	}
	return 0
}

// Threshold returns the free-shipping threshold for a country.
func (c OptionConfig) Threshold(countryCode string) (int64, bool) {
	v, ok := c.FreeShippingThresholds[strings.ToUpper(strings.TrimSpace(countryCode))]
	return v, ok
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// toMajor converts minor units to major units.
func toMajor(minor int64) float64 {
	return float64(minor) / 100
}
