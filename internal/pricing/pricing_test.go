package pricing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/myparcel/internal/pricing"
	"github.com/tournevent/myparcel/internal/telemetry"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/selection"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newResolver(f deliveryoptions.Fetcher) *pricing.Resolver {
	return pricing.NewResolver(f, otelzap.New(zap.NewNop()), telemetry.NewMetrics(prometheus.NewRegistry()), nil)
}

func mustType(t *testing.T, v any) carrier.DeliveryType {
	t.Helper()
	dt, ok := carrier.ParseDeliveryType(v)
	require.True(t, ok)
	return dt
}

var nlAddress = jsonmap.Map{
	"country_code": "nl",
	"postal_code":  "2131BC",
	"city":         "Hoofddorp",
	"address_1":    "Siriusdreef 66",
}

func TestCalculate_FreeShippingThreshold(t *testing.T) {
	fetcher := deliveryoptions.NewMockFetcher(nil, nil)
	r := newResolver(fetcher)
	option := jsonmap.Map{
		"fallback_prices":          jsonmap.Map{"standard": 500},
		"free_shipping_thresholds": jsonmap.Map{"NL": 10000},
	}
	address := jsonmap.Map{"country_code": "nl"}

	tests := []struct {
		name string
		pctx jsonmap.Map
		want float64
	}{
		{"below threshold", jsonmap.Map{"shipping_address": address, "item_total": 75}, 5},
		{"above threshold", jsonmap.Map{"shipping_address": address, "item_total": 150}, 0},
		{"summed items", jsonmap.Map{"shipping_address": address, "items": []any{
			jsonmap.Map{"item_total": 60},
			jsonmap.Map{"item_total": 55},
		}}, 0},
		{"exactly at threshold", jsonmap.Map{"shipping_address": address, "item_total": "100"}, 0},
		{"other country", jsonmap.Map{"shipping_address": jsonmap.Map{"country_code": "be"}, "item_total": 150}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := r.Calculate(context.Background(), option, jsonmap.Map{}, tt.pctx)
			assert.Equal(t, tt.want, price.CalculatedAmount)
			assert.True(t, price.IsTaxInclusive)
		})
	}
	assert.Zero(t, fetcher.Calls())
}

func TestCalculate_FreeShippingSkipsLookup(t *testing.T) {
	fetcher := deliveryoptions.NewMockFetcher(nil, nil)
	r := newResolver(fetcher)
	option := jsonmap.Map{
		"fallback_prices":          jsonmap.Map{"standard": 500},
		"free_shipping_thresholds": jsonmap.Map{"NL": 10000},
	}
	data := jsonmap.Map{"myparcel": jsonmap.Map{"carrier": "postnl", "delivery_type": "evening"}}

	price := r.Calculate(context.Background(), option, data, jsonmap.Map{
		"shipping_address": nlAddress,
		"cart":             jsonmap.Map{"item_total": jsonmap.Map{"value": "250.00"}},
	})

	assert.Equal(t, 0.0, price.CalculatedAmount)
	assert.Zero(t, fetcher.Calls())
}

func TestCalculate_FallbackWithoutSelection(t *testing.T) {
	fetcher := deliveryoptions.NewMockFetcher(nil, nil)
	r := newResolver(fetcher)
	option := jsonmap.Map{"fallback_prices": jsonmap.Map{"standard": 500}}

	for _, pctx := range []jsonmap.Map{
		{},
		{"shipping_address": jsonmap.Map{"country_code": "nl"}},
		{"shipping_address": nlAddress},
	} {
		price := r.Calculate(context.Background(), option, jsonmap.Map{"flat_rate": true}, pctx)
		assert.Equal(t, 5.0, price.CalculatedAmount)
	}
	assert.Zero(t, fetcher.Calls())
}

func TestCalculate_IncompleteAddressSkipsLookup(t *testing.T) {
	fetcher := deliveryoptions.NewMockFetcher(nil, nil)
	r := newResolver(fetcher)
	option := jsonmap.Map{"fallback_prices": jsonmap.Map{"standard": 500, "evening": 650}}
	data := jsonmap.Map{"myparcel": jsonmap.Map{"carrier": "postnl", "delivery_type": "evening"}}

	price := r.Calculate(context.Background(), option, data, jsonmap.Map{
		"shipping_address": jsonmap.Map{"country_code": "nl"},
	})

	assert.Equal(t, 6.5, price.CalculatedAmount)
	assert.Zero(t, fetcher.Calls())
}

func TestCalculate_CarrierTableEntryWins(t *testing.T) {
	r := newResolver(deliveryoptions.NewMockFetcher(nil, nil))
	option := jsonmap.Map{
		"fallbackPrices":          jsonmap.Map{"standard": 500},
		"fallbackPricesByCarrier": jsonmap.Map{"dpd": jsonmap.Map{"standard": 795}},
		"default_carrier":         "DPD",
		"prices_include_tax":      false,
	}

	price := r.Calculate(context.Background(), option, nil, jsonmap.Map{})

	assert.Equal(t, 7.95, price.CalculatedAmount)
	assert.False(t, price.IsTaxInclusive)
}

func TestBasePrice_FallbackOrder(t *testing.T) {
	cfg := pricing.ParseOptionConfig(jsonmap.Map{
		"fallback_prices":            jsonmap.Map{"pickup": 300, "standard": 500},
		"fallback_prices_by_carrier": jsonmap.Map{"postnl": jsonmap.Map{"standard": 700, "evening": 900}},
	})

	tests := []struct {
		name         string
		carrier      string
		deliveryType string
		want         int64
	}{
		{"carrier entry for the type", "postnl", "evening", 900},
		{"flat entry when the carrier table lacks the type", "postnl", "pickup", 300},
		{"carrier standard for an empty type", "postnl", "", 700},
		{"flat standard when neither has the type", "postnl", "morning", 500},
		{"flat table for a carrier without a table", "bpost", "pickup", 300},
		{"flat standard for a carrier without a table", "dpd", "evening", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.BasePrice(tt.carrier, tt.deliveryType))
		})
	}

	assert.Equal(t, int64(0), pricing.ParseOptionConfig(nil).BasePrice("postnl", "pickup"))
}

func TestCalculate_DeliverySurcharge(t *testing.T) {
	deliveries := []jsonmap.Map{
		{
			"date": "2025-01-14 00:00:00",
			"possibilities": []any{
				jsonmap.Map{
					"type":  "standard",
					"price": jsonmap.Map{"amount": 0.0, "currency": "EUR"},
					"delivery_time_frames": []any{
						jsonmap.Map{"type": "start", "date_time": "2025-01-14 09:00:00"},
						jsonmap.Map{"type": "end", "date_time": "2025-01-14 17:00:00"},
					},
				},
				jsonmap.Map{
					"type":  "evening",
					"price": jsonmap.Map{"amount": 195.0, "currency": "EUR"},
					"delivery_time_frames": []any{
						jsonmap.Map{"type": "start", "date_time": "2025-01-14 18:00:00"},
						jsonmap.Map{"type": "end", "date_time": "2025-01-14 22:00:00"},
					},
				},
			},
		},
	}
	fetcher := deliveryoptions.NewMockFetcher(deliveries, nil)
	r := newResolver(fetcher)
	option := jsonmap.Map{"fallback_prices": jsonmap.Map{"standard": 500}}
	data := jsonmap.Map{"myparcel": jsonmap.Map{
		"carrier":       "postnl",
		"delivery_type": 3,
		"date":          "2025-01-14",
		"time_frame":    jsonmap.Map{"start": "18:00", "end": "22:00"},
	}}

	price := r.Calculate(context.Background(), option, data, jsonmap.Map{"shipping_address": nlAddress})

	assert.Equal(t, 6.95, price.CalculatedAmount)
	assert.Equal(t, 2, fetcher.Calls())
	params := fetcher.Params()
	require.NotEmpty(t, params)
	assert.Equal(t, "postnl", params[0].Carrier)
	assert.Equal(t, "NL", params[0].CC)
	assert.Equal(t, "Siriusdreef", params[0].Street)
	assert.Equal(t, "66", params[0].Number)
}

func TestCalculate_PickupSurcharge(t *testing.T) {
	pickups := []jsonmap.Map{
		{
			"location":      jsonmap.Map{"location_code": "111", "retail_network_id": "PNPNL-01"},
			"possibilities": []any{jsonmap.Map{"delivery_type_name": "pickup", "price": jsonmap.Map{"amount": 10.0}}},
		},
		{
			"location":      jsonmap.Map{"location_code": "222", "retail_network_id": "PNPNL-01"},
			"possibilities": []any{jsonmap.Map{"delivery_type_name": "pickup", "price": jsonmap.Map{"amount": -45.0}}},
		},
	}
	r := newResolver(deliveryoptions.NewMockFetcher(nil, pickups))
	option := jsonmap.Map{"fallback_prices": jsonmap.Map{"standard": 500, "pickup": 395}}
	data := jsonmap.Map{"myparcel_delivery": jsonmap.Map{
		"carrier":   "postnl",
		"is_pickup": true,
		"pickup":    jsonmap.Map{"location_code": "222", "retail_network_id": "PNPNL-01"},
	}}

	price := r.Calculate(context.Background(), option, data, jsonmap.Map{"shipping_address": nlAddress})

	assert.Equal(t, 3.5, price.CalculatedAmount)
}

func TestCalculate_LookupFailureDegradesToBase(t *testing.T) {
	fetcher := deliveryoptions.NewMockFetcher(nil, nil)
	fetcher.Err = errors.New("connection refused")
	r := newResolver(fetcher)
	option := jsonmap.Map{"fallback_prices": jsonmap.Map{"standard": 500}}
	data := jsonmap.Map{"myparcel": jsonmap.Map{"carrier": "bpost", "delivery_type": "standard"}}

	price := r.Calculate(context.Background(), option, data, jsonmap.Map{"shipping_address": nlAddress})

	assert.Equal(t, 5.0, price.CalculatedAmount)
}

func TestDeliveryPrice_TimeFramesBeforePossibilities(t *testing.T) {
	sel := &selection.Selection{DeliveryType: mustType(t, "morning")}
	deliveries := []jsonmap.Map{{
		"date": "2025-01-14",
		"time": []any{
			jsonmap.Map{"type": 1, "start": "08:00", "end": "12:00", "price": jsonmap.Map{"price": jsonmap.Map{"amount": 250.0}}},
		},
		"possibilities": []any{
			jsonmap.Map{"type": "morning", "price": 999.0},
		},
	}}

	got, ok := pricing.DeliveryPrice(sel, deliveries)

	require.True(t, ok)
	assert.Equal(t, int64(250), got.Amount)
}

func TestDeliveryPrice_TimeFrameMinutePrecision(t *testing.T) {
	deliveries := []jsonmap.Map{{
		"date": "2025-01-14",
		"time": []any{
			jsonmap.Map{"type": "morning", "start": "2025-01-14 08:00:00", "end": "2025-01-14 12:00:00", "price": 250.0},
		},
	}}

	sel := &selection.Selection{
		DeliveryType: mustType(t, "morning"),
		TimeFrame:    &selection.TimeFrame{Start: "08:00", End: "12:00"},
	}
	got, ok := pricing.DeliveryPrice(sel, deliveries)
	require.True(t, ok)
	assert.Equal(t, int64(250), got.Amount)

	sel.TimeFrame = &selection.TimeFrame{Start: "08:30", End: "12:00"}
	_, ok = pricing.DeliveryPrice(sel, deliveries)
	assert.False(t, ok)
}

func TestDeliveryPrice_DateMismatch(t *testing.T) {
	sel := &selection.Selection{DeliveryType: mustType(t, "standard"), Date: "2025-01-15"}
	deliveries := []jsonmap.Map{{
		"date":          "2025-01-14",
		"possibilities": []any{jsonmap.Map{"type": "standard", "price": 0.0}},
	}}

	_, ok := pricing.DeliveryPrice(sel, deliveries)

	assert.False(t, ok)
}

func TestDeliveryPrice_NoTypeNoMatch(t *testing.T) {
	_, ok := pricing.DeliveryPrice(&selection.Selection{}, []jsonmap.Map{{"possibilities": []any{jsonmap.Map{"price": 1.0}}}})
	assert.False(t, ok)
}

func TestPickupPrice_FallsBackToLocationPrice(t *testing.T) {
	sel := &selection.Selection{Pickup: &selection.Pickup{LocationCode: "9"}}
	locations := []jsonmap.Map{{"location_code": "9", "price": jsonmap.Map{"amount": 120.4}}}

	got, ok := pricing.PickupPrice(sel, locations)

	require.True(t, ok)
	assert.Equal(t, int64(120), got.Amount)
}

func TestPickupPrice_RequiresLocationCode(t *testing.T) {
	sel := &selection.Selection{Pickup: &selection.Pickup{RetailNetworkID: "X"}}
	_, ok := pricing.PickupPrice(sel, []jsonmap.Map{{"price": 1.0}})
	assert.False(t, ok)
}

func TestCartTotal_Shapes(t *testing.T) {
	tests := []struct {
		name string
		pctx jsonmap.Map
		want float64
		ok   bool
	}{
		{"direct number", jsonmap.Map{"item_total": 12.5}, 12.5, true},
		{"subtotal string", jsonmap.Map{"subtotal": "40"}, 40, true},
		{"raw object", jsonmap.Map{"item_total": jsonmap.Map{"raw": jsonmap.Map{"value": "19.99"}}}, 19.99, true},
		{"cart numeric", jsonmap.Map{"cart": jsonmap.Map{"total": jsonmap.Map{"numeric": 30}}}, 30, true},
		{"unit price times quantity", jsonmap.Map{"items": []any{
			jsonmap.Map{"unit_price": 10, "quantity": 3},
			jsonmap.Map{"unit_price": 5},
		}}, 35, true},
		{"nothing", jsonmap.Map{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pricing.CartTotal(tt.pctx)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseOptionConfig_Defaults(t *testing.T) {
	cfg := pricing.ParseOptionConfig(nil)
	assert.True(t, cfg.PricesIncludeTax)
	assert.Equal(t, int64(0), cfg.BasePrice("bpost", "evening"))

	cfg = pricing.ParseOptionConfig(jsonmap.Map{"fallback_prices": jsonmap.Map{"Standard": 499.6}})
	assert.Equal(t, int64(500), cfg.BasePrice("bpost", "evening"))
}
