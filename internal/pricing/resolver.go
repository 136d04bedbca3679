package pricing

import (
	"context"
	"strings"

	"github.com/tournevent/myparcel/internal/telemetry"
	"github.com/tournevent/myparcel/pkg/address"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/selection"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Price is a calculated shipping price.
type Price struct {
	CalculatedAmount float64 `json:"calculated_amount"`
	IsTaxInclusive   bool    `json:"is_calculated_price_tax_inclusive"`
}

// Resolver prices MyParcel shipping options.
type Resolver struct {
	fetcher deliveryoptions.Fetcher
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// NewResolver creates a Resolver. metrics and tracer may be nil.
func NewResolver(fetcher deliveryoptions.Fetcher, logger *otelzap.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *Resolver {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Calculate prices a shipping option. optionData is the option's merchant
// configuration, data the shipping method data holding the checkout
// selection, and pctx the pricing context with the shipping address and
// cart totals. Lookup failures never fail the call; the base price is
// returned instead.
func (r *Resolver) Calculate(ctx context.Context, optionData, data, pctx jsonmap.Map) Price {
	cfg := ParseOptionConfig(optionData)
	sel, _ := selection.FromData(data)

	carrierKey := sel.CarrierKey()
	if carrierKey == "" {
		carrierKey = cfg.DefaultCarrier
	}
	if carrierKey == "" {
		carrierKey = carrier.DefaultKey.String()
	}

	deliveryType := sel.EffectiveDeliveryType().Name
	base := cfg.BasePrice(carrierKey, deliveryType)
	result := func(minor int64) Price {
		return Price{CalculatedAmount: toMajor(minor), IsTaxInclusive: cfg.PricesIncludeTax}
	}

	addr, _ := jsonmap.AsMap(pctx["shipping_address"])
	cc := strings.ToUpper(jsonmap.StringAt(addr, "country_code"))
	postalCode := jsonmap.StringAt(addr, "postal_code")

	if threshold, ok := cfg.Threshold(cc); ok {
		if total, ok := CartTotal(pctx); ok && round(total*100) >= threshold {
			return result(0)
		}
	}

	if sel == nil || cc == "" || postalCode == "" {
		return result(base)
	}

	ctx, span := r.tracer.Start(ctx, "pricing.Calculate", trace.WithAttributes(
		attribute.String("carrier", carrierKey),
		attribute.String("delivery_type", deliveryType),
		attribute.Bool("pickup", sel.PickupChosen()),
	))
	defer span.End()

	street := address.Parse(jsonmap.StringAt(addr, "address_1"), jsonmap.StringAt(addr, "address_2"))
	params := deliveryoptions.Params{
		Carrier:    carrierKey,
		CC:         cc,
		PostalCode: postalCode,
		City:       jsonmap.StringAt(addr, "city"),
		Street:     street.Street,
		Number:     street.Number,
	}

	options, err := deliveryoptions.Both(ctx, r.fetcher, params)
	if err != nil {
		span.RecordError(err)
		r.logger.Ctx(ctx).Warn("MyParcel price calculation failed",
			zap.String("carrier", carrierKey),
			zap.String("cc", cc),
			zap.Error(err),
		)
		r.metrics.RecordPricingFallback("lookup_failed")
		return result(base)
	}

	var surcharge Surcharge
	var found bool
	if sel.PickupChosen() {
		surcharge, found = PickupPrice(sel, options.PickupLocations)
	} else {
		surcharge, found = DeliveryPrice(sel, options.Deliveries)
	}
	if !found {
		r.logger.Ctx(ctx).Debug("No live MyParcel price for selection",
			zap.String("carrier", carrierKey),
			zap.String("delivery_type", deliveryType),
		)
		r.metrics.RecordPricingFallback("no_match")
		return result(base)
	}

	span.SetAttributes(attribute.Int64("surcharge", surcharge.Amount))
	return result(base + surcharge.Amount)
}
