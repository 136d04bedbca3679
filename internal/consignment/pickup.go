package consignment

import (
	"context"

	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"github.com/tournevent/myparcel/pkg/selection"
	"go.uber.org/zap"
)

// buildPickup turns a pickup selection into the carrier payload. When the
// selection lacks required fields but names a location code, the location
// is looked up near the recipient and the gaps are filled from it. A
// selection without any pickup record reports all required fields missing.
func (s *Service) buildPickup(ctx context.Context, sel *selection.Selection, near deliveryoptions.Params) (*myparcel.Pickup, error) {
	if sel.Pickup == nil {
		var none *myparcel.Pickup
		return nil, carrier.NewMissingPickupFieldsError(none.MissingFields())
	}
	p := sel.Pickup
	payload := &myparcel.Pickup{
		LocationCode:    p.LocationCode,
		RetailNetworkID: p.RetailNetworkID,
		LocationName:    p.LocationName,
		CC:              p.Address.CC,
		City:            p.Address.City,
		Number:          p.Address.Number,
		NumberSuffix:    p.Address.NumberSuffix,
		PostalCode:      p.Address.PostalCode,
		Street:          p.Address.Street,
	}

	if len(payload.MissingFields()) > 0 && p.LocationCode != "" && s.options != nil {
		result, err := s.options.PickupLocations(ctx, near)
		if err != nil {
			s.logger.Ctx(ctx).Warn("Pickup location lookup failed",
				zap.String("location_code", p.LocationCode),
				zap.Error(err),
			)
		} else if match, ok := findPickupMatch(result.PickupLocations, p); ok {
			fillPickup(payload, match)
		}
	}

	if missing := payload.MissingFields(); len(missing) > 0 {
		return nil, carrier.NewMissingPickupFieldsError(missing)
	}
	return payload, nil
}

// findPickupMatch returns the first location whose code and retail network
// do not contradict the selection.
func findPickupMatch(locations []jsonmap.Map, p *selection.Pickup) (jsonmap.Map, bool) {
	for _, loc := range locations {
		code := jsonmap.StringAt(loc, "location.location_code", "location_code")
		network := jsonmap.StringAt(loc, "location.retail_network_id", "retail_network_id")
		if p.LocationCode != "" && code != "" && code != p.LocationCode {
			continue
		}
		if p.RetailNetworkID != "" && network != "" && network != p.RetailNetworkID {
			continue
		}
		return loc, true
	}
	return nil, false
}

// fillPickup sets empty payload fields from a discovered location.
func fillPickup(payload *myparcel.Pickup, match jsonmap.Map) {
	location := match
	if inner, ok := jsonmap.AsMap(match["location"]); ok {
		location = inner
	}
	addr, _ := jsonmap.MapAt(match, "address", "location.address", "location_address", "location.location_address")

	field := func(key string) string {
		return jsonmap.StringAt(location, key)
	}
	fill := func(dst *string, candidates ...string) {
		if *dst != "" {
			return
		}
		for _, c := range candidates {
			if c != "" {
				*dst = c
				return
			}
		}
	}

	fill(&payload.LocationCode, field("location_code"), jsonmap.StringAt(match, "location_code"))
	fill(&payload.RetailNetworkID, field("retail_network_id"), jsonmap.StringAt(match, "retail_network_id"))
	fill(&payload.LocationName, field("location_name"), jsonmap.StringAt(match, "location_name"), field("name"))
	fill(&payload.CC, jsonmap.StringAt(addr, "cc", "country_code"), field("cc"))
	fill(&payload.City, jsonmap.StringAt(addr, "city"), field("city"))
	fill(&payload.PostalCode, jsonmap.StringAt(addr, "postal_code"), field("postal_code"))
	fill(&payload.Street, jsonmap.StringAt(addr, "street"), field("street"))
	fill(&payload.Number, jsonmap.StringAt(addr, "number"), field("number"))
	fill(&payload.NumberSuffix, jsonmap.StringAt(addr, "number_suffix"), field("number_suffix"), field("number_addition"))
}
