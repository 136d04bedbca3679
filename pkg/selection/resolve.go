package selection

import (
	"strings"

	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// wrapperKeys hold a selection nested inside shipping-method data.
var wrapperKeys = []string{"myparcel", "myparcel_delivery", "myparcel_selection"}

// markerKeys identify unwrapped selection data. Any one of them is enough,
// so unrelated data that happens to use one of these names is accepted too.
var markerKeys = []string{"delivery_type", "is_pickup", "date", "pickup", "carrier"}

// LooksLikeSelection reports whether data carries selection fields at the
// top level.
func LooksLikeSelection(data jsonmap.Map) bool {
	for _, k := range markerKeys {
		if _, ok := data[k]; ok {
			return true
		}
	}
	return false
}

// FromData finds a selection in one shipping method's data.
func FromData(data jsonmap.Map) (*Selection, bool) {
	if data == nil {
		return nil, false
	}
	for _, k := range wrapperKeys {
		if inner, ok := jsonmap.AsMap(data[k]); ok {
			return Normalize(inner), true
		}
	}
	if LooksLikeSelection(data) {
		return Normalize(data), true
	}
	return nil, false
}

// FromShippingMethods returns the first selection found in the data of an
// order's or cart's shipping methods.
func FromShippingMethods(methodData []jsonmap.Map) (*Selection, bool) {
	for _, data := range methodData {
		if sel, ok := FromData(data); ok {
			return sel, true
		}
	}
	return nil, false
}

// Normalize maps the known spellings of each selection field onto Selection.
func Normalize(raw jsonmap.Map) *Selection {
	if raw == nil {
		return nil
	}
	sel := &Selection{}

	sel.Carrier = normalizeCarrier(jsonmap.FirstPath(raw,
		"carrier", "carrier_id", "carrierId", "shipment_carrier", "shipmentCarrier"))

	if dt, ok := carrier.ParseDeliveryType(jsonmap.FirstPath(raw,
		"delivery_type", "deliveryType", "delivery_type_id", "deliveryTypeId",
		"delivery_type_name", "deliveryTypeName")); ok {
		sel.DeliveryType = dt
	}

	if src, ok := jsonmap.MapAt(raw,
		"pickup", "pickup_location", "pickupLocation", "pickup_point", "pickupPoint", "location"); ok {
		sel.Pickup = normalizePickup(src)
	}

	for _, k := range []string{"is_pickup", "isPickup", "is_pickup_point", "isPickupPoint"} {
		if b, ok := jsonmap.Bool(raw[k]); ok {
			sel.IsPickup = Bool(b)
			break
		}
	}
	if sel.IsPickup == nil && sel.Pickup != nil {
		sel.IsPickup = Bool(true)
	}

	sel.Date = jsonmap.StringAt(raw, "date", "delivery_date", "deliveryDate", "selected_date")
	sel.TimeFrame = normalizeTimeFrame(raw)

	if opts, ok := jsonmap.MapAt(raw,
		"shipment_options", "shipmentOptions", "options", "shipment_options_data"); ok {
		sel.ShipmentOptions = jsonmap.Clone(opts)
	}

	sel.PackageType = jsonmap.StringAt(raw, "package_type", "packageType")
	sel.Platform = jsonmap.StringAt(raw, "platform")
	sel.Price = normalizePrice(jsonmap.FirstPath(raw, "price", "selected_price", "selectedPrice"))

	return sel
}

func normalizeCarrier(v any) string {
	if m, ok := jsonmap.AsMap(v); ok {
		v = jsonmap.FirstPath(m, "name", "key", "id")
	}
	s, ok := jsonmap.String(v)
	if !ok {
		return ""
	}
	if key, ok := carrier.ParseKey(s); ok {
		return key.String()
	}
	return strings.ToLower(s)
}

func normalizeTimeFrame(raw jsonmap.Map) *TimeFrame {
	tf := &TimeFrame{}
	if m, ok := jsonmap.MapAt(raw, "time_frame", "timeFrame"); ok {
		tf.Start = jsonmap.StringAt(m, "start", "time_frame_start", "timeFrameStart")
		tf.End = jsonmap.StringAt(m, "end", "time_frame_end", "timeFrameEnd")
	} else {
		tf.Start = jsonmap.StringAt(raw, "timeFrameStart", "time_frame_start")
		tf.End = jsonmap.StringAt(raw, "timeFrameEnd", "time_frame_end")
	}
	if tf.Start == "" && tf.End == "" {
		return nil
	}
	return tf
}

func normalizePrice(v any) *Price {
	if n, ok := jsonmap.Number(v); ok {
		return &Price{Amount: n}
	}
	m, ok := jsonmap.AsMap(v)
	if !ok {
		return nil
	}
	n, ok := jsonmap.Number(m["amount"])
	if !ok {
		return nil
	}
	currency, _ := jsonmap.String(m["currency"])
	return &Price{Amount: n, Currency: currency}
}

func normalizePickup(src jsonmap.Map) *Pickup {
	p := &Pickup{
		LocationCode: jsonmap.StringAt(src,
			"location_code", "locationCode", "code",
			"location.location_code", "location.locationCode"),
		RetailNetworkID: jsonmap.StringAt(src,
			"retail_network_id", "retailNetworkId", "networkId", "retail_network",
			"location.retail_network_id", "location.retailNetworkId"),
		LocationName: jsonmap.StringAt(src,
			"location_name", "locationName", "name",
			"location.location_name", "location.locationName", "location.name"),
	}

	// Address fields are read from a nested address first, then from the
	// pickup record itself for flat payloads.
	sources := make([]jsonmap.Map, 0, 2)
	if addr, ok := jsonmap.MapAt(src,
		"address", "location_address", "locationAddress", "location.address"); ok {
		sources = append(sources, addr)
	}
	sources = append(sources, src)

	field := func(paths ...string) string {
		for _, m := range sources {
			if s := jsonmap.StringAt(m, paths...); s != "" {
				return s
			}
		}
		return ""
	}
	p.Address = PickupAddress{
		CC:           strings.ToUpper(field("cc", "country_code", "countryCode", "country")),
		City:         field("city"),
		Number:       field("number", "house_number", "houseNumber"),
		NumberSuffix: field("number_suffix", "numberSuffix", "number_addition", "numberAddition", "addition"),
		PostalCode:   field("postal_code", "postalCode", "zip", "zipCode"),
		Street:       field("street", "street_name", "streetName"),
	}

	if p.LocationCode == "" && p.RetailNetworkID == "" && p.LocationName == "" && p.Address == (PickupAddress{}) {
		return nil
	}
	return p
}
