package pricing

import (
	"strings"

	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/selection"
)

// Surcharge is a live price found for a selection, in minor units.
type Surcharge struct {
	Amount   int64
	Currency string
}

// extractPrice accepts a number, {amount}, {price: number} or
// {price: {amount}}.
func extractPrice(candidate any) (Surcharge, bool) {
	if candidate == nil {
		return Surcharge{}, false
	}
	if n, ok := numeric(candidate); ok {
		return Surcharge{Amount: round(n)}, true
	}
	m, ok := jsonmap.AsMap(candidate)
	if !ok {
		return Surcharge{}, false
	}
	currency, _ := jsonmap.String(m["currency"])
	if n, ok := numeric(m["amount"]); ok {
		return Surcharge{Amount: round(n), Currency: currency}, true
	}
	if n, ok := numeric(m["price"]); ok {
		return Surcharge{Amount: round(n)}, true
	}
	if price, ok := jsonmap.AsMap(m["price"]); ok {
		if n, ok := numeric(price["amount"]); ok {
			currency, _ := jsonmap.String(price["currency"])
			return Surcharge{Amount: round(n), Currency: currency}, true
		}
	}
	return Surcharge{}, false
}

// numeric accepts JSON numbers only; numeric strings are not prices.
func numeric(v any) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return jsonmap.Number(v)
}

// priceOf extracts the price of an entry, reading its "price" field when
// set and the entry itself otherwise.
func priceOf(entry jsonmap.Map) (Surcharge, bool) {
	if p, ok := entry["price"]; ok && p != nil {
		return extractPrice(p)
	}
	return extractPrice(entry)
}

// clock reduces "2024-05-01 08:00:00" or "2024-05-01T08:00:00Z" to "08:00"
// so carrier datetimes compare against checkout HH:MM values.
func clock(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}
	if len(s) > 5 && s[2] == ':' {
		s = s[:5]
	}
	return s
}

// matchesTime compares time frames at minute precision: a checkout "08:00"
// equals a carrier "2024-05-01 08:00:00". Unset sides match anything.
func matchesTime(sel *selection.Selection, start, end string) bool {
	tf := sel.TimeFrame
	if tf == nil || (tf.Start == "" && tf.End == "") {
		return true
	}
	if tf.Start != "" && start != "" && clock(tf.Start) != clock(start) {
		return false
	}
	if tf.End != "" && end != "" && clock(tf.End) != clock(end) {
		return false
	}
	return true
}

// typeMismatch reports whether a carrier-side type is present and differs
// from want.
func typeMismatch(want carrier.DeliveryType, got any) bool {
	if want.IsZero() || !jsonmap.Present(got) {
		return false
	}
	return !want.Matches(got)
}

func day(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// DeliveryPrice finds the price of a home-delivery selection among the
// carrier's delivery days. Time-frame prices are tried before possibility
// prices within each day.
func DeliveryPrice(sel *selection.Selection, deliveries []jsonmap.Map) (Surcharge, bool) {
	if sel == nil || len(deliveries) == 0 || sel.DeliveryType.IsZero() {
		return Surcharge{}, false
	}
	want := sel.DeliveryType

	for _, delivery := range deliveries {
		date := jsonmap.StringAt(delivery, "date", "day", "delivery_date")
		if sel.Date != "" && date != "" && day(date) != day(sel.Date) {
			continue
		}

		frames := jsonmap.Maps(jsonmap.First(delivery["time"], delivery["delivery_time_frames"]))
		for _, frame := range frames {
			if typeMismatch(want, jsonmap.FirstPath(frame, "type", "delivery_type", "delivery_type_name", "delivery_type_id")) {
				continue
			}
			start := jsonmap.StringAt(frame, "start", "time_frame.start", "delivery_time_frame.start")
			end := jsonmap.StringAt(frame, "end", "time_frame.end", "delivery_time_frame.end")
			if !matchesTime(sel, start, end) {
				continue
			}
			if price, ok := priceOf(frame); ok {
				return price, true
			}
		}

		for _, possibility := range jsonmap.Maps(delivery["possibilities"]) {
			if typeMismatch(want, jsonmap.FirstPath(possibility, "type", "delivery_type", "delivery_type_name", "delivery_type_id")) {
				continue
			}
			if windows := jsonmap.Maps(possibility["delivery_time_frames"]); len(windows) == 2 {
				start, _ := jsonmap.String(windows[0]["date_time"])
				end, _ := jsonmap.String(windows[1]["date_time"])
				if !matchesTime(sel, start, end) {
					continue
				}
			}
			if price, ok := priceOf(possibility); ok {
				return price, true
			}
		}
	}
	return Surcharge{}, false
}

// PickupPrice finds the price of a pickup selection. Locations are matched
// by location code and retail network; a location's typed possibilities
// are tried before its own price.
func PickupPrice(sel *selection.Selection, locations []jsonmap.Map) (Surcharge, bool) {
	if sel == nil || sel.Pickup == nil || sel.Pickup.LocationCode == "" {
		return Surcharge{}, false
	}
	want := sel.DeliveryType
	if want.IsZero() {
		want = carrier.DeliveryPickup
	}

	for _, loc := range locations {
		code := jsonmap.StringAt(loc, "location.location_code", "location_code")
		network := jsonmap.StringAt(loc, "location.retail_network_id", "retail_network_id")
		if code != "" && code != sel.Pickup.LocationCode {
			continue
		}
		if sel.Pickup.RetailNetworkID != "" && network != "" && network != sel.Pickup.RetailNetworkID {
			continue
		}

		for _, possibility := range jsonmap.Maps(loc["possibilities"]) {
			if typeMismatch(want, jsonmap.FirstPath(possibility, "delivery_type_name", "delivery_type_id", "type")) {
				continue
			}
			if price, ok := priceOf(possibility); ok {
				return price, true
			}
		}
		if price, ok := priceOf(loc); ok {
			return price, true
		}
	}
	return Surcharge{}, false
}
