package pricing

import "github.com/tournevent/myparcel/pkg/jsonmap"

var totalKeys = []string{"item_total", "item_subtotal", "subtotal", "total"}

// CartTotal finds the cart's item total in major units within the pricing
// context. The total may sit on the context itself or under "cart", as a
// number, a numeric string or a {value|raw|numeric} object. Without a total
// field the line items are summed.
func CartTotal(ctx jsonmap.Map) (float64, bool) {
	cart, _ := jsonmap.AsMap(ctx["cart"])
	for _, src := range []jsonmap.Map{ctx, cart} {
		if src == nil {
			continue
		}
		for _, k := range totalKeys {
			if v, ok := amount(src[k]); ok {
				return v, true
			}
		}
	}

	for _, src := range []jsonmap.Map{ctx, cart} {
		if src == nil {
			continue
		}
		if items := jsonmap.Maps(src["items"]); len(items) > 0 {
			return sumItems(items)
		}
	}
	return 0, false
}

func sumItems(items []jsonmap.Map) (float64, bool) {
	var sum float64
	found := false
	for _, item := range items {
		if v, ok := itemTotal(item); ok {
			sum += v
			found = true
		}
	}
	return sum, found
}

func itemTotal(item jsonmap.Map) (float64, bool) {
	for _, k := range []string{"item_total", "total", "subtotal"} {
		if v, ok := amount(item[k]); ok {
			return v, true
		}
	}
	unit, ok := amount(item["unit_price"])
	if !ok {
		return 0, false
	}
	qty, ok := jsonmap.Number(item["quantity"])
	if !ok {
		qty = 1
	}
	return unit * qty, true
}

// amount reads a number, a numeric string, or a big-number object.
func amount(v any) (float64, bool) {
	if n, ok := jsonmap.Number(v); ok {
		return n, true
	}
	m, ok := jsonmap.AsMap(v)
	if !ok {
		return 0, false
	}
	for _, k := range []string{"value", "raw", "numeric"} {
		inner := m[k]
		if n, ok := jsonmap.Number(inner); ok {
			return n, true
		}
		if nested, ok := jsonmap.AsMap(inner); ok {
			if n, ok := jsonmap.Number(nested["value"]); ok {
				return n, true
			}
		}
	}
	return 0, false
}
