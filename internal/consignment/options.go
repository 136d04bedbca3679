package consignment

import (
	"regexp"
	"strings"

	"github.com/tournevent/myparcel/internal/orders"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// defaultWeight is sent when items carry no weight, in grams.
const defaultWeight = 1000

// shipmentOptionKeys are the boolean shipment flags the carrier accepts.
var shipmentOptionKeys = map[string]bool{
	"age_check":         true,
	"collect":           true,
	"cooled_delivery":   true,
	"insurance":         true,
	"large_format":      true,
	"only_recipient":    true,
	"return":            true,
	"same_day_delivery": true,
	"saturday_delivery": true,
	"signature":         true,
}

var upper = regexp.MustCompile(`([A-Z])`)

func snakeCase(s string) string {
	return strings.ToLower(upper.ReplaceAllString(s, "_$1"))
}

// mapShipmentOptions keeps allow-listed flags. camelCase keys are converted
// unless they already contain an underscore; booleans become 1/0 and
// numbers pass through.
func mapShipmentOptions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		name := key
		if !strings.Contains(key, "_") {
			name = snakeCase(key)
		}
		if !shipmentOptionKeys[name] {
			continue
		}
		switch v := value.(type) {
		case bool:
			if v {
				out[name] = 1
			} else {
				out[name] = 0
			}
		default:
			if _, isString := v.(string); isString {
				continue
			}
			if n, ok := jsonmap.Number(v); ok {
				out[name] = n
			}
		}
	}
	return out
}

var (
	dateOnly     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTime  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	minutesOnly  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)
	fractionTail = regexp.MustCompile(`\.\d+$`)
)

// normalizeDeliveryDate converts checkout dates to "YYYY-MM-DD HH:MM:SS".
// Values in other shapes pass through.
func normalizeDeliveryDate(value string) string {
	switch {
	case value == "":
		return ""
	case dateOnly.MatchString(value):
		return value + " 00:00:00"
	case isoDateTime.MatchString(value):
		cleaned := strings.TrimSuffix(strings.Replace(value, "T", " ", 1), "Z")
		if minutesOnly.MatchString(cleaned) {
			return cleaned + ":00"
		}
		return fractionTail.ReplaceAllString(cleaned, "")
	default:
		return value
	}
}

// orderWeight sums quantity times variant weight in grams.
func orderWeight(items []orders.LineItem) int {
	var total float64
	for _, item := range items {
		if item.Variant == nil || item.Variant.Weight == nil {
			continue
		}
		total += float64(item.Quantity) * *item.Variant.Weight
	}
	if total <= 0 {
		return defaultWeight
	}
	return int(total)
}

// recipientName is the addressee's full name, else the order email.
func recipientName(addr *orders.Address, email string) string {
	if name := addr.FullName(); name != "" {
		return name
	}
	return email
}

func addressSnapshot(addr *orders.Address) store.JSONB {
	return store.JSONB{
		"first_name":   addr.FirstName,
		"last_name":    addr.LastName,
		"company":      addr.Company,
		"address_1":    addr.Address1,
		"address_2":    addr.Address2,
		"city":         addr.City,
		"postal_code":  addr.PostalCode,
		"province":     addr.Province,
		"country_code": addr.CountryCode,
		"phone":        addr.Phone,
	}
}
