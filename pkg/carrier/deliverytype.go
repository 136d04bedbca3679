package carrier

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// DeliveryType is a delivery window category. Known types carry both the
// numeric id and the name; unknown values keep whichever form they arrived in.
type DeliveryType struct {
	ID   int
	Name string
}

var deliveryTypeNames = map[int]string{
	1: "morning",
	2: "standard",
	3: "evening",
	4: "pickup",
	7: "express",
}

var deliveryTypeIDs = func() map[string]int {
	m := make(map[string]int, len(deliveryTypeNames))
	for id, name := range deliveryTypeNames {
		m[name] = id
	}
	return m
}()

var (
	DeliveryStandard = DeliveryType{ID: 2, Name: "standard"}
	DeliveryPickup   = DeliveryType{ID: 4, Name: "pickup"}
)

// ParseDeliveryType accepts a name or an id in string or number form.
func ParseDeliveryType(v any) (DeliveryType, bool) {
	if n, ok := v.(float64); ok {
		return deliveryTypeFromID(int(n)), true
	}
	if n, ok := v.(int); ok {
		return deliveryTypeFromID(n), true
	}
	s, ok := jsonmap.String(v)
	if !ok {
		return DeliveryType{}, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return deliveryTypeFromID(n), true
	}
	name := strings.ToLower(s)
	if id, ok := deliveryTypeIDs[name]; ok {
		return DeliveryType{ID: id, Name: name}, true
	}
	return DeliveryType{Name: name}, true
}

func deliveryTypeFromID(id int) DeliveryType {
	if name, ok := deliveryTypeNames[id]; ok {
		return DeliveryType{ID: id, Name: name}
	}
	return DeliveryType{ID: id, Name: strconv.Itoa(id)}
}

// IsZero reports whether no delivery type was given.
func (d DeliveryType) IsZero() bool {
	return d.ID == 0 && d.Name == ""
}

// Known reports whether the type is in the carrier's table.
func (d DeliveryType) Known() bool {
	_, ok := deliveryTypeNames[d.ID]
	return ok
}

func (d DeliveryType) String() string {
	return d.Name
}

// Matches compares a carrier-side type value (name or id) against d.
func (d DeliveryType) Matches(v any) bool {
	other, ok := ParseDeliveryType(v)
	if !ok || d.IsZero() {
		return false
	}
	if d.ID != 0 && other.ID != 0 {
		return d.ID == other.ID
	}
	return d.Name == other.Name
}

// MarshalJSON writes the name, which is what checkout payloads carry.
func (d DeliveryType) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Name)
}

// UnmarshalJSON accepts names and ids.
func (d *DeliveryType) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, _ := ParseDeliveryType(v)
	*d = parsed
	return nil
}
