// Package carrier holds the vocabulary shared by every MyParcel-facing
// component: carrier keys and their numeric ids, delivery types, label
// formats, consignment statuses and the error taxonomy.
package carrier

import (
	"strconv"
	"strings"
)

// Key identifies a carrier by its lowercase name.
type Key string

const (
	PostNL Key = "postnl"
	BPost  Key = "bpost"
	DPD    Key = "dpd"
)

// DefaultKey is used when neither the selection nor the settings name a carrier.
const DefaultKey = BPost

var carrierIDs = map[Key]int{
	PostNL: 1,
	BPost:  2,
	DPD:    4,
}

// DefaultAllowed returns the carriers enabled for a fresh settings row.
func DefaultAllowed() []Key {
	return []Key{PostNL, BPost, DPD}
}

// ParseKey accepts a carrier name in any case, or its numeric id.
func ParseKey(s string) (Key, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := carrierIDs[Key(s)]; ok {
		return Key(s), true
	}
	if n, err := strconv.Atoi(s); err == nil {
		for k, id := range carrierIDs {
			if id == n {
				return k, true
			}
		}
	}
	return "", false
}

// ID returns the numeric carrier id used by the carrier API.
func (k Key) ID() (int, bool) {
	id, ok := carrierIDs[k]
	return id, ok
}

func (k Key) String() string {
	return string(k)
}

// Keys converts names to keys, dropping unknown carriers and duplicates
// while keeping order.
func Keys(names []string) []Key {
	out := make([]Key, 0, len(names))
	seen := make(map[Key]bool, len(names))
	for _, n := range names {
		k, ok := ParseKey(n)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// IsNLOrBE reports whether a country code requires a house number.
func IsNLOrBE(countryCode string) bool {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	return cc == "NL" || cc == "BE"
}
