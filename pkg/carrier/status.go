package carrier

import "github.com/tournevent/myparcel/pkg/jsonmap"

// Consignment statuses set locally. Statuses reported by the carrier are
// stored as received.
const (
	StatusConcept    = "concept"
	StatusRegistered = "registered"

	ReturnLabelSent = "sent"
)

// NormalizeStatus reads a carrier status that may be a string, a number or an
// object with status/code/id.
func NormalizeStatus(v any) string {
	if m, ok := jsonmap.AsMap(v); ok {
		return jsonmap.StringAt(m, "status", "code", "id")
	}
	s, _ := jsonmap.String(v)
	return s
}
