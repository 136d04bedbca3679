package carrier

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error for callers that need to react to a category
// rather than a specific condition (HTTP status mapping, logging levels).
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindExternal      Kind = "external"
	KindPrecondition  Kind = "precondition"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
)

// Error is a MyParcel integration error.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	Body       string
	Fields     []string
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two errors by code, so a detailed copy of a sentinel still
// satisfies errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error.
func NewError(kind Kind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Cause = err
	return &c
}

// WithStatusCode returns a copy of e carrying an upstream HTTP status.
func (e *Error) WithStatusCode(code int) *Error {
	c := *e
	c.StatusCode = code
	return &c
}

// WithFields returns a copy of e listing the offending field names.
func (e *Error) WithFields(fields ...string) *Error {
	c := *e
	c.Fields = append([]string(nil), fields...)
	return &c
}

// Sentinel errors. Compare with errors.Is.
var (
	ErrMissingEncryptionKey = NewError(KindConfiguration, "missing_encryption_key",
		"MYPARCEL_SETTINGS_ENCRYPTION_KEY is required to store MyParcel settings")
	ErrInvalidEncryptionKey = NewError(KindConfiguration, "invalid_encryption_key",
		"MYPARCEL_SETTINGS_ENCRYPTION_KEY must be 32 bytes (base64 or hex)")
	ErrInvalidCiphertext = NewError(KindConfiguration, "invalid_ciphertext", "Invalid encrypted payload")
	ErrMissingAPIKey     = NewError(KindConfiguration, "missing_api_key", "MyParcel API key is not configured")

	ErrIncompleteAddress = NewError(KindValidation, "incomplete_address",
		"Order shipping address is incomplete")
	ErrAddressRequired = NewError(KindValidation, "address_required",
		"Shipping address is required to select MyParcel delivery options")
	ErrHouseNumberRequired = NewError(KindValidation, "house_number_required",
		"House number is required for NL/BE shipments")
	ErrUnsupportedCarrier = NewError(KindValidation, "unsupported_carrier", "Unsupported carrier")
	ErrMissingPickupFields = NewError(KindValidation, "missing_pickup_fields",
		"Pickup selection is missing required fields")
	ErrReturnLabelUnsupported = NewError(KindValidation, "return_label_unsupported",
		"Return labels are only available for bpost on SendMyParcel.be")
	ErrInvalidInput = NewError(KindValidation, "invalid_input", "Invalid input")

	ErrNoShipmentID = NewError(KindPrecondition, "no_shipment_id", "Consignment has no MyParcel id")
	ErrInvalidShipmentID = NewError(KindPrecondition, "invalid_shipment_id",
		"Consignment has an invalid MyParcel id")

	ErrConsignmentNotFound = NewError(KindNotFound, "consignment_not_found", "Consignment not found")
	ErrOrderNotFound       = NewError(KindNotFound, "order_not_found", "Order not found")

	ErrAlreadyExported = NewError(KindConflict, "already_exported", "Order already has a consignment")

	ErrRequestFailed = NewError(KindExternal, "request_failed", "MyParcel request failed")
	ErrMissingShipmentIDResponse = NewError(KindExternal, "missing_shipment_id",
		"MyParcel response did not include a shipment id")
	ErrMissingLabelLink = NewError(KindExternal, "missing_label_link",
		"MyParcel label response did not include a download link")
	ErrUnavailable = NewError(KindExternal, "unavailable", "MyParcel is temporarily unavailable")
)

// NewRequestError describes a non-2xx response. label names the request
// family ("", "label", "delivery options") as it appears in the message.
func NewRequestError(label string, status int, body string) *Error {
	prefix := "MyParcel request failed"
	if label != "" {
		prefix = "MyParcel " + label + " request failed"
	}
	e := ErrRequestFailed.Withf("%s (%d): %s", prefix, status, strings.TrimSpace(body))
	e.StatusCode = status
	e.Body = body
	return e
}

// NewMissingPickupFieldsError lists the pickup fields that could not be resolved.
func NewMissingPickupFieldsError(fields []string) *Error {
	return ErrMissingPickupFields.
		Withf("Pickup selection is missing required fields (%s). Use Force override to provide pickup data.",
			strings.Join(fields, ", ")).
		WithFields(fields...)
}

// KindOf returns the Kind of the first Error in err's chain. Errors that are
// not an *Error report KindExternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
