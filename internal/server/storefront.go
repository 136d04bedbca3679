package server

import (
	"net/http"
	"strings"

	"github.com/tournevent/myparcel/pkg/address"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"go.uber.org/zap"
)

type deliveryOptionsResponse struct {
	Platform        string                   `json:"platform"`
	PackageType     string                   `json:"package_type"`
	Carriers        []string                 `json:"carriers"`
	Deliveries      map[string][]jsonmap.Map `json:"deliveries"`
	PickupLocations map[string][]jsonmap.Map `json:"pickup_locations"`
	Errors          []string                 `json:"errors,omitempty"`
}

// handleDeliveryOptions lists delivery windows and pickup points for every
// allowed carrier, optionally narrowed by repeated ?carrier= parameters.
func (s *Server) handleDeliveryOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cc := strings.ToUpper(strings.TrimSpace(firstNonEmpty(q.Get("cc"), q.Get("country_code"))))
	postalCode := strings.TrimSpace(q.Get("postal_code"))
	if cc == "" || postalCode == "" {
		s.writeError(w, r, carrier.ErrIncompleteAddress.Withf("Shipping address is incomplete"))
		return
	}

	streetName, number := q.Get("street"), q.Get("number")
	if line1 := q.Get("address_1"); line1 != "" {
		parsed := address.Parse(line1, q.Get("address_2"))
		streetName = firstNonEmpty(parsed.Street, streetName)
		number = firstNonEmpty(parsed.Number, number)
	}

	settings, err := s.consignments.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	allowed := carrier.Keys(settings.AllowedCarriers)
	if len(settings.AllowedCarriers) == 0 {
		allowed = carrier.DefaultAllowed()
	}
	if filter := carrier.Keys(q["carrier"]); len(q["carrier"]) > 0 {
		keep := make(map[carrier.Key]bool, len(filter))
		for _, k := range filter {
			keep[k] = true
		}
		narrowed := allowed[:0:0]
		for _, k := range allowed {
			if keep[k] {
				narrowed = append(narrowed, k)
			}
		}
		allowed = narrowed
	}

	results, errs := deliveryoptions.ForCarriers(r.Context(), s.options, deliveryoptions.Params{
		CC:         cc,
		PostalCode: postalCode,
		City:       q.Get("city"),
		Street:     streetName,
		Number:     number,
	}, allowed)

	resp := deliveryOptionsResponse{
		Platform:        deliveryoptions.DefaultPlatform,
		PackageType:     deliveryoptions.DefaultPackageType,
		Carriers:        make([]string, 0, len(allowed)),
		Deliveries:      make(map[string][]jsonmap.Map, len(allowed)),
		PickupLocations: make(map[string][]jsonmap.Map, len(allowed)),
	}
	for _, k := range allowed {
		resp.Carriers = append(resp.Carriers, k.String())
		res, ok := results[k]
		if !ok {
			continue
		}
		resp.Deliveries[k.String()] = nonNil(res.Deliveries)
		resp.PickupLocations[k.String()] = nonNil(res.PickupLocations)
	}
	for _, err := range errs {
		s.logger.Ctx(r.Context()).Warn("Delivery options lookup failed", zap.Error(err))
		resp.Errors = append(resp.Errors, err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFulfillmentOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fulfillment.GetFulfillmentOptions(r.Context()))
}

// fulfillmentRequest is the body shared by the provider endpoints.
type fulfillmentRequest struct {
	OptionData jsonmap.Map
	Data       jsonmap.Map
	Context    jsonmap.Map
}

func readFulfillmentRequest(r *http.Request) (fulfillmentRequest, error) {
	body, err := decodeBody(r)
	if err != nil {
		return fulfillmentRequest{}, err
	}
	var req fulfillmentRequest
	req.OptionData, _ = jsonmap.MapAt(body, "option_data", "optionData")
	req.Data, _ = jsonmap.MapAt(body, "data")
	req.Context, _ = jsonmap.MapAt(body, "context")
	return req, nil
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, err := readFulfillmentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.fulfillment.ValidateFulfillmentData(r.Context(), req.OptionData, req.Data, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if data == nil {
		data = jsonmap.Map{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleCalculatePrice(w http.ResponseWriter, r *http.Request) {
	req, err := readFulfillmentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.fulfillment.CalculatePrice(r.Context(), req.OptionData, req.Data, req.Context))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonNil(list []jsonmap.Map) []jsonmap.Map {
	if list == nil {
		return []jsonmap.Map{}
	}
	return list
}
