package myparcel

import (
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// ExtractShipment returns the first shipment in a create or list response.
func ExtractShipment(resp jsonmap.Map) jsonmap.Map {
	if m, ok := jsonmap.MapAt(resp, "data.shipments.0", "shipments.0", "data.shipment", "data.0"); ok {
		return m
	}
	return nil
}

// TrackedShipment returns the shipment in a GET /shipments/{id} response,
// falling back to the data object itself.
func TrackedShipment(resp jsonmap.Map) jsonmap.Map {
	if m, ok := jsonmap.MapAt(resp, "data.shipments.0", "shipments.0", "data"); ok {
		return m
	}
	return resp
}

// ShipmentID normalises an id that may be a number, a string or an object
// carrying the id under one of several keys.
func ShipmentID(v any) string {
	if s, ok := jsonmap.String(v); ok {
		return s
	}
	m, ok := jsonmap.AsMap(v)
	if !ok {
		return ""
	}
	keys := []string{"id", "shipment_id", "shipmentId", "myparcel_id", "myparcelId"}
	for _, k := range keys {
		if id := ShipmentID(m[k]); id != "" {
			return id
		}
	}
	if data, ok := jsonmap.AsMap(m["data"]); ok {
		for _, k := range keys {
			if id := ShipmentID(data[k]); id != "" {
				return id
			}
		}
	}
	if id := ShipmentID(jsonmap.Get(m, "ids.0")); id != "" {
		return id
	}
	return ShipmentID(jsonmap.Get(m, "shipments.0.id"))
}

// CreatedShipmentID finds the booked shipment id in a POST /shipments
// response.
func CreatedShipmentID(resp jsonmap.Map, shipment jsonmap.Map) string {
	candidates := []any{
		shipment["id"],
		jsonmap.Get(resp, "data.ids.0"),
		jsonmap.Get(resp, "ids.0"),
		jsonmap.Get(resp, "data.id"),
		resp["id"],
	}
	for _, c := range candidates {
		if id := ShipmentID(c); id != "" {
			return id
		}
	}
	return ""
}

// LabelLinkURL reads the download link from a label link response.
func LabelLinkURL(resp jsonmap.Map) string {
	return jsonmap.StringAt(resp, "data.pdfs.url", "pdfs.url", "data.url", "url")
}
