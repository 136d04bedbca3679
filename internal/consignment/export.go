package consignment

import (
	"context"
	"errors"
	"strings"

	"github.com/tournevent/myparcel/internal/orders"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/address"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"github.com/tournevent/myparcel/pkg/selection"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ExportInput tunes an export.
type ExportInput struct {
	// Carrier is used when the selection names none.
	Carrier string
	// Selection replaces or, with ForceOverride, overlays the checkout
	// selection.
	Selection     jsonmap.Map
	ForceOverride bool
	// Options are merged into the shipment options last.
	Options       map[string]any
	LabelFormat   string
	LabelPosition int
	FulfillmentID string
}

// ParseExportInput reads an export request body.
func ParseExportInput(body jsonmap.Map) (ExportInput, error) {
	in := ExportInput{
		Carrier:       jsonmap.StringAt(body, "carrier"),
		FulfillmentID: jsonmap.StringAt(body, "fulfillment_id", "fulfillmentId"),
	}
	if sel, ok := jsonmap.MapAt(body, "selection_override", "selectionOverride", "selection"); ok {
		in.Selection = sel
	}
	for _, k := range []string{"force_override", "forceOverride"} {
		if b, ok := jsonmap.Bool(body[k]); ok && b {
			in.ForceOverride = true
		}
	}
	if opts, ok := jsonmap.MapAt(body, "options"); ok {
		in.Options = opts
	}
	if raw := jsonmap.StringAt(body, "label_format", "labelFormat"); raw != "" {
		format, ok := carrier.ParseLabelFormat(raw)
		if !ok {
			return in, carrier.ErrInvalidInput.Withf("label_format must be A4 or A6")
		}
		in.LabelFormat = string(format)
	}
	if raw := jsonmap.FirstPath(body, "label_position", "labelPosition"); raw != nil {
		n, ok := jsonmap.Number(raw)
		if !ok || !carrier.ValidPosition(int(n)) {
			return in, carrier.ErrInvalidInput.Withf("label_position must be between 1 and 4")
		}
		in.LabelPosition = int(n)
	}
	return in, nil
}

// ExportOrder books a shipment for order and stores the consignment. An
// order that already has a consignment gets it back without any carrier
// traffic.
func (s *Service) ExportOrder(ctx context.Context, order *orders.Order, in ExportInput) (_ *store.Consignment, err error) {
	ctx, end := s.start(ctx, "ExportOrder")
	defer func() { end(err) }()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("order.id", order.ID))

	existing, err := s.repo.FindConsignmentByOrder(ctx, order.ID)
	if err == nil {
		s.metrics.RecordExport("existing")
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	setting, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.apiKey(setting)
	if err != nil {
		return nil, err
	}

	orderSel, _ := selection.FromShippingMethods(order.ShippingMethodData())
	var override *selection.Selection
	if in.Selection != nil {
		override = selection.Normalize(in.Selection)
	}
	sel := resolveSelection(orderSel, override, in)
	key, err := resolveCarrier(orderSel, override, sel, in, setting)
	if err != nil {
		return nil, err
	}
	carrierID, _ := key.ID()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("carrier", key.String()))

	addr := order.ShippingAddress
	if addr == nil || addr.Address1 == "" || addr.City == "" || addr.PostalCode == "" || addr.CountryCode == "" {
		return nil, carrier.ErrIncompleteAddress
	}
	cc := strings.ToUpper(addr.CountryCode)
	street := address.Parse(addr.Address1, addr.Address2)
	if carrier.IsNLOrBE(cc) && !street.HasNumber() {
		return nil, carrier.ErrHouseNumberRequired
	}
	streetName := street.Street
	if streetName == "" {
		streetName = addr.Address1
	}

	shipment := myparcel.Shipment{
		Carrier:             carrierID,
		ReferenceIdentifier: order.Reference(),
		Recipient: myparcel.Recipient{
			CC:           cc,
			City:         addr.City,
			PostalCode:   addr.PostalCode,
			Street:       streetName,
			Number:       street.Number,
			NumberSuffix: street.Suffix,
			Region:       addr.Province,
			Email:        order.Email,
			Phone:        addr.Phone,
			Person:       recipientName(addr, order.Email),
			Company:      addr.Company,
		},
		Options:            map[string]any{"package_type": 1},
		PhysicalProperties: &myparcel.PhysicalProperties{Weight: orderWeight(order.Items)},
	}

	if sel != nil {
		deliveryType := sel.DeliveryType
		if deliveryType.IsZero() && sel.PickupChosen() {
			deliveryType = carrier.DeliveryPickup
		}
		if deliveryType.ID != 0 {
			shipment.Options["delivery_type"] = deliveryType.ID
		}
		if sel.Date != "" && key == carrier.PostNL && setting.DeliveryDateEnabled() {
			shipment.Options["delivery_date"] = normalizeDeliveryDate(sel.Date)
		}
		for k, v := range mapShipmentOptions(sel.ShipmentOptions) {
			shipment.Options[k] = v
		}
		if sel.PickupChosen() {
			pickup, err := s.buildPickup(ctx, sel, deliveryoptions.Params{
				Carrier:    key.String(),
				CC:         cc,
				PostalCode: addr.PostalCode,
				City:       addr.City,
				Street:     streetName,
				Number:     street.Number,
			})
			if err != nil {
				return nil, err
			}
			shipment.Pickup = pickup
		}
	}
	for k, v := range in.Options {
		shipment.Options[k] = v
	}

	var resp jsonmap.Map
	err = s.call("create_shipments", func() error {
		var err error
		resp, err = s.api.CreateShipments(ctx, apiKey, &myparcel.ShipmentsRequest{
			Data: myparcel.ShipmentsData{Shipments: []myparcel.Shipment{shipment}},
		})
		return err
	})
	if err != nil {
		s.metrics.RecordExport("failed")
		s.logger.Ctx(ctx).Error("MyParcel shipment creation failed",
			zap.String("order_id", order.ID),
			zap.String("carrier", key.String()),
			zap.Error(err),
		)
		return nil, err
	}

	booked := myparcel.ExtractShipment(resp)
	myparcelID := myparcel.CreatedShipmentID(resp, booked)
	if myparcelID == "" {
		s.logger.Ctx(ctx).Warn("Stored consignment without a MyParcel id",
			zap.String("order_id", order.ID),
			zap.Error(carrier.ErrMissingShipmentIDResponse),
		)
	}

	reference := jsonmap.StringAt(booked, "reference_identifier")
	if reference == "" {
		reference = shipment.ReferenceIdentifier
	}
	status := carrier.NormalizeStatus(booked["status"])
	if status == "" {
		status = carrier.StatusConcept
	}
	format := s.labelFormat(setting)
	if f, ok := carrier.ParseLabelFormat(in.LabelFormat); ok {
		format = f
	}
	position := in.LabelPosition
	if position <= 0 {
		position = setting.DefaultA4Position
	}
	if position <= 0 {
		position = carrier.DefaultA4Position
	}

	c := &store.Consignment{
		OrderID:               order.ID,
		FulfillmentID:         in.FulfillmentID,
		Carrier:               key.String(),
		MyParcelID:            myparcelID,
		Reference:             reference,
		Status:                status,
		Barcode:               jsonmap.StringAt(booked, "barcode"),
		TrackTraceURL:         jsonmap.StringAt(booked, "track_trace_url"),
		LabelFormat:           string(format),
		LabelPosition:         position,
		OptionsJSON:           store.JSONB(shipment.Options),
		RecipientSnapshotJSON: addressSnapshot(addr),
		LastSyncedAt:          s.timestamp(),
	}

	if err := s.repo.CreateConsignment(ctx, c); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			s.metrics.RecordExport("failed")
			return nil, err
		}
		// A concurrent export won the unique index; our booking is orphaned.
		s.logger.Ctx(ctx).Warn("Concurrent export detected, returning existing consignment",
			zap.String("order_id", order.ID),
			zap.String("orphaned_myparcel_id", myparcelID),
		)
		winner, findErr := s.repo.FindConsignmentByOrder(ctx, order.ID)
		if findErr != nil {
			s.metrics.RecordExport("failed")
			return nil, carrier.ErrAlreadyExported.WithCause(findErr)
		}
		s.metrics.RecordExport("conflict")
		return winner, nil
	}

	s.metrics.RecordExport("created")
	s.logger.Ctx(ctx).Info("Exported order to MyParcel",
		zap.String("order_id", order.ID),
		zap.String("consignment_id", c.ID),
		zap.String("myparcel_id", myparcelID),
		zap.String("carrier", key.String()),
	)
	return c, nil
}

// resolveSelection picks the selection to ship with. Without force the
// checkout selection wins and the override only fills in when checkout
// stored none; with force the override is laid over the checkout selection.
func resolveSelection(orderSel, override *selection.Selection, in ExportInput) *selection.Selection {
	if !in.ForceOverride {
		if orderSel != nil {
			return orderSel
		}
		return override
	}
	if orderSel == nil && override == nil && in.Carrier == "" {
		return nil
	}
	merged := selection.Merge(orderSel, override)
	if merged == nil {
		merged = &selection.Selection{}
	}
	if in.Carrier != "" && override.CarrierKey() == "" {
		merged.Carrier = in.Carrier
	}
	return merged
}

func resolveCarrier(orderSel, override, sel *selection.Selection, in ExportInput, setting *store.Setting) (carrier.Key, error) {
	var candidates []string
	if in.ForceOverride {
		candidates = []string{override.CarrierKey(), in.Carrier, orderSel.CarrierKey()}
	} else {
		candidates = []string{sel.CarrierKey(), in.Carrier}
	}
	candidates = append(candidates, setting.DefaultCarrier, carrier.DefaultKey.String())

	for _, name := range candidates {
		if strings.TrimSpace(name) == "" {
			continue
		}
		key, ok := carrier.ParseKey(name)
		if !ok {
			return "", carrier.ErrUnsupportedCarrier.Withf("Unsupported carrier: %s", name)
		}
		return key, nil
	}
	return carrier.DefaultKey, nil
}
