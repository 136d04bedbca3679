package consignment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tournevent/myparcel/internal/orders"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"github.com/tournevent/myparcel/pkg/selection"
	"go.uber.org/zap"
)

// EmailReturnLabel asks the carrier to email a return label for the
// consignment. Only bpost supports it. The consignment status is left as is.
func (s *Service) EmailReturnLabel(ctx context.Context, id, email, name string) (_ *store.Consignment, err error) {
	ctx, end := s.start(ctx, "EmailReturnLabel")
	defer func() { end(err) }()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.MyParcelID) == "" {
		return nil, carrier.ErrNoShipmentID
	}
	if c.Carrier != carrier.BPost.String() {
		return nil, carrier.ErrReturnLabelUnsupported
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, carrier.ErrInvalidInput.Withf("email is required")
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	parent, err := strconv.ParseInt(strings.TrimSpace(c.MyParcelID), 10, 64)
	if err != nil {
		return nil, carrier.ErrInvalidShipmentID.Withf(
			"Consignment has an invalid MyParcel id (%s). Re-export the shipment to recover.", c.MyParcelID)
	}

	setting, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.apiKey(setting)
	if err != nil {
		return nil, err
	}

	bpostID, _ := carrier.BPost.ID()
	err = s.call("create_return_shipments", func() error {
		_, err := s.api.CreateReturnShipments(ctx, apiKey, &myparcel.ReturnShipmentsRequest{
			Data: myparcel.ReturnShipmentsData{ReturnShipments: []myparcel.ReturnShipment{{
				Parent:  parent,
				Carrier: bpostID,
				Email:   email,
				Name:    name,
			}}},
		})
		return err
	})
	if err != nil {
		s.recordFailure(ctx, c, "email_return_label", err)
		return nil, err
	}

	c.ReturnLabelSentAt = s.timestamp()
	c.ReturnLabelEmailStatus = carrier.ReturnLabelSent
	if err := s.repo.SaveConsignment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RefreshTrackTrace pulls the shipment state from the carrier and appends
// the response to the consignment's history.
func (s *Service) RefreshTrackTrace(ctx context.Context, id string) (_ *store.Consignment, err error) {
	ctx, end := s.start(ctx, "RefreshTrackTrace")
	defer func() { end(err) }()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.MyParcelID) == "" {
		return nil, carrier.ErrNoShipmentID
	}
	setting, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.apiKey(setting)
	if err != nil {
		return nil, err
	}

	var resp jsonmap.Map
	err = s.call("get_shipment", func() error {
		var err error
		resp, err = s.api.GetShipment(ctx, apiKey, strings.TrimSpace(c.MyParcelID))
		return err
	})
	if err != nil {
		s.recordFailure(ctx, c, "refresh_track_trace", err)
		return nil, err
	}

	shipment := myparcel.TrackedShipment(resp)
	status := carrier.NormalizeStatus(shipment["status"])
	if status != "" {
		c.Status = status
	}
	if barcode := jsonmap.StringAt(shipment, "barcode"); barcode != "" {
		c.Barcode = barcode
	}
	if link := jsonmap.StringAt(shipment, "track_trace_url", "track_trace.link"); link != "" {
		c.TrackTraceURL = link
	}
	ttStatus := carrier.NormalizeStatus(jsonmap.Get(shipment, "track_trace.status"))
	if ttStatus == "" {
		ttStatus = status
	}
	if ttStatus != "" {
		c.TrackTraceStatus = ttStatus
	}

	now := s.timestamp()
	c.TrackTraceHistoryJSON = append(c.TrackTraceHistoryJSON, map[string]any{
		"fetched_at": now.Format(time.RFC3339),
		"response":   map[string]any(shipment),
	})
	c.LastSyncedAt = now
	if err := s.repo.SaveConsignment(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Debug("Refreshed track and trace",
		zap.String("consignment_id", c.ID),
		zap.String("status", c.Status),
		zap.String("barcode", c.Barcode),
	)
	return c, nil
}

// GetConsignment returns a consignment by id.
func (s *Service) GetConsignment(ctx context.Context, id string) (*store.Consignment, error) {
	return s.load(ctx, id)
}

// ForOrder returns the live consignment of an order.
func (s *Service) ForOrder(ctx context.Context, orderID string) (*store.Consignment, error) {
	c, err := s.repo.FindConsignmentByOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, carrier.ErrConsignmentNotFound
	}
	return c, err
}

// OrderConsignment is an order's consignment, if any, together with the
// delivery choice made at checkout.
type OrderConsignment struct {
	Consignment *store.Consignment   `json:"consignment"`
	Selection   *selection.Selection `json:"selection"`
}

// ConsignmentForOrder looks up the order's consignment and resolves its
// checkout selection. A missing consignment is not an error.
func (s *Service) ConsignmentForOrder(ctx context.Context, order *orders.Order) (OrderConsignment, error) {
	var out OrderConsignment
	if sel, ok := selection.FromShippingMethods(order.ShippingMethodData()); ok {
		out.Selection = sel
	}
	c, err := s.repo.FindConsignmentByOrder(ctx, order.ID)
	switch {
	case err == nil:
		out.Consignment = c
	case !errors.Is(err, store.ErrNotFound):
		return out, err
	}
	return out, nil
}

// ConsignmentPage is one page of a listing.
type ConsignmentPage struct {
	Consignments []store.Consignment `json:"consignments"`
	Count        int64               `json:"count"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// ListConsignments lists consignments newest first.
func (s *Service) ListConsignments(ctx context.Context, filter store.ConsignmentFilter, limit, offset int) (ConsignmentPage, error) {
	page := store.NewPage(limit, offset)
	rows, count, err := s.repo.ListConsignments(ctx, filter, page)
	if err != nil {
		return ConsignmentPage{}, err
	}
	if rows == nil {
		rows = []store.Consignment{}
	}
	return ConsignmentPage{
		Consignments: rows,
		Count:        count,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}, nil
}
