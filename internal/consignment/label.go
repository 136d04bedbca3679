package consignment

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"go.uber.org/zap"
)

var numericID = regexp.MustCompile(`^\d+$`)

// LabelOptions override the stored label layout. Zero values fall back to
// the consignment and settings.
type LabelOptions struct {
	Format   carrier.LabelFormat
	Position int
}

// GetLabel downloads the label PDF of a consignment. The carrier is asked
// for the PDF with the layout query, then without it, then for a download
// link which is fetched with the same credentials.
func (s *Service) GetLabel(ctx context.Context, id string, opts LabelOptions) (_ []byte, _ *store.Consignment, err error) {
	ctx, end := s.start(ctx, "GetLabel")
	defer func() { end(err) }()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	shipmentID := strings.TrimSpace(c.MyParcelID)
	if shipmentID == "" {
		return nil, nil, carrier.ErrNoShipmentID
	}
	setting, err := s.GetSettings(ctx)
	if err != nil {
		return nil, nil, err
	}
	apiKey, err := s.apiKey(setting)
	if err != nil {
		return nil, nil, err
	}
	if !numericID.MatchString(shipmentID) {
		return nil, nil, carrier.ErrInvalidShipmentID.Withf(
			"Consignment has an invalid MyParcel id (%s). Re-export the shipment to recover.", shipmentID)
	}

	format := opts.Format
	if format == "" {
		if f, ok := carrier.ParseLabelFormat(setting.DefaultLabelFormat); ok {
			format = f
		} else if f, ok := carrier.ParseLabelFormat(c.LabelFormat); ok {
			format = f
		} else {
			format = s.defaultFormat
		}
	}
	position := opts.Position
	if position <= 0 {
		position = c.LabelPosition
	}
	if position <= 0 {
		position = setting.DefaultA4Position
	}
	if position <= 0 {
		position = carrier.DefaultA4Position
	}

	query := url.Values{"format": {string(format)}}
	if format == carrier.LabelA4 {
		query.Set("positions", strconv.Itoa(position))
	}

	pdf, err := s.fetchLabel(ctx, apiKey, shipmentID, query)
	if err != nil {
		s.logger.Ctx(ctx).Error("MyParcel label download failed",
			zap.String("consignment_id", c.ID),
			zap.String("myparcel_id", shipmentID),
			zap.Error(err),
		)
		s.recordFailure(ctx, c, "get_label", err)
		return nil, nil, err
	}

	c.LabelFormat = string(format)
	c.LabelPosition = position
	c.LastSyncedAt = s.timestamp()
	if c.Status == "" {
		c.Status = carrier.StatusRegistered
	}
	if err := s.repo.SaveConsignment(ctx, c); err != nil {
		return nil, nil, err
	}
	return pdf, c, nil
}

// fetchLabel walks the download tiers and returns the last error when all
// of them fail.
func (s *Service) fetchLabel(ctx context.Context, apiKey, shipmentID string, query url.Values) ([]byte, error) {
	var lastErr error

	for _, q := range []url.Values{query, nil} {
		var pdf []byte
		err := s.call("label_pdf", func() error {
			var err error
			pdf, err = s.api.GetLabelPDF(ctx, apiKey, shipmentID, q)
			return err
		})
		if err == nil && len(pdf) > 0 {
			return pdf, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	var link jsonmap.Map
	err := s.call("label_link", func() error {
		var err error
		link, err = s.api.GetLabelLink(ctx, apiKey, shipmentID, query)
		return err
	})
	if err != nil {
		lastErr = err
		err = s.call("label_link", func() error {
			var err error
			link, err = s.api.GetLabelLink(ctx, apiKey, shipmentID, nil)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	href := myparcel.LabelLinkURL(link)
	if href == "" {
		if lastErr == nil {
			lastErr = carrier.ErrMissingLabelLink
		}
		return nil, lastErr
	}

	var pdf []byte
	err = s.call("label_download", func() error {
		var err error
		pdf, err = s.api.Download(ctx, apiKey, href)
		return err
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, lastErr
	}
	return pdf, nil
}

// RegisterConsignment fetches the label with the stored layout, which makes
// the carrier register the shipment, and marks the consignment registered.
func (s *Service) RegisterConsignment(ctx context.Context, id string) (_ *store.Consignment, err error) {
	ctx, end := s.start(ctx, "RegisterConsignment")
	defer func() { end(err) }()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	setting, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	format, ok := carrier.ParseLabelFormat(c.LabelFormat)
	if !ok {
		format = s.labelFormat(setting)
	}
	position := c.LabelPosition
	if position <= 0 {
		position = setting.DefaultA4Position
	}

	_, c, err = s.GetLabel(ctx, id, LabelOptions{Format: format, Position: position})
	if err != nil {
		return nil, err
	}

	c.Status = carrier.StatusRegistered
	c.LastSyncedAt = s.timestamp()
	if err := s.repo.SaveConsignment(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Ctx(ctx).Info("Registered MyParcel consignment",
		zap.String("consignment_id", c.ID),
		zap.String("myparcel_id", c.MyParcelID),
	)
	return c, nil
}
