package consignment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"go.uber.org/zap"
)

// Environments accepted in settings.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
)

// SettingsView is what callers see of the settings row. The encrypted key
// never leaves the service.
type SettingsView struct {
	ID                 string    `json:"id"`
	Environment        string    `json:"environment"`
	DefaultCarrier     string    `json:"default_carrier"`
	AllowedCarriers    []string  `json:"allowed_carriers"`
	DefaultLabelFormat string    `json:"default_label_format"`
	DefaultA4Position  int       `json:"default_a4_position"`
	UseDeliveryDate    bool      `json:"use_delivery_date"`
	APIKeyConfigured   bool      `json:"api_key_configured"`
	APIKeyLast4        string    `json:"api_key_last4,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewSettingsView builds the public view of a settings row.
func NewSettingsView(s *store.Setting) SettingsView {
	allowed := []string(s.AllowedCarriers)
	if allowed == nil {
		allowed = []string{}
	}
	return SettingsView{
		ID:                 s.ID,
		Environment:        s.Environment,
		DefaultCarrier:     s.DefaultCarrier,
		AllowedCarriers:    allowed,
		DefaultLabelFormat: s.DefaultLabelFormat,
		DefaultA4Position:  s.DefaultA4Position,
		UseDeliveryDate:    s.DeliveryDateEnabled(),
		APIKeyConfigured:   s.HasAPIKey(),
		APIKeyLast4:        s.APIKeyLast4,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// SettingsInput is a partial settings update. Nil and empty fields are left
// unchanged.
type SettingsInput struct {
	APIKey             string
	Environment        string
	DefaultCarrier     string
	AllowedCarriers    []string
	DefaultLabelFormat string
	DefaultA4Position  *int
	UseDeliveryDate    *bool
}

// ParseSettingsInput reads an update body. use_delivery_date accepts a
// bool, 0/1 or "true"/"false"; other values are ignored.
func ParseSettingsInput(body jsonmap.Map) (SettingsInput, error) {
	in := SettingsInput{
		APIKey:             jsonmap.StringAt(body, "api_key", "apiKey"),
		Environment:        strings.ToLower(jsonmap.StringAt(body, "environment")),
		DefaultCarrier:     jsonmap.StringAt(body, "default_carrier", "defaultCarrier"),
		DefaultLabelFormat: jsonmap.StringAt(body, "default_label_format", "defaultLabelFormat"),
	}

	if raw := jsonmap.FirstPath(body, "allowed_carriers", "allowedCarriers"); raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return in, carrier.ErrInvalidInput.Withf("allowed_carriers must be a list")
		}
		in.AllowedCarriers = make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := jsonmap.String(v); ok {
				in.AllowedCarriers = append(in.AllowedCarriers, s)
			}
		}
	}

	if raw := jsonmap.FirstPath(body, "default_a4_position", "defaultA4Position"); raw != nil {
		n, ok := jsonmap.Number(raw)
		if !ok {
			return in, carrier.ErrInvalidInput.Withf("default_a4_position must be a number")
		}
		pos := int(n)
		in.DefaultA4Position = &pos
	}

	if b, ok := jsonmap.Bool(jsonmap.FirstPath(body, "use_delivery_date", "useDeliveryDate")); ok {
		in.UseDeliveryDate = &b
	}
	return in, nil
}

// GetSettings returns the settings row, creating it with defaults on first
// use.
func (s *Service) GetSettings(ctx context.Context) (*store.Setting, error) {
	setting, err := s.repo.FirstSetting(ctx)
	if err == nil {
		return setting, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	allowed := make(store.StringList, 0, 3)
	for _, k := range carrier.DefaultAllowed() {
		allowed = append(allowed, k.String())
	}
	setting = &store.Setting{
		Environment:        EnvProduction,
		DefaultCarrier:     carrier.DefaultKey.String(),
		AllowedCarriers:    allowed,
		DefaultLabelFormat: string(s.defaultFormat),
		DefaultA4Position:  carrier.DefaultA4Position,
		UseDeliveryDate:    0,
	}
	if err := s.repo.CreateSetting(ctx, setting); err != nil {
		return nil, err
	}
	s.logger.Ctx(ctx).Info("Created default MyParcel settings", zap.String("settings_id", setting.ID))
	return setting, nil
}

// UpdateSettings applies a partial update. A new API key is encrypted
// before it is stored and only its last four characters are kept in clear.
func (s *Service) UpdateSettings(ctx context.Context, in SettingsInput) (*store.Setting, error) {
	setting, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if in.Environment != "" {
		if in.Environment != EnvProduction && in.Environment != EnvSandbox {
			return nil, carrier.ErrInvalidInput.Withf("environment must be production or sandbox")
		}
		setting.Environment = in.Environment
	}
	if in.DefaultCarrier != "" {
		key, ok := carrier.ParseKey(in.DefaultCarrier)
		if !ok {
			return nil, carrier.ErrUnsupportedCarrier.Withf("Unsupported carrier: %s", in.DefaultCarrier)
		}
		setting.DefaultCarrier = key.String()
	}
	if in.AllowedCarriers != nil {
		keys := carrier.Keys(in.AllowedCarriers)
		list := make(store.StringList, 0, len(keys))
		for _, k := range keys {
			list = append(list, k.String())
		}
		setting.AllowedCarriers = list
	}
	if in.DefaultLabelFormat != "" {
		format, ok := carrier.ParseLabelFormat(in.DefaultLabelFormat)
		if !ok {
			return nil, carrier.ErrInvalidInput.Withf("default_label_format must be A4 or A6")
		}
		setting.DefaultLabelFormat = string(format)
	}
	if in.DefaultA4Position != nil {
		if !carrier.ValidPosition(*in.DefaultA4Position) {
			return nil, carrier.ErrInvalidInput.Withf("default_a4_position must be between 1 and 4")
		}
		setting.DefaultA4Position = *in.DefaultA4Position
	}
	if in.UseDeliveryDate != nil {
		setting.UseDeliveryDate = 0
		if *in.UseDeliveryDate {
			setting.UseDeliveryDate = 1
		}
	}
	if key := strings.TrimSpace(in.APIKey); key != "" {
		enc, err := s.cipher.Encrypt(key)
		if err != nil {
			return nil, err
		}
		setting.APIKeyEnc = enc
		setting.APIKeyLast4 = last4(key)
	}

	if err := s.repo.SaveSetting(ctx, setting); err != nil {
		return nil, err
	}
	s.logger.Ctx(ctx).Info("Updated MyParcel settings",
		zap.String("environment", setting.Environment),
		zap.String("default_carrier", setting.DefaultCarrier),
		zap.Bool("api_key_configured", setting.HasAPIKey()),
	)
	return setting, nil
}

// TestConnection verifies the stored API key against the carrier.
func (s *Service) TestConnection(ctx context.Context) error {
	ctx, end := s.start(ctx, "TestConnection")
	var err error
	defer func() { end(err) }()

	setting, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	apiKey, err := s.apiKey(setting)
	if err != nil {
		return err
	}
	err = s.call("list_shipments", func() error {
		_, err := s.api.ListShipments(ctx, apiKey)
		return err
	})
	return err
}

// apiKey decrypts the stored key.
func (s *Service) apiKey(setting *store.Setting) (string, error) {
	if !setting.HasAPIKey() {
		return "", carrier.ErrMissingAPIKey
	}
	return s.cipher.Decrypt(setting.APIKeyEnc)
}

// labelFormat resolves the default label format: settings, then service
// default.
func (s *Service) labelFormat(setting *store.Setting) carrier.LabelFormat {
	if f, ok := carrier.ParseLabelFormat(setting.DefaultLabelFormat); ok {
		return f
	}
	return s.defaultFormat
}

func last4(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}
