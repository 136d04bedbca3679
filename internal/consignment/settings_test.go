package consignment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/myparcel/internal/consignment"
	"github.com/tournevent/myparcel/internal/secrets"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func TestGetSettings_CreatesDefaults(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	s, err := f.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "production", s.Environment)
	assert.Equal(t, "bpost", s.DefaultCarrier)
	assert.Equal(t, store.StringList{"postnl", "bpost", "dpd"}, s.AllowedCarriers)
	assert.Equal(t, "A6", s.DefaultLabelFormat)
	assert.Equal(t, 1, s.DefaultA4Position)
	assert.False(t, s.DeliveryDateEnabled())
	assert.False(t, s.HasAPIKey())

	again, err := f.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	pos := 3
	on := true
	s, err := f.svc.UpdateSettings(ctx, consignment.SettingsInput{
		APIKey:             "  secret-key-abcd  ",
		Environment:        "sandbox",
		DefaultCarrier:     "PostNL",
		AllowedCarriers:    []string{"dpd", "ups", "DPD", "postnl"},
		DefaultLabelFormat: "a4",
		DefaultA4Position:  &pos,
		UseDeliveryDate:    &on,
	})
	require.NoError(t, err)

	assert.Equal(t, "sandbox", s.Environment)
	assert.Equal(t, "postnl", s.DefaultCarrier)
	assert.Equal(t, store.StringList{"dpd", "postnl"}, s.AllowedCarriers)
	assert.Equal(t, "A4", s.DefaultLabelFormat)
	assert.Equal(t, 3, s.DefaultA4Position)
	assert.Equal(t, 1, s.UseDeliveryDate)
	assert.Equal(t, "abcd", s.APIKeyLast4)
	assert.NotContains(t, s.APIKeyEnc, "secret-key")

	plain, err := secrets.NewCipher(testEncryptionKey).Decrypt(s.APIKeyEnc)
	require.NoError(t, err)
	assert.Equal(t, "secret-key-abcd", plain)

	// Empty fields leave the row alone.
	s, err = f.svc.UpdateSettings(ctx, consignment.SettingsInput{APIKey: "   "})
	require.NoError(t, err)
	assert.Equal(t, "abcd", s.APIKeyLast4)
	assert.Equal(t, "sandbox", s.Environment)
}

func TestUpdateSettings_Invalid(t *testing.T) {
	bad := 5
	tests := []struct {
		name   string
		input  consignment.SettingsInput
		target error
	}{
		{name: "environment", input: consignment.SettingsInput{Environment: "staging"}, target: carrier.ErrInvalidInput},
		{name: "carrier", input: consignment.SettingsInput{DefaultCarrier: "ups"}, target: carrier.ErrUnsupportedCarrier},
		{name: "label format", input: consignment.SettingsInput{DefaultLabelFormat: "A5"}, target: carrier.ErrInvalidInput},
		{name: "position", input: consignment.SettingsInput{DefaultA4Position: &bad}, target: carrier.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			_, err := f.svc.UpdateSettings(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestUpdateSettings_MissingEncryptionKey(t *testing.T) {
	svc := consignment.New(consignment.Config{}, consignment.Deps{
		Repo:   store.NewMemoryRepository(),
		API:    myparcel.NewMockAPIClient(),
		Cipher: secrets.NewCipher(""),
		Logger: otelzap.New(zap.NewNop()),
	})

	_, err := svc.UpdateSettings(context.Background(), consignment.SettingsInput{APIKey: "key"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrMissingEncryptionKey))

	// Non-secret fields do not need the key.
	_, err = svc.UpdateSettings(context.Background(), consignment.SettingsInput{Environment: "sandbox"})
	require.NoError(t, err)
}

func TestParseSettingsInput(t *testing.T) {
	in, err := consignment.ParseSettingsInput(jsonmap.Map{
		"api_key":              "k",
		"environment":          "Sandbox",
		"default_carrier":      "dpd",
		"allowed_carriers":     []any{"bpost", "dpd"},
		"default_label_format": "A4",
		"default_a4_position":  float64(2),
		"use_delivery_date":    "true",
	})
	require.NoError(t, err)
	assert.Equal(t, "k", in.APIKey)
	assert.Equal(t, "sandbox", in.Environment)
	assert.Equal(t, []string{"bpost", "dpd"}, in.AllowedCarriers)
	require.NotNil(t, in.DefaultA4Position)
	assert.Equal(t, 2, *in.DefaultA4Position)
	require.NotNil(t, in.UseDeliveryDate)
	assert.True(t, *in.UseDeliveryDate)

	for _, v := range []any{false, float64(0), "0", "false"} {
		in, err := consignment.ParseSettingsInput(jsonmap.Map{"use_delivery_date": v})
		require.NoError(t, err)
		require.NotNil(t, in.UseDeliveryDate, "%v", v)
		assert.False(t, *in.UseDeliveryDate)
	}

	in, err = consignment.ParseSettingsInput(jsonmap.Map{})
	require.NoError(t, err)
	assert.Nil(t, in.UseDeliveryDate)
	assert.Nil(t, in.AllowedCarriers)

	_, err = consignment.ParseSettingsInput(jsonmap.Map{"allowed_carriers": "bpost"})
	assert.True(t, errors.Is(err, carrier.ErrInvalidInput))
}

func TestSettingsView_HidesCiphertext(t *testing.T) {
	f := newFixture(t, true)
	s, err := f.svc.GetSettings(context.Background())
	require.NoError(t, err)

	view := consignment.NewSettingsView(s)
	assert.True(t, view.APIKeyConfigured)
	assert.Equal(t, "1234", view.APIKeyLast4)
	assert.False(t, view.UseDeliveryDate)
}

func TestTestConnection(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.svc.TestConnection(context.Background()))
	assert.Equal(t, 1, f.api.Calls("ListShipments"))

	f.api.OnListShipments = func(ctx context.Context, apiKey string) (jsonmap.Map, error) {
		assert.Equal(t, "test-api-key-1234", apiKey)
		return nil, carrier.NewRequestError("", 401, "unauthorized")
	}
	err := f.svc.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(401)")

	empty := newFixture(t, false)
	err = empty.svc.TestConnection(context.Background())
	assert.True(t, errors.Is(err, carrier.ErrMissingAPIKey))
	assert.Zero(t, empty.api.TotalCalls())
}
