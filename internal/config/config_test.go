package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/myparcel/internal/config"
)

func noDotenv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load(noDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "https://api.sendmyparcel.be", cfg.APIBaseURL)
	assert.Equal(t, "https://api.myparcel.nl", cfg.DeliveryOptionsURL)
	assert.Equal(t, "A6", cfg.DefaultLabelFormat)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DeliveryOptionsCacheTTL)
	assert.False(t, cfg.UseMock)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/myparcel")
	t.Setenv("MYPARCEL_USE_MOCK", "true")
	t.Setenv("MYPARCEL_HTTP_TIMEOUT", "5s")
	t.Setenv("PORT", "9000")

	cfg, err := config.Load(noDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.UseMock)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := config.Load(noDotenv(t))
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := config.Load(noDotenv(t))
		assert.ErrorContains(t, err, "sqlite")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("MYPARCEL_HTTP_TIMEOUT", "soon")
		_, err := config.Load(noDotenv(t))
		assert.Error(t, err)
	})
}

func TestLoad_Dotenv(t *testing.T) {
	// Registered so the variable is unset again after the test.
	t.Setenv("MYPARCEL_USER_AGENT", "")
	require.NoError(t, os.Unsetenv("MYPARCEL_USER_AGENT"))
	t.Setenv("STORE_DRIVER", "memory")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MYPARCEL_USER_AGENT=shop-agent\nSTORE_DRIVER=postgres\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "shop-agent", cfg.UserAgent)
	assert.Equal(t, config.DriverMemory, cfg.StoreDriver, "the environment wins over the file")
}

func TestAttributes(t *testing.T) {
	cfg := &config.Config{ServiceName: "myparcel", Version: "1.2.3", StoreDriver: "memory", UseMock: true}

	attrs := make(map[string]any)
	for _, kv := range cfg.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "myparcel", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, true, attrs["myparcel.mock"])
}
