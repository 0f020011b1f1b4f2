package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("AZAMPAY_APP_NAME", "smart_app")
		t.Setenv("AZAMPAY_CLIENT_ID", "client-id-123")
		t.Setenv("AZAMPAY_CLIENT_SECRET", "client-secret-456")
		t.Setenv("AZAMPAY_API_KEY", "api-key-789")
		t.Setenv("AZAMPAY_CALLBACK_URL", "https://example.com/api/azampay/callback")
		t.Setenv("PARKING_API_URL", "https://parking.example.com")
		t.Setenv("APP_ENV", "test")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "smart_app", cfg.AppName)
		assert.Equal(t, "client-id-123", cfg.ClientID)
		assert.Equal(t, "client-secret-456", cfg.ClientSecret)
		assert.Equal(t, "api-key-789", cfg.APIKey)
		assert.Equal(t, "https://example.com/api/azampay/callback", cfg.CallbackURL)
		assert.Equal(t, "https://parking.example.com", cfg.ParkingAPIURL)
		assert.Equal(t, "test", cfg.AppEnv)
	})

	t.Run("Sandbox defaults applied", func(t *testing.T) {
		t.Setenv("AZAMPAY_CLIENT_ID", "client-id-123")
		t.Setenv("AZAMPAY_CLIENT_SECRET", "client-secret-456")
		t.Setenv("AZAMPAY_AUTH_URL", "")
		t.Setenv("AZAMPAY_CHECKOUT_URL", "")
		t.Setenv("AZAMPAY_STATUS_URL", "")
		t.Setenv("PAYMENT_PRODUCT", "")

		cfg := LoadConfig()

		assert.Contains(t, cfg.AuthURL, "authenticator-sandbox.azampay.co.tz")
		assert.Contains(t, cfg.CheckoutURL, "mno/checkout")
		assert.Contains(t, cfg.StatusURL, "mno/transactionstatus")
		assert.Equal(t, "Parking Recharge", cfg.Product)
	})
}
