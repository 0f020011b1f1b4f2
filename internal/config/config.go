package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName       string
	ClientID      string
	ClientSecret  string
	APIKey        string
	AuthURL       string
	CheckoutURL   string
	StatusURL     string
	CallbackURL   string
	Product       string
	ParkingAPIURL string
	SessionFile   string
	AppEnv        string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:       os.Getenv("AZAMPAY_APP_NAME"),
		ClientID:      os.Getenv("AZAMPAY_CLIENT_ID"),
		ClientSecret:  os.Getenv("AZAMPAY_CLIENT_SECRET"),
		APIKey:        os.Getenv("AZAMPAY_API_KEY"),
		AuthURL:       os.Getenv("AZAMPAY_AUTH_URL"),
		CheckoutURL:   os.Getenv("AZAMPAY_CHECKOUT_URL"),
		StatusURL:     os.Getenv("AZAMPAY_STATUS_URL"),
		CallbackURL:   os.Getenv("AZAMPAY_CALLBACK_URL"),
		Product:       os.Getenv("PAYMENT_PRODUCT"),
		ParkingAPIURL: os.Getenv("PARKING_API_URL"),
		SessionFile:   os.Getenv("SESSION_TOKEN_FILE"),
		AppEnv:        os.Getenv("APP_ENV"),
	}

	// Sandbox endpoints are the defaults; production overrides them via env.
	if cfg.AuthURL == "" {
		cfg.AuthURL = "https://authenticator-sandbox.azampay.co.tz/AppRegistration/GenerateToken"
	}
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = "https://sandbox.azampay.co.tz/azampay/mno/checkout"
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = "https://sandbox.azampay.co.tz/azampay/mno/transactionstatus"
	}
	if cfg.Product == "" {
		cfg.Product = "Parking Recharge"
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Fatal("Environment variables not loaded properly: missing gateway credentials")
	}

	return cfg
}
