package config

import (
	"errors"
	"time"
)

// PayPal environment base URLs.
const (
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
	paypalLiveURL    = "https://api-m.paypal.com"
)

// Processor holds the payment-processor credentials and endpoints. It is
// built once at startup and passed into the payout dispatcher; nothing in
// the payout path reads the environment directly.
type Processor struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	RedirectURL  string
	Currency     string
	HTTPTimeout  time.Duration
}

// LoadProcessor reads the processor configuration from the environment.
// PAYPAL_MODE selects sandbox or live; an explicit PAYPAL_BASE_URL wins.
func LoadProcessor() (Processor, error) {
	base := GetEnv("PAYPAL_BASE_URL", "")
	if base == "" {
		if GetEnv("PAYPAL_MODE", "sandbox") == "live" {
			base = paypalLiveURL
		} else {
			base = paypalSandboxURL
		}
	}

	p := Processor{
		ClientID:     GetEnv("PAYPAL_CLIENT_ID", ""),
		ClientSecret: GetEnv("PAYPAL_CLIENT_SECRET", ""),
		BaseURL:      base,
		RedirectURL:  GetEnv("PAYPAL_REDIRECT_URL", ""),
		Currency:     GetEnv("PAYOUT_CURRENCY", "USD"),
		HTTPTimeout:  GetSecondsEnv("PAYPAL_HTTP_TIMEOUT_SEC", 30),
	}
	if p.ClientID == "" || p.ClientSecret == "" {
		return Processor{}, errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET must be set")
	}
	return p, nil
}
