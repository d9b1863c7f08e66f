package stripe

// Config represents the configuration for the Stripe client
type Config struct {
	// SecretKey is the Stripe API secret key (sk_...)
	SecretKey string

	// WebhookSecret is the endpoint signing secret (whsec_...) used to
	// verify incoming webhook payloads
	WebhookSecret string

	// BaseURL is the Stripe API base URL
	BaseURL string

	// SuccessURL is the redirect URL after a completed checkout
	SuccessURL string

	// CancelURL is the redirect URL after an abandoned checkout
	CancelURL string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrInvalidRequest
	}
	if c.WebhookSecret == "" {
		return ErrInvalidRequest
	}
	if c.BaseURL == "" {
		return ErrInvalidRequest
	}
	if c.SuccessURL == "" {
		return ErrInvalidRequest
	}
	if c.CancelURL == "" {
		return ErrInvalidRequest
	}
	return nil
}
