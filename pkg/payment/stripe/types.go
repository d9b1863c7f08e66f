package stripe

import "encoding/json"

// CheckoutSessionRequest represents the parameters for creating a Checkout
// Session in subscription mode
type CheckoutSessionRequest struct {
	PriceID    string
	Quantity   int
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents a created Checkout Session
type CheckoutSession struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// Subscription represents a Stripe subscription
type Subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Customer         string `json:"customer"`
}

// Event is a webhook event whose payload has passed signature verification.
// Object holds the raw event object for type-specific decoding.
type Event struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Data   struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// SessionObject is the event object for checkout.session.completed
type SessionObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// InvoiceObject is the event object for invoice.paid
type InvoiceObject struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
	AmountPaid    int64  `json:"amount_paid"`
}

// SubscriptionObject is the event object for customer.subscription.deleted
type SubscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

// ErrorResponse represents an error response from the Stripe API
type ErrorResponse struct {
	Err struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
