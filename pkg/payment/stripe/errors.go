package stripe

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnauthorized is returned when the API key is invalid
	ErrUnauthorized = errors.New("unauthorized: invalid API key")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrAPIError is returned for any other Stripe API failure
	ErrAPIError = errors.New("stripe API error")

	// ErrInvalidSignature is returned when a webhook payload fails
	// signature verification
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrSignatureExpired is returned when a webhook signature timestamp is
	// outside the accepted tolerance
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
)
