// Package stripe is a minimal Stripe API client covering the subscription
// checkout flow: creating Checkout Sessions, retrieving subscriptions and
// verifying webhook payloads. The API is form-encoded with Bearer auth.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client represents a Stripe API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// CreateCheckoutSession creates a subscription-mode Checkout Session for a
// single recurring price
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, ErrInvalidRequest
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.SuccessURL == "" {
		req.SuccessURL = c.config.SuccessURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.config.CancelURL
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", req.PriceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(req.Quantity))
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "checkout/sessions", form)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	return &session, nil
}

// GetSubscription retrieves a subscription by ID
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if subscriptionID == "" {
		return nil, ErrInvalidRequest
	}

	body, err := c.doRequest(ctx, http.MethodGet, "subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve subscription: %w", err)
	}

	var sub Subscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	return &sub, nil
}

// doRequest performs an HTTP request to the Stripe API
func (c *Client) doRequest(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	requestURL := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), endpoint)

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}

		errorMsg := fmt.Sprintf("Stripe API error - Status: %d, Type: %s, Code: %s, Message: %s",
			resp.StatusCode, errResp.Err.Type, errResp.Err.Code, errResp.Err.Message)

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMsg)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errorMsg)
		default:
			return nil, fmt.Errorf("%w: %s", ErrAPIError, errorMsg)
		}
	}

	return body, nil
}
