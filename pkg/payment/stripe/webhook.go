package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how far a webhook signature timestamp may drift from
// the current time before the payload is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// ConstructEvent verifies the Stripe-Signature header against the raw
// payload and returns the decoded event. The header carries a timestamp and
// one or more v1 signatures, each an HMAC-SHA256 of "<timestamp>.<payload>"
// keyed with the endpoint secret.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (*Event, error) {
	return constructEvent(payload, sigHeader, c.config.WebhookSecret, DefaultTolerance, time.Now())
}

func constructEvent(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	if now.Sub(time.Unix(timestamp, 0)) > tolerance {
		return nil, ErrSignatureExpired
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, ErrInvalidSignature
	}

	var timestamp int64 = -1
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
