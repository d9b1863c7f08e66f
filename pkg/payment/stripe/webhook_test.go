package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, timestamp int64, secret string) string {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructEvent_ValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"subscription":"sub_1","billing_reason":"subscription_cycle","amount_paid":1999}}}`)
	now := time.Now()
	header := signPayload(t, payload, now.Unix(), testSecret)

	event, err := constructEvent(payload, header, testSecret, DefaultTolerance, now)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "invoice.paid", event.Type)
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	now := time.Now()
	header := signPayload(t, payload, now.Unix(), "whsec_other")

	_, err := constructEvent(payload, header, testSecret, DefaultTolerance, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	now := time.Now()
	header := signPayload(t, payload, now.Unix(), testSecret)

	tampered := []byte(`{"id":"evt_1","type":"customer.subscription.deleted"}`)
	_, err := constructEvent(tampered, header, testSecret, DefaultTolerance, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	now := time.Now()
	old := now.Add(-10 * time.Minute)
	header := signPayload(t, payload, old.Unix(), testSecret)

	_, err := constructEvent(payload, header, testSecret, DefaultTolerance, now)
	assert.ErrorIs(t, err, ErrSignatureExpired)
}

func TestConstructEvent_MalformedHeader(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	for _, header := range []string{"", "t=abc,v1=00", "v1=00", "t=123"} {
		_, err := constructEvent(payload, header, testSecret, DefaultTolerance, now)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}
