package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingClaim(code string, now time.Time) *ClaimRequest {
	return &ClaimRequest{
		CodeHash:  HashClaimCode(code),
		Status:    ClaimStatusPending,
		ExpiresAt: now.Add(ClaimCodeValidity),
	}
}

func TestClaimRequest_Verify_RoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	claim := newPendingClaim("483920", now)

	ok, changed := claim.Verify("483920", now)
	require.True(t, ok)
	assert.Equal(t, ClaimStatusVerified, claim.Status)
	assert.Equal(t, 1, claim.Attempts)
	require.NotNil(t, claim.VerifiedAt)
	assert.Equal(t, now, *claim.VerifiedAt)
	assert.ElementsMatch(t, []string{"attempts", "status", "verified_at"}, changed)
}

func TestClaimRequest_Verify_WrongCode(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	claim := newPendingClaim("483920", now)

	ok, changed := claim.Verify("111111", now)
	assert.False(t, ok)
	assert.Equal(t, ClaimStatusPending, claim.Status)
	assert.Equal(t, 1, claim.Attempts)
	assert.Equal(t, []string{"attempts"}, changed)
}

func TestClaimRequest_Verify_IdempotentOnceVerified(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	claim := newPendingClaim("483920", now)

	ok, _ := claim.Verify("483920", now)
	require.True(t, ok)
	attemptsAfterSuccess := claim.Attempts

	// A second call, even with a wrong code and past expiry, stays verified.
	later := now.Add(time.Hour)
	ok, changed := claim.Verify("000000", later)
	assert.True(t, ok)
	assert.Empty(t, changed)
	assert.Equal(t, ClaimStatusVerified, claim.Status)
	assert.Equal(t, attemptsAfterSuccess, claim.Attempts)
}

func TestClaimRequest_Verify_Expired(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	claim := newPendingClaim("483920", now)

	// Correct code after expiry still fails closed.
	afterExpiry := now.Add(ClaimCodeValidity + time.Second)
	ok, changed := claim.Verify("483920", afterExpiry)
	assert.False(t, ok)
	assert.Equal(t, ClaimStatusExpired, claim.Status)
	assert.Equal(t, []string{"status"}, changed)
	assert.Zero(t, claim.Attempts)
}

func TestClaimRequest_Verify_BlockedAtCeiling(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	claim := newPendingClaim("483920", now)

	for i := 0; i < ClaimMaxAttempts; i++ {
		ok, _ := claim.Verify("999999", now)
		assert.False(t, ok)
	}
	assert.Equal(t, ClaimMaxAttempts, claim.Attempts)
	assert.Equal(t, ClaimStatusPending, claim.Status)

	// The next attempt blocks regardless of code correctness.
	ok, changed := claim.Verify("483920", now)
	assert.False(t, ok)
	assert.Equal(t, ClaimStatusBlocked, claim.Status)
	assert.Equal(t, []string{"status"}, changed)
	assert.Equal(t, ClaimMaxAttempts, claim.Attempts)

	ok, _ = claim.Verify("483920", now)
	assert.False(t, ok)
	assert.Equal(t, ClaimStatusBlocked, claim.Status)
}

func TestClaimRequest_CanResend(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	claim := &ClaimRequest{}
	assert.True(t, claim.CanResend(now, time.Minute), "never sent")

	sent := now.Add(-30 * time.Second)
	claim.LastSentAt = &sent
	assert.False(t, claim.CanResend(now, time.Minute))

	sent = now.Add(-time.Minute)
	claim.LastSentAt = &sent
	assert.True(t, claim.CanResend(now, time.Minute))
}

func TestHashClaimCode(t *testing.T) {
	// Hash is stable and never equals the plaintext.
	h := HashClaimCode("123456")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashClaimCode("123456"))
	assert.NotEqual(t, h, HashClaimCode("123457"))
}
