package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimStatus is the lifecycle state of a claim request. Transitions only
// leave pending; verified, expired and blocked are terminal.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusVerified ClaimStatus = "verified"
	ClaimStatusExpired  ClaimStatus = "expired"
	ClaimStatusBlocked  ClaimStatus = "blocked"
)

// ClaimMaxAttempts is the verification attempt ceiling enforced here in the
// core state machine. The claim controller carries a separate, looser guard
// of 8 at the request layer.
const ClaimMaxAttempts = 5

// ClaimCodeValidity is how long a freshly issued code stays verifiable.
const ClaimCodeValidity = 10 * time.Minute

// ClaimRequest tracks one email-OTP attempt by a user to take ownership of a
// listing. Only the SHA-256 hash of the code is ever persisted.
type ClaimRequest struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ListingID uint    `gorm:"not null;index:idx_claims_listing_user" json:"listing_id"`
	Listing   Listing `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	UserID    uint    `gorm:"not null;index:idx_claims_listing_user" json:"user_id"`
	User      User    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	Email    string `gorm:"not null;index" json:"email"`
	CodeHash string `gorm:"type:varchar(128);not null" json:"-"`

	Status    ClaimStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	ExpiresAt time.Time   `gorm:"not null" json:"expires_at"`
	Attempts  int         `gorm:"default:0" json:"attempts"`

	// LastSentAt drives resend throttling.
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`

	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (ClaimRequest) TableName() string {
	return "claim_requests"
}

func (c *ClaimRequest) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HashClaimCode returns the hex SHA-256 of a plaintext code.
func HashClaimCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// IsExpired reports whether the code's validity window has elapsed.
func (c *ClaimRequest) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsVerified reports whether the claim reached its verified terminal state.
func (c *ClaimRequest) IsVerified() bool {
	return c.Status == ClaimStatusVerified && c.VerifiedAt != nil
}

// CanResend reports whether enough time has passed since the last send.
func (c *ClaimRequest) CanResend(now time.Time, cooldown time.Duration) bool {
	if c.LastSentAt == nil {
		return true
	}
	return now.Sub(*c.LastSentAt) >= cooldown
}

// Verify runs the one-time-code state machine against a submitted code. It
// mutates the struct only; changed lists the columns the caller must persist.
// Once verified it stays verified and returns true without re-checking. Past
// expiry it flips to expired; past the attempt ceiling it flips to blocked;
// both fail closed. Otherwise the attempt counter increments unconditionally
// before the hash comparison.
//
// Ownership transfer is deliberately not part of verification - the caller
// assigns the owner after a true result so an already-owned listing is never
// silently reassigned.
func (c *ClaimRequest) Verify(code string, now time.Time) (ok bool, changed []string) {
	if c.IsVerified() {
		return true, nil
	}

	if c.IsExpired(now) {
		c.Status = ClaimStatusExpired
		return false, []string{"status"}
	}

	if c.Attempts >= ClaimMaxAttempts {
		c.Status = ClaimStatusBlocked
		return false, []string{"status"}
	}

	c.Attempts++

	if HashClaimCode(code) == c.CodeHash {
		c.Status = ClaimStatusVerified
		verifiedAt := now
		c.VerifiedAt = &verifiedAt
		return true, []string{"attempts", "status", "verified_at"}
	}

	return false, []string{"attempts"}
}
