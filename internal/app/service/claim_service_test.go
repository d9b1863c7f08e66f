package service

import (
	"errors"
	"testing"
	"time"

	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeSender records sent codes so tests can verify against them.
type fakeSender struct {
	codes  []string
	emails []string
	fail   bool
}

func (f *fakeSender) SendClaimCode(toEmail, businessName, code string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.emails = append(f.emails, toEmail)
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeSender) lastCode() string {
	return f.codes[len(f.codes)-1]
}

type claimFixture struct {
	db      *gorm.DB
	svc     ClaimService
	sender  *fakeSender
	listing *model.Listing
	user    *model.User
}

func setupClaimService(t *testing.T) *claimFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{Email: "claimer@bakery.com", Username: "claimer", PasswordHash: "x"}
	require.NoError(t, testDB.Create(user).Error)

	listing := &model.Listing{
		Name:      "Brownsburg Bakery",
		Website:   "https://www.bakery.com",
		IsCurated: true,
	}
	require.NoError(t, testDB.Create(listing).Error)

	sender := &fakeSender{}
	svc := NewClaimService(
		repository.NewClaimRepository(testDB),
		repository.NewListingRepository(testDB),
		sender,
	)
	return &claimFixture{db: testDB, svc: svc, sender: sender, listing: listing, user: user}
}

func TestClaimService_FullFlow(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusPending, claim.Status)
	require.Len(t, f.sender.codes, 1)

	verified, err := f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.lastCode())
	require.NoError(t, err)
	assert.True(t, verified.IsVerified())

	var listing model.Listing
	require.NoError(t, f.db.First(&listing, f.listing.ID).Error)
	require.NotNil(t, listing.OwnerID)
	assert.Equal(t, f.user.ID, *listing.OwnerID)
}

func TestClaimService_EmailDomainMustMatchWebsite(t *testing.T) {
	f := setupClaimService(t)

	_, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@gmail.com")
	assert.ErrorIs(t, err, ErrEmailDomainMismatch)

	_, err = f.svc.StartClaim(f.listing.ID, f.user.ID, "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidClaimEmail)

	// The www prefix on the site does not block a bare-domain email.
	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "Owner@Bakery.com")
	require.NoError(t, err)
	assert.Equal(t, "owner@bakery.com", claim.Email)
}

func TestClaimService_NoWebsiteNoClaim(t *testing.T) {
	f := setupClaimService(t)
	require.NoError(t, f.db.Model(f.listing).Update("website", "").Error)

	_, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	assert.ErrorIs(t, err, ErrListingNoWebsite)
}

func TestClaimService_AlreadyOwnedByOther(t *testing.T) {
	f := setupClaimService(t)

	other := &model.User{Email: "other@bakery.com", Username: "other", PasswordHash: "x"}
	require.NoError(t, f.db.Create(other).Error)
	require.NoError(t, f.db.Model(f.listing).Update("owner_id", other.ID).Error)

	_, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	assert.ErrorIs(t, err, ErrListingAlreadyOwned)
}

func TestClaimService_WrongCodeThenBlocked(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	for i := 0; i < model.ClaimMaxAttempts; i++ {
		_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, "000000")
		assert.ErrorIs(t, err, ErrClaimCodeInvalid)
	}

	// Ceiling reached; even the right code is refused now.
	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.lastCode())
	assert.ErrorIs(t, err, ErrClaimBlocked)

	var stored model.ClaimRequest
	require.NoError(t, f.db.First(&stored, "id = ?", claim.ID).Error)
	assert.Equal(t, model.ClaimStatusBlocked, stored.Status)
}

func TestClaimService_ExpiredCode(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.ClaimRequest{}).
		Where("id = ?", claim.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.lastCode())
	assert.ErrorIs(t, err, ErrClaimCodeExpired)
}

func TestClaimService_VerifyIsIdempotent(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.lastCode())
	require.NoError(t, err)

	// A second submit, even with a wrong code, still reports success.
	again, err := f.svc.VerifyClaim(claim.ID, f.user.ID, "000000")
	require.NoError(t, err)
	assert.True(t, again.IsVerified())
}

func TestClaimService_OwnershipNotReassigned(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	// Someone else claims the listing between start and verify.
	other := &model.User{Email: "fast@bakery.com", Username: "fast", PasswordHash: "x"}
	require.NoError(t, f.db.Create(other).Error)
	require.NoError(t, f.db.Model(f.listing).Update("owner_id", other.ID).Error)

	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.lastCode())
	require.NoError(t, err)

	var listing model.Listing
	require.NoError(t, f.db.First(&listing, f.listing.ID).Error)
	assert.Equal(t, other.ID, *listing.OwnerID, "existing owner kept")
}

func TestClaimService_ResendCooldown(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	err = f.svc.ResendCode(claim.ID, f.user.ID)
	assert.ErrorIs(t, err, ErrResendTooSoon)

	// Age the last send beyond the cooldown.
	require.NoError(t, f.db.Model(&model.ClaimRequest{}).
		Where("id = ?", claim.ID).
		Update("last_sent_at", time.Now().Add(-2*ResendCooldown)).Error)

	require.NoError(t, f.svc.ResendCode(claim.ID, f.user.ID))
	require.Len(t, f.sender.codes, 2)

	// The old code no longer works, the new one does.
	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.codes[0])
	assert.ErrorIs(t, err, ErrClaimCodeInvalid)

	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID, f.sender.codes[1])
	assert.NoError(t, err)
}

func TestClaimService_ClaimIsPrivate(t *testing.T) {
	f := setupClaimService(t)

	claim, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	_, err = f.svc.VerifyClaim(claim.ID, f.user.ID+99, f.sender.lastCode())
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestClaimService_StartPurgesPreviousPending(t *testing.T) {
	f := setupClaimService(t)

	first, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)

	second, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.ClaimRequest{}).
		Where("listing_id = ? AND user_id = ?", f.listing.ID, f.user.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "only the newest pending claim survives")
}

func TestClaimService_EmailFailureSurfaces(t *testing.T) {
	f := setupClaimService(t)
	f.sender.fail = true

	_, err := f.svc.StartClaim(f.listing.ID, f.user.ID, "owner@bakery.com")
	assert.ErrorIs(t, err, ErrEmailSendFailed)
}
