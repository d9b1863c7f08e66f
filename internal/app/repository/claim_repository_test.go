package repository

import (
	"testing"
	"time"

	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupClaimTest(t *testing.T) (*gorm.DB, ClaimRepository, *model.Listing, *model.User) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{Email: "owner@shop.com", Username: "owner", PasswordHash: "x"}
	require.NoError(t, testDB.Create(user).Error)

	listing := &model.Listing{Name: "Claimable Shop", Website: "https://shop.com"}
	require.NoError(t, testDB.Create(listing).Error)

	return testDB, NewClaimRepository(testDB), listing, user
}

func newClaim(listingID, userID uint, status model.ClaimStatus) *model.ClaimRequest {
	return &model.ClaimRequest{
		ListingID: listingID,
		UserID:    userID,
		Email:     "owner@shop.com",
		CodeHash:  model.HashClaimCode("123456"),
		Status:    status,
		ExpiresAt: time.Now().Add(model.ClaimCodeValidity),
	}
}

func TestClaimRepository_CreateAssignsID(t *testing.T) {
	_, repo, listing, user := setupClaimTest(t)

	claim := newClaim(listing.ID, user.ID, model.ClaimStatusPending)
	require.NoError(t, repo.Create(claim))
	require.NotEmpty(t, claim.ID)

	found, err := repo.FindByID(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.ID, found.ListingID)
	assert.Equal(t, model.ClaimStatusPending, found.Status)
}

func TestClaimRepository_FindLatestPending(t *testing.T) {
	testDB, repo, listing, user := setupClaimTest(t)

	older := newClaim(listing.ID, user.ID, model.ClaimStatusPending)
	require.NoError(t, repo.Create(older))
	require.NoError(t, testDB.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)

	newer := newClaim(listing.ID, user.ID, model.ClaimStatusPending)
	require.NoError(t, repo.Create(newer))

	found, err := repo.FindLatestPending(listing.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)

	_, err = repo.FindLatestPending(listing.ID, user.ID+1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestClaimRepository_DeletePendingForListingUser(t *testing.T) {
	_, repo, listing, user := setupClaimTest(t)

	pending := newClaim(listing.ID, user.ID, model.ClaimStatusPending)
	require.NoError(t, repo.Create(pending))
	verified := newClaim(listing.ID, user.ID, model.ClaimStatusVerified)
	require.NoError(t, repo.Create(verified))

	require.NoError(t, repo.DeletePendingForListingUser(listing.ID, user.ID))

	_, err := repo.FindByID(pending.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindByID(verified.ID)
	assert.NoError(t, err, "verified claims survive the purge")
}

func TestClaimRepository_DeleteStaleUnverified(t *testing.T) {
	testDB, repo, listing, user := setupClaimTest(t)

	stale := newClaim(listing.ID, user.ID, model.ClaimStatusExpired)
	require.NoError(t, repo.Create(stale))
	require.NoError(t, testDB.Model(stale).Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	oldVerified := newClaim(listing.ID, user.ID, model.ClaimStatusVerified)
	require.NoError(t, repo.Create(oldVerified))
	require.NoError(t, testDB.Model(oldVerified).Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	fresh := newClaim(listing.ID, user.ID, model.ClaimStatusPending)
	require.NoError(t, repo.Create(fresh))

	deleted, err := repo.DeleteStaleUnverified(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(oldVerified.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(fresh.ID)
	assert.NoError(t, err)
}

func TestClaimRepository_UpdateFields(t *testing.T) {
	_, repo, listing, user := setupClaimTest(t)

	claim := newClaim(listing.ID, user.ID, model.ClaimStatusPending)
	require.NoError(t, repo.Create(claim))

	require.NoError(t, repo.UpdateFields(claim.ID, map[string]interface{}{
		"attempts": 3,
		"status":   model.ClaimStatusBlocked,
	}))

	found, err := repo.FindByID(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Attempts)
	assert.Equal(t, model.ClaimStatusBlocked, found.Status)
}
