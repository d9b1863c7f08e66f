package service

import (
	"testing"
	"time"

	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupListingService(t *testing.T) (*gorm.DB, ListingService, *model.User) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	owner := &model.User{Email: "owner@shop.com", Username: "owner", PasswordHash: "x"}
	require.NoError(t, testDB.Create(owner).Error)

	return testDB, NewListingService(repository.NewListingRepository(testDB)), owner
}

func TestListingService_CreateStartsUnpromoted(t *testing.T) {
	_, svc, owner := setupListingService(t)

	created, err := svc.CreateListing(owner.ID, &model.Listing{
		Name:     "My Shop",
		City:     "Avon",
		State:    "IN",
		IsActive: true,
		Priority: 300,
	})
	require.NoError(t, err)

	assert.Equal(t, owner.ID, *created.OwnerID)
	assert.False(t, created.IsActive, "promotion cannot be smuggled in at create")
	assert.Zero(t, created.Priority)
	assert.True(t, created.IsCurated)
	assert.Equal(t, "Avon, IN", created.Location)
}

func TestListingService_ImportExternal(t *testing.T) {
	_, svc, _ := setupListingService(t)

	first, err := svc.ImportExternal(ImportInput{
		OSMID:    "node_5",
		Name:     "Live Cafe",
		Category: "cafe",
		City:     "Avon",
		State:    "IN",
	})
	require.NoError(t, err)
	require.NotNil(t, first.ExternalID)
	assert.Equal(t, "osm:node_5", *first.ExternalID)
	assert.Nil(t, first.OwnerID, "import never assigns ownership")
	assert.True(t, first.IsCurated)

	// Re-import returns the same record and backfills missing fields.
	second, err := svc.ImportExternal(ImportInput{
		OSMID:   "osm:node_5",
		Name:    "Different Name",
		Phone:   "+1 317 555 0100",
		Website: "https://livecafe.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Live Cafe", second.Name, "existing values win")
	assert.Equal(t, "+1 317 555 0100", second.Phone)
	assert.Equal(t, "https://livecafe.example.com", second.Website)
}

func TestListingService_DetailBumpsViews(t *testing.T) {
	_, svc, owner := setupListingService(t)

	created, err := svc.CreateListing(owner.ID, &model.Listing{Name: "Viewed Shop"})
	require.NoError(t, err)

	detail, err := svc.GetListingDetail(created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), detail.ViewCount)

	detail, err = svc.GetListingDetail(created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), detail.ViewCount)
}

func TestListingService_TrackClick(t *testing.T) {
	_, svc, owner := setupListingService(t)

	created, err := svc.CreateListing(owner.ID, &model.Listing{Name: "Clicked Shop"})
	require.NoError(t, err)

	require.NoError(t, svc.TrackClick(created.ID, "call"))
	require.NoError(t, svc.TrackClick(created.ID, "directions"))
	assert.ErrorIs(t, svc.TrackClick(created.ID, "teleport"), ErrInvalidClickKind)

	reloaded, err := svc.GetListing(created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), reloaded.CallClicks)
	assert.Equal(t, uint(1), reloaded.DirectionsClicks)
}

func TestListingService_HolidayToggle(t *testing.T) {
	_, svc, owner := setupListingService(t)

	created, err := svc.CreateListing(owner.ID, &model.Listing{Name: "Holiday Shop"})
	require.NoError(t, err)

	until := time.Now().Add(48 * time.Hour)
	on, err := svc.ToggleHoliday(owner.ID, created.ID, true, "", &until)
	require.NoError(t, err)
	assert.True(t, on.IsOnHoliday)
	require.NotNil(t, on.HolidayNote)
	assert.Equal(t, "On holiday", *on.HolidayNote, "empty note gets a default")

	off, err := svc.ToggleHoliday(owner.ID, created.ID, false, "", nil)
	require.NoError(t, err)
	assert.False(t, off.IsOnHoliday)
	assert.Nil(t, off.HolidayNote)
	assert.Nil(t, off.HolidayUntil)
}

func TestListingService_OwnerOnlyMutations(t *testing.T) {
	_, svc, owner := setupListingService(t)

	created, err := svc.CreateListing(owner.ID, &model.Listing{Name: "Guarded Shop"})
	require.NoError(t, err)

	stranger := owner.ID + 1
	_, err = svc.ToggleHoliday(stranger, created.ID, true, "", nil)
	assert.ErrorIs(t, err, ErrListingAccessDenied)

	name := "Hijacked"
	_, err = svc.UpdateListing(stranger, created.ID, ListingMutation{Name: &name})
	assert.ErrorIs(t, err, ErrListingAccessDenied)

	assert.ErrorIs(t, svc.DeleteListing(stranger, created.ID), ErrListingAccessDenied)
}

func TestListingService_ExportAnalytics(t *testing.T) {
	testDB, svc, owner := setupListingService(t)

	created, err := svc.CreateListing(owner.ID, &model.Listing{Name: "Exported Shop", Category: "cafe"})
	require.NoError(t, err)
	require.NoError(t, testDB.Model(created).Update("view_count", 7).Error)

	f, err := svc.ExportAnalytics(owner.ID)
	require.NoError(t, err)

	sheet := f.GetSheetName(0)
	name, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Exported Shop", name)

	views, err := f.GetCellValue(sheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "7", views)
}
