package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/nearify/nearify-backend/pkg/util"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrListingAccessDenied = errors.New("you do not own this listing")
	ErrInvalidClickKind    = errors.New("unknown click kind")
)

// ListingMutation carries the fields an owner may edit. Nil means unchanged.
type ListingMutation struct {
	Name      *string
	Category  *string
	Location  *string
	Address   *string
	City      *string
	State     *string
	ZipCode   *string
	Phone     *string
	Website   *string
	ImageURL  *string
	OpenTime  *string
	CloseTime *string
}

// ImportInput is one live search row being pulled into the database.
type ImportInput struct {
	OSMID    string
	Name     string
	Category string
	Address  string
	City     string
	State    string
	ZipCode  string
	Phone    string
	Website  string
}

// clickColumns maps public click kinds to analytics counter columns.
var clickColumns = map[string]string{
	"view":       "view_count",
	"call":       "call_clicks",
	"website":    "website_clicks",
	"directions": "directions_clicks",
}

type ListingService interface {
	CreateListing(ownerID uint, listing *model.Listing) (*model.Listing, error)
	GetListing(id uint) (*model.Listing, error)
	GetListingDetail(id uint) (*model.Listing, error)
	UpdateListing(userID, listingID uint, input ListingMutation) (*model.Listing, error)
	DeleteListing(userID, listingID uint) error
	ImportExternal(input ImportInput) (*model.Listing, error)
	ToggleHoliday(userID, listingID uint, on bool, note string, until *time.Time) (*model.Listing, error)
	Dashboard(userID uint) ([]model.Listing, error)
	TrackClick(listingID uint, kind string) error
	ExportAnalytics(userID uint) (*excelize.File, error)
}

type listingService struct {
	listingRepo repository.ListingRepository
}

func NewListingService(listingRepo repository.ListingRepository) ListingService {
	return &listingService{listingRepo: listingRepo}
}

// CreateListing adds a manually entered listing owned by its creator. New
// listings always start unpromoted regardless of what the caller sent.
func (s *listingService) CreateListing(ownerID uint, listing *model.Listing) (*model.Listing, error) {
	listing.OwnerID = &ownerID
	listing.IsCurated = true
	listing.ExternalID = nil
	listing.IsActive = false
	listing.Priority = 0
	listing.Plan = model.PlanBase

	if listing.Location == "" {
		listing.Location = util.BuildDisplayLocation("", listing.City, listing.State)
	}

	if err := s.listingRepo.Create(listing); err != nil {
		return nil, err
	}

	logger.Info("Listing created", map[string]interface{}{
		"listing_id": listing.ID,
		"owner_id":   ownerID,
	})
	return listing, nil
}

func (s *listingService) GetListing(id uint) (*model.Listing, error) {
	listing, err := s.listingRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return listing, nil
}

// GetListingDetail loads a listing for its public detail page, bumping the
// view counter atomically before the read.
func (s *listingService) GetListingDetail(id uint) (*model.Listing, error) {
	if err := s.listingRepo.IncrementCounter(id, "view_count"); err != nil {
		return nil, notFoundOr(err)
	}
	return s.listingRepo.FindByID(id)
}

// notFoundOr translates the storage-level missing-row error into the
// service sentinel and passes everything else through.
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrListingNotFound
	}
	return err
}

func (s *listingService) UpdateListing(userID, listingID uint, input ListingMutation) (*model.Listing, error) {
	listing, err := s.loadOwned(userID, listingID)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	applyString(&listing.Name, input.Name)
	applyString(&listing.Category, input.Category)
	applyString(&listing.Location, input.Location)
	applyString(&listing.Address, input.Address)
	applyString(&listing.City, input.City)
	applyString(&listing.State, input.State)
	applyString(&listing.ZipCode, input.ZipCode)
	applyString(&listing.Phone, input.Phone)
	applyString(&listing.Website, input.Website)
	applyString(&listing.ImageURL, input.ImageURL)
	applyString(&listing.OpenTime, input.OpenTime)
	applyString(&listing.CloseTime, input.CloseTime)

	if err := s.listingRepo.Update(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *listingService) DeleteListing(userID, listingID uint) error {
	if _, err := s.loadOwned(userID, listingID); err != nil {
		return err
	}
	return s.listingRepo.Delete(listingID)
}

// ImportExternal pulls a live search row into the database so it can be
// claimed and promoted later. Re-importing is a get-or-create: the existing
// record is returned, with any fields the live data can fill backfilled.
// Ownership is never assigned here, that would let anyone steal a listing
// by importing it.
func (s *listingService) ImportExternal(input ImportInput) (*model.Listing, error) {
	if input.OSMID == "" {
		return nil, fmt.Errorf("missing external id")
	}
	externalID := input.OSMID
	if !strings.HasPrefix(externalID, "osm:") {
		externalID = "osm:" + externalID
	}

	existing, err := s.listingRepo.FindByExternalID(externalID)
	if err == nil {
		return s.backfill(existing, input)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Imported business"
	}

	listing := &model.Listing{
		Name:       name,
		Category:   input.Category,
		Location:   util.BuildDisplayLocation("", input.City, input.State),
		Address:    input.Address,
		City:       input.City,
		State:      input.State,
		ZipCode:    input.ZipCode,
		Phone:      input.Phone,
		Website:    input.Website,
		ExternalID: &externalID,
		IsCurated:  true,
		Plan:       model.PlanBase,
	}
	if err := s.listingRepo.Create(listing); err != nil {
		// Lost a race with a concurrent import of the same place.
		if again, findErr := s.listingRepo.FindByExternalID(externalID); findErr == nil {
			return again, nil
		}
		return nil, err
	}

	logger.Info("External listing imported", map[string]interface{}{
		"listing_id":  listing.ID,
		"external_id": externalID,
	})
	return listing, nil
}

// backfill fills empty fields of an already-imported listing from fresher
// live data. Existing values always win.
func (s *listingService) backfill(listing *model.Listing, input ImportInput) (*model.Listing, error) {
	fields := map[string]interface{}{}

	maybe := func(column, current, value string) {
		if current == "" && strings.TrimSpace(value) != "" {
			fields[column] = strings.TrimSpace(value)
		}
	}
	maybe("category", listing.Category, input.Category)
	maybe("address", listing.Address, input.Address)
	maybe("city", listing.City, input.City)
	maybe("state", listing.State, input.State)
	maybe("zip_code", listing.ZipCode, input.ZipCode)
	maybe("phone", listing.Phone, input.Phone)
	maybe("website", listing.Website, input.Website)
	if listing.Location == "" && (input.City != "" || input.State != "") {
		fields["location"] = util.BuildDisplayLocation("", input.City, input.State)
	}

	if len(fields) == 0 {
		return listing, nil
	}
	if err := s.listingRepo.UpdateFields(listing.ID, fields); err != nil {
		return nil, err
	}
	return s.listingRepo.FindByID(listing.ID)
}

// ToggleHoliday turns the holiday override on or off. An optional until
// timestamp lets the override clear itself lazily.
func (s *listingService) ToggleHoliday(userID, listingID uint, on bool, note string, until *time.Time) (*model.Listing, error) {
	listing, err := s.loadOwned(userID, listingID)
	if err != nil {
		return nil, err
	}

	if on {
		note = strings.TrimSpace(note)
		if note == "" {
			note = "On holiday"
		}
		if len(note) > 120 {
			note = note[:120]
		}
		listing.IsOnHoliday = true
		listing.HolidayNote = &note
		listing.HolidayUntil = until
	} else {
		listing.IsOnHoliday = false
		listing.HolidayNote = nil
		listing.HolidayUntil = nil
	}

	err = s.listingRepo.UpdateFields(listingID, map[string]interface{}{
		"is_on_holiday": listing.IsOnHoliday,
		"holiday_note":  listing.HolidayNote,
		"holiday_until": listing.HolidayUntil,
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *listingService) Dashboard(userID uint) ([]model.Listing, error) {
	return s.listingRepo.FindByOwner(userID)
}

func (s *listingService) TrackClick(listingID uint, kind string) error {
	column, ok := clickColumns[kind]
	if !ok {
		return ErrInvalidClickKind
	}
	if err := s.listingRepo.IncrementCounter(listingID, column); err != nil {
		return notFoundOr(err)
	}
	return nil
}

// ExportAnalytics builds an xlsx workbook with one row per owned listing
// and its engagement counters.
func (s *listingService) ExportAnalytics(userID uint) (*excelize.File, error) {
	listings, err := s.listingRepo.FindByOwner(userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"Name", "Category", "Location", "Plan", "Promoted", "Views", "Call clicks", "Website clicks", "Directions clicks"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	for rowIdx, l := range listings {
		values := []interface{}{
			l.Name,
			l.Category,
			l.Location,
			string(l.Plan),
			l.IsPromotedNow(now),
			l.ViewCount,
			l.CallClicks,
			l.WebsiteClicks,
			l.DirectionsClicks,
		}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

func (s *listingService) loadOwned(userID, listingID uint) (*model.Listing, error) {
	listing, err := s.listingRepo.FindByID(listingID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if listing.OwnerID == nil || *listing.OwnerID != userID {
		return nil, ErrListingAccessDenied
	}
	return listing, nil
}
