package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/service"
	apperrors "github.com/nearify/nearify-backend/internal/errors"
	"github.com/nearify/nearify-backend/internal/middleware"
)

type ListingController struct {
	listingService service.ListingService
}

func NewListingController(listingService service.ListingService) *ListingController {
	return &ListingController{listingService: listingService}
}

type CreateListingRequest struct {
	Name      string `json:"name" binding:"required"`
	Category  string `json:"category"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	ImageURL  string `json:"image_url"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

type UpdateListingRequest struct {
	Name      *string `json:"name"`
	Category  *string `json:"category"`
	Location  *string `json:"location"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	ZipCode   *string `json:"zip_code"`
	Phone     *string `json:"phone"`
	Website   *string `json:"website"`
	ImageURL  *string `json:"image_url"`
	OpenTime  *string `json:"open_time"`
	CloseTime *string `json:"close_time"`
}

type ImportListingRequest struct {
	OSMID    string `json:"osm_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

type HolidayRequest struct {
	On    bool       `json:"on"`
	Note  string     `json:"note"`
	Until *time.Time `json:"until"`
}

type ClickRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func parseListingID(c *gin.Context) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid listing ID")
		return 0, false
	}
	return uint(id), true
}

// respondListingError maps the shared listing service errors.
func respondListingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrListingNotFound):
		apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
	case errors.Is(err, service.ErrListingAccessDenied):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "Only the listing owner can do this")
	default:
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
	}
}

// CreateListing creates a curated listing owned by the caller
// POST /api/v1/listings
func (ctrl *ListingController) CreateListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the listing details")
		return
	}

	listing, err := ctrl.listingService.CreateListing(userID, &model.Listing{
		Name:      req.Name,
		Category:  req.Category,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Phone:     req.Phone,
		Website:   req.Website,
		ImageURL:  req.ImageURL,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
	})
	if err != nil {
		log.Error("Failed to create listing", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
		return
	}

	log.Info("Listing created", map[string]interface{}{
		"listing_id": listing.ID,
		"user_id":    userID,
	})

	c.JSON(http.StatusCreated, gin.H{"listing": listing})
}

// GetListing returns one listing and counts the view
// GET /api/v1/listings/:id
func (ctrl *ListingController) GetListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseListingID(c)
	if !ok {
		return
	}

	listing, err := ctrl.listingService.GetListingDetail(id)
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
			return
		}
		log.Error("Failed to fetch listing", err, map[string]interface{}{
			"listing_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// UpdateListing edits an owned listing
// PUT /api/v1/listings/:id
func (ctrl *ListingController) UpdateListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the listing details")
		return
	}

	listing, err := ctrl.listingService.UpdateListing(userID, id, service.ListingMutation{
		Name:      req.Name,
		Category:  req.Category,
		Location:  req.Location,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Phone:     req.Phone,
		Website:   req.Website,
		ImageURL:  req.ImageURL,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
	})
	if err != nil {
		respondListingError(c, err)
		return
	}

	log.Info("Listing updated", map[string]interface{}{
		"listing_id": id,
		"user_id":    userID,
	})

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// DeleteListing removes an owned listing
// DELETE /api/v1/listings/:id
func (ctrl *ListingController) DeleteListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}

	if err := ctrl.listingService.DeleteListing(userID, id); err != nil {
		respondListingError(c, err)
		return
	}

	log.Info("Listing deleted", map[string]interface{}{
		"listing_id": id,
		"user_id":    userID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

// ImportExternal pulls a live search result into the directory so it can be
// claimed or promoted. Importing never assigns an owner.
// POST /api/v1/listings/import
func (ctrl *ListingController) ImportExternal(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ImportListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide the place details")
		return
	}

	listing, err := ctrl.listingService.ImportExternal(service.ImportInput{
		OSMID:    req.OSMID,
		Name:     req.Name,
		Category: req.Category,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Phone:    req.Phone,
		Website:  req.Website,
	})
	if err != nil {
		log.Error("Failed to import listing", err, map[string]interface{}{
			"osm_id": req.OSMID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// ToggleHoliday sets or clears the temporary closure override
// PUT /api/v1/listings/:id/holiday
func (ctrl *ListingController) ToggleHoliday(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}

	var req HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the holiday details")
		return
	}

	listing, err := ctrl.listingService.ToggleHoliday(userID, id, req.On, req.Note, req.Until)
	if err != nil {
		respondListingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Dashboard lists the caller's listings with their analytics counters
// GET /api/v1/dashboard
func (ctrl *ListingController) Dashboard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	listings, err := ctrl.listingService.Dashboard(userID)
	if err != nil {
		log.Error("Failed to load dashboard", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"count":    len(listings),
	})
}

// TrackClick records one engagement event on a listing
// POST /api/v1/listings/:id/click
func (ctrl *ListingController) TrackClick(c *gin.Context) {
	id, ok := parseListingID(c)
	if !ok {
		return
	}

	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide the click kind")
		return
	}

	if err := ctrl.listingService.TrackClick(id, req.Kind); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClickKind):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown click kind")
		case errors.Is(err, service.ErrListingNotFound):
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
		default:
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracked": true})
}

// ExportAnalytics streams the caller's analytics as an xlsx workbook
// GET /api/v1/dashboard/export
func (ctrl *ListingController) ExportAnalytics(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	f, err := ctrl.listingService.ExportAnalytics(userID)
	if err != nil {
		log.Error("Failed to export analytics", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "listing")
		return
	}

	filename := fmt.Sprintf("nearify-analytics-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	if err := f.Write(c.Writer); err != nil {
		log.Error("Failed to stream analytics export", err, map[string]interface{}{
			"user_id": userID,
		})
	}
}
