package repository

import (
	"fmt"
	"strings"

	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/pkg/logger"
	"gorm.io/gorm"
)

// ListingFilter narrows curated listing searches. Term matches name or
// category, Location matches the locality fields. Empty fields match all.
type ListingFilter struct {
	Term     string
	Location string
}

// counterColumns are the only columns IncrementCounter may touch.
var counterColumns = map[string]bool{
	"view_count":        true,
	"call_clicks":       true,
	"website_clicks":    true,
	"directions_clicks": true,
}

type ListingRepository interface {
	Create(listing *model.Listing) error
	BulkCreate(listings []model.Listing, batchSize int) error
	Update(listing *model.Listing) error
	UpdateFields(id uint, fields map[string]interface{}) error
	Delete(id uint) error
	FindByID(id uint) (*model.Listing, error)
	FindByExternalID(externalID string) (*model.Listing, error)
	FindByOwner(ownerID uint) ([]model.Listing, error)
	FindBySubscriptionID(subscriptionID string) (*model.Listing, error)
	SearchCurated(filter ListingFilter) ([]model.Listing, error)
	FindPromotedCandidates(filter ListingFilter) ([]model.Listing, error)
	IncrementCounter(id uint, column string) error
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(listing *model.Listing) error {
	logger.Debug("Creating listing in database", map[string]interface{}{
		"name":     listing.Name,
		"category": listing.Category,
		"location": listing.Location,
	})

	if err := r.db.Create(listing).Error; err != nil {
		logger.Error("Failed to create listing in database", err, map[string]interface{}{
			"name":     listing.Name,
			"category": listing.Category,
		})
		return err
	}

	logger.Debug("Listing created in database", map[string]interface{}{
		"listing_id": listing.ID,
		"name":       listing.Name,
	})
	return nil
}

// BulkCreate inserts listings in batches. Used by the seed importer.
func (r *listingRepository) BulkCreate(listings []model.Listing, batchSize int) error {
	if len(listings) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	if err := r.db.CreateInBatches(listings, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create listings", err, map[string]interface{}{
			"count": len(listings),
		})
		return err
	}

	logger.Info("Bulk created listings", map[string]interface{}{
		"count": len(listings),
	})
	return nil
}

func (r *listingRepository) Update(listing *model.Listing) error {
	logger.Debug("Updating listing in database", map[string]interface{}{
		"listing_id": listing.ID,
		"name":       listing.Name,
	})

	if err := r.db.Save(listing).Error; err != nil {
		logger.Error("Failed to update listing in database", err, map[string]interface{}{
			"listing_id": listing.ID,
		})
		return err
	}
	return nil
}

// UpdateFields persists only the named columns. Used by the lazy
// reconciliation paths so a stale in-memory struct never clobbers
// unrelated columns.
func (r *listingRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	if err := r.db.Model(&model.Listing{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		logger.Error("Failed to update listing fields", err, map[string]interface{}{
			"listing_id": id,
		})
		return err
	}
	return nil
}

func (r *listingRepository) Delete(id uint) error {
	logger.Debug("Deleting listing from database", map[string]interface{}{
		"listing_id": id,
	})

	if err := r.db.Delete(&model.Listing{}, id).Error; err != nil {
		logger.Error("Failed to delete listing from database", err, map[string]interface{}{
			"listing_id": id,
		})
		return err
	}
	return nil
}

func (r *listingRepository) FindByID(id uint) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) FindByExternalID(externalID string) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.Where("external_id = ?", externalID).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) FindByOwner(ownerID uint) ([]model.Listing, error) {
	var listings []model.Listing
	if err := r.db.Where("owner_id = ?", ownerID).Order("name asc").Find(&listings).Error; err != nil {
		logger.Error("Failed to find listings by owner", err, map[string]interface{}{
			"owner_id": ownerID,
		})
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) FindBySubscriptionID(subscriptionID string) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// SearchCurated finds curated listings matching the filter, highest priority
// first so promoted rows surface at the top of the band.
func (r *listingRepository) SearchCurated(filter ListingFilter) ([]model.Listing, error) {
	var listings []model.Listing

	query := r.db.Model(&model.Listing{}).Where("is_curated = ?", true)
	query = applyFilter(query, filter, true)

	if err := query.Order("priority desc, name asc").Find(&listings).Error; err != nil {
		logger.Error("Failed to search curated listings", err, map[string]interface{}{
			"term":     filter.Term,
			"location": filter.Location,
		})
		return nil, err
	}

	logger.Debug("Curated listing search completed", map[string]interface{}{
		"term":     filter.Term,
		"location": filter.Location,
		"count":    len(listings),
	})
	return listings, nil
}

// FindPromotedCandidates finds active promoted listings matching the filter,
// highest plan first, ties broken by the later promotion end. Window expiry
// is the caller's problem: rows whose featured_until has elapsed are still
// returned and reconciled lazily by the service.
func (r *listingRepository) FindPromotedCandidates(filter ListingFilter) ([]model.Listing, error) {
	var listings []model.Listing

	query := r.db.Model(&model.Listing{}).Where("is_active = ?", true)
	query = applyFilter(query, filter, false)

	if err := query.Order("priority desc, featured_until desc").Find(&listings).Error; err != nil {
		logger.Error("Failed to find promoted candidates", err, map[string]interface{}{
			"term":     filter.Term,
			"location": filter.Location,
		})
		return nil, err
	}
	return listings, nil
}

// IncrementCounter atomically bumps one analytics counter so concurrent
// clicks never lose updates.
func (r *listingRepository) IncrementCounter(id uint, column string) error {
	if !counterColumns[column] {
		return fmt.Errorf("unknown counter column: %s", column)
	}

	result := r.db.Model(&model.Listing{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		logger.Error("Failed to increment counter", result.Error, map[string]interface{}{
			"listing_id": id,
			"column":     column,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// applyFilter adds case-insensitive term and location matching. LOWER/LIKE
// instead of ILIKE keeps the query portable to the SQLite test database.
// matchAddress widens the location clause to the street address, used for
// the curated search but not the promoted band.
func applyFilter(query *gorm.DB, filter ListingFilter, matchAddress bool) *gorm.DB {
	if term := strings.ToLower(strings.TrimSpace(filter.Term)); term != "" {
		pattern := "%" + term + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern)
	}
	if loc := strings.ToLower(strings.TrimSpace(filter.Location)); loc != "" {
		pattern := "%" + loc + "%"
		if matchAddress {
			query = query.Where(
				"LOWER(location) LIKE ? OR LOWER(address) LIKE ? OR LOWER(city) LIKE ? OR LOWER(state) LIKE ?",
				pattern, pattern, pattern, pattern,
			)
		} else {
			query = query.Where("LOWER(location) LIKE ? OR LOWER(city) LIKE ? OR LOWER(state) LIKE ?", pattern, pattern, pattern)
		}
	}
	return query
}
