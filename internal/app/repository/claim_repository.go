package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/pkg/logger"
	"gorm.io/gorm"
)

type ClaimRepository interface {
	Create(claim *model.ClaimRequest) error
	FindByID(id uuid.UUID) (*model.ClaimRequest, error)
	FindLatestPending(listingID, userID uint) (*model.ClaimRequest, error)
	UpdateFields(id uuid.UUID, fields map[string]interface{}) error
	DeletePendingForListingUser(listingID, userID uint) error
	DeleteStaleUnverified(before time.Time) (int64, error)
}

type claimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) Create(claim *model.ClaimRequest) error {
	logger.Debug("Creating claim request in database", map[string]interface{}{
		"listing_id": claim.ListingID,
		"user_id":    claim.UserID,
	})

	if err := r.db.Create(claim).Error; err != nil {
		logger.Error("Failed to create claim request in database", err, map[string]interface{}{
			"listing_id": claim.ListingID,
			"user_id":    claim.UserID,
		})
		return err
	}
	return nil
}

func (r *claimRepository) FindByID(id uuid.UUID) (*model.ClaimRequest, error) {
	var claim model.ClaimRequest
	if err := r.db.First(&claim, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) FindLatestPending(listingID, userID uint) (*model.ClaimRequest, error) {
	var claim model.ClaimRequest
	err := r.db.
		Where("listing_id = ? AND user_id = ? AND status = ?", listingID, userID, model.ClaimStatusPending).
		Order("created_at desc").
		First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// UpdateFields persists only the columns the claim state machine reported
// as changed.
func (r *claimRepository) UpdateFields(id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	if err := r.db.Model(&model.ClaimRequest{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		logger.Error("Failed to update claim request fields", err, map[string]interface{}{
			"claim_id": id.String(),
		})
		return err
	}
	return nil
}

// DeletePendingForListingUser removes any outstanding pending claims before
// a fresh one is issued, so only one code is ever live per listing and user.
func (r *claimRepository) DeletePendingForListingUser(listingID, userID uint) error {
	err := r.db.
		Where("listing_id = ? AND user_id = ? AND status = ?", listingID, userID, model.ClaimStatusPending).
		Delete(&model.ClaimRequest{}).Error
	if err != nil {
		logger.Error("Failed to delete pending claim requests", err, map[string]interface{}{
			"listing_id": listingID,
			"user_id":    userID,
		})
		return err
	}
	return nil
}

// DeleteStaleUnverified purges non-verified claims created before the given
// time. Run by the scheduler; verified claims are kept as an audit trail.
func (r *claimRepository) DeleteStaleUnverified(before time.Time) (int64, error) {
	result := r.db.
		Where("status <> ? AND created_at < ?", model.ClaimStatusVerified, before).
		Delete(&model.ClaimRequest{})
	if result.Error != nil {
		logger.Error("Failed to delete stale claim requests", result.Error, nil)
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.Info("Purged stale claim requests", map[string]interface{}{
			"count": result.RowsAffected,
		})
	}
	return result.RowsAffected, nil
}
