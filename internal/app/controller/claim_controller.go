package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nearify/nearify-backend/internal/app/service"
	apperrors "github.com/nearify/nearify-backend/internal/errors"
	"github.com/nearify/nearify-backend/internal/middleware"
)

// verifyAttemptCeiling is a request-layer backstop on verification attempts.
// The claim state machine blocks earlier on its own; this guard only matters
// if that ceiling is ever raised.
const verifyAttemptCeiling = 8

type ClaimController struct {
	claimService service.ClaimService
}

func NewClaimController(claimService service.ClaimService) *ClaimController {
	return &ClaimController{claimService: claimService}
}

type StartClaimRequest struct {
	Email string `json:"email" binding:"required"`
}

type VerifyClaimRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

func parseClaimID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid claim ID")
		return uuid.Nil, false
	}
	return id, true
}

func respondClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClaimNotFound):
		apperrors.NotFound(c, apperrors.ClaimNotFound, "Claim request not found")
	case errors.Is(err, service.ErrListingNotFound):
		apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
	case errors.Is(err, service.ErrListingAlreadyOwned):
		apperrors.Conflict(c, apperrors.ListingAlreadyOwned, "This listing has already been claimed")
	case errors.Is(err, service.ErrListingNoWebsite):
		apperrors.BadRequest(c, apperrors.ListingNoWebsite, "This listing has no website, so ownership cannot be verified by email")
	case errors.Is(err, service.ErrInvalidClaimEmail):
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Please provide a valid email address")
	case errors.Is(err, service.ErrEmailDomainMismatch):
		apperrors.BadRequest(c, apperrors.ClaimEmailMismatch, "The email must be on the same domain as the business website")
	case errors.Is(err, service.ErrEmailSendFailed):
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.ClaimEmailSendFailed, "We could not send the verification email. Please try again later")
	case errors.Is(err, service.ErrResendTooSoon):
		apperrors.RespondWithError(c, http.StatusTooManyRequests, apperrors.ClaimResendTooSoon, "Please wait a moment before requesting another code")
	case errors.Is(err, service.ErrClaimCodeInvalid):
		apperrors.BadRequest(c, apperrors.ClaimCodeInvalid, "That code is not correct")
	case errors.Is(err, service.ErrClaimCodeExpired):
		apperrors.RespondWithError(c, http.StatusGone, apperrors.ClaimCodeExpired, "That code has expired. Please request a new one")
	case errors.Is(err, service.ErrClaimBlocked):
		apperrors.RespondWithError(c, http.StatusTooManyRequests, apperrors.ClaimBlocked, "Too many incorrect attempts. This claim has been blocked")
	default:
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "claim")
	}
}

// StartClaim begins the ownership claim flow by emailing a one-time code
// POST /api/v1/listings/:id/claim
func (ctrl *ClaimController) StartClaim(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	var req StartClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide your business email address")
		return
	}

	claim, err := ctrl.claimService.StartClaim(listingID, userID, req.Email)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	log.Info("Claim started", map[string]interface{}{
		"claim_id":   claim.ID,
		"listing_id": listingID,
		"user_id":    userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"claim": gin.H{
			"id":         claim.ID,
			"listing_id": claim.ListingID,
			"email":      claim.Email,
			"status":     claim.Status,
			"expires_at": claim.ExpiresAt,
		},
	})
}

// ResendCode issues a fresh one-time code for a pending claim
// POST /api/v1/claims/:id/resend
func (ctrl *ClaimController) ResendCode(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	claimID, ok := parseClaimID(c)
	if !ok {
		return
	}

	if err := ctrl.claimService.ResendCode(claimID, userID); err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A new code has been sent"})
}

// VerifyClaim checks the submitted code and transfers ownership on success
// POST /api/v1/claims/:id/verify
func (ctrl *ClaimController) VerifyClaim(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	claimID, ok := parseClaimID(c)
	if !ok {
		return
	}

	var req VerifyClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide the 6-digit code")
		return
	}

	existing, err := ctrl.claimService.GetClaim(claimID, userID)
	if err != nil {
		respondClaimError(c, err)
		return
	}
	if existing.Attempts > verifyAttemptCeiling {
		apperrors.RespondWithError(c, http.StatusTooManyRequests, apperrors.ClaimBlocked, "Too many incorrect attempts. This claim has been blocked")
		return
	}

	claim, err := ctrl.claimService.VerifyClaim(claimID, userID, req.Code)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	log.Info("Claim verified", map[string]interface{}{
		"claim_id":   claim.ID,
		"listing_id": claim.ListingID,
		"user_id":    userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"claim": gin.H{
			"id":          claim.ID,
			"listing_id":  claim.ListingID,
			"status":      claim.Status,
			"verified_at": claim.VerifiedAt,
		},
	})
}

// GetClaim returns the caller's claim for status polling
// GET /api/v1/claims/:id
func (ctrl *ClaimController) GetClaim(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	claimID, ok := parseClaimID(c)
	if !ok {
		return
	}

	claim, err := ctrl.claimService.GetClaim(claimID, userID)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"claim": gin.H{
			"id":         claim.ID,
			"listing_id": claim.ListingID,
			"email":      claim.Email,
			"status":     claim.Status,
			"attempts":   claim.Attempts,
			"expires_at": claim.ExpiresAt,
		},
	})
}
