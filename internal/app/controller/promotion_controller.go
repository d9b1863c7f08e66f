package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/internal/app/service"
	apperrors "github.com/nearify/nearify-backend/internal/errors"
	"github.com/nearify/nearify-backend/internal/middleware"
	"github.com/nearify/nearify-backend/pkg/payment/stripe"
)

// maxWebhookBody caps how much of a webhook payload is read. Stripe events
// for this integration are far smaller.
const maxWebhookBody = 1 << 20

type PromotionController struct {
	promotionService service.PromotionService
}

func NewPromotionController(promotionService service.PromotionService) *PromotionController {
	return &PromotionController{promotionService: promotionService}
}

type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// CreateCheckout opens a Stripe subscription checkout for a listing
// POST /api/v1/listings/:id/promote
func (ctrl *PromotionController) CreateCheckout(c *gin.Context) {
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

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please choose a promotion plan")
		return
	}

	session, err := ctrl.promotionService.CreateCheckout(c.Request.Context(), userID, listingID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBillingDisabled):
			apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.BillingNotConfigured, "Payments are not available right now")
		case errors.Is(err, service.ErrInvalidPlan):
			apperrors.BadRequest(c, apperrors.BillingInvalidPlan, "Unknown promotion plan")
		case errors.Is(err, service.ErrMissingPriceID):
			apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.BillingNotConfigured, "This plan is not available right now")
		case errors.Is(err, service.ErrListingNotFound):
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
		case errors.Is(err, service.ErrListingAccessDenied):
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "Only the listing owner can promote it")
		default:
			log.Error("Failed to create checkout session", err, map[string]interface{}{
				"listing_id": listingID,
				"plan":       req.Plan,
			})
			apperrors.ParseAndRespond(c, http.StatusBadGateway, err, "billing")
		}
		return
	}

	log.Info("Checkout session created", map[string]interface{}{
		"listing_id": listingID,
		"plan":       req.Plan,
		"session_id": session.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// Webhook receives Stripe events. The raw body is required for signature
// verification, so this handler must run before any body-parsing middleware.
// POST /api/v1/webhooks/stripe
func (ctrl *PromotionController) Webhook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Could not read webhook payload")
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")

	if err := ctrl.promotionService.HandleWebhook(c.Request.Context(), payload, sigHeader); err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) || errors.Is(err, stripe.ErrSignatureExpired) {
			log.Warn("Webhook signature rejected", map[string]interface{}{
				"error": err.Error(),
			})
			apperrors.BadRequest(c, apperrors.BillingInvalidSignature, "Webhook signature verification failed")
			return
		}
		// Non-2xx makes Stripe retry the event later.
		log.Error("Webhook processing failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "billing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
