package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/nearify/nearify-backend/pkg/payment/stripe"
	"gorm.io/gorm"
)

var (
	ErrInvalidPlan     = errors.New("invalid promotion plan")
	ErrMissingPriceID  = errors.New("no price configured for this plan")
	ErrBillingDisabled = errors.New("payments are not configured")
)

// PaymentClient is the slice of the Stripe client the promotion flow needs.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	ConstructEvent(payload []byte, sigHeader string) (*stripe.Event, error)
}

type PromotionService interface {
	CreateCheckout(ctx context.Context, userID, listingID uint, plan string) (*stripe.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

type promotionService struct {
	listingRepo repository.ListingRepository
	payments    PaymentClient
	cfg         config.StripeConfig
}

func NewPromotionService(listingRepo repository.ListingRepository, payments PaymentClient, cfg config.StripeConfig) PromotionService {
	return &promotionService{
		listingRepo: listingRepo,
		payments:    payments,
		cfg:         cfg,
	}
}

// CreateCheckout opens a subscription checkout for promoting a listing.
// Only the listing's owner may promote it: claim first, then pay.
func (s *promotionService) CreateCheckout(ctx context.Context, userID, listingID uint, plan string) (*stripe.CheckoutSession, error) {
	if s.payments == nil {
		return nil, ErrBillingDisabled
	}

	listing, err := s.listingRepo.FindByID(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if listing.OwnerID == nil || *listing.OwnerID != userID {
		return nil, ErrListingAccessDenied
	}

	plan = strings.ToLower(strings.TrimSpace(plan))
	if !model.ValidPlan(plan) {
		return nil, ErrInvalidPlan
	}

	priceID := s.priceForPlan(model.PromotionPlan(plan))
	if priceID == "" {
		return nil, ErrMissingPriceID
	}

	session, err := s.payments.CreateCheckoutSession(ctx, stripe.CheckoutSessionRequest{
		PriceID:  priceID,
		Quantity: 1,
		Metadata: map[string]string{
			"listing_id": strconv.FormatUint(uint64(listingID), 10),
			"plan":       plan,
			"user_id":    strconv.FormatUint(uint64(userID), 10),
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Checkout session created", map[string]interface{}{
		"listing_id": listingID,
		"plan":       plan,
		"session_id": session.ID,
	})
	return session, nil
}

// HandleWebhook verifies and dispatches a Stripe webhook event. Unhandled
// event types are acknowledged silently so Stripe stops retrying them.
func (s *promotionService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.payments == nil {
		return ErrBillingDisabled
	}

	event, err := s.payments.ConstructEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.onCheckoutCompleted(ctx, event)
	case "invoice.paid":
		return s.onInvoicePaid(ctx, event)
	case "customer.subscription.deleted":
		return s.onSubscriptionDeleted(event)
	default:
		logger.Debug("Ignoring webhook event", map[string]interface{}{
			"type": event.Type,
		})
		return nil
	}
}

func (s *promotionService) onCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.SessionObject
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	listingID, err := strconv.ParseUint(session.Metadata["listing_id"], 10, 64)
	if err != nil || session.Subscription == "" {
		logger.Warn("Checkout completed without usable metadata", map[string]interface{}{
			"event_id": event.ID,
		})
		return nil
	}

	plan := model.PromotionPlan(strings.ToLower(strings.TrimSpace(session.Metadata["plan"])))
	if !model.ValidPlan(string(plan)) {
		plan = model.PlanBase
	}

	listing, err := s.listingRepo.FindByID(uint(listingID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Checkout completed for unknown listing", map[string]interface{}{
				"listing_id": listingID,
			})
			return nil
		}
		return err
	}

	fields := map[string]interface{}{
		"stripe_customer_id": session.Customer,
		"stripe_session_id":  session.ID,
	}
	if err := s.listingRepo.UpdateFields(listing.ID, fields); err != nil {
		return err
	}

	return s.applySubscription(ctx, listing.ID, session.Subscription, plan, 0)
}

func (s *promotionService) onInvoicePaid(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.InvoiceObject
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}

	// Only invoices that actually represent a subscription charge extend
	// the promotion window.
	if invoice.BillingReason != "subscription_cycle" && invoice.BillingReason != "subscription_create" {
		return nil
	}
	if invoice.Subscription == "" {
		return nil
	}

	listing, err := s.listingRepo.FindBySubscriptionID(invoice.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return s.applySubscription(ctx, listing.ID, invoice.Subscription, listing.Plan, invoice.AmountPaid)
}

func (s *promotionService) onSubscriptionDeleted(event *stripe.Event) error {
	var sub stripe.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	listing, err := s.listingRepo.FindBySubscriptionID(sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	logger.Info("Promotion cancelled", map[string]interface{}{
		"listing_id":      listing.ID,
		"subscription_id": sub.ID,
	})
	return s.listingRepo.UpdateFields(listing.ID, map[string]interface{}{
		"is_active": false,
		"priority":  0,
	})
}

// applySubscription activates the promotion and aligns the featured window
// with the subscription's current billing period.
func (s *promotionService) applySubscription(ctx context.Context, listingID uint, subscriptionID string, plan model.PromotionPlan, amountPaid int64) error {
	now := time.Now()
	fields := map[string]interface{}{
		"plan":                   plan,
		"stripe_subscription_id": subscriptionID,
		"is_active":              true,
		"priority":               model.PriorityForPlan(plan),
		"featured_from":          now,
	}
	if amountPaid > 0 {
		fields["last_paid_amount"] = amountPaid
	}

	sub, err := s.payments.GetSubscription(ctx, subscriptionID)
	if err != nil {
		// The window end is a nice-to-have; activate anyway and let the
		// next invoice.paid correct it.
		logger.Warn("Could not retrieve subscription for period end", map[string]interface{}{
			"subscription_id": subscriptionID,
			"error":           err.Error(),
		})
	} else if sub.CurrentPeriodEnd > 0 {
		fields["featured_until"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}

	if err := s.listingRepo.UpdateFields(listingID, fields); err != nil {
		return err
	}

	logger.Info("Promotion applied", map[string]interface{}{
		"listing_id":      listingID,
		"plan":            string(plan),
		"subscription_id": subscriptionID,
	})
	return nil
}

func (s *promotionService) priceForPlan(plan model.PromotionPlan) string {
	switch plan {
	case model.PlanTop:
		return s.cfg.PriceTop
	case model.PlanMid:
		return s.cfg.PriceMid
	default:
		return s.cfg.PriceBase
	}
}
