package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/nearify/nearify-backend/pkg/payment/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePayments struct {
	sessions     []stripe.CheckoutSessionRequest
	session      *stripe.CheckoutSession
	sessionErr   error
	subscription *stripe.Subscription
	subErr       error
	eventErr     error
}

func (f *fakePayments) CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	f.sessions = append(f.sessions, req)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakePayments) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.subscription, nil
}

// ConstructEvent skips signature verification; webhook signature coverage
// lives in the stripe package tests.
func (f *fakePayments) ConstructEvent(payload []byte, sigHeader string) (*stripe.Event, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

var testStripeCfg = config.StripeConfig{
	PriceBase: "price_base",
	PriceMid:  "price_mid",
	PriceTop:  "price_top",
}

type promoFixture struct {
	db       *gorm.DB
	svc      PromotionService
	payments *fakePayments
	listing  *model.Listing
	owner    *model.User
}

func setupPromotion(t *testing.T) *promoFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	owner := &model.User{Email: "owner@shop.com", Username: "owner", PasswordHash: "x"}
	require.NoError(t, testDB.Create(owner).Error)

	listing := &model.Listing{Name: "Promotable Shop", IsCurated: true, OwnerID: &owner.ID}
	require.NoError(t, testDB.Create(listing).Error)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	payments := &fakePayments{
		session:      &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"},
		subscription: &stripe.Subscription{ID: "sub_1", Status: "active", CurrentPeriodEnd: periodEnd},
	}

	svc := NewPromotionService(repository.NewListingRepository(testDB), payments, testStripeCfg)
	return &promoFixture{db: testDB, svc: svc, payments: payments, listing: listing, owner: owner}
}

func (f *promoFixture) webhook(t *testing.T, eventType string, object string) error {
	t.Helper()
	payload := fmt.Sprintf(`{"id":"evt_1","type":%q,"data":{"object":%s}}`, eventType, object)
	return f.svc.HandleWebhook(context.Background(), []byte(payload), "t=1,v1=ignored")
}

func (f *promoFixture) reload(t *testing.T) *model.Listing {
	t.Helper()
	var l model.Listing
	require.NoError(t, f.db.First(&l, f.listing.ID).Error)
	return &l
}

func TestCreateCheckout(t *testing.T) {
	f := setupPromotion(t)

	session, err := f.svc.CreateCheckout(context.Background(), f.owner.ID, f.listing.ID, "top")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)

	require.Len(t, f.payments.sessions, 1)
	req := f.payments.sessions[0]
	assert.Equal(t, "price_top", req.PriceID)
	assert.Equal(t, fmt.Sprint(f.listing.ID), req.Metadata["listing_id"])
	assert.Equal(t, "top", req.Metadata["plan"])
}

func TestCreateCheckout_Guards(t *testing.T) {
	f := setupPromotion(t)

	_, err := f.svc.CreateCheckout(context.Background(), f.owner.ID+1, f.listing.ID, "top")
	assert.ErrorIs(t, err, ErrListingAccessDenied, "only the owner can promote")

	_, err = f.svc.CreateCheckout(context.Background(), f.owner.ID, f.listing.ID, "platinum")
	assert.ErrorIs(t, err, ErrInvalidPlan)

	svc := NewPromotionService(repository.NewListingRepository(f.db), f.payments, config.StripeConfig{})
	_, err = svc.CreateCheckout(context.Background(), f.owner.ID, f.listing.ID, "top")
	assert.ErrorIs(t, err, ErrMissingPriceID)
}

func TestWebhook_CheckoutCompletedActivates(t *testing.T) {
	f := setupPromotion(t)

	obj := fmt.Sprintf(`{"id":"cs_1","customer":"cus_1","subscription":"sub_1","metadata":{"listing_id":"%d","plan":"mid","user_id":"%d"}}`,
		f.listing.ID, f.owner.ID)
	require.NoError(t, f.webhook(t, "checkout.session.completed", obj))

	l := f.reload(t)
	assert.True(t, l.IsActive)
	assert.Equal(t, model.PlanMid, l.Plan)
	assert.Equal(t, model.PriorityMid, l.Priority)
	assert.Equal(t, "sub_1", l.StripeSubscriptionID)
	assert.Equal(t, "cus_1", l.StripeCustomerID)
	require.NotNil(t, l.FeaturedUntil)
	assert.True(t, l.FeaturedUntil.After(time.Now()))
}

func TestWebhook_InvoicePaidExtendsWindow(t *testing.T) {
	f := setupPromotion(t)
	require.NoError(t, f.db.Model(f.listing).Updates(map[string]interface{}{
		"stripe_subscription_id": "sub_1",
		"plan":                   model.PlanTop,
	}).Error)

	obj := `{"id":"in_1","subscription":"sub_1","billing_reason":"subscription_cycle","amount_paid":1999}`
	require.NoError(t, f.webhook(t, "invoice.paid", obj))

	l := f.reload(t)
	assert.True(t, l.IsActive)
	assert.Equal(t, model.PriorityTop, l.Priority)
	assert.Equal(t, int64(1999), l.LastPaidAmount)
}

func TestWebhook_InvoicePaidIgnoresOtherBillingReasons(t *testing.T) {
	f := setupPromotion(t)
	require.NoError(t, f.db.Model(f.listing).Update("stripe_subscription_id", "sub_1").Error)

	obj := `{"id":"in_1","subscription":"sub_1","billing_reason":"manual","amount_paid":500}`
	require.NoError(t, f.webhook(t, "invoice.paid", obj))

	l := f.reload(t)
	assert.False(t, l.IsActive)
	assert.Zero(t, l.LastPaidAmount)
}

func TestWebhook_SubscriptionDeletedDeactivates(t *testing.T) {
	f := setupPromotion(t)
	require.NoError(t, f.db.Model(f.listing).Updates(map[string]interface{}{
		"stripe_subscription_id": "sub_1",
		"is_active":              true,
		"priority":               model.PriorityTop,
	}).Error)

	require.NoError(t, f.webhook(t, "customer.subscription.deleted", `{"id":"sub_1"}`))

	l := f.reload(t)
	assert.False(t, l.IsActive)
	assert.Zero(t, l.Priority)
}

func TestWebhook_UnknownSubscriptionIgnored(t *testing.T) {
	f := setupPromotion(t)

	require.NoError(t, f.webhook(t, "customer.subscription.deleted", `{"id":"sub_unknown"}`))
	require.NoError(t, f.webhook(t, "some.future.event", `{}`))
}

func TestWebhook_SignatureErrorPropagates(t *testing.T) {
	f := setupPromotion(t)
	f.payments.eventErr = stripe.ErrInvalidSignature

	err := f.webhook(t, "invoice.paid", `{}`)
	assert.ErrorIs(t, err, stripe.ErrInvalidSignature)
}
