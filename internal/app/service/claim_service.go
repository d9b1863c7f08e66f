package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/pkg/email"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/nearify/nearify-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrClaimNotFound       = errors.New("claim request not found")
	ErrListingAlreadyOwned = errors.New("this business is already claimed")
	ErrListingNoWebsite    = errors.New("this business has no website domain to verify against")
	ErrInvalidClaimEmail   = errors.New("enter a valid email address")
	ErrEmailDomainMismatch = errors.New("email must be on the business website domain")
	ErrEmailSendFailed     = errors.New("could not send the verification email")
	ErrResendTooSoon       = errors.New("a code was sent recently, wait before requesting another")
	ErrClaimCodeInvalid    = errors.New("invalid verification code")
	ErrClaimCodeExpired    = errors.New("verification code expired, request a new one")
	ErrClaimBlocked        = errors.New("too many attempts, request a new code")
)

// ResendCooldown is the minimum gap between verification emails for the
// same claim.
const ResendCooldown = 60 * time.Second

type ClaimService interface {
	StartClaim(listingID, userID uint, claimEmail string) (*model.ClaimRequest, error)
	ResendCode(claimID uuid.UUID, userID uint) error
	VerifyClaim(claimID uuid.UUID, userID uint, code string) (*model.ClaimRequest, error)
	GetClaim(claimID uuid.UUID, userID uint) (*model.ClaimRequest, error)
}

type claimService struct {
	claimRepo   repository.ClaimRepository
	listingRepo repository.ListingRepository
	sender      email.Sender
}

func NewClaimService(claimRepo repository.ClaimRepository, listingRepo repository.ListingRepository, sender email.Sender) ClaimService {
	return &claimService{
		claimRepo:   claimRepo,
		listingRepo: listingRepo,
		sender:      sender,
	}
}

// StartClaim begins the ownership claim flow: the requester's email must be
// on the listing's website domain, then a one-time code is generated, stored
// as a hash and emailed. Any previous pending claim by the same user for the
// same listing is discarded so only one code is live at a time.
func (s *claimService) StartClaim(listingID, userID uint, claimEmail string) (*model.ClaimRequest, error) {
	listing, err := s.listingRepo.FindByID(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	if listing.OwnerID != nil && *listing.OwnerID != userID {
		return nil, ErrListingAlreadyOwned
	}

	websiteDomain := listing.WebsiteDomain()
	if websiteDomain == "" {
		return nil, ErrListingNoWebsite
	}

	claimEmail = strings.ToLower(strings.TrimSpace(claimEmail))
	if !strings.Contains(claimEmail, "@") {
		return nil, ErrInvalidClaimEmail
	}
	if util.EmailDomain(claimEmail) != websiteDomain {
		return nil, fmt.Errorf("%w: @%s", ErrEmailDomainMismatch, websiteDomain)
	}

	if err := s.claimRepo.DeletePendingForListingUser(listingID, userID); err != nil {
		return nil, err
	}

	code, err := util.GenerateClaimCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	claim := &model.ClaimRequest{
		ListingID:  listingID,
		UserID:     userID,
		Email:      claimEmail,
		CodeHash:   model.HashClaimCode(code),
		Status:     model.ClaimStatusPending,
		ExpiresAt:  now.Add(model.ClaimCodeValidity),
		LastSentAt: &now,
	}
	if err := s.claimRepo.Create(claim); err != nil {
		return nil, err
	}

	if err := s.sender.SendClaimCode(claimEmail, listing.Name, code); err != nil {
		logger.Error("Failed to send claim verification email", err, map[string]interface{}{
			"claim_id":   claim.ID.String(),
			"listing_id": listingID,
		})
		return nil, fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}

	logger.Info("Claim started", map[string]interface{}{
		"claim_id":   claim.ID.String(),
		"listing_id": listingID,
		"user_id":    userID,
	})
	return claim, nil
}

// ResendCode issues a fresh code for a pending claim, throttled so a user
// cannot trigger an email flood.
func (s *claimService) ResendCode(claimID uuid.UUID, userID uint) error {
	claim, err := s.loadOwnClaim(claimID, userID)
	if err != nil {
		return err
	}

	if claim.IsVerified() {
		return nil
	}

	now := time.Now()
	if !claim.CanResend(now, ResendCooldown) {
		return ErrResendTooSoon
	}

	listing, err := s.listingRepo.FindByID(claim.ListingID)
	if err != nil {
		return err
	}

	code, err := util.GenerateClaimCode()
	if err != nil {
		return err
	}

	err = s.claimRepo.UpdateFields(claim.ID, map[string]interface{}{
		"code_hash":    model.HashClaimCode(code),
		"status":       model.ClaimStatusPending,
		"expires_at":   now.Add(model.ClaimCodeValidity),
		"attempts":     0,
		"last_sent_at": now,
	})
	if err != nil {
		return err
	}

	if err := s.sender.SendClaimCode(claim.Email, listing.Name, code); err != nil {
		logger.Error("Failed to resend claim verification email", err, map[string]interface{}{
			"claim_id": claim.ID.String(),
		})
		return fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}
	return nil
}

// VerifyClaim runs the submitted code through the claim state machine,
// persists exactly the columns that changed and assigns ownership on
// success. Ownership is only ever granted to an unowned listing; a listing
// claimed by someone else in the meantime stays theirs.
func (s *claimService) VerifyClaim(claimID uuid.UUID, userID uint, code string) (*model.ClaimRequest, error) {
	claim, err := s.loadOwnClaim(claimID, userID)
	if err != nil {
		return nil, err
	}

	ok, changed := claim.Verify(strings.TrimSpace(code), time.Now())

	if err := s.claimRepo.UpdateFields(claim.ID, claimFields(claim, changed)); err != nil {
		return nil, err
	}

	if !ok {
		switch claim.Status {
		case model.ClaimStatusExpired:
			return nil, ErrClaimCodeExpired
		case model.ClaimStatusBlocked:
			return nil, ErrClaimBlocked
		default:
			return nil, ErrClaimCodeInvalid
		}
	}

	listing, err := s.listingRepo.FindByID(claim.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == nil {
		if err := s.listingRepo.UpdateFields(listing.ID, map[string]interface{}{"owner_id": userID}); err != nil {
			return nil, err
		}
		logger.Info("Listing ownership assigned", map[string]interface{}{
			"listing_id": listing.ID,
			"owner_id":   userID,
		})
	}

	return claim, nil
}

func (s *claimService) GetClaim(claimID uuid.UUID, userID uint) (*model.ClaimRequest, error) {
	return s.loadOwnClaim(claimID, userID)
}

func (s *claimService) loadOwnClaim(claimID uuid.UUID, userID uint) (*model.ClaimRequest, error) {
	claim, err := s.claimRepo.FindByID(claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	// A claim is private to its requester.
	if claim.UserID != userID {
		return nil, ErrClaimNotFound
	}
	return claim, nil
}

// claimFields maps the state machine's changed-column list to values.
func claimFields(claim *model.ClaimRequest, changed []string) map[string]interface{} {
	fields := make(map[string]interface{}, len(changed))
	for _, col := range changed {
		switch col {
		case "attempts":
			fields["attempts"] = claim.Attempts
		case "status":
			fields["status"] = claim.Status
		case "verified_at":
			fields["verified_at"] = claim.VerifiedAt
		}
	}
	return fields
}
