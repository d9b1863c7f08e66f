package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to display messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthUsernameExists     = "AUTH_USERNAME_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzOwnerOnly = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"

	// ==================== Listing (LISTING_) ====================
	ListingNotFound      = "LISTING_NOT_FOUND"
	ListingAlreadyExists = "LISTING_ALREADY_EXISTS"
	ListingAlreadyOwned  = "LISTING_ALREADY_OWNED"
	ListingNoWebsite     = "LISTING_NO_WEBSITE"

	// ==================== Claim (CLAIM_) ====================
	ClaimNotFound        = "CLAIM_NOT_FOUND"
	ClaimEmailMismatch   = "CLAIM_EMAIL_MISMATCH"
	ClaimCodeInvalid     = "CLAIM_CODE_INVALID"
	ClaimCodeExpired     = "CLAIM_CODE_EXPIRED"
	ClaimBlocked         = "CLAIM_BLOCKED"
	ClaimAlreadyVerified = "CLAIM_ALREADY_VERIFIED"
	ClaimResendTooSoon   = "CLAIM_RESEND_TOO_SOON"
	ClaimEmailSendFailed = "CLAIM_EMAIL_SEND_FAILED"

	// ==================== Search (SEARCH_) ====================
	SearchMissingQuery    = "SEARCH_MISSING_QUERY"
	SearchGeocodeBlocked  = "SEARCH_GEOCODE_BLOCKED"
	SearchLocationUnknown = "SEARCH_LOCATION_UNKNOWN"
	SearchGeocodeFailed   = "SEARCH_GEOCODE_FAILED"

	// ==================== Billing (BILLING_) ====================
	BillingInvalidPlan      = "BILLING_INVALID_PLAN"
	BillingMissingPrice     = "BILLING_MISSING_PRICE"
	BillingNotConfigured    = "BILLING_NOT_CONFIGURED"
	BillingCheckoutFailed   = "BILLING_CHECKOUT_FAILED"
	BillingInvalidSignature = "BILLING_INVALID_SIGNATURE"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
