package errors

// Error code constants returned in API responses.
// Format: CATEGORY_SPECIFIC_DETAIL. The storefront maps these codes to
// user-facing messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (PRODUCT_) ====================
	ProductNotFound      = "PRODUCT_NOT_FOUND"
	ProductInactive      = "PRODUCT_INACTIVE"
	ProductOutOfStock    = "PRODUCT_OUT_OF_STOCK"
	CategoryNotFound     = "CATEGORY_NOT_FOUND"

	// ==================== Cart (CART_) ====================
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartEmpty           = "CART_EMPTY"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"

	// ==================== Promotion (PROMO_) ====================
	PromotionNotFound       = "PROMO_NOT_FOUND"
	PromotionExpired        = "PROMO_EXPIRED"
	PromotionNotStarted     = "PROMO_NOT_STARTED"
	PromotionInactive       = "PROMO_INACTIVE"
	PromotionUsageExceeded  = "PROMO_USAGE_EXCEEDED"
	PromotionMinSubtotal    = "PROMO_MIN_SUBTOTAL_NOT_MET"
	PromotionAlreadyApplied = "PROMO_ALREADY_APPLIED"
	PromotionNotApplied     = "PROMO_NOT_APPLIED"

	// ==================== Membership (MEMBERSHIP_) ====================
	MembershipNotFound       = "MEMBERSHIP_NOT_FOUND"
	MembershipPlanNotFound   = "MEMBERSHIP_PLAN_NOT_FOUND"
	MembershipAlreadyActive  = "MEMBERSHIP_ALREADY_ACTIVE"
	MembershipAllocationGone = "MEMBERSHIP_ALLOCATION_EXHAUSTED"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound = "ORDER_NOT_FOUND"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
