package errors

// Error codes, CATEGORY_SPECIFIC_DETAIL. Clients map these to their own messages.
const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED" // logged out
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden        = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly        = "AUTHZ_ADMIN_ONLY"
	AuthzCannotDeleteSelf = "AUTHZ_CANNOT_DELETE_SELF"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (PLACE_, PRODUCT_, IMAGE_) ====================
	PlaceNotFound   = "PLACE_NOT_FOUND"
	ProductNotFound = "PRODUCT_NOT_FOUND"
	ImageNotFound   = "IMAGE_NOT_FOUND"
	TownNotFound    = "TOWN_NOT_FOUND"
	CodeExists      = "ENTITY_CODE_EXISTS" // generated code collided

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadTooManyFiles    = "UPLOAD_TOO_MANY_FILES"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalStorageError  = "INTERNAL_STORAGE_ERROR"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
