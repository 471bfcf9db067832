package handler

const (
	paramID    = "id"
	paramToken = "token"
	paramCode  = "code"

	queryToken  = "token"
	queryInvite = "invite"

	headerSharePassword  = "X-Share-Password"
	headerInvitationCode = "X-Invitation-Code"

	formFieldFiles = "files[]"
	formFieldFile  = "files"

	jsonKeyError              = "error"
	jsonKeyMessage            = "message"
	jsonKeyReason             = "reason"
	jsonKeyRequiresPassword   = "requiresPassword"
	jsonKeyRequiresInvitation = "requiresInvitation"
	jsonKeyRequestID          = "request_id"

	cacheControlImmutable = "public, max-age=31536000, immutable"
	cacheControlNoStore   = "no-store"

	outcomeGranted = "granted"
	outcomeError   = "error"

	msgContentTypeJSONRequired = "Content-Type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidGalleryID        = "invalid gallery id"
	msgInvalidShareLinkID      = "invalid share link id"
	msgInvalidInvitationID     = "invalid invitation id"
	msgInvalidPhotoID          = "invalid photo id"
	msgInvalidVariant          = "invalid variant"
	msgGalleryNotFound         = "gallery not found"
	msgNotGalleryOwner         = "gallery is not owned by the caller"
	msgShareLinkNotFound       = "share link not found"
	msgShareLinkUnavailable    = "share link is no longer available"
	msgPasswordRequired        = "password required"
	msgPasswordInvalid         = "invalid password"
	msgInvitationRequired      = "invitation code required"
	msgInvitationInvalid       = "invalid invitation code"
	msgInvitationNotFound      = "invitation not found"
	msgInvitationUnavailable   = "invitation is no longer available"
	msgPhotoNotFound           = "photo not found"
	msgDownloadsNotAllowed     = "downloads are not allowed for this link"
	msgInvalidMultipartForm    = "invalid multipart form"
	msgNoFilesProvided         = "no files provided"
	msgTooManyFilesFmt         = "at most %d files may be uploaded at once"
	msgFileTooLargeFmt         = "file exceeds %d bytes"
	msgReadUploadFail          = "failed to read uploaded file"
	msgFetchVariantFail        = "failed to fetch image"
	msgListPhotosFail          = "failed to list photos"
	msgInternalError           = "internal server error"
	msgUnavailable             = "service temporarily unavailable"
	msgShareLinkDeleted        = "share link deleted"
	msgInvitationDeleted       = "invitation deleted"
	msgInvitationDeactivated   = "invitation deactivated"
)
