package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidDoctype   = 1003
	ErrCodeInvalidName      = 1004
	ErrCodeInvalidFieldName = 1005
	ErrCodeInvalidFileName  = 1006
	ErrCodeInvalidMultipart = 1007
	ErrCodeMissingRequired  = 1009

	// Domain state (2xxx)
	ErrCodeDoctypeNotFound    = 2001
	ErrCodeDocumentNotFound   = 2002
	ErrCodeAttachmentNotFound = 2003
	ErrCodeFileNotFound       = 2004
	ErrCodeUserNotFound       = 2005
	ErrCodeDocumentExists     = 2101
	ErrCodeConflict           = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003
	ErrCodeLimitReached      = 3004

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeFileStore    = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeDocumentNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeRequestTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
