// errors/check_errors.go
package errors

import "errors"

var (
	ErrInvalidPolicyDocument = errors.New("invalid policy document")
	ErrArchiveCorrupt        = errors.New("project archive is corrupt")
	ErrExtractionFailed      = errors.New("project extraction failed")
	ErrMissingUpload         = errors.New("missing upload")
	ErrUploadTooLarge        = errors.New("upload too large")
	ErrCheckInProgress       = errors.New("identical check already in progress")
	ErrReportNotFound        = errors.New("report not found")
	ErrOracleUnavailable     = errors.New("resolution oracle unavailable")
	ErrDatabaseOperation     = errors.New("database operation failed")
	ErrInternalServer        = errors.New("internal server error")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidPagination     = errors.New("invalid pagination parameters")
)
