package domain

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")

	// Object key codec
	ErrUnsupportedKeyFormat = errors.New("unsupported object key format")
	ErrInvalidResourceName  = errors.New("invalid resource name")

	// Queue event decoding
	ErrInvalidEventSchema      = errors.New("invalid event schema")
	ErrUnsupportedEventVersion = errors.New("unsupported event version")

	// Reconciliation
	ErrMissingOrganization      = errors.New("organization does not exist")
	ErrMissingOrganizationAdmin = errors.New("organization has no admin")
	ErrCrossTenantMismatch      = errors.New("package belongs to another organization")

	// Blob backend and multipart uploads
	ErrBackendRequestFailed = errors.New("blob backend request failed")
	ErrPartUploadFailed     = errors.New("part upload failed")
	ErrSessionNotFound      = errors.New("multipart upload session not found")
	ErrUploadConflict       = errors.New("another multipart upload targets the same object")
	ErrInvalidPartNumber    = errors.New("part number must be between 1 and 10000")
	ErrNotUploadResource    = errors.New("resource is not an uploaded file")
	ErrPresignUnavailable   = errors.New("signed url cannot be generated")
)

// IsInvalidEvent reports whether err permanently invalidates a sync event.
// Such events are dropped from the queue instead of being retried.
func IsInvalidEvent(err error) bool {
	return errors.Is(err, ErrMissingOrganization) ||
		errors.Is(err, ErrMissingOrganizationAdmin) ||
		errors.Is(err, ErrCrossTenantMismatch) ||
		errors.Is(err, ErrUnsupportedKeyFormat)
}
