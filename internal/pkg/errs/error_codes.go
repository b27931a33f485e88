/*
Package errs defines the coded errors the chat client reports to callers of
its local API and to the presentation layer.
*/
package errs

// 1xxx: local API request handling
const (
	// ErrInvalidParams indicates request parameters failed validation.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates the Content-Type header is not JSON.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON body.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates the request body exceeds the size limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates the caller is sending too fast.
	ErrRateLimitExceeded = 1007
)

// 2xxx: chat operations
const (
	// ErrEmptyMessage indicates the draft is empty or whitespace only.
	ErrEmptyMessage = 2201

	// ErrMessageContentTooLong indicates the draft exceeds the content limit.
	ErrMessageContentTooLong = 2202

	// ErrNotConnected indicates the remote store is not reachable right now.
	ErrNotConnected = 2203

	// ErrMessageNotSent indicates the remote insert failed. The draft is kept.
	ErrMessageNotSent = 2204

	// ErrAvatarNotFound indicates the requested avatar object does not exist.
	ErrAvatarNotFound = 2301

	// ErrStorageDisabled indicates no avatar storage is configured.
	ErrStorageDisabled = 2302
)

// 3xxx: identity
const (
	// ErrNotSignedIn indicates there is no current user.
	ErrNotSignedIn = 3001

	// ErrUnauthorized indicates the caller's token does not belong to the current user.
	ErrUnauthorized = 3002
)

// 5xxx: internal
const (
	// ErrUnknown is an unclassified internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the object storage call failed.
	ErrFileStorageFailed = 5001
)
