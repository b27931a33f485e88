package errs

import "net/http"

// errorMap holds the template for every code: user message and HTTP status.
// A zero Status means 200, matching the envelope convention of the local API.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request body is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many messages. Please slow down.", Status: http.StatusTooManyRequests},

	ErrEmptyMessage:          {Code: ErrEmptyMessage, Message: "Message is empty."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},
	ErrNotConnected:          {Code: ErrNotConnected, Message: "Not connected to the chat server."},
	ErrMessageNotSent:        {Code: ErrMessageNotSent, Message: "Message could not be sent."},
	ErrAvatarNotFound:        {Code: ErrAvatarNotFound, Message: "Avatar not found.", Status: http.StatusNotFound},
	ErrStorageDisabled:       {Code: ErrStorageDisabled, Message: "Avatar storage is not configured.", Status: http.StatusNotImplemented},

	ErrNotSignedIn:  {Code: ErrNotSignedIn, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Not allowed for this account.", Status: http.StatusForbidden},

	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "Avatar storage is unavailable.", Status: http.StatusBadGateway},
}
