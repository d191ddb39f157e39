// Package shared defines sentinel errors used across the portal's
// repositories, services and HTTP layer. Callers should use errors.Is to
// match these values.
package shared

import "errors"

var (
	// repository-level errors
	ErrorNotFound = errors.New("not found")

	// service-level errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("incorrect credentials")
	ErrorValidation   = errors.New("validation error")

	// account-specific errors
	ErrorUsernameAlreadyExists = errors.New("username already exists")
	ErrorEmailAlreadyExists    = errors.New("email already exists")
	ErrorEmailMismatch         = errors.New("email does not match")
	ErrorInvalidSaltLength     = errors.New("salt must be exactly 32 bytes")

	// auth errors
	ErrorInvalidToken = errors.New("invalid token")

	// character-specific errors
	ErrorCharacterOnline = errors.New("character is online")

	// shop-specific errors
	ErrorItemNotFound      = errors.New("item_not_found")
	ErrorInsufficientFunds = errors.New("insufficient_funds")
	ErrorFulfillmentFailed = errors.New("fulfillment failed")
)
