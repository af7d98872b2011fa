package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrNotAuthenticated    = errors.New("user must be authenticated")
	ErrPaymentNotCompleted = errors.New("payment not completed successfully")
	ErrPurchaseInFlight    = errors.New("a purchase is already in progress for this user")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrConfigUnavailable   = errors.New("client configuration unavailable")
	ErrIllegalTransition   = errors.New("illegal purchase state transition")
	ErrOperationFailed     = errors.New("operation failed")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
)
