package service

import "errors"

var (
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrNotApproved          = errors.New("payment not approved")
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrAmountMismatch       = errors.New("amount mismatch")
	ErrUserNotFound         = errors.New("user not found")
	ErrStoreUnavailable     = errors.New("entitlement store unavailable")
	ErrConfirmationNotFound = errors.New("confirmation not found")
)
