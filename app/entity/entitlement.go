package entity

import "time"

const (
	PlanStatusInactive int32 = 0
	PlanStatusActive   int32 = 1
)

type Entitlement struct {
	UserID uint64

	Plan       string
	PlanStatus int32

	// LastTransactionID is the idempotency witness: the transaction that
	// produced the current state. Nil until the first provisioning commit.
	LastTransactionID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
