package entity

import "time"

const (
	AuditDeliveryNone    int32 = 0
	AuditDeliveryPending int32 = 1
	AuditDeliverySuccess int32 = 10
	AuditDeliveryFailed  int32 = 20
)

type AuditEvent struct {
	ID uint64

	EventID string

	EventType     string
	TransactionID string
	Plan          string
	AmountCents   int64
	Outcome       string

	PayloadJSON *string

	DeliveryStatus   int32
	DeliveryAttempts int32
	DeliveryNextAt   *time.Time
	DeliveryLastErr  *string

	CreatedAt time.Time
}
