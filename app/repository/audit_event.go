package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nichofy/ms-go-entitlements/app/entity"
)

var ErrAuditEventNotFound = errors.New("audit event not found")

type AuditEventRepository struct {
	db DBTX
}

func NewAuditEventRepository(db DBTX) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			event_id, event_type, transaction_id, plan, amount_cents, outcome, payload_json,
			delivery_status, delivery_attempts, delivery_next_at, delivery_last_error,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.EventType,
		event.TransactionID,
		event.Plan,
		event.AmountCents,
		event.Outcome,
		nullableStringValue(event.PayloadJSON),
		event.DeliveryStatus,
		event.DeliveryAttempts,
		nullableTimeValue(event.DeliveryNextAt),
		nullableStringValue(event.DeliveryLastErr),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *AuditEventRepository) ListDueDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, event_id, event_type, transaction_id, plan, amount_cents, outcome, payload_json,
			delivery_status, delivery_attempts, delivery_next_at, delivery_last_error,
			created_at
		FROM audit_events
		WHERE delivery_status = ?
		  AND delivery_next_at IS NOT NULL
		  AND delivery_next_at <= ?
		ORDER BY delivery_next_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.AuditDeliveryPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.AuditEvent, 0)
	for rows.Next() {
		item := &entity.AuditEvent{}
		if err := scanAuditEvent(rows, item); err != nil {
			return nil, err
		}
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// UpdateDelivery persists only the dispatch-tracking columns; audit events
// themselves are append-only.
func (r *AuditEventRepository) UpdateDelivery(ctx context.Context, event *entity.AuditEvent) error {
	query := `
		UPDATE audit_events SET
			delivery_status = ?,
			delivery_attempts = ?,
			delivery_next_at = ?,
			delivery_last_error = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		event.DeliveryStatus,
		event.DeliveryAttempts,
		nullableTimeValue(event.DeliveryNextAt),
		nullableStringValue(event.DeliveryLastErr),
		event.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAuditEventNotFound
	}

	return nil
}

func scanAuditEvent(scan rowScanner, event *entity.AuditEvent) error {
	var payloadJSON sql.NullString
	var nextAt sql.NullTime
	var lastErr sql.NullString

	err := scan.Scan(
		&event.ID,
		&event.EventID,
		&event.EventType,
		&event.TransactionID,
		&event.Plan,
		&event.AmountCents,
		&event.Outcome,
		&payloadJSON,
		&event.DeliveryStatus,
		&event.DeliveryAttempts,
		&nextAt,
		&lastErr,
		&event.CreatedAt,
	)
	if err != nil {
		return err
	}

	event.PayloadJSON = stringPtrFromNull(payloadJSON)
	event.DeliveryNextAt = timePtrFromNull(nextAt)
	event.DeliveryLastErr = stringPtrFromNull(lastErr)
	return nil
}
