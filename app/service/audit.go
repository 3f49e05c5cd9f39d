package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nichofy/ms-go-entitlements/app/entity"
	"github.com/nichofy/ms-go-entitlements/app/types"
)

// emitAudit records one append-only audit event for the invocation. Best
// effort: failures are logged and never propagate to the pipeline. The write
// runs detached from the caller's cancellation so a client disconnect cannot
// suppress the trail.
func (s *ConfirmationService) emitAudit(ctx context.Context, req *types.ConfirmPaymentRequest, eventType, outcome string) {
	now := time.Now().UTC()

	event := &entity.AuditEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		TransactionID: req.TransactionID,
		Plan:          req.Plan,
		AmountCents:   req.AmountCents(),
		Outcome:       outcome,
		CreatedAt:     now,
	}

	if payload, err := json.Marshal(req); err == nil {
		payloadJSON := string(payload)
		event.PayloadJSON = &payloadJSON
	}

	if s.auditCfg.WebhookURL != "" {
		nextAt := now
		event.DeliveryStatus = entity.AuditDeliveryPending
		event.DeliveryNextAt = &nextAt
	}

	timeout := s.auditCfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.auditRepo.Create(detached, event); err != nil {
		s.logger.WithError(err).
			WithField("transaction_id", req.TransactionID).
			WithField("outcome", outcome).
			Warn("audit_emit_failed")
	}
}
