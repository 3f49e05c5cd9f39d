package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nichofy/ms-go-entitlements/app/entity"
)

type auditWebhookPayload struct {
	EventID       string `json:"eventId"`
	EventType     string `json:"eventType"`
	TransactionID string `json:"transactionId"`
	Plan          string `json:"plan"`
	AmountCents   int64  `json:"amountCents"`
	Outcome       string `json:"outcome"`
	CreatedAt     string `json:"createdAt"`
}

// RunDispatchAuditBatch forwards pending audit events to the monitoring
// webhook. Dispatch is decoupled from the request path; the pipeline only
// marks events pending.
func (s *ConfirmationService) RunDispatchAuditBatch(ctx context.Context) error {
	if s.auditCfg.WebhookURL == "" {
		return nil
	}

	now := time.Now().UTC()
	items, err := s.auditRepo.ListDueDispatch(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, event := range items {
		if event == nil {
			continue
		}
		if err := s.dispatchAuditEvent(ctx, event, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *ConfirmationService) dispatchAuditEvent(ctx context.Context, event *entity.AuditEvent, now time.Time) error {
	payload := &auditWebhookPayload{
		EventID:       event.EventID,
		EventType:     event.EventType,
		TransactionID: event.TransactionID,
		Plan:          event.Plan,
		AmountCents:   event.AmountCents,
		Outcome:       event.Outcome,
		CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.auditCfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return s.recordDispatchFailure(ctx, event, now, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", event.EventID)
	if s.appAPIKey != "" {
		req.Header.Set("X-API-Key", s.appAPIKey)
	}

	resp, err := s.auditHTTP.Do(req)
	if err != nil {
		return s.recordDispatchFailure(ctx, event, now, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.recordDispatchFailure(ctx, event, now, fmt.Errorf("monitoring webhook returned status=%d", resp.StatusCode))
	}

	event.DeliveryStatus = entity.AuditDeliverySuccess
	event.DeliveryNextAt = nil
	event.DeliveryLastErr = nil

	return s.auditRepo.UpdateDelivery(ctx, event)
}

func (s *ConfirmationService) recordDispatchFailure(ctx context.Context, event *entity.AuditEvent, now time.Time, dispatchErr error) error {
	event.DeliveryAttempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	event.DeliveryLastErr = &trimmed

	maxAttempts := s.auditCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if event.DeliveryAttempts >= maxAttempts {
		event.DeliveryStatus = entity.AuditDeliveryFailed
		event.DeliveryNextAt = nil
	} else {
		retryInterval := s.auditCfg.RetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}
		next := now.Add(retryInterval)
		event.DeliveryStatus = entity.AuditDeliveryPending
		event.DeliveryNextAt = &next
	}

	if err := s.auditRepo.UpdateDelivery(ctx, event); err != nil {
		return err
	}

	return dispatchErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
