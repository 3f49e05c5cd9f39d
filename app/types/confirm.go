package types

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	PaymentStatusApproved = "approved"
	PaymentStatusPending  = "pending"
	PaymentStatusFailed   = "failed"
)

// ConfirmPaymentRequest is the typed form of an inbound payment notification.
// Once Validate has passed, the request is treated as immutable.
type ConfirmPaymentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required"`
	Plan          string  `json:"plan" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Email         string  `json:"email" validate:"required,email"`
	Status        string  `json:"status" validate:"required,oneof=approved pending failed"`
	CreatedAt     string  `json:"createdAt" validate:"omitempty"`
}

func NewConfirmPaymentRequestFromContext(ctx echo.Context) (*ConfirmPaymentRequest, error) {
	var body ConfirmPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.TransactionID = strings.TrimSpace(body.TransactionID)
	body.Plan = strings.ToLower(strings.TrimSpace(body.Plan))
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Status = strings.ToLower(strings.TrimSpace(body.Status))
	body.CreatedAt = strings.TrimSpace(body.CreatedAt)

	return &body, nil
}

func (r *ConfirmPaymentRequest) Validate() error {
	v := validator.New()
	if err := v.Struct(r); err != nil {
		return err
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return errors.New("amount must be a finite number")
	}
	if r.CreatedAt != "" {
		if _, err := time.Parse(time.RFC3339, r.CreatedAt); err != nil {
			return errors.New("createdAt must be RFC3339")
		}
	}
	return nil
}

// AmountCents converts the decimal amount to integer cents. All price
// comparisons downstream happen in cents.
func (r *ConfirmPaymentRequest) AmountCents() int64 {
	return int64(math.Round(r.Amount * 100))
}

func (r *ConfirmPaymentRequest) Approved() bool {
	return r.Status == PaymentStatusApproved
}

// EventTime returns the notification timestamp, falling back to now when the
// notifier did not include one. Validate has already checked the format.
func (r *ConfirmPaymentRequest) EventTime() time.Time {
	if r.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}

func NewGetConfirmationRequestFromContext(ctx echo.Context) (*GetConfirmationRequest, error) {
	transactionID := strings.TrimSpace(ctx.Param("transactionId"))
	return &GetConfirmationRequest{TransactionID: transactionID}, nil
}

type GetConfirmationRequest struct {
	TransactionID string `validate:"required"`
}

func (r *GetConfirmationRequest) Validate() error {
	if r.TransactionID == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

type ConfirmPaymentResponse struct {
	Success       bool   `json:"success"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
}

type ConfirmationSnapshotResponse struct {
	TransactionID string `json:"transactionId"`
	Plan          string `json:"plan"`
	PlanStatus    string `json:"planStatus"`
	Email         string `json:"email"`
	UpdatedAt     string `json:"updatedAt"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
