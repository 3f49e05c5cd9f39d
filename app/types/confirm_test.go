package types

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newConfirmContext(t *testing.T, body string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("POST", "/payments/confirm", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestNewConfirmPaymentRequestNormalizesFields(t *testing.T) {
	ctx := newConfirmContext(t, `{"transactionId":" tx_1 ","plan":" Premium ","amount":97.00,"email":"A@B.com","status":"Approved"}`)

	req, err := NewConfirmPaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.TransactionID != "tx_1" {
		t.Fatalf("unexpected transaction id: %q", req.TransactionID)
	}
	if req.Plan != "premium" {
		t.Fatalf("unexpected plan: %q", req.Plan)
	}
	if req.Email != "a@b.com" {
		t.Fatalf("unexpected email: %q", req.Email)
	}
	if !req.Approved() {
		t.Fatalf("expected approved status, got %q", req.Status)
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	req := &ConfirmPaymentRequest{
		TransactionID: "tx_1",
		Plan:          "premium",
		Amount:        97.00,
		Email:         "a@b.com",
		Status:        PaymentStatusApproved,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if req.AmountCents() != 9700 {
		t.Fatalf("unexpected cents: %d", req.AmountCents())
	}
}

func TestValidateRejectsMalformedRequests(t *testing.T) {
	cases := map[string]ConfirmPaymentRequest{
		"missing transaction id": {Plan: "premium", Amount: 97, Email: "a@b.com", Status: "approved"},
		"missing plan":           {TransactionID: "tx_1", Amount: 97, Email: "a@b.com", Status: "approved"},
		"negative amount":        {TransactionID: "tx_1", Plan: "premium", Amount: -1, Email: "a@b.com", Status: "approved"},
		"bad email":              {TransactionID: "tx_1", Plan: "premium", Amount: 97, Email: "not-an-email", Status: "approved"},
		"unknown status":         {TransactionID: "tx_1", Plan: "premium", Amount: 97, Email: "a@b.com", Status: "refunded"},
		"bad createdAt":          {TransactionID: "tx_1", Plan: "premium", Amount: 97, Email: "a@b.com", Status: "approved", CreatedAt: "yesterday"},
	}

	for name, req := range cases {
		if err := req.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateAcceptsPendingStatus(t *testing.T) {
	req := &ConfirmPaymentRequest{
		TransactionID: "tx_1",
		Plan:          "premium",
		Amount:        97.00,
		Email:         "a@b.com",
		Status:        PaymentStatusPending,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("pending is a well-formed status: %v", err)
	}
	if req.Approved() {
		t.Fatal("pending must not count as approved")
	}
}

func TestAmountCentsRounds(t *testing.T) {
	req := &ConfirmPaymentRequest{Amount: 96.999}
	if req.AmountCents() != 9700 {
		t.Fatalf("expected 9700, got %d", req.AmountCents())
	}
}

func TestGetConfirmationRequestValidate(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/payments/confirmations/tx_1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("transactionId")
	ctx.SetParamValues("tx_1")

	parsed, err := NewGetConfirmationRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	empty := &GetConfirmationRequest{}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected validation error for empty transaction id")
	}
}
