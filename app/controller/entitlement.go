package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nichofy/ms-go-entitlements/app/factory"
	"github.com/nichofy/ms-go-entitlements/app/mapper"
	"github.com/nichofy/ms-go-entitlements/app/service"
	"github.com/nichofy/ms-go-entitlements/app/types"
)

type EntitlementController struct {
	confirmationService *service.ConfirmationService
	logger              logrus.FieldLogger
}

func NewEntitlementController(confirmationService *service.ConfirmationService) *EntitlementController {
	return &EntitlementController{
		confirmationService: confirmationService,
		logger:              factory.NewModuleLogger("entitlements-controller"),
	}
}

func (c *EntitlementController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *EntitlementController) ConfirmPayment(ctx echo.Context) error {
	req, err := types.NewConfirmPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.confirmationService.ConfirmPayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotApproved):
			// Acknowledges receipt; an unapproved payment applies no change.
			return ctx.JSON(http.StatusOK, &types.ConfirmPaymentResponse{
				Success:       false,
				TransactionID: req.TransactionID,
				Status:        req.Status,
				Message:       "payment is not approved; no entitlement change applied",
			})
		case errors.Is(err, service.ErrInvalidPayload), errors.Is(err, service.ErrUnknownPlan), errors.Is(err, service.ErrAmountMismatch):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return c.writeError(ctx, http.StatusNotFound, "no account matches the payment email")
		case errors.Is(err, service.ErrStoreUnavailable):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Confirm payment store unavailable")
			return c.writeError(ctx, http.StatusInternalServerError, "entitlement store unavailable")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Confirm payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.ConfirmPaymentResponse{
		Success:       true,
		RedirectURL:   result.RedirectURL,
		TransactionID: result.TransactionID,
	})
}

func (c *EntitlementController) GetConfirmation(ctx echo.Context) error {
	req, err := types.NewGetConfirmationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	record, user, err := c.confirmationService.GetConfirmation(ctx.Request().Context(), req.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayload):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConfirmationNotFound):
			return c.writeError(ctx, http.StatusNotFound, "confirmation not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get confirmation failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.ConfirmationToResponse(record, user))
}

func (c *EntitlementController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Success: false, Error: message})
}
