package mapper

import (
	"time"

	"github.com/nichofy/ms-go-entitlements/app/entity"
	"github.com/nichofy/ms-go-entitlements/app/types"
)

func ConfirmationToResponse(item *entity.Entitlement, user *entity.User) *types.ConfirmationSnapshotResponse {
	if item == nil {
		return nil
	}

	email := ""
	if user != nil {
		email = user.Email
	}

	return &types.ConfirmationSnapshotResponse{
		TransactionID: derefString(item.LastTransactionID),
		Plan:          item.Plan,
		PlanStatus:    planStatusLabel(item.PlanStatus),
		Email:         email,
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func planStatusLabel(status int32) string {
	if status == entity.PlanStatusActive {
		return "active"
	}
	return "inactive"
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
