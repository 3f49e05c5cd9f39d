package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nichofy/ms-go-entitlements/app/entity"
	"github.com/nichofy/ms-go-entitlements/app/factory"
	"github.com/nichofy/ms-go-entitlements/app/plan"
	"github.com/nichofy/ms-go-entitlements/app/repository"
	"github.com/nichofy/ms-go-entitlements/app/types"
	"github.com/nichofy/ms-go-entitlements/config"
)

const (
	defaultCommitTimeout     = 5 * time.Second
	defaultStoreRetryBackoff = 50 * time.Millisecond
	defaultBatchSize         = int32(100)
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
}

type entitlementRepository interface {
	FindByUserID(ctx context.Context, userID uint64) (*entity.Entitlement, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Entitlement, error)
	Insert(ctx context.Context, item *entity.Entitlement) error
	UpdateWithWitness(ctx context.Context, item *entity.Entitlement, witness *string) error
}

type auditEventRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	ListDueDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.AuditEvent, error)
	UpdateDelivery(ctx context.Context, event *entity.AuditEvent) error
}

type ProvisionStatus int32

const (
	ProvisionApplied ProvisionStatus = iota + 1
	ProvisionAlreadyApplied
)

type ProvisionOutcome struct {
	Status      ProvisionStatus
	Entitlement *entity.Entitlement
}

type ConfirmationResult struct {
	Outcome       ProvisionOutcome
	TransactionID string
	Tier          plan.Tier
	RedirectURL   string
}

type ConfirmationService struct {
	userRepo        userRepository
	entitlementRepo entitlementRepository
	auditRepo       auditEventRepository
	catalog         *plan.Catalog
	entCfg          config.EntitlementsConfig
	auditCfg        config.AuditConfig
	baseURL         string
	appAPIKey       string
	auditHTTP       *http.Client
	logger          logrus.FieldLogger
}

func NewConfirmationService(
	userRepo userRepository,
	entitlementRepo entitlementRepository,
	auditRepo auditEventRepository,
	catalog *plan.Catalog,
	entCfg config.EntitlementsConfig,
	auditCfg config.AuditConfig,
	appCfg config.AppConfig,
) *ConfirmationService {
	timeout := auditCfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ConfirmationService{
		userRepo:        userRepo,
		entitlementRepo: entitlementRepo,
		auditRepo:       auditRepo,
		catalog:         catalog,
		entCfg:          entCfg,
		auditCfg:        auditCfg,
		baseURL:         strings.TrimSpace(appCfg.BaseURL),
		appAPIKey:       strings.TrimSpace(appCfg.APIKey),
		auditHTTP:       &http.Client{Timeout: timeout},
		logger:          factory.NewModuleLogger("confirmation-service"),
	}
}

// ConfirmPayment runs the confirmation pipeline for one validated
// notification: plan resolution, idempotent provisioning, redirect
// resolution. Every terminal outcome is audited.
func (s *ConfirmationService) ConfirmPayment(ctx context.Context, req *types.ConfirmPaymentRequest) (*ConfirmationResult, error) {
	if req == nil || strings.TrimSpace(req.TransactionID) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, ErrInvalidPayload
	}

	if !req.Approved() {
		s.emitAudit(ctx, req, "payment_not_approved", "not_approved")
		return nil, ErrNotApproved
	}

	tier, err := s.catalog.Resolve(req.Plan, req.AmountCents())
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrUnknownPlan):
			s.emitAudit(ctx, req, "confirmation_rejected", "rejected:UnknownPlan")
			return nil, ErrUnknownPlan
		case errors.Is(err, plan.ErrAmountMismatch):
			s.emitAudit(ctx, req, "confirmation_rejected", "rejected:AmountMismatch")
			return nil, ErrAmountMismatch
		default:
			return nil, err
		}
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		s.emitAudit(ctx, req, "confirmation_rejected", "rejected:StoreUnavailable")
		return nil, ErrStoreUnavailable
	}
	if user == nil {
		s.emitAudit(ctx, req, "confirmation_rejected", "rejected:UserNotFound")
		return nil, ErrUserNotFound
	}

	outcome, err := s.provision(ctx, user.ID, tier, req.TransactionID)
	if err != nil {
		s.emitAudit(ctx, req, "confirmation_rejected", "rejected:StoreUnavailable")
		return nil, err
	}

	if outcome.Status == ProvisionAlreadyApplied {
		s.emitAudit(ctx, req, "entitlement_duplicate", "already_applied")
	} else {
		s.emitAudit(ctx, req, "entitlement_applied", "applied")
	}

	return &ConfirmationResult{
		Outcome:       outcome,
		TransactionID: req.TransactionID,
		Tier:          tier,
		RedirectURL:   s.catalog.RedirectURL(s.baseURL, tier),
	}, nil
}

// provision applies the tier to the user's entitlement exactly once per
// transaction id. The read-check-write sequence is serialized per user by a
// compare-and-swap on the previously read last_transaction_id; a lost race
// re-reads and retries, bounded.
func (s *ConfirmationService) provision(ctx context.Context, userID uint64, tier plan.Tier, transactionID string) (ProvisionOutcome, error) {
	casAttempts := s.entCfg.CasMaxAttempts
	if casAttempts <= 0 {
		casAttempts = 3
	}

	for attempt := int32(0); attempt < casAttempts; attempt++ {
		var record *entity.Entitlement
		err := s.commitWithRetry(ctx, func(cctx context.Context) error {
			var readErr error
			record, readErr = s.entitlementRepo.FindByUserID(cctx, userID)
			return readErr
		})
		if err != nil {
			return ProvisionOutcome{}, ErrStoreUnavailable
		}

		if record == nil {
			now := time.Now().UTC()
			txID := transactionID
			fresh := &entity.Entitlement{
				UserID:            userID,
				Plan:              tier.Code,
				PlanStatus:        entity.PlanStatusActive,
				LastTransactionID: &txID,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			err := s.commitWithRetry(ctx, func(cctx context.Context) error {
				return s.entitlementRepo.Insert(cctx, fresh)
			})
			if errors.Is(err, repository.ErrEntitlementAlreadyExists) {
				// A concurrent notification created the row first.
				continue
			}
			if err != nil {
				return ProvisionOutcome{}, ErrStoreUnavailable
			}
			return ProvisionOutcome{Status: ProvisionApplied, Entitlement: fresh}, nil
		}

		if record.LastTransactionID != nil && *record.LastTransactionID == transactionID {
			return ProvisionOutcome{Status: ProvisionAlreadyApplied, Entitlement: record}, nil
		}

		witness := record.LastTransactionID
		now := time.Now().UTC()
		txID := transactionID
		updated := *record
		updated.Plan = tier.Code
		updated.PlanStatus = entity.PlanStatusActive
		updated.LastTransactionID = &txID
		updated.UpdatedAt = now

		err = s.commitWithRetry(ctx, func(cctx context.Context) error {
			return s.entitlementRepo.UpdateWithWitness(cctx, &updated, witness)
		})
		if errors.Is(err, repository.ErrWitnessConflict) {
			continue
		}
		if err != nil {
			return ProvisionOutcome{}, ErrStoreUnavailable
		}
		return ProvisionOutcome{Status: ProvisionApplied, Entitlement: &updated}, nil
	}

	return ProvisionOutcome{}, ErrStoreUnavailable
}

// commitWithRetry runs one store operation under the configured commit
// timeout, retrying transient failures with exponential backoff. Conflict
// sentinels are returned immediately so the caller can re-read.
func (s *ConfirmationService) commitWithRetry(ctx context.Context, commit func(context.Context) error) error {
	attempts := s.entCfg.StoreMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := s.entCfg.StoreRetryBackoff
	if backoff <= 0 {
		backoff = defaultStoreRetryBackoff
	}
	timeout := s.entCfg.CommitTimeout
	if timeout <= 0 {
		timeout = defaultCommitTimeout
	}

	var lastErr error
	for attempt := int32(0); attempt < attempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := commit(cctx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrEntitlementAlreadyExists) || errors.Is(err, repository.ErrWitnessConflict) {
			return err
		}
		lastErr = err

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << attempt):
			}
		}
	}

	return lastErr
}

// GetConfirmation returns the entitlement snapshot recorded for a
// transaction id, for display purposes. No mutation.
func (s *ConfirmationService) GetConfirmation(ctx context.Context, transactionID string) (*entity.Entitlement, *entity.User, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, nil, ErrInvalidPayload
	}

	record, err := s.entitlementRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, nil, ErrStoreUnavailable
	}
	if record == nil {
		return nil, nil, ErrConfirmationNotFound
	}

	user, err := s.userRepo.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, nil, ErrStoreUnavailable
	}

	return record, user, nil
}

func (s *ConfirmationService) batchSize() int32 {
	if s.auditCfg.JobBatchSize > 0 {
		return s.auditCfg.JobBatchSize
	}
	return defaultBatchSize
}
