package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nichofy/ms-go-entitlements/app/entity"
)

var (
	ErrEntitlementAlreadyExists = errors.New("entitlement already exists")
	ErrWitnessConflict          = errors.New("entitlement witness conflict")
)

type EntitlementRepository struct {
	db DBTX
}

func NewEntitlementRepository(db DBTX) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) FindByUserID(ctx context.Context, userID uint64) (*entity.Entitlement, error) {
	query := `
		SELECT user_id, plan, plan_status, last_transaction_id, created_at, updated_at
		FROM entitlements
		WHERE user_id = ?
	`

	item := &entity.Entitlement{}
	if err := scanEntitlement(r.db.QueryRowContext(ctx, query, userID), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *EntitlementRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Entitlement, error) {
	query := `
		SELECT user_id, plan, plan_status, last_transaction_id, created_at, updated_at
		FROM entitlements
		WHERE last_transaction_id = ?
		LIMIT 1
	`

	item := &entity.Entitlement{}
	if err := scanEntitlement(r.db.QueryRowContext(ctx, query, transactionID), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *EntitlementRepository) Insert(ctx context.Context, item *entity.Entitlement) error {
	query := `
		INSERT INTO entitlements (user_id, plan, plan_status, last_transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		item.UserID,
		item.Plan,
		item.PlanStatus,
		nullableStringValue(item.LastTransactionID),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrEntitlementAlreadyExists
		}
		return err
	}

	return nil
}

// UpdateWithWitness commits the record only if last_transaction_id still
// equals the witness the caller read (null-safe compare-and-swap). Zero rows
// affected means a concurrent commit won the race.
func (r *EntitlementRepository) UpdateWithWitness(ctx context.Context, item *entity.Entitlement, witness *string) error {
	query := `
		UPDATE entitlements SET
			plan = ?,
			plan_status = ?,
			last_transaction_id = ?,
			updated_at = ?
		WHERE user_id = ? AND last_transaction_id <=> ?
	`

	result, err := r.db.ExecContext(ctx, query,
		item.Plan,
		item.PlanStatus,
		nullableStringValue(item.LastTransactionID),
		item.UpdatedAt,
		item.UserID,
		nullableStringValue(witness),
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWitnessConflict
	}

	return nil
}

func scanEntitlement(scan rowScanner, item *entity.Entitlement) error {
	var lastTransactionID sql.NullString

	err := scan.Scan(
		&item.UserID,
		&item.Plan,
		&item.PlanStatus,
		&lastTransactionID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	item.LastTransactionID = stringPtrFromNull(lastTransactionID)
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
