package ledgerRepo

import (
	"context"
	"errors"

	"tutorhive/models"
)

// ErrNotFound is returned when no ledger record matches the lookup key.
var ErrNotFound = errors.New("ledger record not found")

// Repository persists per-student credit ledger state. The upsert is keyed on
// studentId so both delivery channels always target the same logical record.
type Repository interface {
	GetByStudentID(ctx context.Context, studentID string) (*models.CreditLedgerState, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.CreditLedgerState, error)
	Upsert(ctx context.Context, state *models.CreditLedgerState) error
}
