package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/shutterdesk/shutterdesk/internal/model"
)

// RecordRepository loads canonical business records with the joined display
// fields the row schemas need. Every load scopes by firm id; a missing root
// record is errs.ErrNotFound.
type RecordRepository interface {
	LoadClient(ctx context.Context, firmID uuid.UUID, id int64) (*model.Client, error)

	// LoadEvent returns the full aggregate: joined client name, per-day
	// per-role crew, and the payment sums the status derivation needs.
	LoadEvent(ctx context.Context, firmID uuid.UUID, id int64) (*model.Event, error)

	LoadTask(ctx context.Context, firmID uuid.UUID, id int64) (*model.Task, error)
	LoadExpense(ctx context.Context, firmID uuid.UUID, id int64) (*model.Expense, error)
	LoadStaff(ctx context.Context, firmID uuid.UUID, id int64) (*model.StaffMember, error)
	LoadFreelancer(ctx context.Context, firmID uuid.UUID, id int64) (*model.Freelancer, error)
	LoadPayment(ctx context.Context, firmID uuid.UUID, id int64) (*model.Payment, error)
	LoadAccountEntry(ctx context.Context, firmID uuid.UUID, id int64) (*model.AccountEntry, error)
}
