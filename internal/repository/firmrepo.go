// Package repository declares the persistence interfaces the provisioning,
// sync, and purge layers depend on.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/shutterdesk/shutterdesk/internal/model"
)

// StepError reports one failed step of the cascading firm delete.
type StepError struct {
	Step string
	Err  error
}

// FirmRepository manages tenant lifecycle rows.
type FirmRepository interface {
	// Get returns a firm with its subscription state joined in.
	Get(ctx context.Context, id uuid.UUID) (*model.Firm, error)

	// Create inserts the firm row, external resource ids included, and its
	// subscription record.
	Create(ctx context.Context, f *model.Firm) error

	// AttachUser points a member profile at the firm.
	AttachUser(ctx context.Context, userID, firmID uuid.UUID) error

	// CreateMessagingSession seeds the firm's disconnected messaging-session row.
	CreateMessagingSession(ctx context.Context, firmID uuid.UUID) error

	// ListExpired returns firms with subscribed_once=false and grace_until
	// strictly before now.
	ListExpired(ctx context.Context, now time.Time) ([]model.Firm, error)

	// ListMembers returns every member profile of the firm, owner included.
	ListMembers(ctx context.Context, firmID uuid.UUID) ([]model.UserAccount, error)

	// DeleteGraph removes the firm's full relational graph in dependency
	// order, the firm row last. Each step is independently fault-tolerant;
	// failures are collected, not raised.
	DeleteGraph(ctx context.Context, firm model.Firm) []StepError
}
