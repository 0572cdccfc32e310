// Package provision performs one-time setup of a new firm's external
// resources: the fixed tab set with headers and option lists, a dedicated
// calendar, and the relational rows that tie them to the firm.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/shutterdesk/shutterdesk/internal/model"
	"github.com/shutterdesk/shutterdesk/internal/repository"
	"github.com/shutterdesk/shutterdesk/internal/sheets"
)

// Phase tags tell an operator exactly where provisioning stopped. Earlier
// phases are never rolled back automatically: a half-provisioned firm is
// surfaced, not silently retried.
type Phase string

const (
	PhaseGoogleAuth       Phase = "google_auth"
	PhaseSheetsSetup      Phase = "sheets_setup"
	PhaseCalendarCreation Phase = "calendar_creation"
	PhaseDatabaseCreation Phase = "database_creation"
)

// PhaseError wraps a failure with the phase it happened in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("%s: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

// TokenAcquirer validates service auth up front, before any resource is touched.
type TokenAcquirer interface {
	Token(ctx context.Context) (string, error)
}

// SheetClient is the slice of the sheets client provisioning needs.
type SheetClient interface {
	BatchCreateTabs(ctx context.Context, doc string, tabs []string) error
	WriteHeader(ctx context.Context, doc, tab string, headers []string) error
	WriteColumn(ctx context.Context, doc, tab string, col, startRow int64, values []string) error
	AddNamedRange(ctx context.Context, doc, name, tab string, startRow, endRow, startCol, endCol int64) error
}

// CalendarClient is the slice of the calendar client provisioning needs.
type CalendarClient interface {
	Create(ctx context.Context, summary, description, timeZone string) (string, error)
	Share(ctx context.Context, calendarID, email string) error
}

// Request carries everything a new firm needs provisioned.
type Request struct {
	FirmID             uuid.UUID
	FirmName           string
	OwnerUserID        uuid.UUID
	SpreadsheetID      string // pre-created document the tabs go into
	CalendarOwnerEmail string
	TimeZone           string
	GraceUntil         time.Time
}

// Result reports the external resource ids now attached to the firm.
type Result struct {
	FirmID        uuid.UUID
	SpreadsheetID string
	CalendarID    string
}

// Provisioner runs the provisioning phases in order.
type Provisioner struct {
	auth  TokenAcquirer
	sheet SheetClient
	cal   CalendarClient
	firms repository.FirmRepository
	log   *zap.Logger
}

// New constructs a Provisioner.
func New(auth TokenAcquirer, sheet SheetClient, cal CalendarClient, firms repository.FirmRepository, log *zap.Logger) *Provisioner {
	return &Provisioner{auth: auth, sheet: sheet, cal: cal, firms: firms, log: log}
}

// optionLists are the dropdown sources seeded as named ranges. They live in
// far columns of the Reports tab so they never collide with synced rows.
var optionLists = []struct {
	name   string
	col    int64
	values []string
}{
	{"EventTypes", 10, sheets.EventTypeOptions},
	{"PaymentStatuses", 11, sheets.PaymentStatusOptions},
	{"DeliveryStatuses", 12, sheets.DeliveryStatusOptions},
}

// Provision runs the four phases. The returned error, if any, is a
// *PhaseError naming the phase that failed.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	if _, err := p.auth.Token(ctx); err != nil {
		return nil, &PhaseError{Phase: PhaseGoogleAuth, Err: err}
	}

	if err := p.setupSheets(ctx, req.SpreadsheetID); err != nil {
		return nil, &PhaseError{Phase: PhaseSheetsSetup, Err: err}
	}

	calendarID, err := p.cal.Create(ctx, req.FirmName,
		fmt.Sprintf("Event calendar for %s", req.FirmName), req.TimeZone)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseCalendarCreation, Err: err}
	}
	if err := p.cal.Share(ctx, calendarID, req.CalendarOwnerEmail); err != nil {
		// The calendar exists; a failed share is recoverable by hand.
		p.log.Warn("calendar share failed",
			zap.String("calendar_id", calendarID),
			zap.String("email", req.CalendarOwnerEmail),
			zap.Error(err),
		)
	}

	firm := &model.Firm{
		ID:            req.FirmID,
		Name:          req.FirmName,
		OwnerUserID:   req.OwnerUserID,
		SpreadsheetID: req.SpreadsheetID,
		CalendarID:    calendarID,
		TimeZone:      req.TimeZone,
		GraceUntil:    req.GraceUntil,
	}
	if err := p.firms.Create(ctx, firm); err != nil {
		return nil, &PhaseError{Phase: PhaseDatabaseCreation, Err: err}
	}
	if err := p.firms.AttachUser(ctx, req.OwnerUserID, req.FirmID); err != nil {
		return nil, &PhaseError{Phase: PhaseDatabaseCreation, Err: err}
	}
	if err := p.firms.CreateMessagingSession(ctx, req.FirmID); err != nil {
		return nil, &PhaseError{Phase: PhaseDatabaseCreation, Err: err}
	}

	p.log.Info("firm provisioned",
		zap.String("firm_id", req.FirmID.String()),
		zap.String("spreadsheet_id", req.SpreadsheetID),
		zap.String("calendar_id", calendarID),
	)
	return &Result{FirmID: req.FirmID, SpreadsheetID: req.SpreadsheetID, CalendarID: calendarID}, nil
}

func (p *Provisioner) setupSheets(ctx context.Context, doc string) error {
	if err := p.sheet.BatchCreateTabs(ctx, doc, sheets.ProvisionTabs); err != nil {
		return fmt.Errorf("create tabs: %w", err)
	}
	for _, tab := range sheets.ProvisionTabs {
		if err := p.sheet.WriteHeader(ctx, doc, tab, sheets.Headers[tab]); err != nil {
			return fmt.Errorf("header %q: %w", tab, err)
		}
	}
	for _, list := range optionLists {
		if err := p.sheet.WriteColumn(ctx, doc, sheets.TabReports, list.col, 1, list.values); err != nil {
			return fmt.Errorf("option list %s: %w", list.name, err)
		}
		end := int64(1 + len(list.values))
		if err := p.sheet.AddNamedRange(ctx, doc, list.name, sheets.TabReports, 1, end, list.col, list.col+1); err != nil {
			return fmt.Errorf("named range %s: %w", list.name, err)
		}
	}
	return nil
}
