// Package purge tears down expired firms: external tabs and calendar first,
// auxiliary login accounts next, then the full relational graph in
// dependency order. Everything is best-effort and idempotent so a failed run
// can simply be re-run.
package purge

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

// SheetClient is the slice of the sheets client purge needs.
type SheetClient interface {
	DeleteTab(ctx context.Context, doc, tab string) error
}

// CalendarClient is the slice of the calendar client purge needs.
type CalendarClient interface {
	Delete(ctx context.Context, calendarID string) error
}

// IdentityClient removes login accounts from the identity provider.
type IdentityClient interface {
	DeleteUser(ctx context.Context, uid string) error
}

// FirmError attributes one failure to the firm it happened in.
type FirmError struct {
	FirmID uuid.UUID `json:"firmId"`
	Err    string    `json:"error"`
}

// Report summarizes one purge run.
type Report struct {
	PurgedCount int
	Errors      []FirmError
}

// Orchestrator runs purge sweeps.
type Orchestrator struct {
	sheet SheetClient
	cal   CalendarClient
	ident IdentityClient
	firms repository.FirmRepository
	log   *zap.Logger
}

// New constructs an Orchestrator.
func New(sheet SheetClient, cal CalendarClient, ident IdentityClient, firms repository.FirmRepository, log *zap.Logger) *Orchestrator {
	return &Orchestrator{sheet: sheet, cal: cal, ident: ident, firms: firms, log: log}
}

// Run purges every firm expired as of now. One firm's failure never blocks
// the rest: every expired firm is attempted and every error lands in the
// report, tagged with its firm id.
func (o *Orchestrator) Run(ctx context.Context, now time.Time) (*Report, error) {
	expired, err := o.firms.ListExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list expired firms: %w", err)
	}

	report := &Report{}
	for _, firm := range expired {
		errs := o.purgeFirm(ctx, firm)
		report.PurgedCount++
		for _, e := range errs {
			o.log.Error("purge step failed",
				zap.String("firm_id", firm.ID.String()),
				zap.Error(e),
			)
			report.Errors = append(report.Errors, FirmError{FirmID: firm.ID, Err: e.Error()})
		}
	}
	o.log.Info("purge run complete",
		zap.Int("purged", report.PurgedCount),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// purgeFirm tears one firm down. Each external deletion is attempted
// independently; the relational script runs regardless of external failures.
func (o *Orchestrator) purgeFirm(ctx context.Context, firm model.Firm) []error {
	var failed []error

	if firm.SpreadsheetID != "" {
		for _, tab := range sheets.ProvisionTabs {
			if err := o.sheet.DeleteTab(ctx, firm.SpreadsheetID, tab); err != nil {
				failed = append(failed, fmt.Errorf("tab %q: %w", tab, err))
			}
		}
	}

	if firm.CalendarID != "" {
		if err := o.cal.Delete(ctx, firm.CalendarID); err != nil {
			failed = append(failed, fmt.Errorf("calendar %s: %w", firm.CalendarID, err))
		}
	}

	members, err := o.firms.ListMembers(ctx, firm.ID)
	if err != nil {
		failed = append(failed, fmt.Errorf("list members: %w", err))
	}
	for _, m := range members {
		// The creator keeps their login across firms.
		if m.ID == firm.OwnerUserID {
			continue
		}
		if err := o.ident.DeleteUser(ctx, m.ID.String()); err != nil {
			failed = append(failed, fmt.Errorf("identity %s: %w", m.ID, err))
		}
	}

	for _, se := range o.firms.DeleteGraph(ctx, firm) {
		failed = append(failed, fmt.Errorf("delete %s: %w", se.Step, se.Err))
	}
	return failed
}
