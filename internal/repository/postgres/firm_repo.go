package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/model"
	"github.com/shutterdesk/shutterdesk/internal/repository"
)

// FirmRepo implements FirmRepository using PostgreSQL.
type FirmRepo struct{ db *DB }

// NewFirmRepo constructs a firm repository.
func NewFirmRepo(db *DB) *FirmRepo { return &FirmRepo{db: db} }

const firmColumns = `
f.id, f.name, f.owner_user_id, f.spreadsheet_id, f.calendar_id, f.time_zone,
s.subscribed_once, s.grace_until, f.created_at`

// Get returns a firm with its subscription state joined in.
func (r *FirmRepo) Get(ctx context.Context, id uuid.UUID) (*model.Firm, error) {
	q := `SELECT` + firmColumns + `
FROM firms f JOIN subscriptions s ON s.firm_id=f.id
WHERE f.id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var f model.Firm
	err := row.Scan(&f.ID, &f.Name, &f.OwnerUserID, &f.SpreadsheetID, &f.CalendarID,
		&f.TimeZone, &f.SubscribedOnce, &f.GraceUntil, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Create inserts the firm row and its subscription record in one transaction.
func (r *FirmRepo) Create(ctx context.Context, f *model.Firm) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const insFirm = `
INSERT INTO firms (id, name, owner_user_id, spreadsheet_id, calendar_id, time_zone)
VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err = tx.Exec(ctx, insFirm, f.ID, f.Name, f.OwnerUserID,
		f.SpreadsheetID, f.CalendarID, f.TimeZone); err != nil {
		return err
	}
	const insSub = `
INSERT INTO subscriptions (firm_id, subscribed_once, grace_until) VALUES ($1,$2,$3)`
	_, err = tx.Exec(ctx, insSub, f.ID, f.SubscribedOnce, f.GraceUntil)
	return err
}

// AttachUser points a member profile at the firm.
func (r *FirmRepo) AttachUser(ctx context.Context, userID, firmID uuid.UUID) error {
	const q = `UPDATE users SET firm_id=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID, firmID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateMessagingSession seeds the firm's disconnected messaging-session row.
func (r *FirmRepo) CreateMessagingSession(ctx context.Context, firmID uuid.UUID) error {
	const q = `INSERT INTO messaging_sessions (firm_id, status) VALUES ($1, 'disconnected')`
	_, err := r.db.Pool.Exec(ctx, q, firmID)
	return err
}

// ListExpired returns firms whose trial has run out: never subscribed and
// grace strictly in the past.
func (r *FirmRepo) ListExpired(ctx context.Context, now time.Time) ([]model.Firm, error) {
	q := `SELECT` + firmColumns + `
FROM firms f JOIN subscriptions s ON s.firm_id=f.id
WHERE s.subscribed_once=false AND s.grace_until < $1
ORDER BY f.created_at`
	rows, err := r.db.Pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Firm
	for rows.Next() {
		var f model.Firm
		if err := rows.Scan(&f.ID, &f.Name, &f.OwnerUserID, &f.SpreadsheetID,
			&f.CalendarID, &f.TimeZone, &f.SubscribedOnce, &f.GraceUntil, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListMembers returns every member profile of the firm.
func (r *FirmRepo) ListMembers(ctx context.Context, firmID uuid.UUID) ([]model.UserAccount, error) {
	const q = `SELECT id, firm_id, email, name FROM users WHERE firm_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserAccount
	for rows.Next() {
		var u model.UserAccount
		if err := rows.Scan(&u.ID, &u.FirmID, &u.Email, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// purgeSteps is the cascading delete script. Order is the correctness
// contract: children before parents, the firm row last. Executed
// top-to-bottom, each step independently fault-tolerant.
var purgeSteps = []struct {
	table  string
	column string
}{
	{"assignment_rates", "firm_id"},
	{"event_assignments", "firm_id"},
	{"payments", "firm_id"},
	{"expenses", "firm_id"},
	{"tasks", "firm_id"},
	{"account_entries", "firm_id"},
	{"quotations", "firm_id"},
	{"pricing_config", "firm_id"},
	{"closing_balances", "firm_id"},
	{"events", "firm_id"},
	{"staff", "firm_id"},
	{"freelancers", "firm_id"},
	{"clients", "firm_id"},
	{"messaging_sessions", "firm_id"},
	{"firm_payments", "firm_id"},
	{"firm_memberships", "firm_id"},
}

// DeleteGraph removes the firm's relational graph in dependency order.
// Member profiles go after the dependent tables (they are referenced by
// memberships), except the owner's, which survives across firms. Failures
// are collected per step and never stop the script.
func (r *FirmRepo) DeleteGraph(ctx context.Context, firm model.Firm) []repository.StepError {
	var failed []repository.StepError
	fail := func(step string, err error) {
		failed = append(failed, repository.StepError{Step: step, Err: err})
	}

	for _, st := range purgeSteps {
		q := fmt.Sprintf(`DELETE FROM %s WHERE %s=$1`, st.table, st.column)
		if _, err := r.db.Pool.Exec(ctx, q, firm.ID); err != nil {
			fail(st.table, err)
		}
	}

	const delUsers = `DELETE FROM users WHERE firm_id=$1 AND id<>$2`
	if _, err := r.db.Pool.Exec(ctx, delUsers, firm.ID, firm.OwnerUserID); err != nil {
		fail("users", err)
	}
	const detachOwner = `UPDATE users SET firm_id=NULL WHERE id=$1 AND firm_id=$2`
	if _, err := r.db.Pool.Exec(ctx, detachOwner, firm.OwnerUserID, firm.ID); err != nil {
		fail("users.owner", err)
	}
	const delSub = `DELETE FROM subscriptions WHERE firm_id=$1`
	if _, err := r.db.Pool.Exec(ctx, delSub, firm.ID); err != nil {
		fail("subscriptions", err)
	}
	const delFirm = `DELETE FROM firms WHERE id=$1`
	if _, err := r.db.Pool.Exec(ctx, delFirm, firm.ID); err != nil {
		fail("firms", err)
	}
	return failed
}
