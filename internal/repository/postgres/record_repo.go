package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/model"
)

// RecordRepo implements RecordRepository using PostgreSQL.
type RecordRepo struct{ db *DB }

// NewRecordRepo constructs a record repository.
func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

// LoadClient returns one client record.
func (r *RecordRepo) LoadClient(ctx context.Context, firmID uuid.UUID, id int64) (*model.Client, error) {
	const q = `
SELECT id, firm_id, name, phone, email, city, reference, created_at
FROM clients WHERE firm_id=$1 AND id=$2`
	var c model.Client
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&c.ID, &c.FirmID, &c.Name, &c.Phone, &c.Email, &c.City, &c.Reference, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// LoadEvent assembles the event aggregate: the row with its client name, the
// per-day per-role crew, and the payment sums. The sums live outside the
// event row, which is why they are reloaded on every sync.
func (r *RecordRepo) LoadEvent(ctx context.Context, firmID uuid.UUID, id int64) (*model.Event, error) {
	const q = `
SELECT e.id, e.firm_id, e.title, c.name, e.event_type, e.start_date, e.venue,
       e.total_days, e.total_amount, e.advance, e.delivery_status
FROM events e JOIN clients c ON c.id=e.client_id
WHERE e.firm_id=$1 AND e.id=$2`
	var ev model.Event
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&ev.ID, &ev.FirmID, &ev.Title, &ev.ClientName, &ev.Type, &ev.StartDate,
		&ev.Venue, &ev.TotalDays, &ev.TotalAmount, &ev.Advance, &ev.DeliveryStatus)
	if err != nil {
		return nil, notFound(err)
	}
	if ev.TotalDays < 1 {
		ev.TotalDays = 1
	}

	if err := r.loadEventDays(ctx, &ev); err != nil {
		return nil, err
	}
	if err := r.loadEventPayments(ctx, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *RecordRepo) loadEventDays(ctx context.Context, ev *model.Event) error {
	const q = `
SELECT a.day, a.role, COALESCE(s.name, f.name, '')
FROM event_assignments a
LEFT JOIN staff s ON s.id=a.staff_id
LEFT JOIN freelancers f ON f.id=a.freelancer_id
WHERE a.event_id=$1
ORDER BY a.day, a.role, a.id`
	rows, err := r.db.Pool.Query(ctx, q, ev.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	ev.Days = make([]model.EventDay, ev.TotalDays)
	for i := range ev.Days {
		ev.Days[i].Day = i + 1
	}
	for rows.Next() {
		var (
			day  int
			role string
			name string
		)
		if err := rows.Scan(&day, &role, &name); err != nil {
			return err
		}
		if day < 1 || day > ev.TotalDays || name == "" {
			continue
		}
		d := &ev.Days[day-1]
		switch role {
		case "photographer":
			d.Photographers = append(d.Photographers, name)
		case "cinematographer":
			d.Cinematographers = append(d.Cinematographers, name)
		case "drone_pilot":
			d.DronePilots = append(d.DronePilots, name)
		case "same_day_editor":
			d.SameDayEditors = append(d.SameDayEditors, name)
		}
	}
	return rows.Err()
}

func (r *RecordRepo) loadEventPayments(ctx context.Context, ev *model.Event) error {
	const q = `
SELECT COALESCE(SUM(amount) FILTER (WHERE NOT closed), 0),
       COALESCE(SUM(amount) FILTER (WHERE closed), 0)
FROM payments WHERE event_id=$1 AND kind='client'`
	return r.db.Pool.QueryRow(ctx, q, ev.ID).Scan(&ev.PaymentsTotal, &ev.ClosedTotal)
}

// LoadTask returns a task with joined event and assignee display names.
func (r *RecordRepo) LoadTask(ctx context.Context, firmID uuid.UUID, id int64) (*model.Task, error) {
	const q = `
SELECT t.id, t.firm_id, t.title, COALESCE(e.title, ''), COALESCE(s.name, ''),
       t.due_date, t.status, t.notes
FROM tasks t
LEFT JOIN events e ON e.id=t.event_id
LEFT JOIN staff s ON s.id=t.assignee_staff_id
WHERE t.firm_id=$1 AND t.id=$2`
	var tk model.Task
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&tk.ID, &tk.FirmID, &tk.Title, &tk.EventTitle, &tk.AssigneeName,
		&tk.DueDate, &tk.Status, &tk.Notes)
	if err != nil {
		return nil, notFound(err)
	}
	return &tk, nil
}

// LoadExpense returns an expense with its joined event title.
func (r *RecordRepo) LoadExpense(ctx context.Context, firmID uuid.UUID, id int64) (*model.Expense, error) {
	const q = `
SELECT x.id, x.firm_id, x.description, x.category, COALESCE(e.title, ''),
       x.amount, x.date, x.paid_to
FROM expenses x
LEFT JOIN events e ON e.id=x.event_id
WHERE x.firm_id=$1 AND x.id=$2`
	var ex model.Expense
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&ex.ID, &ex.FirmID, &ex.Description, &ex.Category, &ex.EventTitle,
		&ex.Amount, &ex.Date, &ex.PaidTo)
	if err != nil {
		return nil, notFound(err)
	}
	return &ex, nil
}

// LoadStaff returns one staff member.
func (r *RecordRepo) LoadStaff(ctx context.Context, firmID uuid.UUID, id int64) (*model.StaffMember, error) {
	const q = `
SELECT id, firm_id, name, role, phone, email, salary, joined_at
FROM staff WHERE firm_id=$1 AND id=$2`
	var s model.StaffMember
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&s.ID, &s.FirmID, &s.Name, &s.Role, &s.Phone, &s.Email, &s.Salary, &s.JoinedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// LoadFreelancer returns one freelancer.
func (r *RecordRepo) LoadFreelancer(ctx context.Context, firmID uuid.UUID, id int64) (*model.Freelancer, error) {
	const q = `
SELECT id, firm_id, name, role, phone, email, rate
FROM freelancers WHERE firm_id=$1 AND id=$2`
	var f model.Freelancer
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&f.ID, &f.FirmID, &f.Name, &f.Role, &f.Phone, &f.Email, &f.Rate)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// LoadPayment returns a payment with whichever display names its kind joins.
func (r *RecordRepo) LoadPayment(ctx context.Context, firmID uuid.UUID, id int64) (*model.Payment, error) {
	const q = `
SELECT p.id, p.firm_id, p.kind, COALESCE(e.title, ''), COALESCE(c.name, ''),
       COALESCE(s.name, f.name, ''), p.amount, p.date, p.method, p.notes, p.salary
FROM payments p
LEFT JOIN events e ON e.id=p.event_id
LEFT JOIN clients c ON c.id=e.client_id
LEFT JOIN staff s ON s.id=p.staff_id
LEFT JOIN freelancers f ON f.id=p.freelancer_id
WHERE p.firm_id=$1 AND p.id=$2`
	var (
		p    model.Payment
		kind string
	)
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&p.ID, &p.FirmID, &kind, &p.EventTitle, &p.ClientName, &p.PayeeName,
		&p.Amount, &p.Date, &p.Method, &p.Notes, &p.Salary)
	if err != nil {
		return nil, notFound(err)
	}
	p.Kind = model.PaymentKind(kind)
	return &p, nil
}

// LoadAccountEntry returns one ledger line.
func (r *RecordRepo) LoadAccountEntry(ctx context.Context, firmID uuid.UUID, id int64) (*model.AccountEntry, error) {
	const q = `
SELECT id, firm_id, entry, category, debit, credit, date, notes
FROM account_entries WHERE firm_id=$1 AND id=$2`
	var a model.AccountEntry
	err := r.db.Pool.QueryRow(ctx, q, firmID, id).Scan(
		&a.ID, &a.FirmID, &a.Entry, &a.Category, &a.Debit, &a.Credit, &a.Date, &a.Notes)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
