package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/shutterdesk/shutterdesk/internal/model"
	"github.com/shutterdesk/shutterdesk/internal/sheets"
)

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006")
}

// --- client -----------------------------------------------------------------

type clientHandler struct{}

func (clientHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	c, err := d.records.LoadClient(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	cells := []sheets.Cell{
		sheets.Str(idKey(c.ID)),
		sheets.Str(c.Name),
		sheets.Str(c.Phone),
		sheets.Str(c.Email),
		sheets.Str(c.City),
		sheets.Str(c.Reference),
		sheets.Str(fmtDate(c.CreatedAt)),
	}
	if err := d.place(ctx, doc, sheets.TabClients, sheets.ClientColumns, cells); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabClients}, 1, nil
}

func (clientHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabClients, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabClients}, nil
}

// --- event ------------------------------------------------------------------

type eventHandler struct{}

// eventTabs lists every tab an event writes to: the master tab, its backup,
// and the event type's own tab when the type has one.
func eventTabs(eventType string) []string {
	tabs := []string{sheets.TabMasterEvents}
	for _, t := range sheets.EventTypeTabs {
		if t == eventType {
			tabs = append(tabs, t)
			break
		}
	}
	return append(tabs, sheets.TabEventsBackup)
}

// allEventTabs is every tab any event could have written to.
func allEventTabs() []string {
	tabs := []string{sheets.TabMasterEvents}
	tabs = append(tabs, sheets.EventTypeTabs...)
	return append(tabs, sheets.TabEventsBackup)
}

func (eventHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	ev, err := d.records.LoadEvent(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	rows := eventRows(ev)
	tabs := eventTabs(ev.Type)

	// An update can shrink the day count, go from multi-day to single-day,
	// or change the event type. Sweep the keys the fresh rows no longer
	// cover before writing, so no stale row outlives its record.
	current := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		current[t] = true
	}
	for _, tab := range allEventTabs() {
		if err := d.sheets.DeleteRowsWithPrefix(ctx, doc, tab, idKey(id)+"-day", 0); err != nil {
			return nil, 0, err
		}
		if ev.TotalDays > 1 || !current[tab] {
			if err := d.sheets.DeleteRow(ctx, doc, tab, idKey(id), 0); err != nil {
				return nil, 0, err
			}
		}
	}

	for _, tab := range tabs {
		for _, cells := range rows {
			if err := d.place(ctx, doc, tab, sheets.EventColumns, cells); err != nil {
				return nil, 0, err
			}
		}
	}
	return tabs, len(rows) * len(tabs), nil
}

func (eventHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	// The record is gone, so its type tab is unknown: sweep every tab an
	// event could have written to, plain key and day-composite keys both.
	tabs := allEventTabs()
	for _, tab := range tabs {
		if err := d.sheets.DeleteRow(ctx, doc, tab, idKey(id), 0); err != nil {
			return nil, err
		}
		if err := d.sheets.DeleteRowsWithPrefix(ctx, doc, tab, idKey(id)+"-day", 0); err != nil {
			return nil, err
		}
	}
	return tabs, nil
}

// eventRows expands an event into one row per day. A single-day event keeps
// its plain id; a multi-day event gets composite keys <id>-day<N> and a
// "DAY 0N" title suffix. Payment status is derived fresh on every call
// because it depends on payments outside the event row.
func eventRows(ev *model.Event) [][]sheets.Cell {
	status := model.PaymentStatusFor(ev.TotalAmount, ev.Advance, ev.PaymentsTotal, ev.ClosedTotal)
	rows := make([][]sheets.Cell, 0, ev.TotalDays)
	for n := 1; n <= ev.TotalDays; n++ {
		key := idKey(ev.ID)
		title := ev.Title
		if ev.TotalDays > 1 {
			key = fmt.Sprintf("%d-day%d", ev.ID, n)
			title = fmt.Sprintf("%s DAY %02d", ev.Title, n)
		}
		var day model.EventDay
		if n <= len(ev.Days) {
			day = ev.Days[n-1]
		}
		rows = append(rows, []sheets.Cell{
			sheets.Str(key),
			sheets.Str(title),
			sheets.Str(ev.ClientName),
			sheets.Str(ev.Type),
			sheets.Str(fmtDate(ev.StartDate.AddDate(0, 0, n-1))),
			sheets.Str(ev.Venue),
			sheets.Str(strings.Join(day.Photographers, ", ")),
			sheets.Str(strings.Join(day.Cinematographers, ", ")),
			sheets.Str(strings.Join(day.DronePilots, ", ")),
			sheets.Str(strings.Join(day.SameDayEditors, ", ")),
			sheets.Num(ev.TotalAmount),
			sheets.Num(ev.Advance),
			sheets.Num(ev.Balance()),
			sheets.Str(string(status)),
			sheets.Str(ev.DeliveryStatus),
		})
	}
	return rows
}

// --- task, expense, staff, freelancer, accounting ---------------------------

type taskHandler struct{}

func (taskHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	t, err := d.records.LoadTask(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	cells := []sheets.Cell{
		sheets.Str(idKey(t.ID)),
		sheets.Str(t.Title),
		sheets.Str(t.EventTitle),
		sheets.Str(t.AssigneeName),
		sheets.Str(fmtDate(t.DueDate)),
		sheets.Str(t.Status),
		sheets.Str(t.Notes),
	}
	if err := d.place(ctx, doc, sheets.TabTasks, sheets.TaskColumns, cells); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabTasks}, 1, nil
}

func (taskHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabTasks, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabTasks}, nil
}

type expenseHandler struct{}

func expenseCells(key string, ex *model.Expense) []sheets.Cell {
	return []sheets.Cell{
		sheets.Str(key),
		sheets.Str(ex.Description),
		sheets.Str(ex.Category),
		sheets.Str(ex.EventTitle),
		sheets.Num(ex.Amount),
		sheets.Str(fmtDate(ex.Date)),
		sheets.Str(ex.PaidTo),
	}
}

func (expenseHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	ex, err := d.records.LoadExpense(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	if err := d.place(ctx, doc, sheets.TabExpenses, sheets.ExpenseColumns, expenseCells(idKey(ex.ID), ex)); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabExpenses}, 1, nil
}

func (expenseHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabExpenses, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabExpenses}, nil
}

type staffHandler struct{}

func (staffHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	s, err := d.records.LoadStaff(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	cells := []sheets.Cell{
		sheets.Str(idKey(s.ID)),
		sheets.Str(s.Name),
		sheets.Str(s.Role),
		sheets.Str(s.Phone),
		sheets.Str(s.Email),
		sheets.Num(s.Salary),
		sheets.Str(fmtDate(s.JoinedAt)),
	}
	if err := d.place(ctx, doc, sheets.TabStaff, sheets.StaffColumns, cells); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabStaff}, 1, nil
}

func (staffHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabStaff, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabStaff}, nil
}

type freelancerHandler struct{}

func (freelancerHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	f, err := d.records.LoadFreelancer(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	cells := []sheets.Cell{
		sheets.Str(idKey(f.ID)),
		sheets.Str(f.Name),
		sheets.Str(f.Role),
		sheets.Str(f.Phone),
		sheets.Str(f.Email),
		sheets.Num(f.Rate),
	}
	if err := d.place(ctx, doc, sheets.TabFreelancers, sheets.FreelancerColumns, cells); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabFreelancers}, 1, nil
}

func (freelancerHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabFreelancers, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabFreelancers}, nil
}

type accountingHandler struct{}

func (accountingHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	a, err := d.records.LoadAccountEntry(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	cells := []sheets.Cell{
		sheets.Str(idKey(a.ID)),
		sheets.Str(a.Entry),
		sheets.Str(a.Category),
		sheets.Num(a.Debit),
		sheets.Num(a.Credit),
		sheets.Str(fmtDate(a.Date)),
		sheets.Str(a.Notes),
	}
	if err := d.place(ctx, doc, sheets.TabAccounting, sheets.AccountingColumns, cells); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabAccounting}, 1, nil
}

func (accountingHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabAccounting, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabAccounting}, nil
}

// --- payments ---------------------------------------------------------------

func paymentCells(p *model.Payment) []sheets.Cell {
	payee := p.PayeeName
	if p.Kind == model.PaymentClient {
		payee = p.ClientName
	}
	return []sheets.Cell{
		sheets.Str(idKey(p.ID)),
		sheets.Str(string(p.Kind)),
		sheets.Str(p.EventTitle),
		sheets.Str(payee),
		sheets.Num(p.Amount),
		sheets.Str(fmtDate(p.Date)),
		sheets.Str(p.Method),
		sheets.Str(p.Notes),
	}
}

// paymentHandler mirrors client payments.
type paymentHandler struct{}

func (paymentHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	p, err := d.records.LoadPayment(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	if err := d.place(ctx, doc, sheets.TabPayments, sheets.PaymentColumns, paymentCells(p)); err != nil {
		return nil, 0, err
	}
	return []string{sheets.TabPayments}, 1, nil
}

func (paymentHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabPayments, idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabPayments}, nil
}

// salaryPaymentHandler mirrors staff/freelancer payments. A salary-type
// payment also materializes as a synthetic expense row keyed by a prefixed
// composite id, so delete must sweep that key too.
type salaryPaymentHandler struct {
	kind   model.PaymentKind
	prefix string
}

func (h salaryPaymentHandler) upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) ([]string, int, error) {
	p, err := d.records.LoadPayment(ctx, firmID, id)
	if err != nil {
		return nil, 0, err
	}
	if p.Kind != h.kind {
		return nil, 0, fmt.Errorf("payment %d is %q, want %q", id, p.Kind, h.kind)
	}
	if err := d.place(ctx, doc, sheets.TabPayments, sheets.PaymentColumns, paymentCells(p)); err != nil {
		return nil, 0, err
	}
	tabs := []string{sheets.TabPayments}
	rows := 1
	if p.Salary {
		ex := &model.Expense{
			Description: fmt.Sprintf("Salary: %s", p.PayeeName),
			Category:    "Salary",
			Amount:      p.Amount,
			Date:        p.Date,
			PaidTo:      p.PayeeName,
		}
		cells := expenseCells(h.prefix+idKey(p.ID), ex)
		if err := d.place(ctx, doc, sheets.TabExpenses, sheets.ExpenseColumns, cells); err != nil {
			return nil, 0, err
		}
		tabs = append(tabs, sheets.TabExpenses)
		rows++
	}
	return tabs, rows, nil
}

func (h salaryPaymentHandler) remove(ctx context.Context, d *Dispatcher, doc string, id int64) ([]string, error) {
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabPayments, idKey(id), 0); err != nil {
		return nil, err
	}
	if err := d.sheets.DeleteRow(ctx, doc, sheets.TabExpenses, h.prefix+idKey(id), 0); err != nil {
		return nil, err
	}
	return []string{sheets.TabPayments, sheets.TabExpenses}, nil
}
