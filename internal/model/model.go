// Package model defines domain entities used by the sync, provisioning, and purge layers.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Firm is one tenant: an isolated slice of relational data plus one external
// spreadsheet/calendar pair.
type Firm struct {
	ID             uuid.UUID // PK
	Name           string
	OwnerUserID    uuid.UUID // creating user; survives purge
	SpreadsheetID  string    // external document id, empty until provisioned
	CalendarID     string    // external calendar id, empty until provisioned
	TimeZone       string
	SubscribedOnce bool
	GraceUntil     time.Time
	CreatedAt      time.Time
}

// Expired reports whether the firm's trial has run out. Subscribing even once
// exempts a firm forever; the grace boundary itself is not yet expired.
func (f Firm) Expired(now time.Time) bool {
	return !f.SubscribedOnce && f.GraceUntil.Before(now)
}

// UserAccount is a member profile attached to a firm.
type UserAccount struct {
	ID     uuid.UUID
	FirmID uuid.UUID
	Email  string
	Name   string
}

// EntityType enumerates the syncable record kinds. The set is closed: the
// dispatcher binds exactly one handler per value.
type EntityType string

const (
	EntityClient            EntityType = "client"
	EntityEvent             EntityType = "event"
	EntityTask              EntityType = "task"
	EntityExpense           EntityType = "expense"
	EntityStaff             EntityType = "staff"
	EntityFreelancer        EntityType = "freelancer"
	EntityPayment           EntityType = "payment"
	EntityStaffPayment      EntityType = "staff_payment"
	EntityFreelancerPayment EntityType = "freelancer_payment"
	EntityAccounting        EntityType = "accounting"
)

// EntityTypes lists every supported type, in dispatch order.
var EntityTypes = []EntityType{
	EntityClient, EntityEvent, EntityTask, EntityExpense, EntityStaff,
	EntityFreelancer, EntityPayment, EntityStaffPayment,
	EntityFreelancerPayment, EntityAccounting,
}

// ParseEntityType validates a wire value against the closed set.
func ParseEntityType(s string) (EntityType, error) {
	for _, t := range EntityTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%q: unsupported", s)
}

// Operation is the mutation kind a sync request carries.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation validates a wire value.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpCreate, OpUpdate, OpDelete:
		return Operation(s), nil
	}
	return "", fmt.Errorf("%q: unsupported", s)
}

// Client is a customer record with the joined display fields the row schema needs.
type Client struct {
	ID        int64
	FirmID    uuid.UUID
	Name      string
	Phone     string
	Email     string
	City      string
	Reference string
	CreatedAt time.Time
}

// EventDay carries one shooting day's personnel, grouped by role.
type EventDay struct {
	Day              int // 1-based
	Photographers    []string
	Cinematographers []string
	DronePilots      []string
	SameDayEditors   []string
}

// Event is an aggregate: the event row, its client name, per-day crew, and
// the payment figures the status derivation needs. Payment figures come from
// outside the event row, so they must be reloaded on every sync.
type Event struct {
	ID             int64
	FirmID         uuid.UUID
	Title          string
	ClientName     string
	Type           string // matches one of the event-type tabs
	StartDate      time.Time
	Venue          string
	TotalDays      int
	TotalAmount    float64
	Advance        float64
	DeliveryStatus string
	Days           []EventDay // len == TotalDays
	PaymentsTotal  float64    // standalone payments against this event
	ClosedTotal    float64    // closed/write-off amounts
}

// Balance is what remains owed after advance, payments, and write-offs.
func (e Event) Balance() float64 {
	return e.TotalAmount - e.Advance - e.PaymentsTotal - e.ClosedTotal
}

// PayStatus is the derived payment state written to event rows.
type PayStatus string

const (
	StatusPaid    PayStatus = "Paid"
	StatusPartial PayStatus = "Partial"
	StatusPending PayStatus = "Pending"
)

// PaymentStatusFor derives the status from the raw figures: Paid when nothing
// remains, Partial when something was paid but a balance remains, else Pending.
func PaymentStatusFor(total, advance, payments, closed float64) PayStatus {
	balance := total - advance - payments - closed
	switch {
	case balance <= 0:
		return StatusPaid
	case advance > 0 || payments > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// Task is a to-do with joined event/assignee display names.
type Task struct {
	ID           int64
	FirmID       uuid.UUID
	Title        string
	EventTitle   string
	AssigneeName string
	DueDate      time.Time
	Status       string
	Notes        string
}

// Expense is a cost entry with its joined event title.
type Expense struct {
	ID          int64
	FirmID      uuid.UUID
	Description string
	Category    string
	EventTitle  string
	Amount      float64
	Date        time.Time
	PaidTo      string
}

// StaffMember is a salaried employee.
type StaffMember struct {
	ID       int64
	FirmID   uuid.UUID
	Name     string
	Role     string
	Phone    string
	Email    string
	Salary   float64
	JoinedAt time.Time
}

// Freelancer is an external contractor hired per event.
type Freelancer struct {
	ID     int64
	FirmID uuid.UUID
	Name   string
	Role   string
	Phone  string
	Email  string
	Rate   float64
}

// PaymentKind distinguishes who a payment settles with.
type PaymentKind string

const (
	PaymentClient     PaymentKind = "client"
	PaymentStaff      PaymentKind = "staff"
	PaymentFreelancer PaymentKind = "freelancer"
)

// Payment is a money movement. Client payments reference an event; staff and
// freelancer payments reference the payee and, when Salary is set, also
// materialize a synthetic expense row.
type Payment struct {
	ID         int64
	FirmID     uuid.UUID
	Kind       PaymentKind
	EventTitle string
	ClientName string
	PayeeName  string
	Amount     float64
	Date       time.Time
	Method     string
	Notes      string
	Salary     bool
}

// AccountEntry is a ledger line.
type AccountEntry struct {
	ID       int64
	FirmID   uuid.UUID
	Entry    string
	Category string
	Debit    float64
	Credit   float64
	Date     time.Time
	Notes    string
}
