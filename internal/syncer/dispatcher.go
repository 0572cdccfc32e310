// Package syncer mirrors relational business records into per-firm
// spreadsheet rows. One request names (entityType, entityId, firmId,
// operation); the dispatcher routes it to the handler bound to that type.
package syncer

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/model"
	"github.com/shutterdesk/shutterdesk/internal/repository"
	"github.com/shutterdesk/shutterdesk/internal/sheets"
)

// SheetClient is the slice of the sheets client the syncer needs.
type SheetClient interface {
	EnsureTab(ctx context.Context, doc, tab string, headers []string) error
	UpsertRow(ctx context.Context, doc, tab string, cells []sheets.Cell, matchCol int) error
	DeleteRow(ctx context.Context, doc, tab, matchValue string, matchCol int) error
	DeleteRowsWithPrefix(ctx context.Context, doc, tab, prefix string, matchCol int) error
}

// Request is the dispatcher invocation surface.
type Request struct {
	Type   model.EntityType
	ID     int64
	FirmID uuid.UUID
	Op     model.Operation
}

// Summary reports what a sync touched. After a delete only the identifiers
// remain meaningful.
type Summary struct {
	Type   model.EntityType
	ID     int64
	FirmID uuid.UUID
	Op     model.Operation
	Tabs   []string
	Rows   int
}

// handler binds one entity type to its row mapping.
type handler interface {
	// upsert loads the record, builds its row(s), and places them.
	upsert(ctx context.Context, d *Dispatcher, doc string, firmID uuid.UUID, id int64) (tabs []string, rows int, err error)
	// remove deletes the record's row(s) from every tab it writes to.
	remove(ctx context.Context, d *Dispatcher, doc string, id int64) (tabs []string, err error)
}

// handlers is the closed dispatch table. Every EntityType has exactly one
// entry; an unlisted type is a caller error, never a silent skip.
var handlers = map[model.EntityType]handler{
	model.EntityClient:            clientHandler{},
	model.EntityEvent:             eventHandler{},
	model.EntityTask:              taskHandler{},
	model.EntityExpense:           expenseHandler{},
	model.EntityStaff:             staffHandler{},
	model.EntityFreelancer:        freelancerHandler{},
	model.EntityPayment:           paymentHandler{},
	model.EntityStaffPayment:      salaryPaymentHandler{kind: model.PaymentStaff, prefix: "staff-payment-"},
	model.EntityFreelancerPayment: salaryPaymentHandler{kind: model.PaymentFreelancer, prefix: "freelancer-payment-"},
	model.EntityAccounting:        accountingHandler{},
}

// Dispatcher routes sync requests to per-type handlers.
type Dispatcher struct {
	firms   repository.FirmRepository
	records repository.RecordRepository
	sheets  SheetClient
	log     *zap.Logger

	// The sheet upsert is scan-then-write and not transactional, so writes
	// to one document are serialized within this process. Cross-process
	// writers remain the caller's problem.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(firms repository.FirmRepository, records repository.RecordRepository, sc SheetClient, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		firms:   firms,
		records: records,
		sheets:  sc,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Sync performs one create/update/delete mirror operation.
func (d *Dispatcher) Sync(ctx context.Context, req Request) (*Summary, error) {
	h, ok := handlers[req.Type]
	if !ok {
		return nil, fmt.Errorf("%q: %w", req.Type, errs.ErrUnknownEntityType)
	}
	firm, err := d.firms.Get(ctx, req.FirmID)
	if err != nil {
		return nil, fmt.Errorf("sync %s/%d: firm %s: %w", req.Type, req.ID, req.FirmID, err)
	}
	if firm.SpreadsheetID == "" {
		return nil, fmt.Errorf("sync %s/%d: firm %s has no spreadsheet", req.Type, req.ID, req.FirmID)
	}

	unlock := d.lockDoc(firm.SpreadsheetID)
	defer unlock()

	sum := &Summary{Type: req.Type, ID: req.ID, FirmID: req.FirmID, Op: req.Op}
	if req.Op == model.OpDelete {
		tabs, err := h.remove(ctx, d, firm.SpreadsheetID, req.ID)
		if err != nil {
			return nil, fmt.Errorf("sync %s/%d: %w", req.Type, req.ID, err)
		}
		sum.Tabs = tabs
		return sum, nil
	}

	tabs, rows, err := h.upsert(ctx, d, firm.SpreadsheetID, req.FirmID, req.ID)
	if err != nil {
		return nil, fmt.Errorf("sync %s/%d: %w", req.Type, req.ID, err)
	}
	sum.Tabs, sum.Rows = tabs, rows
	d.log.Info("synced",
		zap.String("type", string(req.Type)),
		zap.Int64("id", req.ID),
		zap.String("op", string(req.Op)),
		zap.Int("rows", rows),
	)
	return sum, nil
}

func (d *Dispatcher) lockDoc(doc string) func() {
	d.mu.Lock()
	l, ok := d.locks[doc]
	if !ok {
		l = &sync.Mutex{}
		d.locks[doc] = l
	}
	d.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// place writes one row into one tab, healing the tab first.
func (d *Dispatcher) place(ctx context.Context, doc, tab string, headers []string, cells []sheets.Cell) error {
	if err := d.sheets.EnsureTab(ctx, doc, tab, headers); err != nil {
		return fmt.Errorf("ensure %q: %w", tab, err)
	}
	if err := d.sheets.UpsertRow(ctx, doc, tab, cells, 0); err != nil {
		return fmt.Errorf("upsert into %q: %w", tab, err)
	}
	return nil
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }
