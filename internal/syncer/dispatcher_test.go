package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/model"
	"github.com/shutterdesk/shutterdesk/internal/repository"
	"github.com/shutterdesk/shutterdesk/internal/sheets"
)

type fakeFirms struct {
	firm *model.Firm
}

var _ repository.FirmRepository = (*fakeFirms)(nil)

func (f *fakeFirms) Get(_ context.Context, id uuid.UUID) (*model.Firm, error) {
	if f.firm == nil || f.firm.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.firm, nil
}
func (f *fakeFirms) Create(context.Context, *model.Firm) error               { return nil }
func (f *fakeFirms) AttachUser(context.Context, uuid.UUID, uuid.UUID) error  { return nil }
func (f *fakeFirms) CreateMessagingSession(context.Context, uuid.UUID) error { return nil }
func (f *fakeFirms) ListExpired(context.Context, time.Time) ([]model.Firm, error) {
	return nil, nil
}
func (f *fakeFirms) ListMembers(context.Context, uuid.UUID) ([]model.UserAccount, error) {
	return nil, nil
}
func (f *fakeFirms) DeleteGraph(context.Context, model.Firm) []repository.StepError {
	return nil
}

type fakeRecords struct {
	client  *model.Client
	event   *model.Event
	payment *model.Payment
	staff   *model.StaffMember
}

var _ repository.RecordRepository = (*fakeRecords)(nil)

func (f *fakeRecords) LoadClient(_ context.Context, _ uuid.UUID, id int64) (*model.Client, error) {
	if f.client == nil || f.client.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.client, nil
}
func (f *fakeRecords) LoadEvent(_ context.Context, _ uuid.UUID, id int64) (*model.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.event, nil
}
func (f *fakeRecords) LoadTask(context.Context, uuid.UUID, int64) (*model.Task, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeRecords) LoadExpense(context.Context, uuid.UUID, int64) (*model.Expense, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeRecords) LoadStaff(_ context.Context, _ uuid.UUID, id int64) (*model.StaffMember, error) {
	if f.staff == nil || f.staff.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.staff, nil
}
func (f *fakeRecords) LoadFreelancer(context.Context, uuid.UUID, int64) (*model.Freelancer, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeRecords) LoadPayment(_ context.Context, _ uuid.UUID, id int64) (*model.Payment, error) {
	if f.payment == nil || f.payment.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.payment, nil
}
func (f *fakeRecords) LoadAccountEntry(context.Context, uuid.UUID, int64) (*model.AccountEntry, error) {
	return nil, errs.ErrNotFound
}

type placed struct {
	tab   string
	key   string
	cells []sheets.Cell
}

type removed struct {
	tab string
	key string
}

type fakeSheet struct {
	ensured       map[string][]string
	upserts       []placed
	deletes       []removed
	prefixDeletes []removed
}

var _ SheetClient = (*fakeSheet)(nil)

func newFakeSheet() *fakeSheet { return &fakeSheet{ensured: map[string][]string{}} }

func (f *fakeSheet) EnsureTab(_ context.Context, _ string, tab string, headers []string) error {
	f.ensured[tab] = headers
	return nil
}
func (f *fakeSheet) UpsertRow(_ context.Context, _ string, tab string, cells []sheets.Cell, matchCol int) error {
	f.upserts = append(f.upserts, placed{tab: tab, key: cells[matchCol].Display(), cells: cells})
	return nil
}
func (f *fakeSheet) DeleteRow(_ context.Context, _ string, tab, matchValue string, _ int) error {
	f.deletes = append(f.deletes, removed{tab: tab, key: matchValue})
	return nil
}
func (f *fakeSheet) DeleteRowsWithPrefix(_ context.Context, _ string, tab, prefix string, _ int) error {
	f.prefixDeletes = append(f.prefixDeletes, removed{tab: tab, key: prefix})
	return nil
}

func newTestDispatcher(records *fakeRecords) (*Dispatcher, *fakeSheet, uuid.UUID) {
	firmID := uuid.Must(uuid.NewV4())
	firms := &fakeFirms{firm: &model.Firm{ID: firmID, SpreadsheetID: "doc-1"}}
	sheet := newFakeSheet()
	d := NewDispatcher(firms, records, sheet, zap.NewNop())
	return d, sheet, firmID
}

func TestSync_UnknownType(t *testing.T) {
	d, _, firmID := newTestDispatcher(&fakeRecords{})
	_, err := d.Sync(context.Background(), Request{Type: "invoice", ID: 1, FirmID: firmID, Op: model.OpCreate})
	require.ErrorIs(t, err, errs.ErrUnknownEntityType)
}

func TestSync_FirmWithoutSpreadsheet(t *testing.T) {
	firmID := uuid.Must(uuid.NewV4())
	firms := &fakeFirms{firm: &model.Firm{ID: firmID}}
	d := NewDispatcher(firms, &fakeRecords{}, newFakeSheet(), zap.NewNop())

	_, err := d.Sync(context.Background(), Request{Type: model.EntityClient, ID: 1, FirmID: firmID, Op: model.OpCreate})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no spreadsheet")
}

func TestSync_ClientCreate(t *testing.T) {
	records := &fakeRecords{client: &model.Client{
		ID: 41, Name: "Asha Rao", Phone: "555-0101",
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	d, sheet, firmID := newTestDispatcher(records)

	sum, err := d.Sync(context.Background(), Request{Type: model.EntityClient, ID: 41, FirmID: firmID, Op: model.OpCreate})
	require.NoError(t, err)
	require.Equal(t, []string{sheets.TabClients}, sum.Tabs)
	require.Equal(t, 1, sum.Rows)

	require.Equal(t, sheets.ClientColumns, sheet.ensured[sheets.TabClients])
	require.Len(t, sheet.upserts, 1)
	require.Equal(t, "41", sheet.upserts[0].key)
	require.Equal(t, "Asha Rao", sheet.upserts[0].cells[1].Text)
}

func TestSync_ClientMissing(t *testing.T) {
	d, _, firmID := newTestDispatcher(&fakeRecords{})
	_, err := d.Sync(context.Background(), Request{Type: model.EntityClient, ID: 41, FirmID: firmID, Op: model.OpUpdate})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Contains(t, err.Error(), "client/41")
}

func TestSync_ClientDelete(t *testing.T) {
	d, sheet, firmID := newTestDispatcher(&fakeRecords{})
	sum, err := d.Sync(context.Background(), Request{Type: model.EntityClient, ID: 41, FirmID: firmID, Op: model.OpDelete})
	require.NoError(t, err)
	require.Equal(t, []string{sheets.TabClients}, sum.Tabs)
	require.Equal(t, []removed{{tab: sheets.TabClients, key: "41"}}, sheet.deletes)
}

func TestSync_MultiDayEventExpansion(t *testing.T) {
	ev := &model.Event{
		ID: 5, Title: "Asha weds Vikram", ClientName: "Asha Rao", Type: "Wedding",
		StartDate:   time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		Venue:       "Grand Palace",
		TotalDays:   3,
		TotalAmount: 10000, Advance: 2000, PaymentsTotal: 3000,
		DeliveryStatus: "In Progress",
		Days: []model.EventDay{
			{Day: 1, Photographers: []string{"Ravi"}, Cinematographers: []string{"Meera"}},
			{Day: 2, Photographers: []string{"Sunil"}, DronePilots: []string{"Kiran"}},
			{Day: 3, SameDayEditors: []string{"Devi"}},
		},
	}
	d, sheet, firmID := newTestDispatcher(&fakeRecords{event: ev})

	sum, err := d.Sync(context.Background(), Request{Type: model.EntityEvent, ID: 5, FirmID: firmID, Op: model.OpUpdate})
	require.NoError(t, err)
	require.Equal(t, []string{sheets.TabMasterEvents, sheets.TabWedding, sheets.TabEventsBackup}, sum.Tabs)
	require.Equal(t, 9, sum.Rows, "3 days times 3 tabs")

	var masterKeys, masterTitles []string
	for _, up := range sheet.upserts {
		if up.tab != sheets.TabMasterEvents {
			continue
		}
		masterKeys = append(masterKeys, up.key)
		masterTitles = append(masterTitles, up.cells[1].Text)
		require.Equal(t, "Partial", up.cells[13].Text)
		require.Equal(t, 5000.0, up.cells[12].Number, "balance column")
	}
	require.Equal(t, []string{"5-day1", "5-day2", "5-day3"}, masterKeys)
	require.Equal(t, []string{
		"Asha weds Vikram DAY 01",
		"Asha weds Vikram DAY 02",
		"Asha weds Vikram DAY 03",
	}, masterTitles)

	// each day carries its own crew
	require.Equal(t, "Ravi", sheet.upserts[0].cells[6].Text)
	require.Equal(t, "Meera", sheet.upserts[0].cells[7].Text)
	require.Equal(t, "Sunil", sheet.upserts[1].cells[6].Text)
	require.Equal(t, "Kiran", sheet.upserts[1].cells[8].Text)
	require.Equal(t, "Devi", sheet.upserts[2].cells[9].Text)
}

func TestSync_SingleDayEventKeepsPlainKey(t *testing.T) {
	ev := &model.Event{
		ID: 6, Title: "Corporate Shoot", ClientName: "Acme", Type: "Corporate",
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		TotalDays: 1,
		Days:      []model.EventDay{{Day: 1}},
	}
	d, sheet, firmID := newTestDispatcher(&fakeRecords{event: ev})

	_, err := d.Sync(context.Background(), Request{Type: model.EntityEvent, ID: 6, FirmID: firmID, Op: model.OpCreate})
	require.NoError(t, err)
	require.Equal(t, "6", sheet.upserts[0].key)
	require.Equal(t, "Corporate Shoot", sheet.upserts[0].cells[1].Text)
	require.Equal(t, "Pending", sheet.upserts[0].cells[13].Text)
}

func TestSync_EventUpdateSweepsStaleRows(t *testing.T) {
	ev := &model.Event{
		ID: 5, Title: "Asha weds Vikram", ClientName: "Asha Rao", Type: "Wedding",
		StartDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		TotalDays: 1,
		Days:      []model.EventDay{{Day: 1}},
	}
	d, sheet, firmID := newTestDispatcher(&fakeRecords{event: ev})

	_, err := d.Sync(context.Background(), Request{Type: model.EntityEvent, ID: 5, FirmID: firmID, Op: model.OpUpdate})
	require.NoError(t, err)

	// composite-day leftovers are swept from every event tab, so an event
	// shrunk from multi-day keeps only its plain row
	all := allEventTabs()
	require.Len(t, sheet.prefixDeletes, len(all))
	for i, tab := range all {
		require.Equal(t, removed{tab: tab, key: "5-day"}, sheet.prefixDeletes[i])
	}

	// the plain key is cleared only in tabs the fresh rows do not land in,
	// covering an event whose type changed
	var plainTabs []string
	for _, del := range sheet.deletes {
		require.Equal(t, "5", del.key)
		plainTabs = append(plainTabs, del.tab)
	}
	require.ElementsMatch(t, []string{
		sheets.TabPreWedding, sheets.TabMaternity, sheets.TabNewborn, sheets.TabCorporate,
	}, plainTabs)

	require.Equal(t, "5", sheet.upserts[0].key)
}

func TestSync_MultiDayEventUpdateClearsPlainKey(t *testing.T) {
	ev := &model.Event{
		ID: 5, Title: "Asha weds Vikram", ClientName: "Asha Rao", Type: "Wedding",
		StartDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		TotalDays: 2,
		Days:      []model.EventDay{{Day: 1}, {Day: 2}},
	}
	d, sheet, firmID := newTestDispatcher(&fakeRecords{event: ev})

	_, err := d.Sync(context.Background(), Request{Type: model.EntityEvent, ID: 5, FirmID: firmID, Op: model.OpUpdate})
	require.NoError(t, err)

	// an event grown to multi-day leaves no plain-key row anywhere
	require.Len(t, sheet.deletes, len(allEventTabs()))
	for _, del := range sheet.deletes {
		require.Equal(t, "5", del.key)
	}
}

func TestSync_EventDeleteSweepsCompositeKeys(t *testing.T) {
	d, sheet, firmID := newTestDispatcher(&fakeRecords{})
	_, err := d.Sync(context.Background(), Request{Type: model.EntityEvent, ID: 5, FirmID: firmID, Op: model.OpDelete})
	require.NoError(t, err)

	wantTabs := append([]string{sheets.TabMasterEvents}, sheets.EventTypeTabs...)
	wantTabs = append(wantTabs, sheets.TabEventsBackup)
	require.Len(t, sheet.deletes, len(wantTabs))
	require.Len(t, sheet.prefixDeletes, len(wantTabs))
	for i, tab := range wantTabs {
		require.Equal(t, removed{tab: tab, key: "5"}, sheet.deletes[i])
		require.Equal(t, removed{tab: tab, key: "5-day"}, sheet.prefixDeletes[i])
	}
}

func TestSync_SalaryPaymentMaterializesExpense(t *testing.T) {
	p := &model.Payment{
		ID: 7, Kind: model.PaymentStaff, PayeeName: "Ravi",
		Amount: 15000, Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Method: "bank", Salary: true,
	}
	d, sheet, firmID := newTestDispatcher(&fakeRecords{payment: p})

	sum, err := d.Sync(context.Background(), Request{Type: model.EntityStaffPayment, ID: 7, FirmID: firmID, Op: model.OpCreate})
	require.NoError(t, err)
	require.Equal(t, []string{sheets.TabPayments, sheets.TabExpenses}, sum.Tabs)
	require.Equal(t, 2, sum.Rows)

	require.Equal(t, "7", sheet.upserts[0].key)
	require.Equal(t, "staff-payment-7", sheet.upserts[1].key)
	require.Equal(t, "Salary", sheet.upserts[1].cells[2].Text)
	require.Equal(t, 15000.0, sheet.upserts[1].cells[4].Number)
}

func TestSync_NonSalaryStaffPaymentSkipsExpense(t *testing.T) {
	p := &model.Payment{ID: 8, Kind: model.PaymentStaff, PayeeName: "Ravi", Amount: 500}
	d, sheet, firmID := newTestDispatcher(&fakeRecords{payment: p})

	sum, err := d.Sync(context.Background(), Request{Type: model.EntityStaffPayment, ID: 8, FirmID: firmID, Op: model.OpCreate})
	require.NoError(t, err)
	require.Equal(t, []string{sheets.TabPayments}, sum.Tabs)
	require.Len(t, sheet.upserts, 1)
}

func TestSync_SalaryPaymentKindMismatch(t *testing.T) {
	p := &model.Payment{ID: 7, Kind: model.PaymentStaff}
	d, _, firmID := newTestDispatcher(&fakeRecords{payment: p})

	_, err := d.Sync(context.Background(), Request{Type: model.EntityFreelancerPayment, ID: 7, FirmID: firmID, Op: model.OpCreate})
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("payment %d", 7))
}

func TestSync_SalaryPaymentDeleteSweepsSyntheticRow(t *testing.T) {
	d, sheet, firmID := newTestDispatcher(&fakeRecords{})
	_, err := d.Sync(context.Background(), Request{Type: model.EntityFreelancerPayment, ID: 9, FirmID: firmID, Op: model.OpDelete})
	require.NoError(t, err)
	require.Equal(t, []removed{
		{tab: sheets.TabPayments, key: "9"},
		{tab: sheets.TabExpenses, key: "freelancer-payment-9"},
	}, sheet.deletes)
}

func TestHandlers_CoverEveryEntityType(t *testing.T) {
	for _, et := range model.EntityTypes {
		_, ok := handlers[et]
		require.True(t, ok, "no handler bound for %q", et)
	}
	require.Len(t, handlers, len(model.EntityTypes))
}
