package sheets

// Tab names. Provisioning creates exactly this set; purge deletes exactly
// this set; sync handlers never target anything else without EnsureTab.
const (
	TabClients      = "Clients"
	TabMasterEvents = "Master Events"
	TabWedding      = "Wedding"
	TabPreWedding   = "Pre-Wedding"
	TabMaternity    = "Maternity"
	TabNewborn      = "Newborn"
	TabCorporate    = "Corporate"
	TabStaff        = "Staff"
	TabTasks        = "Tasks"
	TabExpenses     = "Expenses"
	TabFreelancers  = "Freelancers"
	TabPayments     = "Payments"
	TabAccounting   = "Accounting"
	TabReports      = "Reports"
	TabEventsBackup = "Master Events Backup"
)

// ProvisionTabs is the fixed tab set in its fixed index order. Provisioning
// and purge must agree on this list exactly.
var ProvisionTabs = []string{
	TabClients,
	TabMasterEvents,
	TabWedding,
	TabPreWedding,
	TabMaternity,
	TabNewborn,
	TabCorporate,
	TabStaff,
	TabTasks,
	TabExpenses,
	TabFreelancers,
	TabPayments,
	TabAccounting,
	TabReports,
	TabEventsBackup,
}

// EventTypeTabs maps an event's type onto its dedicated tab.
var EventTypeTabs = []string{TabWedding, TabPreWedding, TabMaternity, TabNewborn, TabCorporate}

// Column lists per tab. Order and count are the binary contract with any
// external consumer of the document; the id column is always first.
var (
	ClientColumns = []string{"ID", "Name", "Phone", "Email", "City", "Reference", "Created"}

	EventColumns = []string{
		"ID", "Title", "Client", "Event Type", "Date", "Venue",
		"Photographers", "Cinematographers", "Drone Pilots", "Same Day Editors",
		"Total Amount", "Advance", "Balance", "Payment Status", "Delivery Status",
	}

	StaffColumns      = []string{"ID", "Name", "Role", "Phone", "Email", "Monthly Salary", "Joined"}
	TaskColumns       = []string{"ID", "Title", "Event", "Assignee", "Due Date", "Status", "Notes"}
	ExpenseColumns    = []string{"ID", "Description", "Category", "Event", "Amount", "Date", "Paid To"}
	FreelancerColumns = []string{"ID", "Name", "Role", "Phone", "Email", "Rate"}
	PaymentColumns    = []string{"ID", "Kind", "Event", "Payee", "Amount", "Date", "Method", "Notes"}
	AccountingColumns = []string{"ID", "Entry", "Category", "Debit", "Credit", "Date", "Notes"}
	ReportColumns     = []string{"Report", "Period", "Generated", "Notes"}
)

// Headers maps every provisioned tab to its header row.
var Headers = map[string][]string{
	TabClients:      ClientColumns,
	TabMasterEvents: EventColumns,
	TabWedding:      EventColumns,
	TabPreWedding:   EventColumns,
	TabMaternity:    EventColumns,
	TabNewborn:      EventColumns,
	TabCorporate:    EventColumns,
	TabStaff:        StaffColumns,
	TabTasks:        TaskColumns,
	TabExpenses:     ExpenseColumns,
	TabFreelancers:  FreelancerColumns,
	TabPayments:     PaymentColumns,
	TabAccounting:   AccountingColumns,
	TabReports:      ReportColumns,
	TabEventsBackup: EventColumns,
}

// Dropdown option lists seeded as named ranges at provisioning.
var (
	EventTypeOptions      = []string{"Wedding", "Pre-Wedding", "Maternity", "Newborn", "Corporate"}
	PaymentStatusOptions  = []string{"Pending", "Partial", "Paid"}
	DeliveryStatusOptions = []string{"Not Started", "In Progress", "Delivered"}
)
