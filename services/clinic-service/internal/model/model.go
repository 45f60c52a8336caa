package model

import "time"

// ClinicSettings drives the scheduling grid. Operating hours are stored as
// minutes from midnight and exposed as "HH:MM" strings on the wire.
type ClinicSettings struct {
	ClinicID     string
	Name         string
	OpenMinute   int
	CloseMinute  int
	SlotStepMins int
	Timezone     string
	UpdatedAt    time.Time
}

type Service struct {
	ID           string
	ClinicID     string
	Name         string
	DurationMins int
	PriceCents   int64
	Active       bool
	CreatedAt    time.Time
}

type Staff struct {
	ID        string
	ClinicID  string
	Name      string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type Patient struct {
	ID        string
	ClinicID  string
	FullName  string
	Phone     string
	Email     string
	BirthDate *time.Time
	Notes     string
	CreatedAt time.Time
}

type InventoryItem struct {
	ID           string
	ClinicID     string
	Name         string
	SKU          string
	Quantity     int
	UnitCents    int64
	ReorderLevel int
	UpdatedAt    time.Time
}

type InvoiceStatus string

const (
	InvoiceDraft  InvoiceStatus = "draft"
	InvoiceIssued InvoiceStatus = "issued"
	InvoicePaid   InvoiceStatus = "paid"
	InvoiceVoid   InvoiceStatus = "void"
)

type InvoiceLine struct {
	ID          string
	Description string
	Quantity    int
	UnitCents   int64
}

type Invoice struct {
	ID         string
	ClinicID   string
	PatientID  string
	Status     InvoiceStatus
	Lines      []InvoiceLine
	TotalCents int64
	IssuedAt   *time.Time
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// Total sums the line items. Stored totals are recomputed on every write so
// the column never drifts from the lines.
func (inv Invoice) Total() int64 {
	var total int64
	for _, l := range inv.Lines {
		total += int64(l.Quantity) * l.UnitCents
	}
	return total
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadConverted, LeadLost:
		return true
	}
	return false
}

type Lead struct {
	ID        string
	ClinicID  string
	Name      string
	Phone     string
	Email     string
	Source    string
	Status    LeadStatus
	Notes     string
	PatientID string
	CreatedAt time.Time
}

type DeclarationStatus string

const (
	DeclarationPending   DeclarationStatus = "pending"
	DeclarationSubmitted DeclarationStatus = "submitted"
)

// Declaration is a pre-treatment health form a patient fills in through a
// tokenized public link. The token is single use and expires.
type Declaration struct {
	ID            string
	ClinicID      string
	PatientID     string
	AppointmentID string
	Token         string
	Status        DeclarationStatus
	Answers       []byte
	ExpiresAt     time.Time
	SubmittedAt   *time.Time
	CreatedAt     time.Time
}

func (d Declaration) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
