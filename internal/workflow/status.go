// Package workflow holds the lifecycle state machines for contracts, invoices
// and payment verification: the status codes, the static transition tables and
// the validator that gates every status write. Nothing in this package touches
// the database; services call Validate before any side effect.
package workflow

// Status is a lifecycle state code. The sets of valid codes differ per
// aggregate kind; the transition tables are the source of truth.
type Status string

// Kind identifies which aggregate's state machine applies.
type Kind string

const (
	KindContract Kind = "contract"
	KindInvoice  Kind = "invoice"
	KindPayment  Kind = "payment"
)

// Contract lifecycle.
const (
	ContractDraft           Status = "DRAFT"
	ContractReview          Status = "REVIEW"
	ContractPendingApproval Status = "PENDING_APPROVAL"
	ContractApproved        Status = "APPROVED"
	ContractSigned          Status = "SIGNED"
	ContractActive          Status = "ACTIVE"
	ContractOnHold          Status = "ON_HOLD"
	ContractCompleted       Status = "COMPLETED"
	ContractTerminated      Status = "TERMINATED"
	ContractCancelled       Status = "CANCELLED"
	ContractExpired         Status = "EXPIRED"
	ContractArchived        Status = "ARCHIVED"
)

// Invoice lifecycle.
const (
	InvoiceDraft           Status = "DRAFT"
	InvoiceSubmitted       Status = "SUBMITTED"
	InvoiceReview          Status = "REVIEW"
	InvoicePendingApproval Status = "PENDING_APPROVAL"
	InvoiceApproved        Status = "APPROVED"
	InvoiceRejected        Status = "REJECTED"
	InvoicePaid            Status = "PAID"
	InvoiceCancelled       Status = "CANCELLED"
	InvoiceArchived        Status = "ARCHIVED"
)

// Payment verification lifecycle.
const (
	PaymentPending   Status = "PENDING"
	PaymentVerified  Status = "VERIFIED"
	PaymentRejected  Status = "REJECTED"
	PaymentRefunded  Status = "REFUNDED"
	PaymentCancelled Status = "CANCELLED"
)
