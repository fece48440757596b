package workflow

// Transition tables. A status mapping to an empty slice is terminal; a status
// missing from the table is not a valid code for that kind at all.

var contractTransitions = map[Status][]Status{
	ContractDraft:           {ContractReview, ContractPendingApproval, ContractCancelled},
	ContractReview:          {ContractDraft, ContractPendingApproval, ContractApproved, ContractCancelled},
	ContractPendingApproval: {ContractApproved, ContractReview, ContractDraft, ContractCancelled},
	ContractApproved:        {ContractSigned, ContractPendingApproval, ContractCancelled},
	ContractSigned:          {ContractActive, ContractOnHold, ContractCancelled},
	ContractActive:          {ContractCompleted, ContractTerminated, ContractOnHold, ContractExpired},
	ContractOnHold:          {ContractActive, ContractTerminated, ContractCancelled},
	ContractCompleted:       {ContractArchived},
	ContractTerminated:      {ContractArchived},
	ContractCancelled:       {ContractArchived},
	ContractExpired:         {ContractArchived},
	ContractArchived:        {},
}

var invoiceTransitions = map[Status][]Status{
	InvoiceDraft:           {InvoiceSubmitted, InvoiceCancelled},
	InvoiceSubmitted:       {InvoiceReview, InvoiceDraft, InvoiceCancelled},
	InvoiceReview:          {InvoicePendingApproval, InvoiceDraft, InvoiceRejected, InvoiceCancelled},
	InvoicePendingApproval: {InvoiceApproved, InvoiceRejected, InvoiceCancelled},
	InvoiceApproved:        {InvoicePaid, InvoiceCancelled},
	InvoiceRejected:        {InvoiceDraft, InvoiceCancelled},
	InvoicePaid:            {InvoiceArchived},
	InvoiceCancelled:       {InvoiceArchived},
	InvoiceArchived:        {},
}

var paymentTransitions = map[Status][]Status{
	PaymentPending:   {PaymentVerified, PaymentRejected, PaymentCancelled},
	PaymentVerified:  {PaymentRefunded},
	PaymentRejected:  {},
	PaymentRefunded:  {},
	PaymentCancelled: {},
}

// Valid states for an aggregate that has no status history yet.
var initialStates = map[Kind][]Status{
	KindContract: {ContractDraft, ContractReview, ContractPendingApproval},
	KindInvoice:  {InvoiceDraft, InvoiceSubmitted},
	KindPayment:  {PaymentPending},
}

func tableFor(kind Kind) map[Status][]Status {
	switch kind {
	case KindContract:
		return contractTransitions
	case KindInvoice:
		return invoiceTransitions
	case KindPayment:
		return paymentTransitions
	}
	return nil
}

// InitialStates returns the states an aggregate of the given kind may start in.
func InitialStates(kind Kind) []Status {
	return initialStates[kind]
}

// AllowedFrom returns the set of statuses reachable from current. A nil
// current means the aggregate has no status yet and the initial set applies.
func AllowedFrom(kind Kind, current *Status) []Status {
	if current == nil {
		return initialStates[kind]
	}
	return tableFor(kind)[*current]
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(kind Kind, s Status) bool {
	next, ok := tableFor(kind)[s]
	return ok && len(next) == 0
}
