package workflow

import (
	"errors"
	"testing"
)

func ptr(s Status) *Status { return &s }

func TestValidateLegalTransitions(t *testing.T) {
	cases := []struct {
		kind Kind
		from *Status
		to   Status
	}{
		{KindInvoice, nil, InvoiceDraft},
		{KindInvoice, nil, InvoiceSubmitted},
		{KindInvoice, ptr(InvoiceDraft), InvoiceSubmitted},
		{KindInvoice, ptr(InvoiceSubmitted), InvoiceReview},
		{KindInvoice, ptr(InvoiceReview), InvoicePendingApproval},
		{KindInvoice, ptr(InvoicePendingApproval), InvoiceApproved},
		{KindInvoice, ptr(InvoiceApproved), InvoicePaid},
		{KindInvoice, ptr(InvoicePaid), InvoiceArchived},
		{KindInvoice, ptr(InvoiceRejected), InvoiceDraft},
		{KindContract, nil, ContractDraft},
		{KindContract, ptr(ContractSigned), ContractActive},
		{KindContract, ptr(ContractActive), ContractTerminated},
		{KindContract, ptr(ContractCompleted), ContractArchived},
		{KindPayment, nil, PaymentPending},
		{KindPayment, ptr(PaymentPending), PaymentVerified},
		{KindPayment, ptr(PaymentVerified), PaymentRefunded},
	}
	for _, c := range cases {
		if err := Validate(c.kind, c.from, c.to); err != nil {
			t.Errorf("Validate(%s, %v, %s) = %v, want nil", c.kind, c.from, c.to, err)
		}
	}
}

func TestValidateRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		kind Kind
		from *Status
		to   Status
	}{
		{KindInvoice, ptr(InvoiceDraft), InvoiceApproved},
		{KindInvoice, ptr(InvoiceDraft), InvoicePaid},
		{KindInvoice, ptr(InvoicePaid), InvoiceApproved},
		{KindInvoice, nil, InvoiceApproved},
		{KindContract, ptr(ContractDraft), ContractActive},
		{KindPayment, ptr(PaymentRejected), PaymentVerified},
		{KindPayment, ptr(PaymentVerified), PaymentPending},
	}
	for _, c := range cases {
		err := Validate(c.kind, c.from, c.to)
		if err == nil {
			t.Errorf("Validate(%s, %v, %s) = nil, want error", c.kind, c.from, c.to)
			continue
		}
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("Validate(%s, %v, %s) returned %T, want *InvalidTransitionError", c.kind, c.from, c.to, err)
		}
	}
}

func TestInvalidTransitionErrorCarriesAllowedSet(t *testing.T) {
	err := Validate(KindInvoice, ptr(InvoiceDraft), InvoiceApproved)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("want *InvalidTransitionError, got %v", err)
	}
	want := map[Status]bool{InvoiceSubmitted: true, InvoiceCancelled: true}
	if len(ite.Allowed) != len(want) {
		t.Fatalf("allowed = %v, want SUBMITTED and CANCELLED", ite.Allowed)
	}
	for _, s := range ite.Allowed {
		if !want[s] {
			t.Fatalf("unexpected allowed status %s", s)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, c := range []struct {
		kind     Kind
		status   Status
		terminal bool
	}{
		{KindInvoice, InvoiceArchived, true},
		{KindInvoice, InvoicePaid, false},
		{KindContract, ContractArchived, true},
		{KindPayment, PaymentRejected, true},
		{KindPayment, PaymentRefunded, true},
		{KindPayment, PaymentPending, false},
	} {
		if got := IsTerminal(c.kind, c.status); got != c.terminal {
			t.Errorf("IsTerminal(%s, %s) = %v, want %v", c.kind, c.status, got, c.terminal)
		}
	}
}

func TestInitialStates(t *testing.T) {
	if got := InitialStates(KindPayment); len(got) != 1 || got[0] != PaymentPending {
		t.Errorf("payment initial states = %v, want [PENDING]", got)
	}
	if err := Validate(KindContract, nil, ContractPendingApproval); err != nil {
		t.Errorf("PENDING_APPROVAL should be a valid initial contract state: %v", err)
	}
}
