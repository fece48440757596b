package services

import (
	"context"
	"testing"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	firstApprover uint = 10
	finalApprover uint = 20
)

// invoiceInReview builds an invoice sitting in REVIEW with a first and a
// final approval assigned.
func invoiceInReview(t *testing.T, s *testStack) (*models.Invoice, *models.Approval, *models.Approval) {
	t.Helper()
	inv := createInvoice(t, s, 1, decimal.NewFromInt(800))
	for _, next := range []workflow.Status{workflow.InvoiceSubmitted, workflow.InvoiceReview} {
		_, err := s.Status.ApplyInvoiceTransition(context.Background(), inv.ID, 1, next, 1, "")
		require.NoError(t, err)
	}
	first, err := s.Approvals.Assign(context.Background(), inv.ID, 1, AssignInput{
		ApprovalType: models.ApprovalFirst, ApproverID: firstApprover,
	}, 1)
	require.NoError(t, err)
	final, err := s.Approvals.Assign(context.Background(), inv.ID, 1, AssignInput{
		ApprovalType: models.ApprovalFinal, ApproverID: finalApprover,
	}, 1)
	require.NoError(t, err)
	return inv, first, final
}

func TestApprovalChainAdvancesInvoice(t *testing.T) {
	s := newTestStack(t)
	inv, first, final := invoiceInReview(t, s)

	// first approval moves REVIEW -> PENDING_APPROVAL even though the final
	// stage is still pending
	_, err := s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: models.ResultApproved}, firstApprover)
	require.NoError(t, err)

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.Equal(t, string(workflow.InvoicePendingApproval), fresh.CurrentStatus)

	// final approval moves PENDING_APPROVAL -> APPROVED
	_, err = s.Approvals.Resolve(context.Background(), final.ID, 1, ResolveInput{Result: models.ResultApproved}, finalApprover)
	require.NoError(t, err)
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.Equal(t, string(workflow.InvoiceApproved), fresh.CurrentStatus)
	require.EqualValues(t, 1, openRecordCount(t, s.DB, inv.ID))
}

func TestFinalRejectionRejectsInvoice(t *testing.T) {
	s := newTestStack(t)
	inv, first, final := invoiceInReview(t, s)

	_, err := s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: models.ResultApproved}, firstApprover)
	require.NoError(t, err)
	_, err = s.Approvals.Resolve(context.Background(), final.ID, 1, ResolveInput{
		Result: models.ResultRejected, Comments: "amounts do not match the contract",
	}, finalApprover)
	require.NoError(t, err)

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.Equal(t, string(workflow.InvoiceRejected), fresh.CurrentStatus)
}

func TestResolveGuards(t *testing.T) {
	s := newTestStack(t)
	_, first, _ := invoiceInReview(t, s)

	// only the assigned approver may resolve
	_, err := s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: models.ResultApproved}, finalApprover)
	require.ErrorIs(t, err, workflow.ErrForbidden)

	// rejection without a reason is refused before any write
	_, err = s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: models.ResultRejected}, firstApprover)
	require.ErrorIs(t, err, workflow.ErrMissingReason)

	// garbage results are refused
	_, err = s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: "MAYBE"}, firstApprover)
	require.ErrorIs(t, err, workflow.ErrInvalidResult)

	// an approval resolves exactly once
	_, err = s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: models.ResultApproved}, firstApprover)
	require.NoError(t, err)
	_, err = s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{Result: models.ResultApproved}, firstApprover)
	require.ErrorIs(t, err, workflow.ErrAlreadyResolved)
}

func TestAssignGuards(t *testing.T) {
	s := newTestStack(t)
	inv, _, _ := invoiceInReview(t, s)

	_, err := s.Approvals.Assign(context.Background(), inv.ID, 1, AssignInput{
		ApprovalType: models.ApprovalFirst, ApproverID: 99,
	}, 1)
	require.ErrorIs(t, err, workflow.ErrDuplicateApproval)

	_, err = s.Approvals.Assign(context.Background(), inv.ID, 1, AssignInput{
		ApprovalType: "TRIPLE_APPROVAL", ApproverID: 99,
	}, 1)
	require.ErrorIs(t, err, workflow.ErrInvalidStage)

	_, err = s.Approvals.Assign(context.Background(), 77777, 1, AssignInput{
		ApprovalType: models.ApprovalFirst, ApproverID: 99,
	}, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestReturnedApprovalLeavesInvoiceUntouched(t *testing.T) {
	s := newTestStack(t)
	inv, first, _ := invoiceInReview(t, s)

	_, err := s.Approvals.Resolve(context.Background(), first.ID, 1, ResolveInput{
		Result: models.ResultReturned, Comments: "needs supporting documents",
	}, firstApprover)
	require.NoError(t, err)

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.Equal(t, string(workflow.InvoiceReview), fresh.CurrentStatus)
}
