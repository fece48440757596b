package services

import (
	"context"
	"testing"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Every mutation loads its aggregate scoped to the caller's tenant, so another
// tenant guessing ids only ever sees not-found.
func TestMutationsAreTenantScoped(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(500))
	c := createContract(t, s.DB, 1)

	_, err := s.Status.ApplyInvoiceTransition(context.Background(), inv.ID, 2, workflow.InvoiceSubmitted, 1, "")
	require.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = s.Status.ApplyContractTransition(context.Background(), c.ID, 2, workflow.ContractDraft, 1, "")
	require.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = s.Items.Create(context.Background(), inv.ID, 2, ItemInput{
		Description: "smuggled line", UnitPrice: decimal.NewFromInt(1),
	}, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = s.Payments.Record(context.Background(), inv.ID, 2, RecordPaymentInput{
		Amount: decimal.NewFromInt(500),
	}, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = s.Approvals.Assign(context.Background(), inv.ID, 2, AssignInput{
		ApprovalType: models.ApprovalFirst, ApproverID: 9,
	}, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)

	// nothing leaked through
	var fresh models.Invoice
	require.NoError(t, s.DB.Preload("Items").First(&fresh, inv.ID).Error)
	require.Equal(t, string(workflow.InvoiceDraft), fresh.CurrentStatus)
	require.Len(t, fresh.Items, 1)
}

func TestItemWritesScopedToTenant(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(500))
	var item models.InvoiceItem
	require.NoError(t, s.DB.Where("invoice_id = ?", inv.ID).First(&item).Error)

	_, err := s.Items.Update(context.Background(), item.ID, 2, ItemInput{
		Description: "rewritten", UnitPrice: decimal.NewFromInt(9999),
	}, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)

	err = s.Items.Delete(context.Background(), item.ID, 2, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.True(t, fresh.TotalAmount.Equal(decimal.NewFromInt(500)), "total = %s", fresh.TotalAmount)
}

func TestPaymentResolutionScopedToTenant(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(500))
	approveInvoice(t, s, inv.ID, 1)
	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(500)}, 1)
	require.NoError(t, err)

	_, err = s.Payments.Verify(context.Background(), p.ID, 2, 2, "")
	require.ErrorIs(t, err, workflow.ErrNotFound)
	err = s.Payments.Delete(context.Background(), p.ID, 2, 1)
	require.ErrorIs(t, err, workflow.ErrNotFound)
	_, err = s.Status.ApplyPaymentTransition(context.Background(), p.ID, 2, workflow.PaymentCancelled, 1, "")
	require.ErrorIs(t, err, workflow.ErrNotFound)
}
