package services

import (
	"context"
	"testing"
	"time"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFullPaymentSettlesInvoice(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))
	approveInvoice(t, s, inv.ID, 1)

	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{
		Amount: decimal.NewFromInt(1000),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, string(workflow.PaymentPending), p.CurrentStatus)
	require.NotEmpty(t, p.Reference, "a reference is generated when none is given")

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.True(t, fresh.IsPaid)
	require.NotNil(t, fresh.PaymentDate)
	require.Equal(t, string(workflow.InvoicePaid), fresh.CurrentStatus)
	require.EqualValues(t, 1, openRecordCount(t, s.DB, inv.ID))
}

func TestPaymentOnDraftInvoiceDoesNotSettle(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))

	// full coverage while the invoice is still in DRAFT: the payment is kept
	// but there is no legal path to PAID yet
	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(1000)}, 1)
	require.NoError(t, err)
	require.Equal(t, string(workflow.PaymentPending), p.CurrentStatus)

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.False(t, fresh.IsPaid)
	require.Nil(t, fresh.PaymentDate)
	require.Equal(t, string(workflow.InvoiceDraft), fresh.CurrentStatus)
	require.EqualValues(t, 1, openRecordCount(t, s.DB, inv.ID))
}

func TestVerifyAfterApprovalSettlesInvoice(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))

	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(1000)}, 1)
	require.NoError(t, err)

	// approval arrives after the money did; verification re-checks coverage
	approveInvoice(t, s, inv.ID, 1)
	_, err = s.Payments.Verify(context.Background(), p.ID, 1, 2, "checked against bank statement")
	require.NoError(t, err)

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.True(t, fresh.IsPaid)
	require.NotNil(t, fresh.PaymentDate)
	require.Equal(t, string(workflow.InvoicePaid), fresh.CurrentStatus)
}

func TestPaymentValidation(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))
	approveInvoice(t, s, inv.ID, 1)

	_, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.Zero}, 1)
	require.ErrorIs(t, err, workflow.ErrInvalidAmount)

	_, err = s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(1500), IsPartial: true}, 1)
	require.ErrorIs(t, err, workflow.ErrOverPayment)

	// non-partial payment must cover the full remaining balance
	_, err = s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(400)}, 1)
	require.ErrorIs(t, err, workflow.ErrUnderPayment)

	_, err = s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(400), IsPartial: true}, 1)
	require.NoError(t, err)

	// remaining balance shrinks, so a second overshoot is rejected too
	_, err = s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(700), IsPartial: true}, 1)
	require.ErrorIs(t, err, workflow.ErrOverPayment)

	_, err = s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(600)}, 1)
	require.NoError(t, err)

	_, err = s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(1), IsPartial: true}, 1)
	require.ErrorIs(t, err, workflow.ErrAlreadyPaid)
}

func TestDeletePaymentReversesSettlement(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))
	approveInvoice(t, s, inv.ID, 1)

	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(1000)}, 1)
	require.NoError(t, err)

	require.NoError(t, s.Payments.Delete(context.Background(), p.ID, 1, 1))

	var fresh models.Invoice
	require.NoError(t, s.DB.First(&fresh, inv.ID).Error)
	require.False(t, fresh.IsPaid)
	require.Nil(t, fresh.PaymentDate)
	require.Equal(t, string(workflow.InvoiceApproved), fresh.CurrentStatus)
	require.EqualValues(t, 1, openRecordCount(t, s.DB, inv.ID))

	// history keeps the full round trip: ... APPROVED, PAID, APPROVED
	var records []models.InvoiceStatusRecord
	require.NoError(t, s.DB.Where("invoice_id = ?", inv.ID).Order("id asc").Find(&records).Error)
	n := len(records)
	require.GreaterOrEqual(t, n, 3)
	require.Equal(t, string(workflow.InvoiceApproved), records[n-1].Status)
	require.Equal(t, string(workflow.InvoicePaid), records[n-2].Status)
}

func TestVerifiedPaymentCannotBeDeleted(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))
	approveInvoice(t, s, inv.ID, 1)

	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(1000)}, 1)
	require.NoError(t, err)
	_, err = s.Payments.Verify(context.Background(), p.ID, 1, 2, "checked against bank statement")
	require.NoError(t, err)

	err = s.Payments.Delete(context.Background(), p.ID, 1, 1)
	require.ErrorIs(t, err, workflow.ErrAlreadyResolved)
}

func TestRejectPaymentRequiresReason(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))
	approveInvoice(t, s, inv.ID, 1)

	p, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{Amount: decimal.NewFromInt(500), IsPartial: true}, 1)
	require.NoError(t, err)

	_, err = s.Payments.Reject(context.Background(), p.ID, 1, 2, "")
	require.ErrorIs(t, err, workflow.ErrMissingReason)

	rejected, err := s.Payments.Reject(context.Background(), p.ID, 1, 2, "wrong account")
	require.NoError(t, err)
	require.Equal(t, string(workflow.PaymentRejected), rejected.CurrentStatus)

	// a rejected payment is terminal
	_, err = s.Payments.Verify(context.Background(), p.ID, 1, 2, "")
	var ite *workflow.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestScheduleReconciliation(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))
	approveInvoice(t, s, inv.ID, 1)

	sched := models.PaymentSchedule{
		InvoiceID:         inv.ID,
		DueDate:           time.Now().AddDate(0, 1, 0),
		Amount:            decimal.NewFromInt(500),
		Status:            models.SchedulePending,
		InstallmentNumber: 1,
		TotalInstallments: 2,
		TenantID:          1,
	}
	require.NoError(t, s.DB.Create(&sched).Error)

	_, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{
		Amount:      decimal.NewFromInt(200),
		IsPartial:   true,
		ScheduleIDs: []uint{sched.ID},
	}, 1)
	require.NoError(t, err)

	var fresh models.PaymentSchedule
	require.NoError(t, s.DB.First(&fresh, sched.ID).Error)
	require.Equal(t, models.SchedulePartiallyPaid, fresh.Status)
	require.True(t, fresh.PaidAmount.Equal(decimal.NewFromInt(200)))

	p2, err := s.Payments.Record(context.Background(), inv.ID, 1, RecordPaymentInput{
		Amount:      decimal.NewFromInt(300),
		IsPartial:   true,
		ScheduleIDs: []uint{sched.ID},
	}, 1)
	require.NoError(t, err)
	require.NoError(t, s.DB.First(&fresh, sched.ID).Error)
	require.Equal(t, models.SchedulePaid, fresh.Status)
	require.NotNil(t, fresh.PaymentDate)

	// deleting a linked payment rolls the installment back
	require.NoError(t, s.Payments.Delete(context.Background(), p2.ID, 1, 1))
	require.NoError(t, s.DB.First(&fresh, sched.ID).Error)
	require.Equal(t, models.SchedulePartiallyPaid, fresh.Status)
	require.True(t, fresh.PaidAmount.Equal(decimal.NewFromInt(200)))
}

func TestOverdueSchedule(t *testing.T) {
	s := newTestStack(t)
	inv := createInvoice(t, s, 1, decimal.NewFromInt(1000))

	sched := models.PaymentSchedule{
		InvoiceID: inv.ID,
		DueDate:   time.Now().AddDate(0, 0, -10),
		Amount:    decimal.NewFromInt(500),
		Status:    models.SchedulePending,
		TenantID:  1,
	}
	require.NoError(t, s.DB.Create(&sched).Error)
	require.NoError(t, ReconcileSchedule(s.DB, &sched))
	require.Equal(t, models.ScheduleOverdue, sched.Status)
}
