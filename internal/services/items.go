package services

import (
	"context"
	"errors"

	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// ComputeItemAmounts fills the derived fields of an item from quantity, unit
// price and the two percentages. Both percentages apply to the subtotal;
// total = subtotal + tax - discount.
func ComputeItemAmounts(item *models.InvoiceItem) {
	item.Subtotal = item.Quantity.Mul(item.UnitPrice).Round(2)
	item.TaxAmount = item.Subtotal.Mul(item.TaxPercentage).Div(hundred).Round(2)
	item.DiscountAmount = item.Subtotal.Mul(item.DiscountPercentage).Div(hundred).Round(2)
	item.Total = item.Subtotal.Add(item.TaxAmount).Sub(item.DiscountAmount).Round(2)
}

// InvoiceItemService writes invoice line items and keeps the invoice's
// derived totals in sync. Every item write and the total recompute share one
// transaction.
type InvoiceItemService struct {
	DB        *gorm.DB
	Revisions *RevisionService
	Audit     *AuditService
}

func NewInvoiceItemService(db *gorm.DB, revisions *RevisionService, audit *AuditService) *InvoiceItemService {
	return &InvoiceItemService{DB: db, Revisions: revisions, Audit: audit}
}

// ItemInput is the caller-settable part of an item; derived amounts are
// always recomputed server-side.
type ItemInput struct {
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ContractItem       string          `json:"contract_item"`
	Notes              string          `json:"notes"`
	OrderIndex         uint            `json:"order_index"`
}

// Create adds an item to an invoice and recomputes the invoice totals.
func (s *InvoiceItemService) Create(ctx context.Context, invoiceID, tenantID uint, in ItemInput, actorID uint) (*models.InvoiceItem, error) {
	if in.Quantity.IsZero() {
		in.Quantity = decimal.NewFromInt(1)
	}
	item := &models.InvoiceItem{
		InvoiceID:          invoiceID,
		Description:        in.Description,
		Quantity:           in.Quantity,
		UnitPrice:          in.UnitPrice,
		TaxPercentage:      in.TaxPercentage,
		DiscountPercentage: in.DiscountPercentage,
		ContractItem:       in.ContractItem,
		Notes:              in.Notes,
		OrderIndex:         in.OrderIndex,
	}
	ComputeItemAmounts(item)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		item.TenantID = inv.TenantID
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		if err := RecomputeInvoiceTotals(tx, inv); err != nil {
			return err
		}
		return s.Revisions.Snapshot(tx, "invoice_item", item.ID, models.RevisionCreation,
			"item added", nil, item, actorID, inv.TenantID)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "CREATE", "invoice_item", item.ID, "item added to invoice", nil, item.TenantID)
	return item, nil
}

// Update rewrites an item's caller-settable fields and recomputes both the
// item's derived amounts and the invoice totals.
func (s *InvoiceItemService) Update(ctx context.Context, itemID, tenantID uint, in ItemInput, actorID uint) (*models.InvoiceItem, error) {
	var item models.InvoiceItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		inv, err := lockInvoice(tx, item.InvoiceID, item.TenantID)
		if err != nil {
			return err
		}
		before := item

		item.Description = in.Description
		if !in.Quantity.IsZero() {
			item.Quantity = in.Quantity
		}
		item.UnitPrice = in.UnitPrice
		item.TaxPercentage = in.TaxPercentage
		item.DiscountPercentage = in.DiscountPercentage
		item.ContractItem = in.ContractItem
		item.Notes = in.Notes
		item.OrderIndex = in.OrderIndex
		ComputeItemAmounts(&item)

		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		if err := RecomputeInvoiceTotals(tx, inv); err != nil {
			return err
		}
		return s.Revisions.Snapshot(tx, "invoice_item", item.ID, models.RevisionUpdate,
			"item updated", before, item, actorID, inv.TenantID)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorID, "UPDATE", "invoice_item", item.ID, "item updated", nil, item.TenantID)
	return &item, nil
}

// Delete soft-deletes an item and recomputes the invoice totals.
func (s *InvoiceItemService) Delete(ctx context.Context, itemID, tenantID uint, actorID uint) error {
	var item models.InvoiceItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		inv, err := lockInvoice(tx, item.InvoiceID, item.TenantID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		if err := RecomputeInvoiceTotals(tx, inv); err != nil {
			return err
		}
		return s.Revisions.Snapshot(tx, "invoice_item", item.ID, models.RevisionUpdate,
			"item removed", item, nil, actorID, inv.TenantID)
	})
	if err != nil {
		return err
	}
	s.Audit.Record(ctx, actorID, "DELETE", "invoice_item", item.ID, "item removed", nil, item.TenantID)
	return nil
}

// RecomputeInvoiceTotals re-derives the invoice's money fields as plain sums
// over its active items and persists them. Soft-deleted items are excluded by
// the default scope.
func RecomputeInvoiceTotals(tx *gorm.DB, inv *models.Invoice) error {
	var items []models.InvoiceItem
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&items).Error; err != nil {
		return err
	}
	subtotal, tax, discount, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
		tax = tax.Add(it.TaxAmount)
		discount = discount.Add(it.DiscountAmount)
		total = total.Add(it.Total)
	}
	inv.Subtotal, inv.TaxAmount, inv.DiscountAmount, inv.TotalAmount = subtotal, tax, discount, total
	return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
		"subtotal":        subtotal,
		"tax_amount":      tax,
		"discount_amount": discount,
		"total_amount":    total,
	}).Error
}

// lockInvoice loads the invoice under a row lock, scoped to the tenant so a
// caller can never reach another tenant's aggregate by id.
func lockInvoice(tx *gorm.DB, invoiceID, tenantID uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := forUpdate(tx).Where("tenant_id = ?", tenantID).First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}
