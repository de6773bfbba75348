package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"stockino/internal/model"

	"github.com/shopspring/decimal"
)

func TestComputeAmounts(t *testing.T) {
	tests := []struct {
		name     string
		items    []model.ReceiptItem
		rate     string
		subtotal string
		vat      string
		total    string
	}{
		{"single line", []model.ReceiptItem{{Quantity: 3, UnitPrice: decimal.NewFromInt(10)}}, "20", "30", "6", "36"},
		{"no vat", []model.ReceiptItem{{Quantity: 2, UnitPrice: decimal.RequireFromString("4.5")}}, "0", "9", "0", "9"},
		{"rounded to cents", []model.ReceiptItem{{Quantity: 1, UnitPrice: decimal.RequireFromString("9.99")}}, "5.5", "9.99", "0.55", "10.54"},
		{"empty", nil, "20", "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, vat, total := ComputeAmounts(tt.items, decimal.RequireFromString(tt.rate))
			if !subtotal.Equal(decimal.RequireFromString(tt.subtotal)) {
				t.Errorf("subtotal = %s, want %s", subtotal, tt.subtotal)
			}
			if !vat.Equal(decimal.RequireFromString(tt.vat)) {
				t.Errorf("vat = %s, want %s", vat, tt.vat)
			}
			if !total.Equal(decimal.RequireFromString(tt.total)) {
				t.Errorf("total = %s, want %s", total, tt.total)
			}
		})
	}
}

func TestEntryReceiptAddsStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleManager)
	p := e.seedProduct(t, tenant, "Tea", 2, 10)

	r, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{
		Type:        "entry",
		ReceiptDate: "2025-04-02",
		Items:       []LineItemRequest{line(p, 3, 10)},
	})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	if r.Reference != "ENT-2025-0001" {
		t.Errorf("reference = %q, want ENT-2025-0001", r.Reference)
	}
	if !r.Subtotal.Equal(decimal.NewFromInt(30)) || !r.VATAmount.Equal(decimal.NewFromInt(6)) || !r.TotalAmount.Equal(decimal.NewFromInt(36)) {
		t.Errorf("amounts = %s/%s/%s, want 30/6/36", r.Subtotal, r.VATAmount, r.TotalAmount)
	}
	if r.InvoiceNumber != nil {
		t.Errorf("invoice number = %v, want none", *r.InvoiceNumber)
	}
	if qty, _ := e.quantity(t, p.ID); qty != 5 {
		t.Errorf("quantity = %d, want 5", qty)
	}
	if e.publisher.count() != 1 {
		t.Errorf("published %d events, want 1", e.publisher.count())
	}
}

func TestExitReceiptNumbering(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 20, 10)

	exit := func(invoice bool) ReceiptResponse {
		t.Helper()
		r, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{
			Type:        "exit",
			ReceiptDate: "2025-06-30",
			IsInvoice:   invoice,
			Items:       []LineItemRequest{line(p, 1, 10)},
		})
		if err != nil {
			t.Fatalf("CreateReceipt() error = %v", err)
		}
		return r
	}

	first := exit(false)
	second := exit(true)
	if first.Reference != "SOR-2025-0001" || second.Reference != "SOR-2025-0002" {
		t.Errorf("references = %q, %q", first.Reference, second.Reference)
	}
	if second.InvoiceNumber == nil || *second.InvoiceNumber != "FAC-2025-0001" {
		t.Errorf("invoice number = %v, want FAC-2025-0001", second.InvoiceNumber)
	}

	// Numbering is per organization.
	other := e.seedTenant(t, "Other", model.RoleAdmin)
	q := e.seedProduct(t, other, "Tea", 5, 10)
	r, err := e.receipt.CreateReceipt(ctx, other, CreateReceiptRequest{Type: "exit", ReceiptDate: "2025-01-01", Items: []LineItemRequest{line(q, 1, 10)}})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	if r.Reference != "SOR-2025-0001" {
		t.Errorf("other organization reference = %q, want SOR-2025-0001", r.Reference)
	}
}

func TestExitReceiptInsufficientStock(t *testing.T) {
	e := newEnv(t)
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 12, 10)

	_, err := e.receipt.CreateReceipt(context.Background(), tenant, CreateReceiptRequest{
		Type:        "exit",
		ReceiptDate: "2025-04-02",
		Items:       []LineItemRequest{line(p, 15, 10)},
	})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("error = %v, want InsufficientStockError", err)
	}
	if stockErr.Available != 12 || stockErr.Requested != 15 {
		t.Errorf("available/requested = %d/%d, want 12/15", stockErr.Available, stockErr.Requested)
	}
	if qty, _ := e.quantity(t, p.ID); qty != 12 {
		t.Errorf("quantity = %d, want 12", qty)
	}
	list, err := e.receipt.GetReceipts(context.Background(), tenant, "", 1, 20)
	if err != nil || list.Total != 0 {
		t.Errorf("receipts = %d, %v; want none", list.Total, err)
	}
}

func TestDeleteReceipt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 0, 10)

	entry, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{Type: "entry", ReceiptDate: "2025-04-02", Items: []LineItemRequest{line(p, 5, 10)}})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	if _, err := e.sale.CreateSale(ctx, tenant, CreateSaleRequest{SaleDate: "2025-04-03", Items: []LineItemRequest{line(p, 4, 12)}}); err != nil {
		t.Fatalf("CreateSale() error = %v", err)
	}

	if err := e.receipt.DeleteReceipt(ctx, tenant, entry.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("DeleteReceipt of consumed entry error = %v, want validation", err)
	}
	if qty, _ := e.quantity(t, p.ID); qty != 1 {
		t.Errorf("quantity = %d, want 1", qty)
	}

	exit, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{Type: "exit", ReceiptDate: "2025-04-04", Items: []LineItemRequest{line(p, 1, 10)}})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	if err := e.receipt.DeleteReceipt(ctx, tenant, exit.ID); err != nil {
		t.Fatalf("DeleteReceipt() error = %v", err)
	}
	if qty, _ := e.quantity(t, p.ID); qty != 1 {
		t.Errorf("quantity after exit reversal = %d, want 1", qty)
	}
	if _, err := e.receipt.GetReceipt(ctx, tenant, exit.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReceipt after delete error = %v, want not found", err)
	}
}

func TestReceiptValidationAndTenancy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	other := e.seedTenant(t, "Other", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 5, 10)
	tooHigh := decimal.NewFromInt(150)

	tests := []struct {
		name   string
		tenant Tenant
		req    CreateReceiptRequest
		want   error
	}{
		{"unknown type", tenant, CreateReceiptRequest{Type: "transfer", ReceiptDate: "2025-01-01", Items: []LineItemRequest{line(p, 1, 1)}}, ErrValidation},
		{"no items", tenant, CreateReceiptRequest{Type: "entry", ReceiptDate: "2025-01-01"}, ErrValidation},
		{"bad date", tenant, CreateReceiptRequest{Type: "entry", ReceiptDate: "2025-13-01", Items: []LineItemRequest{line(p, 1, 1)}}, ErrValidation},
		{"vat over 100", tenant, CreateReceiptRequest{Type: "entry", ReceiptDate: "2025-01-01", VATRate: &tooHigh, Items: []LineItemRequest{line(p, 1, 1)}}, ErrValidation},
		{"foreign product", other, CreateReceiptRequest{Type: "entry", ReceiptDate: "2025-01-01", Items: []LineItemRequest{line(p, 1, 1)}}, ErrValidation},
		{"foreign organization", other, CreateReceiptRequest{OrganizationID: tenant.OrgID().String(), Type: "entry", ReceiptDate: "2025-01-01", Items: []LineItemRequest{line(p, 1, 1)}}, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.receipt.CreateReceipt(ctx, tt.tenant, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	r, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{Type: "entry", ReceiptDate: "2025-01-01", Items: []LineItemRequest{line(p, 1, 1)}})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	if _, err := e.receipt.GetReceipt(ctx, other, r.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("GetReceipt foreign error = %v, want unauthorized", err)
	}
	if _, err := e.receipt.GetReceipts(ctx, tenant, "bogus", 1, 20); !errors.Is(err, ErrValidation) {
		t.Errorf("GetReceipts bad type error = %v, want validation", err)
	}
}

func TestInvoicePDF(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 5, 10)

	r, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{Type: "exit", ReceiptDate: "2025-02-10", IsInvoice: true, Items: []LineItemRequest{line(p, 2, 10)}})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	name, pdf, err := e.receipt.InvoicePDF(ctx, tenant, r.ID)
	if err != nil {
		t.Fatalf("InvoicePDF() error = %v", err)
	}
	if name != "FAC-2025-0001.pdf" {
		t.Errorf("filename = %q, want FAC-2025-0001.pdf", name)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output is not a PDF document")
	}
}

func TestReceiptsWithoutTables(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 5, 10)
	e.dropTables(t, "receipt_items", "receipts")

	list, err := e.receipt.GetReceipts(ctx, tenant, "", 1, 20)
	if err != nil {
		t.Fatalf("GetReceipts() error = %v", err)
	}
	if list.Available || list.Total != 0 || list.Receipts == nil || len(list.Receipts) != 0 {
		t.Errorf("list = %+v, want unavailable and empty", list)
	}

	_, err = e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{Type: "exit", ReceiptDate: "2025-02-10", Items: []LineItemRequest{line(p, 2, 10)}})
	if !errors.Is(err, ErrFeatureUnavailable) {
		t.Fatalf("CreateReceipt() error = %v, want feature unavailable", err)
	}
	if qty, _ := e.quantity(t, p.ID); qty != 5 {
		t.Errorf("quantity = %d, want 5 untouched", qty)
	}
}

func TestReceiptNumbersWithoutCounterTable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.seedTenant(t, "Shop", model.RoleAdmin)
	p := e.seedProduct(t, tenant, "Tea", 20, 10)
	e.dropTables(t, "document_sequences")

	tests := []struct {
		date        string
		wantRef     string
		wantInvoice string
	}{
		{"2025-02-10", "SOR-2025-0001", "FAC-2025-0001"},
		{"2025-05-03", "SOR-2025-0002", "FAC-2025-0002"},
	}
	for _, tt := range tests {
		t.Run(tt.wantRef, func(t *testing.T) {
			r, err := e.receipt.CreateReceipt(ctx, tenant, CreateReceiptRequest{Type: "exit", ReceiptDate: tt.date, IsInvoice: true, Items: []LineItemRequest{line(p, 1, 10)}})
			if err != nil {
				t.Fatalf("CreateReceipt() error = %v", err)
			}
			if r.Reference != tt.wantRef {
				t.Errorf("reference = %q, want %q", r.Reference, tt.wantRef)
			}
			if r.InvoiceNumber == nil || *r.InvoiceNumber != tt.wantInvoice {
				t.Errorf("invoice number = %v, want %q", r.InvoiceNumber, tt.wantInvoice)
			}
		})
	}
}
