package export

import (
	"bytes"
	"fmt"
	"strconv"

	"stockino/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	margin   = 15.0
	rowH     = 7.0
	fontName = "Helvetica"
)

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin+5)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontName, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *document) heading(text string, size float64) {
	d.pdf.SetFont(fontName, "B", size)
	d.pdf.CellFormat(0, size*0.6, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) line(text string) {
	d.pdf.SetFont(fontName, "", 10)
	d.pdf.CellFormat(0, 5, d.tr(text), "", 1, "L", false, 0, "")
}

// table draws a header row and its body; aligns holds one alignment per column.
func (d *document) table(widths []float64, aligns []string, header []string, rows [][]string) {
	d.pdf.SetFont(fontName, "B", 9)
	d.pdf.SetFillColor(224, 235, 245)
	for i, h := range header {
		d.pdf.CellFormat(widths[i], rowH, d.tr(h), "1", 0, aligns[i], true, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont(fontName, "", 9)
	for _, row := range rows {
		for i, cell := range row {
			d.pdf.CellFormat(widths[i], rowH, d.tr(cell), "1", 0, aligns[i], false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

// total writes a right-aligned "label value" line.
func (d *document) total(label, value string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	d.pdf.SetFont(fontName, style, 10)
	d.pdf.CellFormat(140, 6, d.tr(label), "", 0, "R", false, 0, "")
	d.pdf.CellFormat(0, 6, d.tr(value), "", 1, "R", false, 0, "")
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Money formats an amount with two decimals and the euro sign.
func Money(v decimal.Decimal) string {
	return v.StringFixed(2) + " €"
}

// StockReportPDF renders the stock report as an A4 table.
func StockReportPDF(report model.StockReport) ([]byte, error) {
	d := newDocument("Stock report")
	d.heading("Stock report", 18)
	if report.OrganizationName != "" {
		d.line(report.OrganizationName)
	}
	d.line("Generated on " + report.GeneratedAt.Format("2006-01-02 15:04") + " UTC")
	d.pdf.Ln(4)

	rows := make([][]string, 0, len(report.Products))
	for _, p := range report.Products {
		price := "-"
		if p.Price != nil {
			price = Money(*p.Price)
		}
		rows = append(rows, []string{p.Name, deref(p.Category), strconv.Itoa(p.Quantity), price, Money(p.Value), StatusLabel(p.Status)})
	}
	d.table(
		[]float64{50, 30, 18, 25, 29, 28},
		[]string{"L", "L", "R", "R", "R", "L"},
		[]string{"Product", "Category", "Qty", "Unit price", "Value", "Status"},
		rows,
	)
	d.pdf.Ln(4)
	d.total("Products:", strconv.Itoa(report.TotalProducts), false)
	d.total("Total quantity:", strconv.Itoa(report.TotalQuantity), false)
	d.total("Low stock / out of stock:", fmt.Sprintf("%d / %d", report.LowStockCount, report.OutOfStockCount), false)
	d.total("Total value:", Money(report.TotalValue), true)
	return d.bytes()
}

// SalesReportPDF renders the sales of a period as an A4 table.
func SalesReportPDF(report model.SalesReport) ([]byte, error) {
	d := newDocument("Sales report")
	d.heading("Sales report", 18)
	if report.OrganizationName != "" {
		d.line(report.OrganizationName)
	}
	d.line(fmt.Sprintf("Period: %s to %s", report.StartDate.Format(dateLayout), report.EndDate.Format(dateLayout)))
	d.pdf.Ln(4)

	rows := make([][]string, 0, len(report.Sales))
	for _, s := range report.Sales {
		rows = append(rows, []string{s.Reference, s.SaleDate.Format(dateLayout), strconv.Itoa(s.ItemsCount), Money(s.TotalAmount)})
	}
	d.table(
		[]float64{70, 40, 25, 45},
		[]string{"L", "L", "R", "R"},
		[]string{"Reference", "Date", "Items", "Amount"},
		rows,
	)
	d.pdf.Ln(4)
	d.total("Sales:", strconv.Itoa(report.TotalSales), false)
	d.total("Average sale:", Money(report.AverageSale), false)
	d.total("Total:", Money(report.TotalAmount), true)
	return d.bytes()
}

// InvoicePDF renders a receipt as an invoice. Items are expected to have their
// product preloaded; a missing product prints as "Product".
func InvoicePDF(org *model.Organization, receipt *model.Receipt) ([]byte, error) {
	number := receipt.Reference
	if receipt.InvoiceNumber != nil && *receipt.InvoiceNumber != "" {
		number = *receipt.InvoiceNumber
	}

	d := newDocument("Invoice " + number)
	d.pdf.SetFont(fontName, "B", 20)
	d.pdf.CellFormat(0, 12, "INVOICE", "", 1, "C", false, 0, "")

	top := d.pdf.GetY()
	name := "Organization"
	if org != nil && org.Name != "" {
		name = org.Name
	}
	d.heading(name, 12)
	if org != nil && org.ContactEmail() != "" {
		d.line("Email: " + org.ContactEmail())
	}

	d.pdf.SetXY(120, top)
	d.pdf.SetFont(fontName, "B", 10)
	d.pdf.CellFormat(35, 6, "Invoice number:", "", 0, "L", false, 0, "")
	d.pdf.SetFont(fontName, "", 10)
	d.pdf.CellFormat(0, 6, d.tr(number), "", 1, "R", false, 0, "")
	d.pdf.SetX(120)
	d.pdf.SetFont(fontName, "B", 10)
	d.pdf.CellFormat(35, 6, "Date:", "", 0, "L", false, 0, "")
	d.pdf.SetFont(fontName, "", 10)
	d.pdf.CellFormat(0, 6, receipt.ReceiptDate.Format("02/01/2006"), "", 1, "R", false, 0, "")
	d.pdf.Ln(8)

	rows := make([][]string, 0, len(receipt.Items))
	for _, it := range receipt.Items {
		label := "Product"
		if it.Product != nil {
			label = it.Product.Name
			if it.Product.Category != nil && *it.Product.Category != "" {
				label += " (" + *it.Product.Category + ")"
			}
		}
		rows = append(rows, []string{label, strconv.Itoa(it.Quantity), Money(it.UnitPrice), Money(it.LineTotal())})
	}
	d.table(
		[]float64{90, 20, 35, 35},
		[]string{"L", "R", "R", "R"},
		[]string{"Description", "Qty", "Unit price", "Total excl. VAT"},
		rows,
	)
	d.pdf.Ln(6)
	d.total("Subtotal excl. VAT:", Money(receipt.Subtotal), false)
	d.total(fmt.Sprintf("VAT (%s%%):", receipt.VATRate.String()), Money(receipt.VATAmount), false)
	d.total("Total incl. VAT:", Money(receipt.TotalAmount), true)

	if receipt.Notes != nil && *receipt.Notes != "" {
		d.pdf.Ln(8)
		d.pdf.SetFont(fontName, "B", 9)
		d.pdf.CellFormat(0, 5, "Notes:", "", 1, "L", false, 0, "")
		d.pdf.SetFont(fontName, "", 9)
		d.pdf.MultiCell(0, 5, d.tr(*receipt.Notes), "", "L", false)
	}
	return d.bytes()
}
