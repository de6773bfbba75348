// Package export renders reports and invoices as downloadable files.
package export

import (
	"fmt"

	"stockino/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

const dateLayout = "2006-01-02"

// StockReportXLSX renders the stock report as a single-sheet workbook.
func StockReportXLSX(report model.StockReport) ([]byte, error) {
	rows := [][]interface{}{
		{"Product", "Category", "Quantity", "Unit price", "Stock value", "Status"},
	}
	for _, line := range report.Products {
		price := 0.0
		if line.Price != nil {
			price = line.Price.InexactFloat64()
		}
		rows = append(rows, []interface{}{
			line.Name,
			deref(line.Category),
			line.Quantity,
			price,
			line.Value.InexactFloat64(),
			StatusLabel(line.Status),
		})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Total products", "", report.TotalProducts},
		[]interface{}{"Total quantity", "", report.TotalQuantity},
		[]interface{}{"Total value", "", "", "", report.TotalValue.InexactFloat64()},
		[]interface{}{"Low stock", "", report.LowStockCount},
		[]interface{}{"Out of stock", "", report.OutOfStockCount},
	)
	return workbook("Stock", rows, map[string]float64{"A": 32, "B": 20, "C": 12, "D": 14, "E": 16, "F": 16})
}

// SalesReportXLSX renders the sales report as a single-sheet workbook.
func SalesReportXLSX(report model.SalesReport) ([]byte, error) {
	rows := [][]interface{}{
		{"Reference", "Date", "Items", "Amount"},
	}
	for _, line := range report.Sales {
		rows = append(rows, []interface{}{
			line.Reference,
			line.SaleDate.Format(dateLayout),
			line.ItemsCount,
			line.TotalAmount.InexactFloat64(),
		})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Period", report.StartDate.Format(dateLayout) + " / " + report.EndDate.Format(dateLayout)},
		[]interface{}{"Total sales", "", report.TotalSales},
		[]interface{}{"Total amount", "", "", report.TotalAmount.InexactFloat64()},
		[]interface{}{"Average sale", "", "", report.AverageSale.InexactFloat64()},
	)
	return workbook("Sales", rows, map[string]float64{"A": 30, "B": 24, "C": 10, "D": 16})
}

func workbook(sheet string, rows [][]interface{}, widths map[string]float64) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return nil, err
	}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatusLabel is the human readable product status.
func StatusLabel(s model.ProductStatus) string {
	switch s {
	case model.StatusInStock:
		return "In stock"
	case model.StatusLowStock:
		return "Low stock"
	case model.StatusOutOfStock:
		return "Out of stock"
	case model.StatusArchived:
		return "Archived"
	}
	return string(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
