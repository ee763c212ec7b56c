package excel

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/ops-portal/internal/domain/products"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
)

// ContentType is the MIME type of every workbook produced here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Stock sheet layout. The count column is left blank on export and filled in by whoever
// does the stock-take.
const (
	colSKU   = 0
	colCount = 5
	minCols  = 6
)

var stockHeader = []interface{}{"sku", "name", "brand", "stock", "price", "count"}

// StockRow is one filled-in line of a stock-take sheet.
type StockRow struct {
	Line   int
	SKU    string
	Target int64
}

// RowError points at the offending spreadsheet line (1-based, header is line 1).
type RowError struct {
	Line  int
	Value string
	Msg   string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s (%q)", e.Line, e.Msg, e.Value)
}

// ExportStock writes the product list as a stock-take sheet.
func ExportStock(ps []products.Product) ([]byte, error) {
	rows := make([][]interface{}, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []interface{}{
			p.SKU,
			p.Name,
			p.BrandName,
			p.Stock,
			p.Price.StringFixed(2),
			"", // count
		})
	}
	return write(stockHeader, rows)
}

// ParseStock reads a stock-take sheet. Lines without a SKU are ignored and so are lines
// whose count cell is empty, which leaves that product untouched.
func ParseStock(r io.Reader) ([]StockRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("excel: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("excel: read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, &RowError{Line: 1, Msg: "sheet has no product lines"}
	}
	if len(rows[0]) < minCols {
		return nil, &RowError{Line: 1, Value: strings.Join(rows[0], ","), Msg: fmt.Sprintf("expected at least %d columns", minCols)}
	}

	seen := make(map[string]int)
	var out []StockRow
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		if len(row) <= colSKU {
			continue
		}
		sku := strings.TrimSpace(row[colSKU])
		if sku == "" {
			continue
		}
		if len(row) <= colCount {
			continue
		}
		countStr := strings.TrimSpace(row[colCount])
		if countStr == "" {
			continue
		}

		n, err := strconv.ParseInt(countStr, 10, 64)
		if err != nil || n < 0 {
			return nil, &RowError{Line: line, Value: countStr, Msg: "count must be a non-negative whole number"}
		}
		if prev, ok := seen[sku]; ok {
			return nil, &RowError{Line: line, Value: sku, Msg: fmt.Sprintf("sku already counted on line %d", prev)}
		}
		seen[sku] = line
		out = append(out, StockRow{Line: line, SKU: sku, Target: n})
	}
	return out, nil
}

var workorderHeader = []interface{}{
	"workorder_id", "invoice_id", "customer", "salesperson", "status",
	"delivery_suburb", "delivery_state", "estimated_completion",
	"items_done", "items_total", "technicians", "outstanding_balance", "important", "date_created",
}

// ExportWorkorders writes one line per work order summary.
func ExportWorkorders(list []workorders.Summary) ([]byte, error) {
	rows := make([][]interface{}, 0, len(list))
	for _, s := range list {
		eta := ""
		if s.EstimatedCompletion != nil {
			eta = s.EstimatedCompletion.Format("2006-01-02")
		}
		rows = append(rows, []interface{}{
			s.ID,
			s.InvoiceID,
			s.CustomerName,
			s.Salesperson,
			string(s.Status),
			s.DeliverySuburb,
			s.DeliveryState,
			eta,
			s.ItemsDone,
			s.ItemsTotal,
			strings.Join(s.Technicians, " "),
			s.OutstandingBalance.StringFixed(2),
			s.Important,
			s.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return write(workorderHeader, rows)
}

func write(header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("excel: header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("excel: cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, fmt.Errorf("excel: row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("excel: write: %w", err)
	}
	return buf.Bytes(), nil
}
