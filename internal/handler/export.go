package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/silai-boutique/api/internal/database"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxExportRows   = 10000
)

// ExportStore defines the database methods needed by spreadsheet exports.
// Satisfied by *database.Queries.
type ExportStore interface {
	ListAllCustomers(ctx context.Context, businessID uuid.UUID) ([]database.Customer, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
}

// ExportHandler streams business records as .xlsx workbooks.
type ExportHandler struct {
	store ExportStore
	log   *zap.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(store ExportStore, log *zap.Logger) *ExportHandler {
	return &ExportHandler{store: store, log: log}
}

// RegisterRoutes registers export endpoints. Expected to be mounted at
// /exports behind RequireRole(OWNER, MANAGER).
func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers.xlsx", h.Customers)
	r.Get("/orders.xlsx", h.Orders)
	r.Get("/payments.xlsx", h.Payments)
}

// Customers exports every customer, active or not.
func (h *ExportHandler) Customers(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	customers, err := h.store.ListAllCustomers(r.Context(), claims.BusinessID)
	if err != nil {
		writeInternalError(w, h.log, "export customers", err)
		return
	}

	rows := make([][]interface{}, len(customers))
	for i, c := range customers {
		rows[i] = []interface{}{c.Name, c.Email, c.Phone, c.Address, c.Gender, c.IsActive, c.CreatedAt.Format("2006-01-02")}
	}
	h.writeWorkbook(w, "customers.xlsx", "Customers",
		[]string{"Name", "Email", "Phone", "Address", "Gender", "Active", "Created"}, rows)
}

// Orders exports orders dated within ?from= and ?to=.
func (h *ExportHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	from, err := parseDateParam(r.URL.Query().Get("from"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
		return
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		BusinessID:      claims.BusinessID,
		IncludeInactive: true,
		From:            from,
		To:              to,
		Limit:           maxExportRows,
	})
	if err != nil {
		writeInternalError(w, h.log, "export orders", err)
		return
	}

	rows := make([][]interface{}, len(orders))
	for i, o := range orders {
		resp := listRowToOrderResponse(o)
		delivered := ""
		if resp.ActualDeliveryDate != nil {
			delivered = resp.ActualDeliveryDate.Format("2006-01-02")
		}
		rows[i] = []interface{}{
			o.ID.String(), o.CustomerName, o.Status, o.Priority,
			o.OrderDate.Format("2006-01-02"), o.EstimatedDeliveryDate.Format("2006-01-02"), delivered,
			resp.TotalAmount, resp.PaidAmount, resp.RemainingAmount, o.IsActive,
		}
	}
	h.writeWorkbook(w, "orders.xlsx", "Orders",
		[]string{"Order ID", "Customer", "Status", "Priority", "Order Date", "Estimated Delivery", "Delivered",
			"Total", "Paid", "Remaining", "Active"}, rows)
}

// Payments exports payments dated within ?from= and ?to=.
func (h *ExportHandler) Payments(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	from, err := parseDateParam(r.URL.Query().Get("from"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
		return
	}

	payments, err := h.store.ListPayments(r.Context(), database.ListPaymentsParams{
		BusinessID: claims.BusinessID,
		From:       from,
		To:         to,
	})
	if err != nil {
		writeInternalError(w, h.log, "export payments", err)
		return
	}

	rows := make([][]interface{}, len(payments))
	for i, p := range payments {
		txID := ""
		if p.TransactionID.Valid {
			txID = p.TransactionID.String
		}
		rows[i] = []interface{}{
			p.ID.String(), p.OrderID.String(), p.PaymentDate.Format("2006-01-02"),
			numericToString(p.Amount), p.PaymentMethod, p.Status, txID,
		}
	}
	h.writeWorkbook(w, "payments.xlsx", "Payments",
		[]string{"Payment ID", "Order ID", "Date", "Amount", "Method", "Status", "Transaction ID"}, rows)
}

func (h *ExportHandler) writeWorkbook(w http.ResponseWriter, filename, sheet string, header []string, rows [][]interface{}) {
	data, err := buildWorkbook(sheet, header, rows)
	if err != nil {
		writeInternalError(w, h.log, "build "+filename, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// buildWorkbook writes a single-sheet workbook with a bold header row.
func buildWorkbook(sheet string, header []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, err
		}
	}
	for r, values := range rows {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
