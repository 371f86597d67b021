package handler_test

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/handler"
	"github.com/silai-boutique/api/internal/service"
	"github.com/silai-boutique/api/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockOrderService struct {
	createReq  service.CreateOrderRequest
	statusReq  service.UpdateStatusRequest
	updateReq  service.UpdateOrderRequest
	err        error
	order      database.Order
	fromStatus string
}

func (m *mockOrderService) CreateOrder(_ context.Context, req service.CreateOrderRequest) (database.Order, error) {
	m.createReq = req
	if m.err != nil {
		return database.Order{}, m.err
	}
	return database.Order{
		ID:          uuid.New(),
		BusinessID:  req.BusinessID,
		CustomerID:  req.CustomerID,
		Status:      enum.OrderStatusPending,
		Priority:    service.NormalizePriority(req.Priority),
		TotalAmount: makeNumeric(req.TotalAmount.String()),
		PaidAmount:  makeNumeric("0"),
		IsActive:    true,
	}, nil
}

func (m *mockOrderService) UpdateStatus(_ context.Context, req service.UpdateStatusRequest) (*service.StatusChange, error) {
	m.statusReq = req
	if m.err != nil {
		return nil, m.err
	}
	o := m.order
	o.Status = req.Status
	return &service.StatusChange{Order: o, FromStatus: m.fromStatus}, nil
}

func (m *mockOrderService) UpdateOrder(_ context.Context, _, _ uuid.UUID, req service.UpdateOrderRequest) (database.Order, error) {
	m.updateReq = req
	if m.err != nil {
		return database.Order{}, m.err
	}
	o := m.order
	o.TotalAmount = makeNumeric(req.TotalAmount.String())
	return o, nil
}

func (m *mockOrderService) DeleteOrder(_ context.Context, _, _ uuid.UUID) (database.Order, error) {
	return m.order, m.err
}

type mockOrderStore struct {
	orders     map[uuid.UUID]database.Order
	rows       []database.ListOrdersRow
	total      int64
	history    []database.OrderStatusHistory
	lastList   database.ListOrdersParams
	lastCount  database.CountOrdersParams
	listCalled int
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{orders: make(map[uuid.UUID]database.Order)}
}

func (m *mockOrderStore) GetOrder(_ context.Context, arg database.GetOrderParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.BusinessID != arg.BusinessID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error) {
	m.lastList = arg
	m.listCalled++
	return m.rows, nil
}

func (m *mockOrderStore) CountOrders(_ context.Context, arg database.CountOrdersParams) (int64, error) {
	m.lastCount = arg
	return m.total, nil
}

func (m *mockOrderStore) ListOrderStatusHistory(_ context.Context, _ database.ListOrderStatusHistoryParams) ([]database.OrderStatusHistory, error) {
	return m.history, nil
}

type orderFixture struct {
	svc    *mockOrderService
	store  *mockOrderStore
	events *recordingPublisher
	router http.Handler
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{svc: &mockOrderService{}, store: newMockOrderStore(), events: &recordingPublisher{}}
	h := handler.NewOrderHandler(f.svc, f.store, f.events, testLog)
	f.router = mount("/orders", h.RegisterRoutes)
	return f
}

// --- Create ---

func TestOrders_CreatePublishesEvent(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)
	customerID := uuid.New()

	rr := doRequest(t, f.router, "POST", "/orders/", staff.token, map[string]interface{}{
		"customer_id":  customerID.String(),
		"priority":     "urgent",
		"total_amount": 2500.5,
		"notes":        "double stitch",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodeObject(t, rr)
	assert.Equal(t, enum.OrderStatusPending, resp["status"])
	assert.Equal(t, enum.OrderPriorityUrgent, resp["priority"])
	assert.Equal(t, "2500.50", resp["total_amount"])
	assert.Equal(t, "2500.50", resp["remaining_amount"])

	assert.Equal(t, staff.businessID, f.svc.createReq.BusinessID)
	assert.Equal(t, staff.userID, f.svc.createReq.CreatedBy)
	assert.Nil(t, f.svc.createReq.MeasurementID)
	assert.Equal(t, []string{ws.EventOrderCreated}, f.events.types())
	assert.Equal(t, staff.businessID, f.events.events[0].businessID)
}

func TestOrders_CreateBadInput(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad customer", map[string]interface{}{"customer_id": "nope", "total_amount": 100}},
		{"bad measurement", map[string]interface{}{"customer_id": uuid.NewString(), "measurement_id": "x", "total_amount": 100}},
		{"missing total", map[string]interface{}{"customer_id": uuid.NewString()}},
		{"three decimals", map[string]interface{}{"customer_id": uuid.NewString(), "total_amount": 10.125}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, f.router, "POST", "/orders/", staff.token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
	assert.Empty(t, f.events.types())
}

func TestOrders_CreateInactiveCustomerConflict(t *testing.T) {
	f := newOrderFixture()
	f.svc.err = &service.DomainError{Class: service.ErrConflict, Message: "customer is inactive"}
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, f.router, "POST", "/orders/", staff.token, map[string]interface{}{
		"customer_id":  uuid.NewString(),
		"total_amount": 100,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, f.events.types())
}

// --- Status ---

func TestOrders_UpdateStatus(t *testing.T) {
	f := newOrderFixture()
	manager := newCaller(t, enum.UserRoleManager)
	f.svc.order = database.Order{ID: uuid.New(), BusinessID: manager.businessID, TotalAmount: makeNumeric("100"), PaidAmount: makeNumeric("0")}
	f.svc.fromStatus = enum.OrderStatusPending

	rr := doRequest(t, f.router, "PUT", "/orders/"+f.svc.order.ID.String()+"/status", manager.token, map[string]interface{}{
		"status":   " InProgress ",
		"override": true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, enum.OrderStatusInProgress, decodeObject(t, rr)["status"])

	assert.Equal(t, enum.OrderStatusInProgress, f.svc.statusReq.Status)
	assert.True(t, f.svc.statusReq.Override)
	assert.Equal(t, enum.UserRoleManager, f.svc.statusReq.Role)
	assert.Equal(t, manager.userID, f.svc.statusReq.ChangedBy)

	require.Equal(t, []string{ws.EventOrderStatusChanged}, f.events.types())
}

func TestOrders_UpdateStatusErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transition", &service.DomainError{Class: service.ErrConflict, Field: "status", Message: "cannot transition from Delivered"}, http.StatusConflict},
		{"override forbidden", service.ErrOverrideForbidden, http.StatusForbidden},
		{"not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"unknown status", &service.DomainError{Class: service.ErrValidation, Field: "status", Message: "invalid status"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			f.svc.err = tt.err
			staff := newCaller(t, enum.UserRoleStaff)

			rr := doRequest(t, f.router, "PUT", "/orders/"+uuid.NewString()+"/status", staff.token, map[string]string{"status": "Delivered"})
			assert.Equal(t, tt.want, rr.Code)
			assert.Empty(t, f.events.types())
		})
	}
}

// --- Reads ---

func TestOrders_GetScopedToBusiness(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)
	own := database.Order{ID: uuid.New(), BusinessID: staff.businessID, Status: enum.OrderStatusPending,
		TotalAmount: makeNumeric("800"), PaidAmount: makeNumeric("300"), MeasurementID: pgtype.UUID{Bytes: uuid.New(), Valid: true}}
	foreign := database.Order{ID: uuid.New(), BusinessID: uuid.New()}
	f.store.orders[own.ID] = own
	f.store.orders[foreign.ID] = foreign

	rr := doRequest(t, f.router, "GET", "/orders/"+own.ID.String(), staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeObject(t, rr)
	assert.Equal(t, "500.00", resp["remaining_amount"])
	assert.NotNil(t, resp["measurement_id"])

	rr = doRequest(t, f.router, "GET", "/orders/"+foreign.ID.String(), staff.token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrders_ListFilters(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)
	customerID := uuid.New()
	f.store.rows = []database.ListOrdersRow{{ID: uuid.New(), CustomerName: "Meera", TotalAmount: makeNumeric("10"), PaidAmount: makeNumeric("0")}}

	rr := doRequest(t, f.router, "GET", "/orders/?status=Pending&priority=express&customer_id="+customerID.String()+"&from=2024-01-01&to=2024-01-31", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rows := decodeArray(t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "Meera", rows[0].(map[string]interface{})["customer_name"])

	p := f.store.lastList
	assert.Equal(t, staff.businessID, p.BusinessID)
	assert.Equal(t, pgText(enum.OrderStatusPending), p.Status)
	assert.Equal(t, pgText(enum.OrderPriorityExpress), p.Priority)
	assert.Equal(t, customerID, uuid.UUID(p.CustomerID.Bytes))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.To.Time)
}

func TestOrders_ListRejectsBadFilters(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)

	for _, q := range []string{"status=Shipped", "customer_id=abc", "from=yesterday", "to=2024-13-01"} {
		rr := doRequest(t, f.router, "GET", "/orders/?"+q, staff.token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
	assert.Zero(t, f.store.listCalled)
}

func TestOrders_Paginated(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)
	f.store.total = 45

	rr := doRequest(t, f.router, "GET", "/orders/paginated?page=3&pageSize=20", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeObject(t, rr)
	assert.Equal(t, float64(3), resp["current_page"])
	assert.Equal(t, float64(20), resp["page_size"])
	assert.Equal(t, float64(45), resp["total_items"])
	assert.Equal(t, float64(3), resp["total_pages"])
	assert.Equal(t, int32(40), f.store.lastList.Offset)
	assert.Equal(t, staff.businessID, f.store.lastCount.BusinessID)
}

func TestOrders_PaginatedRejectsOverflowingPage(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, f.router, "GET", "/orders/paginated?page=30000000&pageSize=100", staff.token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, f.store.listCalled)

	rr = doRequest(t, f.router, "GET", "/orders/paginated?page=21474837&pageSize=100", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int32(2147483600), f.store.lastList.Offset)
}

func TestOrders_ListCapsOffset(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, f.router, "GET", "/orders/?offset=99999999999", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int32(math.MaxInt32), f.store.lastList.Offset)
}

func TestOrders_ActiveAndDue(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, f.router, "GET", "/orders/active", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, f.store.lastList.ExcludeDelivered)
	assert.False(t, f.store.lastList.DueBefore.Valid)

	rr = doRequest(t, f.router, "GET", "/orders/due?days=3", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, f.store.lastList.DueBefore.Valid)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 3), f.store.lastList.DueBefore.Time, time.Minute)

	rr = doRequest(t, f.router, "GET", "/orders/due?days=400", staff.token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrders_History(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)
	o := database.Order{ID: uuid.New(), BusinessID: staff.businessID}
	f.store.orders[o.ID] = o
	f.store.history = []database.OrderStatusHistory{
		{ID: uuid.New(), OrderID: o.ID, ToStatus: enum.OrderStatusPending},
		{ID: uuid.New(), OrderID: o.ID, FromStatus: pgText(enum.OrderStatusPending), ToStatus: enum.OrderStatusInProgress},
	}

	rr := doRequest(t, f.router, "GET", "/orders/"+o.ID.String()+"/history", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeArray(t, rr)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].(map[string]interface{})["from_status"])
	assert.Equal(t, enum.OrderStatusPending, history[1].(map[string]interface{})["from_status"])

	rr = doRequest(t, f.router, "GET", "/orders/"+uuid.NewString()+"/history", staff.token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- Update / Delete ---

func TestOrders_UpdateTotalBelowPaid(t *testing.T) {
	f := newOrderFixture()
	f.svc.err = service.ErrTotalBelowPaid
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, f.router, "PUT", "/orders/"+uuid.NewString(), staff.token, map[string]interface{}{"total_amount": 50})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "total_amount", decodeObject(t, rr)["field"])
}

func TestOrders_DeleteIsIdempotent(t *testing.T) {
	f := newOrderFixture()
	staff := newCaller(t, enum.UserRoleStaff)
	id := uuid.NewString()

	assert.Equal(t, http.StatusNoContent, doRequest(t, f.router, "DELETE", "/orders/"+id, staff.token, nil).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(t, f.router, "DELETE", "/orders/"+id, staff.token, nil).Code)

	f.svc.err = service.ErrOrderNotFound
	assert.Equal(t, http.StatusNotFound, doRequest(t, f.router, "DELETE", "/orders/"+id, staff.token, nil).Code)
}
