package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
)

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getCustomerFn        func(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	getMeasurementFn     func(ctx context.Context, arg database.GetMeasurementParams) (database.Measurement, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderForUpdateFn  func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	updateOrderStatusFn  func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updateOrderDetailsFn func(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	deactivateOrderFn    func(ctx context.Context, arg database.DeactivateOrderParams) (database.Order, error)

	history []database.CreateOrderStatusHistoryParams
}

func (m *mockOrderStore) GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error) {
	return m.getCustomerFn(ctx, arg)
}
func (m *mockOrderStore) GetMeasurement(ctx context.Context, arg database.GetMeasurementParams) (database.Measurement, error) {
	return m.getMeasurementFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error) {
	return m.updateOrderDetailsFn(ctx, arg)
}
func (m *mockOrderStore) DeactivateOrder(ctx context.Context, arg database.DeactivateOrderParams) (database.Order, error) {
	return m.deactivateOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderStatusHistory(ctx context.Context, arg database.CreateOrderStatusHistoryParams) (database.OrderStatusHistory, error) {
	m.history = append(m.history, arg)
	return database.OrderStatusHistory{ID: uuid.New(), OrderID: arg.OrderID, ToStatus: arg.ToStatus}, nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

// newTestOrderService creates an OrderService with mocked dependencies and a fixed clock.
func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore)
	svc.now = func() time.Time { return fixedNow }
	return svc, tx
}

// defaultOrderStore knows one active customer and echoes created orders.
func defaultOrderStore(businessID, customerID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getCustomerFn: func(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error) {
			if arg.ID == customerID && arg.BusinessID == businessID {
				return database.Customer{ID: customerID, BusinessID: businessID, Name: "Asha", IsActive: true}, nil
			}
			return database.Customer{}, pgx.ErrNoRows
		},
		getMeasurementFn: func(ctx context.Context, arg database.GetMeasurementParams) (database.Measurement, error) {
			return database.Measurement{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:                    uuid.New(),
				BusinessID:            arg.BusinessID,
				CustomerID:            arg.CustomerID,
				MeasurementID:         arg.MeasurementID,
				Status:                arg.Status,
				Priority:              arg.Priority,
				OrderDate:             arg.OrderDate,
				EstimatedDeliveryDate: arg.EstimatedDeliveryDate,
				Notes:                 arg.Notes,
				TotalAmount:           arg.TotalAmount,
				PaidAmount:            makeNumeric("0"),
				IsActive:              true,
			}, nil
		},
	}
}

// storeWithOrder returns a store whose locked order is the given one and
// whose status update echoes the new values.
func storeWithOrder(order database.Order) *mockOrderStore {
	store := defaultOrderStore(order.BusinessID, order.CustomerID)
	store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
		if arg.ID == order.ID && arg.BusinessID == order.BusinessID {
			return order, nil
		}
		return database.Order{}, pgx.ErrNoRows
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		o := order
		o.Status = arg.Status
		if arg.Notes.Valid {
			o.Notes = arg.Notes
		}
		if arg.ActualDeliveryDate.Valid {
			o.ActualDeliveryDate = arg.ActualDeliveryDate
		}
		return o, nil
	}
	store.updateOrderDetailsFn = func(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error) {
		o := order
		o.TotalAmount = arg.TotalAmount
		o.Notes = arg.Notes
		o.MeasurementID = arg.MeasurementID
		return o, nil
	}
	return store
}

func activeOrder(status string) database.Order {
	return database.Order{
		ID:          uuid.New(),
		BusinessID:  uuid.New(),
		CustomerID:  uuid.New(),
		Status:      status,
		Priority:    enum.OrderPriorityRegular,
		TotalAmount: makeNumeric("1000.00"),
		PaidAmount:  makeNumeric("400.00"),
		IsActive:    true,
	}
}

// =====================
// Create
// =====================

func TestCreateOrder_DeliveryLeadTimes(t *testing.T) {
	tests := []struct {
		priority string
		want     string
		days     int
	}{
		{"Express", enum.OrderPriorityExpress, 3},
		{"urgent", enum.OrderPriorityUrgent, 7},
		{"Regular", enum.OrderPriorityRegular, 14},
		{"", enum.OrderPriorityRegular, 14},
		{"overnight", enum.OrderPriorityRegular, 14},
	}
	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			businessID, customerID := uuid.New(), uuid.New()
			store := defaultOrderStore(businessID, customerID)
			svc, tx := newTestOrderService(store)

			order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				BusinessID:  businessID,
				CustomerID:  customerID,
				Priority:    tt.priority,
				TotalAmount: dec("1000"),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if order.Priority != tt.want {
				t.Errorf("expected priority %s, got %s", tt.want, order.Priority)
			}
			if got := order.EstimatedDeliveryDate.Sub(order.OrderDate); got != time.Duration(tt.days)*24*time.Hour {
				t.Errorf("expected %d days lead time, got %v", tt.days, got)
			}
			if !order.OrderDate.Equal(fixedNow) {
				t.Errorf("expected order date %v, got %v", fixedNow, order.OrderDate)
			}
			if !tx.committed {
				t.Error("expected commit")
			}
		})
	}
}

func TestCreateOrder_ScenarioRemainingEqualsTotal(t *testing.T) {
	businessID, customerID := uuid.New(), uuid.New()
	store := defaultOrderStore(businessID, customerID)
	svc, _ := newTestOrderService(store)

	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BusinessID:  businessID,
		CustomerID:  customerID,
		Priority:    "Express",
		TotalAmount: dec("1000"),
		CreatedBy:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !RemainingAmount(order).Equal(dec("1000")) {
		t.Errorf("expected remaining 1000, got %s", RemainingAmount(order))
	}
	if order.Status != enum.OrderStatusPending {
		t.Errorf("expected Pending, got %s", order.Status)
	}
	if len(store.history) != 1 || store.history[0].FromStatus.Valid || store.history[0].ToStatus != enum.OrderStatusPending {
		t.Errorf("expected a single initial history entry, got %+v", store.history)
	}
}

func TestCreateOrder_InvalidTotal(t *testing.T) {
	svc, _ := newTestOrderService(defaultOrderStore(uuid.New(), uuid.New()))
	for _, total := range []string{"0", "-5", "100000000", "99999999.999"} {
		_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{TotalAmount: dec(total)})
		if !errors.Is(err, ErrInvalidTotalAmount) {
			t.Fatalf("total %s: expected ErrInvalidTotalAmount, got: %v", total, err)
		}
	}
}

func TestCreateOrder_CustomerFromOtherBusiness(t *testing.T) {
	customerID := uuid.New()
	store := defaultOrderStore(uuid.New(), customerID)
	svc, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BusinessID:  uuid.New(),
		CustomerID:  customerID,
		TotalAmount: dec("100"),
	})
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got: %v", err)
	}
}

func TestCreateOrder_MeasurementOfOtherCustomer(t *testing.T) {
	businessID, customerID := uuid.New(), uuid.New()
	measurementID := uuid.New()
	store := defaultOrderStore(businessID, customerID)
	store.getMeasurementFn = func(ctx context.Context, arg database.GetMeasurementParams) (database.Measurement, error) {
		return database.Measurement{ID: measurementID, BusinessID: businessID, CustomerID: uuid.New()}, nil
	}
	svc, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BusinessID:    businessID,
		CustomerID:    customerID,
		MeasurementID: &measurementID,
		TotalAmount:   dec("100"),
	})
	assertClass(t, err, ErrValidation)
}

// =====================
// Status
// =====================

func TestUpdateStatus_ForwardStep(t *testing.T) {
	order := activeOrder(enum.OrderStatusPending)
	store := storeWithOrder(order)
	svc, tx := newTestOrderService(store)

	notes := "cutting started"
	change, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: order.BusinessID,
		OrderID:    order.ID,
		Status:     enum.OrderStatusInProgress,
		Notes:      &notes,
		Role:       enum.UserRoleStaff,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.FromStatus != enum.OrderStatusPending || change.Order.Status != enum.OrderStatusInProgress {
		t.Errorf("unexpected change: %+v", change)
	}
	if change.Order.ActualDeliveryDate.Valid {
		t.Error("actual delivery date must only be set on Delivered")
	}
	if len(store.history) != 1 || store.history[0].FromStatus.String != enum.OrderStatusPending {
		t.Errorf("expected history row, got %+v", store.history)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
}

func TestUpdateStatus_DeliveredSetsDate(t *testing.T) {
	order := activeOrder(enum.OrderStatusReadyForDelivery)
	svc, _ := newTestOrderService(storeWithOrder(order))

	change, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: order.BusinessID,
		OrderID:    order.ID,
		Status:     enum.OrderStatusDelivered,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !change.Order.ActualDeliveryDate.Valid || !change.Order.ActualDeliveryDate.Time.Equal(fixedNow) {
		t.Errorf("expected actual delivery date %v, got %+v", fixedNow, change.Order.ActualDeliveryDate)
	}
}

func TestUpdateStatus_SkipRejected(t *testing.T) {
	tests := []struct{ from, to string }{
		{enum.OrderStatusPending, enum.OrderStatusDelivered},
		{enum.OrderStatusPending, enum.OrderStatusReadyForDelivery},
		{enum.OrderStatusReadyForDelivery, enum.OrderStatusInProgress},
		{enum.OrderStatusDelivered, enum.OrderStatusPending},
		{enum.OrderStatusInProgress, enum.OrderStatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			order := activeOrder(tt.from)
			store := storeWithOrder(order)
			svc, tx := newTestOrderService(store)

			_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
				BusinessID: order.BusinessID,
				OrderID:    order.ID,
				Status:     tt.to,
				Role:       enum.UserRoleOwner,
			})
			assertClass(t, err, ErrConflict)
			if tx.committed || len(store.history) != 0 {
				t.Error("rejected transition must not write")
			}
		})
	}
}

func TestUpdateStatus_Override(t *testing.T) {
	order := activeOrder(enum.OrderStatusPending)
	svc, _ := newTestOrderService(storeWithOrder(order))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: order.BusinessID,
		OrderID:    order.ID,
		Status:     enum.OrderStatusDelivered,
		Override:   true,
		Role:       enum.UserRoleStaff,
	})
	if !errors.Is(err, ErrOverrideForbidden) {
		t.Fatalf("expected ErrOverrideForbidden, got: %v", err)
	}

	change, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: order.BusinessID,
		OrderID:    order.ID,
		Status:     enum.OrderStatusDelivered,
		Override:   true,
		Role:       enum.UserRoleManager,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.Order.Status != enum.OrderStatusDelivered {
		t.Errorf("expected Delivered, got %s", change.Order.Status)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	order := activeOrder(enum.OrderStatusPending)
	svc, _ := newTestOrderService(storeWithOrder(order))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: order.BusinessID, OrderID: order.ID, Status: "Shipped",
	})
	assertClass(t, err, ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: uuid.New(), OrderID: order.ID, Status: enum.OrderStatusInProgress,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}

	inactive := activeOrder(enum.OrderStatusPending)
	inactive.IsActive = false
	svc, _ = newTestOrderService(storeWithOrder(inactive))
	_, err = svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		BusinessID: inactive.BusinessID, OrderID: inactive.ID, Status: enum.OrderStatusInProgress,
	})
	if !errors.Is(err, ErrOrderInactive) {
		t.Fatalf("expected ErrOrderInactive, got: %v", err)
	}
}

// =====================
// Update / delete
// =====================

func TestUpdateOrder_TotalBelowPaid(t *testing.T) {
	order := activeOrder(enum.OrderStatusPending)
	svc, _ := newTestOrderService(storeWithOrder(order))

	_, err := svc.UpdateOrder(context.Background(), order.BusinessID, order.ID, UpdateOrderRequest{TotalAmount: dec("399.99")})
	if !errors.Is(err, ErrTotalBelowPaid) {
		t.Fatalf("expected ErrTotalBelowPaid, got: %v", err)
	}

	updated, err := svc.UpdateOrder(context.Background(), order.BusinessID, order.ID, UpdateOrderRequest{TotalAmount: dec("400"), Notes: "final"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !RemainingAmount(updated).IsZero() {
		t.Errorf("expected remaining 0, got %s", RemainingAmount(updated))
	}
	if updated.Notes.String != "final" {
		t.Errorf("expected notes to be replaced, got %+v", updated.Notes)
	}
}

func TestUpdateOrder_TotalBeyondColumn(t *testing.T) {
	order := activeOrder(enum.OrderStatusPending)
	svc, _ := newTestOrderService(storeWithOrder(order))

	_, err := svc.UpdateOrder(context.Background(), order.BusinessID, order.ID, UpdateOrderRequest{TotalAmount: dec("100000000")})
	if !errors.Is(err, ErrInvalidTotalAmount) {
		t.Fatalf("expected ErrInvalidTotalAmount, got: %v", err)
	}

	if _, err := svc.UpdateOrder(context.Background(), order.BusinessID, order.ID, UpdateOrderRequest{TotalAmount: dec("99999999.99")}); err != nil {
		t.Fatalf("largest total should be accepted, got: %v", err)
	}
}

func TestDeleteOrder_Idempotent(t *testing.T) {
	order := activeOrder(enum.OrderStatusInProgress)
	store := storeWithOrder(order)
	calls := 0
	store.deactivateOrderFn = func(ctx context.Context, arg database.DeactivateOrderParams) (database.Order, error) {
		if arg.ID != order.ID || arg.BusinessID != order.BusinessID {
			return database.Order{}, pgx.ErrNoRows
		}
		calls++
		o := order
		o.IsActive = false
		return o, nil
	}
	svc, _ := newTestOrderService(store)

	for i := 0; i < 2; i++ {
		got, err := svc.DeleteOrder(context.Background(), order.BusinessID, order.ID)
		if err != nil {
			t.Fatalf("delete #%d: unexpected error: %v", i+1, err)
		}
		if got.IsActive {
			t.Errorf("delete #%d: expected inactive order", i+1)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 deactivate calls, got %d", calls)
	}

	if _, err := svc.DeleteOrder(context.Background(), uuid.New(), order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestNumericHelpers(t *testing.T) {
	n := decimalToNumeric(dec("12.5"))
	if !numericEquals(n, "12.50") {
		t.Errorf("expected 12.50, got %v", numericToDecimal(n))
	}
	if !numericToDecimal(pgtype.Numeric{}).IsZero() {
		t.Error("invalid numeric must convert to zero")
	}
}
