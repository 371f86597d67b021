package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearchStore struct {
	customers []database.Customer
	orders    []database.SearchOrdersRow
	payments  []database.Payment
	queries   []database.SearchCustomersParams
}

func (m *mockSearchStore) SearchCustomers(_ context.Context, arg database.SearchCustomersParams) ([]database.Customer, error) {
	m.queries = append(m.queries, arg)
	return m.customers, nil
}

func (m *mockSearchStore) SearchOrders(_ context.Context, _ database.SearchOrdersParams) ([]database.SearchOrdersRow, error) {
	return m.orders, nil
}

func (m *mockSearchStore) SearchPayments(_ context.Context, _ database.SearchPaymentsParams) ([]database.Payment, error) {
	return m.payments, nil
}

func newSearchRouter(store *mockSearchStore) http.Handler {
	h := handler.NewSearchHandler(store, testLog)
	return mount("/search", func(r chi.Router) {
		r.Get("/", h.Search)
	})
}

func TestSearch_AllEntities(t *testing.T) {
	store := &mockSearchStore{
		customers: []database.Customer{{ID: uuid.New(), Name: "Meera Shah"}},
		orders: []database.SearchOrdersRow{
			{ID: uuid.New(), CustomerName: "Meera Shah", Status: enum.OrderStatusPending, TotalAmount: makeNumeric("1200"), PaidAmount: makeNumeric("200")},
		},
		payments: []database.Payment{{ID: uuid.New(), Amount: makeNumeric("200"), PaymentMethod: enum.PaymentMethodCash}},
	}
	router := newSearchRouter(store)
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/search/?q=+meera+", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeObject(t, rr)
	assert.Equal(t, "meera", resp["query"])
	assert.Equal(t, float64(3), resp["total"])
	orders := resp["orders"].([]interface{})
	assert.Equal(t, "1200.00", orders[0].(map[string]interface{})["total_amount"])

	require.Len(t, store.queries, 1)
	assert.Equal(t, staff.businessID, store.queries[0].BusinessID)
	assert.Equal(t, int32(10), store.queries[0].Limit)
}

func TestSearch_QueryTooShort(t *testing.T) {
	store := &mockSearchStore{}
	router := newSearchRouter(store)
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/search/?q=a", staff.token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.queries)
}
