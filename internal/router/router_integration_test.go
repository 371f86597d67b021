//go:build integration

package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/silai-boutique/api/internal/config"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/router"
	"github.com/silai-boutique/api/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// TestIntegrationFlow runs the tailoring lifecycle against a real PostgreSQL:
// register, customer, measurement session, order, status, payments, summary.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr := setupPostgresContainer(t, ctx)
	require.NoError(t, database.Migrate(connStr, "../../migrations", false))

	pool, err := database.Connect(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	log := zap.NewNop()
	cfg := &config.Config{
		DatabaseURL:        connStr,
		JWTSecret:          "integration-test-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		RateLimitPerMinute: 1000,
		WriteTimeout:       30 * time.Second,
		AnalyticsCacheTTL:  time.Minute,
	}
	queries := database.New(pool)
	hub := ws.NewHub(log)
	go hub.Run(ctx)

	server := httptest.NewServer(router.New(router.Deps{
		Config:  cfg,
		Pool:    pool,
		Queries: queries,
		Hub:     hub,
		Log:     log,
	}))
	defer server.Close()

	garment, err := queries.CreateGarmentType(ctx, "T-Shirt")
	require.NoError(t, err)

	// 1. Register a business and its owner.
	auth := call(t, server, "POST", "/auth/register", "", map[string]interface{}{
		"business_name": "Silai Studio",
		"full_name":     "Test Owner",
		"email":         "owner@test.com",
		"password":      "password123",
	}, http.StatusCreated)
	token := auth["access_token"].(string)
	require.NotEmpty(t, token)

	login := call(t, server, "POST", "/auth/login", "", map[string]interface{}{
		"email": "owner@test.com", "password": "password123",
	}, http.StatusOK)
	assert.Equal(t, "OWNER", login["user"].(map[string]interface{})["role"])

	// 2. Customer.
	customer := call(t, server, "POST", "/customers", token, map[string]interface{}{
		"name": "Ravi Kumar", "email": "ravi@example.com", "phone": "9876543210", "gender": "M",
	}, http.StatusCreated)
	customerID := customer["id"].(string)

	call(t, server, "POST", "/customers", token, map[string]interface{}{
		"name": "Someone Else", "email": "RAVI@example.com", "phone": "9000000000",
	}, http.StatusConflict)

	// 3. Measurement session resolved from garment and gender.
	session := call(t, server, "POST", "/measurement-sessions", token, map[string]interface{}{
		"customer_id":     customerID,
		"garment_type_id": garment.ID.String(),
		"fabric_color":    "navy",
		"values": map[string]interface{}{
			"chest": 40, "waist": 36, "shoulder_width": 18, "sleeve_length": 8,
			"armhole": 20, "sleeve_circumference": 14, "tshirt_length": 28, "neck_width": 7,
		},
	}, http.StatusCreated)
	assert.Equal(t, "tshirt_men", session["template"])
	sessionID := session["id"].(string)

	// 4. Order.
	order := call(t, server, "POST", "/orders", token, map[string]interface{}{
		"customer_id":    customerID,
		"measurement_id": sessionID,
		"priority":       "Regular",
		"total_amount":   2500,
	}, http.StatusCreated)
	orderID := order["id"].(string)
	assert.Equal(t, "Pending", order["status"])
	assert.Equal(t, "2500.00", order["remaining_amount"])

	// 5. Strict next-step transitions.
	call(t, server, "PUT", "/orders/"+orderID+"/status", token, map[string]interface{}{
		"status": "Delivered",
	}, http.StatusConflict)
	updated := call(t, server, "PUT", "/orders/"+orderID+"/status", token, map[string]interface{}{
		"status": "InProgress",
	}, http.StatusOK)
	assert.Equal(t, "InProgress", updated["status"])

	// 6. Payments reconcile the paid amount.
	first := call(t, server, "POST", "/payments", token, map[string]interface{}{
		"order_id": orderID, "amount": 1000, "payment_method": "Cash",
	}, http.StatusCreated)
	assert.Equal(t, "1000.00", first["order"].(map[string]interface{})["paid_amount"])

	call(t, server, "POST", "/payments", token, map[string]interface{}{
		"order_id": orderID, "amount": 2000, "payment_method": "UPI",
	}, http.StatusBadRequest)

	second := call(t, server, "POST", "/payments", token, map[string]interface{}{
		"order_id": orderID, "amount": 1500, "payment_method": "UPI", "transaction_id": "UPI-42",
	}, http.StatusCreated)
	assert.Equal(t, "0.00", second["order"].(map[string]interface{})["remaining_amount"])

	// 7. Customer summary.
	summary := call(t, server, "GET", "/customers/"+customerID+"/summary", token, nil, http.StatusOK)
	assert.Equal(t, float64(1), summary["total_orders"])
	assert.Equal(t, "2500.00", summary["paid_amount"])
	assert.Equal(t, "0.00", summary["pending_balance"])

	// 8. A customer with records cannot be deleted.
	call(t, server, "DELETE", "/customers/"+customerID, token, nil, http.StatusConflict)

	history := callArray(t, server, "/orders/"+orderID+"/history", token)
	assert.Len(t, history, 2)
}

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("boutique_test"),
		tcpostgres.WithUsername("boutique"),
		tcpostgres.WithPassword("boutique"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func send(t *testing.T, server *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func call(t *testing.T, server *httptest.Server, method, path, token string, body interface{}, want int) map[string]interface{} {
	t.Helper()
	resp := send(t, server, method, path, token, body)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	require.Equal(t, want, resp.StatusCode, fmt.Sprintf("%s %s: %v", method, path, out))
	return out
}

func callArray(t *testing.T, server *httptest.Server, path, token string) []interface{} {
	t.Helper()
	resp := send(t, server, "GET", path, token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
