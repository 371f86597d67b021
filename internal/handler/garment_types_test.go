package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/handler"
	"github.com/silai-boutique/api/internal/measure"
	"github.com/silai-boutique/api/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGarmentStore struct {
	types map[uuid.UUID]database.GarmentType
	refs  map[uuid.UUID]int64
}

func newMockGarmentStore() *mockGarmentStore {
	return &mockGarmentStore{types: make(map[uuid.UUID]database.GarmentType), refs: make(map[uuid.UUID]int64)}
}

func (m *mockGarmentStore) add(name string) database.GarmentType {
	g := database.GarmentType{ID: uuid.New(), Name: name}
	m.types[g.ID] = g
	return g
}

func (m *mockGarmentStore) nameTaken(name string, self uuid.UUID) bool {
	for _, g := range m.types {
		if g.ID != self && strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

func (m *mockGarmentStore) ListGarmentTypes(_ context.Context) ([]database.GarmentType, error) {
	out := make([]database.GarmentType, 0, len(m.types))
	for _, g := range m.types {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockGarmentStore) GetGarmentType(_ context.Context, id uuid.UUID) (database.GarmentType, error) {
	g, ok := m.types[id]
	if !ok {
		return database.GarmentType{}, pgx.ErrNoRows
	}
	return g, nil
}

func (m *mockGarmentStore) CreateGarmentType(_ context.Context, name string) (database.GarmentType, error) {
	if m.nameTaken(name, uuid.Nil) {
		return database.GarmentType{}, &pgconn.PgError{Code: "23505", ConstraintName: database.ConstraintGarmentName}
	}
	return m.add(name), nil
}

func (m *mockGarmentStore) UpdateGarmentType(_ context.Context, arg database.UpdateGarmentTypeParams) (database.GarmentType, error) {
	g, ok := m.types[arg.ID]
	if !ok {
		return database.GarmentType{}, pgx.ErrNoRows
	}
	if m.nameTaken(arg.Name, arg.ID) {
		return database.GarmentType{}, &pgconn.PgError{Code: "23505", ConstraintName: database.ConstraintGarmentName}
	}
	g.Name = arg.Name
	m.types[g.ID] = g
	return g, nil
}

func (m *mockGarmentStore) DeleteGarmentType(_ context.Context, id uuid.UUID) (int64, error) {
	if _, ok := m.types[id]; !ok {
		return 0, nil
	}
	delete(m.types, id)
	return 1, nil
}

func (m *mockGarmentStore) CountGarmentTypeReferences(_ context.Context, id uuid.UUID) (int64, error) {
	return m.refs[id], nil
}

func newGarmentRouter(store *mockGarmentStore) http.Handler {
	h := handler.NewGarmentTypeHandler(store, testLog)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Route("/garment-types", h.RegisterRoutes)
		r.Get("/garment-templates", h.Templates)
	})
	return r
}

func TestGarmentTypes_ListOpenToStaff(t *testing.T) {
	store := newMockGarmentStore()
	store.add("Kurta")
	store.add("Blouse")
	router := newGarmentRouter(store)
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/garment-types/", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeArray(t, rr), 2)
}

func TestGarmentTypes_WritesRequireAdmin(t *testing.T) {
	store := newMockGarmentStore()
	g := store.add("Kurta")
	router := newGarmentRouter(store)
	owner := newCaller(t, enum.UserRoleOwner)

	assert.Equal(t, http.StatusForbidden, doRequest(t, router, "POST", "/garment-types/", owner.token, map[string]string{"name": "Sherwani"}).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, "PUT", "/garment-types/"+g.ID.String(), owner.token, map[string]string{"name": "X"}).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, "DELETE", "/garment-types/"+g.ID.String(), owner.token, nil).Code)
	assert.Len(t, store.types, 1)
}

func TestGarmentTypes_AdminCreateDuplicate(t *testing.T) {
	store := newMockGarmentStore()
	store.add("Kurta")
	router := newGarmentRouter(store)
	admin := newCaller(t, enum.UserRoleAdmin)

	rr := doRequest(t, router, "POST", "/garment-types/", admin.token, map[string]string{"name": "  Sherwani "})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Sherwani", decodeObject(t, rr)["name"])

	rr = doRequest(t, router, "POST", "/garment-types/", admin.token, map[string]string{"name": "kurta"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, "POST", "/garment-types/", admin.token, map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGarmentTypes_AdminUpdate(t *testing.T) {
	store := newMockGarmentStore()
	g := store.add("Kurta")
	store.add("Shirt")
	router := newGarmentRouter(store)
	admin := newCaller(t, enum.UserRoleAdmin)

	rr := doRequest(t, router, "PUT", "/garment-types/"+g.ID.String(), admin.token, map[string]string{"name": "Kurti"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Kurti", store.types[g.ID].Name)

	rr = doRequest(t, router, "PUT", "/garment-types/"+g.ID.String(), admin.token, map[string]string{"name": "Shirt"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, "PUT", "/garment-types/"+uuid.NewString(), admin.token, map[string]string{"name": "Other"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGarmentTypes_DeleteReferencedConflict(t *testing.T) {
	store := newMockGarmentStore()
	used := store.add("Kurta")
	unused := store.add("Frock")
	store.refs[used.ID] = 3
	router := newGarmentRouter(store)
	admin := newCaller(t, enum.UserRoleAdmin)

	assert.Equal(t, http.StatusConflict, doRequest(t, router, "DELETE", "/garment-types/"+used.ID.String(), admin.token, nil).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(t, router, "DELETE", "/garment-types/"+unused.ID.String(), admin.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, "DELETE", "/garment-types/"+unused.ID.String(), admin.token, nil).Code)
}

func TestGarmentTemplates(t *testing.T) {
	router := newGarmentRouter(newMockGarmentStore())
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/garment-templates", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeArray(t, rr), len(measure.Templates()))
}
