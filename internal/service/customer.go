package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/silai-boutique/api/internal/database"
)

// CustomerStore defines the DB methods needed by the customer registry.
// Satisfied by *database.Queries.
type CustomerStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	GetCustomerByEmail(ctx context.Context, arg database.GetCustomerByEmailParams) (database.Customer, error)
	GetCustomerByPhone(ctx context.Context, arg database.GetCustomerByPhoneParams) (database.Customer, error)
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	SetCustomerActive(ctx context.Context, arg database.SetCustomerActiveParams) (database.Customer, error)
	DeleteCustomer(ctx context.Context, arg database.DeleteCustomerParams) (int64, error)
	CountCustomerDependents(ctx context.Context, arg database.CountCustomerDependentsParams) (database.CountCustomerDependentsRow, error)
}

// CustomerInput is the full customer record accepted on create and update.
type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=100"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required,max=200"`
	Gender  string `json:"gender" validate:"max=10"`
}

// CustomerListParams filters a customer listing.
type CustomerListParams struct {
	Search          string
	IncludeInactive bool
	Limit           int32
	Offset          int32
}

// CustomerService owns customer identity and uniqueness rules.
type CustomerService struct {
	store CustomerStore
}

func NewCustomerService(store CustomerStore) *CustomerService {
	return &CustomerService{store: store}
}

// NormalizePhone strips every non-digit character.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (in *CustomerInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.Gender = strings.TrimSpace(in.Gender)
	if err := validateStruct(in); err != nil {
		return err
	}
	in.Phone = NormalizePhone(in.Phone)
	if len(in.Phone) != 10 {
		return validationError("phone", "phone must contain exactly 10 digits")
	}
	return nil
}

func (s *CustomerService) Get(ctx context.Context, businessID, id uuid.UUID) (database.Customer, error) {
	c, err := s.store.GetCustomer(ctx, database.GetCustomerParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return database.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context, businessID uuid.UUID, p CustomerListParams) ([]database.Customer, error) {
	search := pgtype.Text{}
	if q := strings.TrimSpace(p.Search); q != "" {
		search = pgtype.Text{String: q, Valid: true}
	}
	customers, err := s.store.ListCustomers(ctx, database.ListCustomersParams{
		BusinessID:      businessID,
		IncludeInactive: p.IncludeInactive,
		Search:          search,
		Limit:           p.Limit,
		Offset:          p.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// Create registers a customer under businessID. Email and phone must be
// unique within the business; the unique indexes are authoritative.
func (s *CustomerService) Create(ctx context.Context, businessID uuid.UUID, in CustomerInput) (database.Customer, error) {
	if err := in.normalize(); err != nil {
		return database.Customer{}, err
	}
	if err := s.checkDuplicates(ctx, businessID, uuid.Nil, in.Email, in.Phone); err != nil {
		return database.Customer{}, err
	}

	c, err := s.store.CreateCustomer(ctx, database.CreateCustomerParams{
		BusinessID: businessID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		Gender:     in.Gender,
	})
	if err != nil {
		if dup := duplicateCustomerError(err); dup != nil {
			return database.Customer{}, dup
		}
		return database.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// Update replaces every field of an existing customer.
func (s *CustomerService) Update(ctx context.Context, businessID, id uuid.UUID, in CustomerInput) (database.Customer, error) {
	if err := in.normalize(); err != nil {
		return database.Customer{}, err
	}
	if _, err := s.Get(ctx, businessID, id); err != nil {
		return database.Customer{}, err
	}
	if err := s.checkDuplicates(ctx, businessID, id, in.Email, in.Phone); err != nil {
		return database.Customer{}, err
	}

	c, err := s.store.UpdateCustomer(ctx, database.UpdateCustomerParams{
		ID:         id,
		BusinessID: businessID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		Gender:     in.Gender,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		if dup := duplicateCustomerError(err); dup != nil {
			return database.Customer{}, dup
		}
		return database.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

// Delete hard-deletes a customer that has no orders, measurements or payments.
func (s *CustomerService) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	if _, err := s.Get(ctx, businessID, id); err != nil {
		return err
	}
	deps, err := s.store.CountCustomerDependents(ctx, database.CountCustomerDependentsParams{
		CustomerID: id,
		BusinessID: businessID,
	})
	if err != nil {
		return fmt.Errorf("count customer dependents: %w", err)
	}
	if deps.Orders > 0 || deps.Measurements > 0 || deps.Payments > 0 {
		return ErrCustomerHasRecords
	}

	n, err := s.store.DeleteCustomer(ctx, database.DeleteCustomerParams{ID: id, BusinessID: businessID})
	if err != nil {
		// A dependent inserted after the count above.
		if database.IsForeignKeyViolation(err) {
			return ErrCustomerHasRecords
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	if n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// SetActive toggles the soft-delete flag.
func (s *CustomerService) SetActive(ctx context.Context, businessID, id uuid.UUID, active bool) (database.Customer, error) {
	c, err := s.store.SetCustomerActive(ctx, database.SetCustomerActiveParams{
		ID:         id,
		BusinessID: businessID,
		IsActive:   active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return database.Customer{}, fmt.Errorf("set customer active: %w", err)
	}
	return c, nil
}

// FindByEmail matches case-insensitively.
func (s *CustomerService) FindByEmail(ctx context.Context, businessID uuid.UUID, email string) (database.Customer, error) {
	c, err := s.store.GetCustomerByEmail(ctx, database.GetCustomerByEmailParams{
		BusinessID: businessID,
		Email:      strings.TrimSpace(email),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return database.Customer{}, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

// FindByPhone matches the normalized digits exactly.
func (s *CustomerService) FindByPhone(ctx context.Context, businessID uuid.UUID, phone string) (database.Customer, error) {
	c, err := s.store.GetCustomerByPhone(ctx, database.GetCustomerByPhoneParams{
		BusinessID: businessID,
		Phone:      NormalizePhone(phone),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return database.Customer{}, fmt.Errorf("get customer by phone: %w", err)
	}
	return c, nil
}

// DuplicateCheck reports whether the email and phone are already taken.
type DuplicateCheck struct {
	EmailExists bool `json:"email_exists"`
	PhoneExists bool `json:"phone_exists"`
}

func (s *CustomerService) CheckDuplicate(ctx context.Context, businessID uuid.UUID, email, phone string) (DuplicateCheck, error) {
	var out DuplicateCheck
	if strings.TrimSpace(email) != "" {
		_, err := s.FindByEmail(ctx, businessID, email)
		switch {
		case err == nil:
			out.EmailExists = true
		case !errors.Is(err, ErrNotFound):
			return out, err
		}
	}
	if NormalizePhone(phone) != "" {
		_, err := s.FindByPhone(ctx, businessID, phone)
		switch {
		case err == nil:
			out.PhoneExists = true
		case !errors.Is(err, ErrNotFound):
			return out, err
		}
	}
	return out, nil
}

// checkDuplicates is the fast path ahead of the unique indexes. self is
// excluded so an update may keep its own email and phone.
func (s *CustomerService) checkDuplicates(ctx context.Context, businessID, self uuid.UUID, email, phone string) error {
	c, err := s.FindByEmail(ctx, businessID, email)
	if err == nil && c.ID != self {
		return ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	c, err = s.FindByPhone(ctx, businessID, phone)
	if err == nil && c.ID != self {
		return ErrDuplicatePhone
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func duplicateCustomerError(err error) error {
	switch {
	case database.IsUniqueViolation(err, database.ConstraintCustomerEmail):
		return ErrDuplicateEmail
	case database.IsUniqueViolation(err, database.ConstraintCustomerPhone):
		return ErrDuplicatePhone
	case database.IsUniqueViolation(err):
		return conflictError("customer already exists")
	}
	return nil
}
