package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// Constraint names referenced by callers that translate violations.
const (
	ConstraintCustomerEmail = "customers_business_email_key"
	ConstraintCustomerPhone = "customers_business_phone_key"
	ConstraintUserEmail     = "users_email_key"
	ConstraintGarmentName   = "garment_types_name_key"
	ConstraintOrderPaid     = "orders_paid_amount_range"
)

// IsUniqueViolation reports a 23505 error, optionally for a specific constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	return isPgError(err, "23505", constraint)
}

// IsForeignKeyViolation reports a 23503 error.
func IsForeignKeyViolation(err error) bool {
	return isPgError(err, "23503", nil)
}

// IsCheckViolation reports a 23514 error, optionally for a specific constraint.
func IsCheckViolation(err error, constraint ...string) bool {
	return isPgError(err, "23514", constraint)
}

func isPgError(err error, code string, constraint []string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
