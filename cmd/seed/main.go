package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/silai-boutique/api/internal/config"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/logger"
	"github.com/silai-boutique/api/internal/measure"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type seedAccount struct {
	email    string
	password string
	name     string
	role     string
}

func main() {
	// CLI flags
	businessName := flag.String("business", "", "Business name")
	ownerEmail := flag.String("email", "", "Owner email address")
	ownerPassword := flag.String("password", "", "Owner password")
	ownerName := flag.String("name", "", "Owner full name")
	adminEmail := flag.String("admin-email", "", "Platform admin email address")
	adminPassword := flag.String("admin-password", "", "Platform admin password")
	flag.Parse()

	// Fall back to environment variables, then defaults
	*businessName = firstNonEmpty(*businessName, os.Getenv("SEED_BUSINESS"), "Silai Boutique")
	*ownerEmail = firstNonEmpty(*ownerEmail, os.Getenv("SEED_EMAIL"), "owner@silai.local")
	*ownerName = firstNonEmpty(*ownerName, os.Getenv("SEED_NAME"), "Boutique Owner")
	*adminEmail = firstNonEmpty(*adminEmail, os.Getenv("SEED_ADMIN_EMAIL"), "admin@silai.local")
	*ownerPassword = firstNonEmpty(*ownerPassword, os.Getenv("SEED_PASSWORD"))
	*adminPassword = firstNonEmpty(*adminPassword, os.Getenv("SEED_ADMIN_PASSWORD"))

	zlog, err := logger.New("info", "console", "seed")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if *ownerPassword == "" {
		*ownerPassword = "password123"
		zlog.Warn("using default owner password 'password123'; change it immediately")
	}
	if *adminPassword == "" {
		*adminPassword = *ownerPassword
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	// Seed in a transaction: business, accounts and catalog or nothing
	tx, err := pool.Begin(ctx)
	if err != nil {
		zlog.Fatal("begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)
	businessID, err := seedBusiness(ctx, q, *ownerEmail, *businessName)
	if err != nil {
		zlog.Fatal("seed business", zap.Error(err))
	}

	accounts := []seedAccount{
		{email: *adminEmail, password: *adminPassword, name: "Platform Admin", role: enum.UserRoleAdmin},
		{email: *ownerEmail, password: *ownerPassword, name: *ownerName, role: enum.UserRoleOwner},
	}
	for _, a := range accounts {
		id, created, err := seedUser(ctx, q, businessID, a)
		if err != nil {
			zlog.Fatal("seed user", zap.String("email", a.email), zap.Error(err))
		}
		zlog.Info("user ready", zap.String("email", a.email), zap.String("role", a.role),
			zap.String("id", id.String()), zap.Bool("created", created))
	}

	created, err := seedGarmentTypes(ctx, tx, q)
	if err != nil {
		zlog.Fatal("seed garment types", zap.Error(err))
	}

	if err := tx.Commit(ctx); err != nil {
		zlog.Fatal("commit", zap.Error(err))
	}

	zlog.Info("seed completed",
		zap.String("business_id", businessID.String()),
		zap.Int("garment_types_created", created),
	)
}

// seedBusiness reuses the owner's business when the owner already exists.
func seedBusiness(ctx context.Context, q *database.Queries, ownerEmail, name string) (uuid.UUID, error) {
	owner, err := q.GetUserByEmail(ctx, ownerEmail)
	if err == nil {
		return owner.BusinessID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check owner: %w", err)
	}

	b, err := q.CreateBusiness(ctx, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert business: %w", err)
	}
	return b.ID, nil
}

// seedUser creates the account if no user has its email yet.
func seedUser(ctx context.Context, q *database.Queries, businessID uuid.UUID, a seedAccount) (uuid.UUID, bool, error) {
	existing, err := q.GetUserByEmail(ctx, a.email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("hash password: %w", err)
	}

	u, err := q.CreateUser(ctx, database.CreateUserParams{
		BusinessID:     businessID,
		Email:          a.email,
		FullName:       a.name,
		HashedPassword: string(hashed),
		Role:           a.role,
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("insert user: %w", err)
	}
	return u.ID, true, nil
}

// seedGarmentTypes inserts one catalog entry per template garment. Existing
// names are kept; a savepoint isolates each insert so a duplicate does not
// abort the transaction.
func seedGarmentTypes(ctx context.Context, tx pgx.Tx, q *database.Queries) (int, error) {
	names := lo.Uniq(lo.Map(measure.Templates(), func(t measure.Template, _ int) string { return t.Garment }))

	created := 0
	for _, name := range names {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return created, fmt.Errorf("savepoint: %w", err)
		}
		if _, err := q.WithTx(sp).CreateGarmentType(ctx, name); err != nil {
			sp.Rollback(ctx) //nolint:errcheck
			if database.IsUniqueViolation(err, database.ConstraintGarmentName) {
				continue
			}
			return created, fmt.Errorf("insert garment type %s: %w", name, err)
		}
		if err := sp.Commit(ctx); err != nil {
			return created, fmt.Errorf("release savepoint: %w", err)
		}
		created++
	}
	return created, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
