package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cargomatch/internal/models"
	"cargomatch/internal/status"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres implements Store on top of sqlx.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to the database and configures the pool.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection.
func (s *Postgres) GetDB() *sqlx.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const userColumns = "id, email, name, role, verification_status, created_at, updated_at"

// CreateAccount inserts the user and, for LSP registrations, the 1:1
// profile in one transaction. The legacy is_active / is_verified
// columns are written from the derived values, never independently.
func (s *Postgres) CreateAccount(ctx context.Context, user *models.User, profile *models.LSPProfile) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, user, `
		INSERT INTO users (email, name, role, verification_status, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.Email, user.Name, user.Role, user.VerificationStatus,
		status.DeriveActive(user.Role, user.VerificationStatus))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if profile != nil {
		profile.UserID = user.ID
		err = tx.GetContext(ctx, profile, `
			INSERT INTO lsp_profiles (user_id, company_name, license_no, verification_status, is_verified, rejection_reason)
			VALUES ($1, $2, $3, $4, $5, '')
			RETURNING id, user_id, company_name, license_no, verification_status, rejection_reason, created_at, updated_at`,
			profile.UserID, profile.CompanyName, profile.LicenseNo,
			profile.VerificationStatus, status.DeriveVerified(profile.VerificationStatus))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to insert lsp profile: %w", err)
		}
	}

	return tx.Commit()
}

// GetUser retrieves a user by ID.
func (s *Postgres) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

const profileColumns = "id, user_id, company_name, license_no, verification_status, rejection_reason, created_at, updated_at"

// GetLSPProfile retrieves an LSP profile by ID.
func (s *Postgres) GetLSPProfile(ctx context.Context, id int64) (*models.LSPProfile, error) {
	var p models.LSPProfile
	err := s.db.GetContext(ctx, &p, "SELECT "+profileColumns+" FROM lsp_profiles WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecideLSP applies an onboarding decision: the profile verification
// status and the owning user's activation flip together or not at all.
// A concurrent decision on the same profile loses on the row lock.
func (s *Postgres) DecideLSP(ctx context.Context, profileID int64, from, to status.VerificationStatus, reason string) (*models.LSPProfile, *models.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var p models.LSPProfile
	err = tx.GetContext(ctx, &p,
		"SELECT "+profileColumns+" FROM lsp_profiles WHERE id = $1 FOR UPDATE", profileID)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock lsp profile: %w", err)
	}
	if p.VerificationStatus != from {
		return nil, nil, ErrConflict
	}

	err = tx.GetContext(ctx, &p, `
		UPDATE lsp_profiles
		SET verification_status = $1, is_verified = $2, rejection_reason = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+profileColumns,
		to, status.DeriveVerified(to), reason, profileID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update lsp profile: %w", err)
	}

	var user models.User
	err = tx.GetContext(ctx, &user, `
		UPDATE users
		SET verification_status = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+userColumns,
		to, status.DeriveActive(status.RoleLSP, to), p.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update owning user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &p, &user, nil
}

// ListAccountPairs returns every lsp user joined with its profile,
// flags included, for the reconciliation pass.
func (s *Postgres) ListAccountPairs(ctx context.Context) ([]status.AccountPair, error) {
	var rows []struct {
		UserID             int64                     `db:"user_id"`
		Role               status.Role               `db:"role"`
		IsActive           bool                      `db:"is_active"`
		IsVerified         bool                      `db:"is_verified"`
		VerificationStatus status.VerificationStatus `db:"verification_status"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.role, u.is_active, p.is_verified, p.verification_status
		FROM users u
		JOIN lsp_profiles p ON p.user_id = u.id
		WHERE u.role = 'lsp'
		ORDER BY u.id`)
	if err != nil {
		return nil, err
	}

	pairs := make([]status.AccountPair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, status.AccountPair{
			UserID:             r.UserID,
			Role:               r.Role,
			IsActive:           r.IsActive,
			IsVerified:         r.IsVerified,
			VerificationStatus: r.VerificationStatus,
		})
	}
	return pairs, nil
}

// RepairAccountPair rewrites both rows of a drifted pair from the
// profile's verification status.
func (s *Postgres) RepairAccountPair(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var p models.LSPProfile
	err = tx.GetContext(ctx, &p,
		"SELECT "+profileColumns+" FROM lsp_profiles WHERE user_id = $1 FOR UPDATE", userID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock lsp profile: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE lsp_profiles SET is_verified = $1, updated_at = NOW() WHERE id = $2",
		status.DeriveVerified(p.VerificationStatus), p.ID)
	if err != nil {
		return fmt.Errorf("failed to repair lsp profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET verification_status = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3`,
		p.VerificationStatus, status.DeriveActive(status.RoleLSP, p.VerificationStatus), userID)
	if err != nil {
		return fmt.Errorf("failed to repair user: %w", err)
	}

	return tx.Commit()
}
