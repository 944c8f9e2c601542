package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dp-auto/internal/domain"
)

const pgUniqueViolation = "23505"

// pgExecutor es el subconjunto de pgxpool.Pool que usa el repositorio.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	db pgExecutor
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{db: pool}
}

func (r *PgAccountRepository) Get(ctx context.Context, email string) (domain.Account, error) {
	const query = `
		SELECT email, name, password_hash, email_verified, verification_code,
		       verification_code_expires_at, session_token, created_at, updated_at, last_login_at
		FROM accounts
		WHERE email = $1
	`
	var a domain.Account
	err := r.db.QueryRow(ctx, query, NormalizeEmail(email)).Scan(
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.EmailVerified,
		&a.VerificationCode,
		&a.VerificationCodeExpiresAt,
		&a.SessionToken,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (
			email, name, password_hash, email_verified, verification_code,
			verification_code_expires_at, session_token, created_at, updated_at, last_login_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		NormalizeEmail(account.Email),
		account.Name,
		account.PasswordHash,
		account.EmailVerified,
		account.VerificationCode,
		account.VerificationCodeExpiresAt,
		account.SessionToken,
		account.CreatedAt,
		account.UpdatedAt,
		account.LastLoginAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func (r *PgAccountRepository) SetVerificationCode(ctx context.Context, email, code string, expiresAt, updatedAt time.Time) error {
	const query = `
		UPDATE accounts
		SET verification_code = $2, verification_code_expires_at = $3, updated_at = $4
		WHERE email = $1
	`
	return r.execUpdate(ctx, query, NormalizeEmail(email), code, expiresAt, updatedAt)
}

func (r *PgAccountRepository) MarkVerified(ctx context.Context, email string, updatedAt time.Time) error {
	const query = `
		UPDATE accounts
		SET email_verified = TRUE, verification_code = NULL, verification_code_expires_at = NULL, updated_at = $2
		WHERE email = $1
	`
	return r.execUpdate(ctx, query, NormalizeEmail(email), updatedAt)
}

func (r *PgAccountRepository) RecordLogin(ctx context.Context, email, sessionToken string, loggedAt time.Time) error {
	const query = `
		UPDATE accounts
		SET session_token = $2, last_login_at = $3, updated_at = $3
		WHERE email = $1
	`
	return r.execUpdate(ctx, query, NormalizeEmail(email), sessionToken, loggedAt)
}

func (r *PgAccountRepository) ClearSession(ctx context.Context, email string, updatedAt time.Time) error {
	const query = `
		UPDATE accounts
		SET session_token = NULL, updated_at = $2
		WHERE email = $1
	`
	return r.execUpdate(ctx, query, NormalizeEmail(email), updatedAt)
}

func (r *PgAccountRepository) execUpdate(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
