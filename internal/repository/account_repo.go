package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"dp-auto/internal/domain"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrAlreadyExists = errors.New("account already exists")
)

// AccountRepository define el contrato de almacenamiento de cuentas.
// Cada operacion toca un solo documento, indexado por email.
type AccountRepository interface {
	Get(ctx context.Context, email string) (domain.Account, error)
	// Create inserta el documento completo; falla con ErrAlreadyExists si el email ya existe.
	Create(ctx context.Context, account domain.Account) error
	SetVerificationCode(ctx context.Context, email, code string, expiresAt, updatedAt time.Time) error
	MarkVerified(ctx context.Context, email string, updatedAt time.Time) error
	RecordLogin(ctx context.Context, email, sessionToken string, loggedAt time.Time) error
	ClearSession(ctx context.Context, email string, updatedAt time.Time) error
}

// NormalizeEmail es la clave canonica de una cuenta.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
