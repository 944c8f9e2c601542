package repository

import (
	"context"
	"sync"
	"time"

	"dp-auto/internal/domain"
)

// MemoryAccountRepository guarda cuentas en memoria. Util en tests y en desarrollo local.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]domain.Account),
	}
}

func (r *MemoryAccountRepository) Get(_ context.Context, email string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[NormalizeEmail(email)]
	if !ok {
		return domain.Account{}, ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *MemoryAccountRepository) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := NormalizeEmail(account.Email)
	if _, ok := r.accounts[key]; ok {
		return ErrAlreadyExists
	}
	r.accounts[key] = cloneAccount(account)
	return nil
}

func (r *MemoryAccountRepository) SetVerificationCode(_ context.Context, email, code string, expiresAt, updatedAt time.Time) error {
	return r.update(email, func(a *domain.Account) {
		a.VerificationCode = &code
		a.VerificationCodeExpiresAt = &expiresAt
		a.UpdatedAt = updatedAt
	})
}

func (r *MemoryAccountRepository) MarkVerified(_ context.Context, email string, updatedAt time.Time) error {
	return r.update(email, func(a *domain.Account) {
		a.EmailVerified = true
		a.VerificationCode = nil
		a.VerificationCodeExpiresAt = nil
		a.UpdatedAt = updatedAt
	})
}

func (r *MemoryAccountRepository) RecordLogin(_ context.Context, email, sessionToken string, loggedAt time.Time) error {
	return r.update(email, func(a *domain.Account) {
		a.SessionToken = &sessionToken
		a.LastLoginAt = &loggedAt
		a.UpdatedAt = loggedAt
	})
}

func (r *MemoryAccountRepository) ClearSession(_ context.Context, email string, updatedAt time.Time) error {
	return r.update(email, func(a *domain.Account) {
		a.SessionToken = nil
		a.UpdatedAt = updatedAt
	})
}

func (r *MemoryAccountRepository) update(email string, mutate func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := NormalizeEmail(email)
	account, ok := r.accounts[key]
	if !ok {
		return ErrNotFound
	}
	mutate(&account)
	r.accounts[key] = account
	return nil
}

// cloneAccount evita que los llamadores compartan punteros con el mapa.
func cloneAccount(a domain.Account) domain.Account {
	out := a
	if a.VerificationCode != nil {
		v := *a.VerificationCode
		out.VerificationCode = &v
	}
	if a.VerificationCodeExpiresAt != nil {
		v := *a.VerificationCodeExpiresAt
		out.VerificationCodeExpiresAt = &v
	}
	if a.SessionToken != nil {
		v := *a.SessionToken
		out.SessionToken = &v
	}
	if a.LastLoginAt != nil {
		v := *a.LastLoginAt
		out.LastLoginAt = &v
	}
	return out
}
