package domain

import "time"

// Account es el registro persistente de un usuario, indexado por email.
type Account struct {
	Email                     string     `json:"email"`
	Name                      string     `json:"name"`
	PasswordHash              string     `json:"-"`
	EmailVerified             bool       `json:"emailVerified"`
	VerificationCode          *string    `json:"-"`
	VerificationCodeExpiresAt *time.Time `json:"-"`
	SessionToken              *string    `json:"-"`
	CreatedAt                 time.Time  `json:"createdAt"`
	UpdatedAt                 time.Time  `json:"updatedAt"`
	LastLoginAt               *time.Time `json:"lastLoginAt,omitempty"`
}

// HasPendingCode indica si hay un codigo de verificacion emitido y sin usar.
func (a Account) HasPendingCode() bool {
	return a.VerificationCode != nil && a.VerificationCodeExpiresAt != nil
}

// AccountView es la proyeccion publica de una cuenta.
type AccountView struct {
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

func (a Account) View() AccountView {
	return AccountView{
		Email:         a.Email,
		Name:          a.Name,
		EmailVerified: a.EmailVerified,
	}
}

// ProfileView incluye las fechas de alta y de ultimo login.
func (a Account) ProfileView() AccountView {
	v := a.View()
	if !a.CreatedAt.IsZero() {
		createdAt := a.CreatedAt
		v.CreatedAt = &createdAt
	}
	v.LastLoginAt = a.LastLoginAt
	return v
}
