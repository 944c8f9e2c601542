package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dp-auto/internal/domain"
	"dp-auto/internal/email"
	"dp-auto/internal/repository"
)

const (
	verificationCodeTTL = 15 * time.Minute
	passwordHashCost    = 12
	codeMin             = 100000
	codeSpan            = 900000

	verifyAttemptKeyPrefix = "attempt:"
)

var (
	ErrAccountAlreadyExists  = errors.New("account already exists")
	ErrAccountNotFound       = errors.New("account not found")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrNoVerificationPending = errors.New("no verification pending")
	ErrCodeExpired           = errors.New("verification code expired")
	ErrCodeMismatch          = errors.New("verification code mismatch")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrMailSendFailed        = errors.New("verification email send failed")
	ErrRateLimited           = errors.New("rate limited")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInternal              = errors.New("internal failure")
)

// AccountService coordina el ciclo de vida de cuentas, codigos y sesiones.
type AccountService struct {
	logger      *zap.Logger
	accounts    repository.AccountRepository
	emailSender email.Sender
	tokens      *SessionTokens
	codeLimiter CodeRateLimiter
	// attemptLimiter acota los intentos de verify-code por email.
	attemptLimiter CodeRateLimiter

	now          func() time.Time
	generateCode func() (string, error)
	hashCost     int
}

func NewAccountService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	emailSender email.Sender,
	tokens *SessionTokens,
	codeLimiter CodeRateLimiter,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		logger:       logger,
		accounts:     accounts,
		emailSender:  emailSender,
		tokens:       tokens,
		codeLimiter:  codeLimiter,
		now:          func() time.Time { return time.Now().UTC() },
		generateCode: generateVerificationCode,
		hashCost:     passwordHashCost,
	}
}

// WithAttemptLimiter limita los intentos de verificacion; nil los deja sin limite.
func (s *AccountService) WithAttemptLimiter(l CodeRateLimiter) *AccountService {
	s.attemptLimiter = l
	return s
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

type LoginResult struct {
	Token   string
	Account domain.Account
}

// Signup crea una cuenta sin verificar, envia el codigo por email y devuelve la proyeccion publica.
// Si el envio falla la cuenta queda creada y se reporta ErrMailSendFailed; el usuario puede pedir otro codigo.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (domain.AccountView, error) {
	emailAddr := repository.NormalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.AccountView{}, ErrInvalidEmail
	}
	name := strings.TrimSpace(input.Name)

	_, err := s.accounts.Get(ctx, emailAddr)
	switch {
	case err == nil:
		return domain.AccountView{}, ErrAccountAlreadyExists
	case !errors.Is(err, repository.ErrNotFound):
		return domain.AccountView{}, s.internal("get account", emailAddr, err)
	}

	// Un alta duplicada no envia email, asi que no consume cupo.
	if !s.allowCode(ctx, emailAddr) {
		return domain.AccountView{}, ErrRateLimited
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return domain.AccountView{}, s.internal("hash password", emailAddr, err)
	}
	code, err := s.generateCode()
	if err != nil {
		return domain.AccountView{}, s.internal("generate code", emailAddr, err)
	}

	now := s.now()
	expiresAt := now.Add(verificationCodeTTL)
	account := domain.Account{
		Email:                     emailAddr,
		Name:                      name,
		PasswordHash:              string(hash),
		EmailVerified:             false,
		VerificationCode:          &code,
		VerificationCodeExpiresAt: &expiresAt,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return domain.AccountView{}, ErrAccountAlreadyExists
		}
		return domain.AccountView{}, s.internal("create account", emailAddr, err)
	}

	if err := s.sendCode(ctx, emailAddr, name, code); err != nil {
		return domain.AccountView{}, err
	}

	s.logger.Info("account created", zap.String("email", emailAddr))
	return account.View(), nil
}

// Login exige email verificado antes de comparar la contraseña.
func (s *AccountService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	emailAddr = repository.NormalizeEmail(emailAddr)
	account, err := s.getAccount(ctx, emailAddr)
	if err != nil {
		return LoginResult{}, err
	}
	if !account.EmailVerified {
		return LoginResult{}, ErrEmailNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidPassword
	}

	now := s.now()
	token, err := s.tokens.Issue(account.Email, now)
	if err != nil {
		return LoginResult{}, s.internal("issue session token", emailAddr, err)
	}
	if err := s.accounts.RecordLogin(ctx, account.Email, token, now); err != nil {
		return LoginResult{}, s.internal("record login", emailAddr, err)
	}

	account.SessionToken = &token
	account.LastLoginAt = &now
	account.UpdatedAt = now
	return LoginResult{Token: token, Account: account}, nil
}

func (s *AccountService) VerifyCode(ctx context.Context, emailAddr, code string) error {
	emailAddr = repository.NormalizeEmail(emailAddr)
	account, err := s.getAccount(ctx, emailAddr)
	if err != nil {
		return err
	}
	if !account.HasPendingCode() {
		return ErrNoVerificationPending
	}
	now := s.now()
	if now.After(*account.VerificationCodeExpiresAt) {
		return ErrCodeExpired
	}
	if s.attemptLimiter != nil && !s.attemptLimiter.Allow(ctx, verifyAttemptKeyPrefix+emailAddr) {
		return ErrRateLimited
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(*account.VerificationCode)) != 1 {
		return ErrCodeMismatch
	}

	if err := s.accounts.MarkVerified(ctx, emailAddr, now); err != nil {
		return s.internal("mark verified", emailAddr, err)
	}
	s.logger.Info("email verified", zap.String("email", emailAddr))
	return nil
}

// ResendVerificationCode reemplaza el codigo vigente; el anterior deja de ser valido.
func (s *AccountService) ResendVerificationCode(ctx context.Context, emailAddr string) error {
	emailAddr = repository.NormalizeEmail(emailAddr)
	account, err := s.getAccount(ctx, emailAddr)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return ErrAlreadyVerified
	}
	if !s.allowCode(ctx, emailAddr) {
		return ErrRateLimited
	}

	code, err := s.generateCode()
	if err != nil {
		return s.internal("generate code", emailAddr, err)
	}
	now := s.now()
	if err := s.accounts.SetVerificationCode(ctx, emailAddr, code, now.Add(verificationCodeTTL), now); err != nil {
		return s.internal("set verification code", emailAddr, err)
	}
	return s.sendCode(ctx, emailAddr, account.Name, code)
}

// VerifySessionToken devuelve ErrSessionInvalid si el token no es el ultimo emitido para la cuenta.
func (s *AccountService) VerifySessionToken(ctx context.Context, token string) (domain.Account, error) {
	claims, err := s.tokens.Parse(token, s.now())
	if err != nil {
		return domain.Account{}, ErrSessionInvalid
	}
	account, err := s.accounts.Get(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrSessionInvalid
		}
		return domain.Account{}, s.internal("get account", claims.Email, err)
	}
	if account.SessionToken == nil ||
		subtle.ConstantTimeCompare([]byte(*account.SessionToken), []byte(token)) != 1 {
		return domain.Account{}, ErrSessionInvalid
	}
	return account, nil
}

// Logout invalida la sesion activa de la cuenta.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	account, err := s.VerifySessionToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.accounts.ClearSession(ctx, account.Email, s.now()); err != nil {
		return s.internal("clear session", account.Email, err)
	}
	return nil
}

func (s *AccountService) getAccount(ctx context.Context, emailAddr string) (domain.Account, error) {
	if emailAddr == "" {
		return domain.Account{}, ErrAccountNotFound
	}
	account, err := s.accounts.Get(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, s.internal("get account", emailAddr, err)
	}
	return account, nil
}

func (s *AccountService) sendCode(ctx context.Context, emailAddr, name, code string) error {
	if s.emailSender == nil {
		return ErrMailSendFailed
	}
	body, err := email.RenderVerificationEmail(email.VerificationEmail{
		Name:         name,
		Code:         code,
		ValidMinutes: int(verificationCodeTTL.Minutes()),
	})
	if err != nil {
		return s.internal("render verification email", emailAddr, err)
	}
	if err := s.emailSender.Send(ctx, emailAddr, email.VerificationSubject, body); err != nil {
		s.logger.Warn("send verification email failed", zap.Error(err), zap.String("email", emailAddr))
		return ErrMailSendFailed
	}
	return nil
}

func (s *AccountService) allowCode(ctx context.Context, emailAddr string) bool {
	if s.codeLimiter == nil {
		return true
	}
	return s.codeLimiter.Allow(ctx, emailAddr)
}

// internal registra el error del colaborador y devuelve uno generico.
func (s *AccountService) internal(op, emailAddr string, err error) error {
	s.logger.Error(op+" failed", zap.Error(err), zap.String("email", emailAddr))
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
