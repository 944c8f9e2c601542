package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dp-auto/internal/domain"
	"dp-auto/internal/repository"
)

type sentEmail struct {
	to      string
	subject string
	body    string
}

type mockEmailSender struct {
	sent []sentEmail
	err  error
}

func (m *mockEmailSender) Send(_ context.Context, to, subject, htmlBody string) error {
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, body: htmlBody})
	return m.err
}

type mockLimiter struct {
	allow bool
}

func (m *mockLimiter) Allow(_ context.Context, _ string) bool {
	return m.allow
}

// failingRepo devuelve err en todas las operaciones.
type failingRepo struct {
	err error
}

func (f failingRepo) Get(context.Context, string) (domain.Account, error) {
	return domain.Account{}, f.err
}
func (f failingRepo) Create(context.Context, domain.Account) error { return f.err }
func (f failingRepo) SetVerificationCode(context.Context, string, string, time.Time, time.Time) error {
	return f.err
}
func (f failingRepo) MarkVerified(context.Context, string, time.Time) error { return f.err }
func (f failingRepo) RecordLogin(context.Context, string, string, time.Time) error {
	return f.err
}
func (f failingRepo) ClearSession(context.Context, string, time.Time) error { return f.err }

type accountFixture struct {
	svc    *AccountService
	repo   *repository.MemoryAccountRepository
	sender *mockEmailSender
	clock  time.Time
	codes  []string
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	f := &accountFixture{
		repo:   repository.NewMemoryAccountRepository(),
		sender: &mockEmailSender{},
		clock:  time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewAccountService(zap.NewNop(), f.repo, f.sender, NewSessionTokens("secret", 24*time.Hour), nil)
	f.svc.now = func() time.Time { return f.clock }
	f.svc.hashCost = bcrypt.MinCost
	f.svc.generateCode = func() (string, error) {
		if len(f.codes) == 0 {
			return generateVerificationCode()
		}
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code, nil
	}
	return f
}

func (f *accountFixture) signup(t *testing.T, email, password, name string) domain.AccountView {
	t.Helper()
	acct, err := f.svc.Signup(context.Background(), SignupInput{Email: email, Password: password, Name: name})
	require.NoError(t, err)
	return acct
}

func (f *accountFixture) stored(t *testing.T, email string) domain.Account {
	t.Helper()
	acct, err := f.repo.Get(context.Background(), email)
	require.NoError(t, err)
	return acct
}

var sixDigits = regexp.MustCompile(`^[1-9][0-9]{5}$`)

func TestGenerateVerificationCode_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}
}

func TestSignup_CreatesUnverifiedAccountAndSendsCode(t *testing.T) {
	f := newAccountFixture(t)

	acct := f.signup(t, " A@X.com ", "secret1", "A")
	assert.Equal(t, "a@x.com", acct.Email)
	assert.False(t, acct.EmailVerified)

	stored := f.stored(t, "a@x.com")
	require.NotNil(t, stored.VerificationCode)
	require.NotNil(t, stored.VerificationCodeExpiresAt)
	assert.Regexp(t, sixDigits, *stored.VerificationCode)
	assert.Equal(t, f.clock.Add(15*time.Minute), *stored.VerificationCodeExpiresAt)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	assert.Nil(t, stored.SessionToken)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "a@x.com", f.sender.sent[0].to)
	assert.Contains(t, f.sender.sent[0].body, *stored.VerificationCode)
}

func TestSignup_DefaultCostIsAtLeastTwelve(t *testing.T) {
	svc := NewAccountService(nil, repository.NewMemoryAccountRepository(), &mockEmailSender{}, NewSessionTokens("s", time.Hour), nil)
	assert.GreaterOrEqual(t, svc.hashCost, 12)
}

func TestSignup_DuplicateEmailLeavesFirstAccountUntouched(t *testing.T) {
	f := newAccountFixture(t)
	f.signup(t, "a@x.com", "secret1", "A")
	before := f.stored(t, "a@x.com")

	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "A@x.com", Password: "other12", Name: "B"})
	require.ErrorIs(t, err, ErrAccountAlreadyExists)

	after := f.stored(t, "a@x.com")
	assert.Equal(t, before, after)
	assert.Len(t, f.sender.sent, 1)
}

func TestSignup_MailFailureIsReported(t *testing.T) {
	f := newAccountFixture(t)
	f.sender.err = errors.New("smtp down")

	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	require.ErrorIs(t, err, ErrMailSendFailed)

	// la cuenta queda creada y se puede pedir otro codigo
	f.sender.err = nil
	require.NoError(t, f.svc.ResendVerificationCode(context.Background(), "a@x.com"))
}

func TestSignup_RateLimited(t *testing.T) {
	f := newAccountFixture(t)
	f.svc.codeLimiter = &mockLimiter{allow: false}

	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	require.ErrorIs(t, err, ErrRateLimited)
	_, err = f.repo.Get(context.Background(), "a@x.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSignup_DuplicateDoesNotConsumeEmailQuota(t *testing.T) {
	f := newAccountFixture(t)
	f.svc.codeLimiter = NewCodeRateLimiter(15*time.Minute, 3)
	ctx := context.Background()

	f.signup(t, "a@x.com", "secret1", "A")
	for i := 0; i < 2; i++ {
		_, err := f.svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "secret1", Name: "A"})
		require.ErrorIs(t, err, ErrAccountAlreadyExists)
	}

	require.NoError(t, f.svc.ResendVerificationCode(ctx, "a@x.com"))
	assert.Len(t, f.sender.sent, 2)
}

func TestSignup_DuplicateWithSingleSlotStillAlreadyExists(t *testing.T) {
	f := newAccountFixture(t)
	f.svc.codeLimiter = NewCodeRateLimiter(15*time.Minute, 1)

	f.signup(t, "a@x.com", "secret1", "A")
	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	require.ErrorIs(t, err, ErrAccountAlreadyExists)
}

func TestSignup_ReturnsPublicProjection(t *testing.T) {
	f := newAccountFixture(t)

	view := f.signup(t, "a@x.com", "secret1", "Alice")
	assert.Equal(t, domain.AccountView{Email: "a@x.com", Name: "Alice"}, view)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	stored := f.stored(t, "a@x.com")
	assert.NotContains(t, string(raw), *stored.VerificationCode)
	assert.NotContains(t, string(raw), stored.PasswordHash)
}

func TestLogin_BeforeVerificationAlwaysEmailNotVerified(t *testing.T) {
	f := newAccountFixture(t)
	f.signup(t, "a@x.com", "secret1", "A")

	_, err := f.svc.Login(context.Background(), "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrEmailNotVerified)
	_, err = f.svc.Login(context.Background(), "a@x.com", "wrong-password")
	require.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLogin_Errors(t *testing.T) {
	f := newAccountFixture(t)
	f.codes = []string{"123456"}
	f.signup(t, "a@x.com", "secret1", "A")
	require.NoError(t, f.svc.VerifyCode(context.Background(), "a@x.com", "123456"))

	_, err := f.svc.Login(context.Background(), "missing@x.com", "secret1")
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = f.svc.Login(context.Background(), "a@x.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidPassword)
	assert.Nil(t, f.stored(t, "a@x.com").SessionToken)
}

func TestVerifyCode_Transitions(t *testing.T) {
	f := newAccountFixture(t)
	f.codes = []string{"482913"}
	f.signup(t, "a@x.com", "secret1", "A")
	before := f.stored(t, "a@x.com")

	err := f.svc.VerifyCode(context.Background(), "a@x.com", "000000")
	require.ErrorIs(t, err, ErrCodeMismatch)
	assert.Equal(t, before, f.stored(t, "a@x.com"))

	require.NoError(t, f.svc.VerifyCode(context.Background(), "a@x.com", "482913"))
	after := f.stored(t, "a@x.com")
	assert.True(t, after.EmailVerified)
	assert.Nil(t, after.VerificationCode)
	assert.Nil(t, after.VerificationCodeExpiresAt)

	err = f.svc.VerifyCode(context.Background(), "a@x.com", "482913")
	require.ErrorIs(t, err, ErrNoVerificationPending)
}

func TestVerifyCode_AtExpiryInstantStillValid(t *testing.T) {
	f := newAccountFixture(t)
	f.codes = []string{"482913"}
	f.signup(t, "a@x.com", "secret1", "A")

	f.clock = f.clock.Add(15 * time.Minute)
	require.NoError(t, f.svc.VerifyCode(context.Background(), "a@x.com", "482913"))
}

func TestVerifyCode_AfterWindow(t *testing.T) {
	f := newAccountFixture(t)
	f.codes = []string{"482913"}
	f.signup(t, "a@x.com", "secret1", "A")

	f.clock = f.clock.Add(15*time.Minute + time.Second)
	err := f.svc.VerifyCode(context.Background(), "a@x.com", "482913")
	require.ErrorIs(t, err, ErrCodeExpired)
	assert.False(t, f.stored(t, "a@x.com").EmailVerified)
}

func TestVerifyCode_AttemptsLimited(t *testing.T) {
	f := newAccountFixture(t)
	f.svc.WithAttemptLimiter(NewCodeRateLimiter(15*time.Minute, 2))
	f.codes = []string{"123456"}
	ctx := context.Background()
	f.signup(t, "a@x.com", "secret1", "A")

	require.ErrorIs(t, f.svc.VerifyCode(ctx, "a@x.com", "111111"), ErrCodeMismatch)
	require.ErrorIs(t, f.svc.VerifyCode(ctx, "a@x.com", "222222"), ErrCodeMismatch)
	require.ErrorIs(t, f.svc.VerifyCode(ctx, "a@x.com", "123456"), ErrRateLimited)
	assert.False(t, f.stored(t, "a@x.com").EmailVerified)

	// el limite de intentos no afecta el cupo de envios
	require.NoError(t, f.svc.ResendVerificationCode(ctx, "a@x.com"))
}

func TestVerifyCode_UnknownAccount(t *testing.T) {
	f := newAccountFixture(t)
	err := f.svc.VerifyCode(context.Background(), "missing@x.com", "123456")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestResendVerificationCode(t *testing.T) {
	f := newAccountFixture(t)
	f.codes = []string{"111111", "222222"}
	f.signup(t, "a@x.com", "secret1", "A")

	f.clock = f.clock.Add(10 * time.Minute)
	require.NoError(t, f.svc.ResendVerificationCode(context.Background(), "a@x.com"))

	stored := f.stored(t, "a@x.com")
	require.NotNil(t, stored.VerificationCode)
	assert.Equal(t, "222222", *stored.VerificationCode)
	assert.Equal(t, f.clock.Add(15*time.Minute), *stored.VerificationCodeExpiresAt)
	require.Len(t, f.sender.sent, 2)
	assert.Contains(t, f.sender.sent[1].body, "222222")

	err := f.svc.VerifyCode(context.Background(), "a@x.com", "111111")
	require.ErrorIs(t, err, ErrCodeMismatch)

	// la ventana nueva sigue abierta aunque la original ya vencio
	f.clock = f.clock.Add(10 * time.Minute)
	require.NoError(t, f.svc.VerifyCode(context.Background(), "a@x.com", "222222"))

	err = f.svc.ResendVerificationCode(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestResendVerificationCode_RandomCodesDiffer(t *testing.T) {
	f := newAccountFixture(t)
	f.signup(t, "a@x.com", "secret1", "A")
	first := *f.stored(t, "a@x.com").VerificationCode

	differs := false
	for i := 0; i < 5 && !differs; i++ {
		require.NoError(t, f.svc.ResendVerificationCode(context.Background(), "a@x.com"))
		differs = *f.stored(t, "a@x.com").VerificationCode != first
	}
	assert.True(t, differs, "expected a fresh code after resending")
}

func TestResendVerificationCode_Errors(t *testing.T) {
	f := newAccountFixture(t)
	err := f.svc.ResendVerificationCode(context.Background(), "missing@x.com")
	require.ErrorIs(t, err, ErrAccountNotFound)

	f.signup(t, "a@x.com", "secret1", "A")
	f.svc.codeLimiter = &mockLimiter{allow: false}
	err = f.svc.ResendVerificationCode(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestSessionLifecycle_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	f.codes = []string{"482913"}

	f.signup(t, "a@x.com", "secret1", "A")
	require.ErrorIs(t, f.svc.VerifyCode(ctx, "a@x.com", "000000"), ErrCodeMismatch)
	require.NoError(t, f.svc.VerifyCode(ctx, "a@x.com", "482913"))

	first, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, first.Token)
	assert.True(t, first.Account.EmailVerified)

	second, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = f.svc.VerifySessionToken(ctx, first.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)

	acct, err := f.svc.VerifySessionToken(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acct.Email)
	require.NotNil(t, acct.LastLoginAt)
	assert.Equal(t, f.clock, *acct.LastLoginAt)
}

func TestVerifySessionToken_Invalid(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)

	_, err := f.svc.VerifySessionToken(ctx, "garbage")
	require.ErrorIs(t, err, ErrSessionInvalid)

	// token bien firmado para una cuenta inexistente
	token, err := f.svc.tokens.Issue("ghost@x.com", f.clock)
	require.NoError(t, err)
	_, err = f.svc.VerifySessionToken(ctx, token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestVerifySessionToken_Expired(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	f.codes = []string{"482913"}
	f.signup(t, "a@x.com", "secret1", "A")
	require.NoError(t, f.svc.VerifyCode(ctx, "a@x.com", "482913"))
	res, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	f.clock = f.clock.Add(25 * time.Hour)
	_, err = f.svc.VerifySessionToken(ctx, res.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestLogout_InvalidatesToken(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	f.codes = []string{"482913"}
	f.signup(t, "a@x.com", "secret1", "A")
	require.NoError(t, f.svc.VerifyCode(ctx, "a@x.com", "482913"))
	res, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	_, err = f.svc.VerifySessionToken(ctx, res.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
	require.ErrorIs(t, f.svc.Logout(ctx, res.Token), ErrSessionInvalid)
}

func TestStoreFailuresBecomeInternal(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := NewAccountService(zap.NewNop(), failingRepo{err: storeErr}, &mockEmailSender{}, NewSessionTokens("secret", time.Hour), nil)
	svc.hashCost = bcrypt.MinCost
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	require.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, storeErr)
	assert.NotContains(t, err.Error(), "connection refused")

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrInternal)

	require.ErrorIs(t, svc.VerifyCode(ctx, "a@x.com", "123456"), ErrInternal)
	require.ErrorIs(t, svc.ResendVerificationCode(ctx, "a@x.com"), ErrInternal)
}
