package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dp-auto/internal/domain"
)

// Los scripts mantienen cada escritura atomica sobre un solo hash.
const (
	redisCreateAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`
	redisUpdateAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`
)

const (
	fieldEmail          = "email"
	fieldName           = "name"
	fieldPasswordHash   = "password_hash"
	fieldEmailVerified  = "email_verified"
	fieldCode           = "verification_code"
	fieldCodeExpiresAt  = "verification_code_expires_at"
	fieldSessionToken   = "session_token"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldLastLoginAt    = "last_login_at"
	redisAccountTimeout = time.Second
)

type redisHashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisAccountRepository guarda cada cuenta como un hash de redis.
// Un campo vacio representa un valor nulo.
type RedisAccountRepository struct {
	client redisHashClient
	prefix string
}

func NewRedisAccountRepository(client *redis.Client) *RedisAccountRepository {
	return &RedisAccountRepository{
		client: client,
		prefix: "account:",
	}
}

func (r *RedisAccountRepository) key(email string) string {
	return r.prefix + NormalizeEmail(email)
}

func (r *RedisAccountRepository) Get(ctx context.Context, email string) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, redisAccountTimeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, r.key(email)).Result()
	if err != nil {
		return domain.Account{}, err
	}
	if len(fields) == 0 {
		return domain.Account{}, ErrNotFound
	}
	return decodeAccountHash(fields)
}

func (r *RedisAccountRepository) Create(ctx context.Context, account domain.Account) error {
	account.Email = NormalizeEmail(account.Email)
	ok, err := r.eval(ctx, redisCreateAccountScript, account.Email, encodeAccountHash(account)...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (r *RedisAccountRepository) SetVerificationCode(ctx context.Context, email, code string, expiresAt, updatedAt time.Time) error {
	return r.update(ctx, email,
		fieldCode, code,
		fieldCodeExpiresAt, formatTime(&expiresAt),
		fieldUpdatedAt, formatTime(&updatedAt),
	)
}

func (r *RedisAccountRepository) MarkVerified(ctx context.Context, email string, updatedAt time.Time) error {
	return r.update(ctx, email,
		fieldEmailVerified, "1",
		fieldCode, "",
		fieldCodeExpiresAt, "",
		fieldUpdatedAt, formatTime(&updatedAt),
	)
}

func (r *RedisAccountRepository) RecordLogin(ctx context.Context, email, sessionToken string, loggedAt time.Time) error {
	return r.update(ctx, email,
		fieldSessionToken, sessionToken,
		fieldLastLoginAt, formatTime(&loggedAt),
		fieldUpdatedAt, formatTime(&loggedAt),
	)
}

func (r *RedisAccountRepository) ClearSession(ctx context.Context, email string, updatedAt time.Time) error {
	return r.update(ctx, email,
		fieldSessionToken, "",
		fieldUpdatedAt, formatTime(&updatedAt),
	)
}

func (r *RedisAccountRepository) update(ctx context.Context, email string, fields ...interface{}) error {
	ok, err := r.eval(ctx, redisUpdateAccountScript, email, fields...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *RedisAccountRepository) eval(ctx context.Context, script, email string, args ...interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisAccountTimeout)
	defer cancel()

	n, err := r.client.Eval(ctx, script, []string{r.key(email)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func encodeAccountHash(a domain.Account) []interface{} {
	verified := "0"
	if a.EmailVerified {
		verified = "1"
	}
	return []interface{}{
		fieldEmail, a.Email,
		fieldName, a.Name,
		fieldPasswordHash, a.PasswordHash,
		fieldEmailVerified, verified,
		fieldCode, derefString(a.VerificationCode),
		fieldCodeExpiresAt, formatTime(a.VerificationCodeExpiresAt),
		fieldSessionToken, derefString(a.SessionToken),
		fieldCreatedAt, formatTime(&a.CreatedAt),
		fieldUpdatedAt, formatTime(&a.UpdatedAt),
		fieldLastLoginAt, formatTime(a.LastLoginAt),
	}
}

func decodeAccountHash(fields map[string]string) (domain.Account, error) {
	a := domain.Account{
		Email:            fields[fieldEmail],
		Name:             fields[fieldName],
		PasswordHash:     fields[fieldPasswordHash],
		EmailVerified:    fields[fieldEmailVerified] == "1",
		VerificationCode: optionalString(fields[fieldCode]),
		SessionToken:     optionalString(fields[fieldSessionToken]),
	}

	var err error
	if a.VerificationCodeExpiresAt, err = parseTime(fields[fieldCodeExpiresAt]); err != nil {
		return domain.Account{}, fmt.Errorf("decode %s: %w", fieldCodeExpiresAt, err)
	}
	if a.LastLoginAt, err = parseTime(fields[fieldLastLoginAt]); err != nil {
		return domain.Account{}, fmt.Errorf("decode %s: %w", fieldLastLoginAt, err)
	}
	createdAt, err := parseTime(fields[fieldCreatedAt])
	if err != nil {
		return domain.Account{}, fmt.Errorf("decode %s: %w", fieldCreatedAt, err)
	}
	if createdAt != nil {
		a.CreatedAt = *createdAt
	}
	updatedAt, err := parseTime(fields[fieldUpdatedAt])
	if err != nil {
		return domain.Account{}, fmt.Errorf("decode %s: %w", fieldUpdatedAt, err)
	}
	if updatedAt != nil {
		a.UpdatedAt = *updatedAt
	}
	return a, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
