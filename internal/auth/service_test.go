package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/arjunvnair/modakart-backend/pkg/auth"
	"github.com/arjunvnair/modakart-backend/pkg/config"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/redis"
	"github.com/arjunvnair/modakart-backend/pkg/security"
)

type stubUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[uuid.UUID]*models.User{}}
}

func (r *stubUserRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubUserRepo) Create(_ context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return &duplicateKeyError{}
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == strings.ToLower(email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *stubUserRepo) MarkVerified(_ context.Context, id uuid.UUID) error {
	user, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Verified = true
	return nil
}

func (r *stubUserRepo) SetBlocked(_ context.Context, id uuid.UUID, blocked bool) error {
	user, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Blocked = blocked
	return nil
}

type duplicateKeyError struct{}

func (*duplicateKeyError) Error() string {
	return `duplicate key value violates unique constraint "users_email_key"`
}

type stubOTPStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newStubOTPStore() *stubOTPStore {
	return &stubOTPStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubOTPStore) OTPKey(email string) string {
	return "mk:otp:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *stubOTPStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *stubOTPStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.ErrNotFound
	}
	return value, nil
}

func (s *stubOTPStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
		delete(s.ttls, key)
	}
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "testsecret",
		Issuer:            "modakart-test",
		ExpirationMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func newTestService(t *testing.T) (Service, *stubUserRepo, *stubOTPStore) {
	t.Helper()
	repo := newStubUserRepo()
	store := newStubOTPStore()
	svc, err := NewService(Deps{
		Repo:        repo,
		OTPStore:    store,
		JWTConfig:   testJWTConfig(),
		PasswordCfg: testPasswordConfig(),
		OTPConfig:   config.OTPConfig{TTL: 5 * time.Minute, Digits: 6},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, store
}

func register(t *testing.T, svc Service) *UserView {
	t.Helper()
	view, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return view
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	svc, repo, _ := newTestService(t)

	view := register(t, svc)
	if view.Email != "asha@example.com" {
		t.Fatalf("email not normalized: %q", view.Email)
	}
	if view.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %q", view.Role)
	}

	stored := repo.users[view.ID]
	if stored.PasswordHash == "correct horse" || stored.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
	ok, err := security.VerifyPassword("correct horse", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "short",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)

	register(t, svc)
	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Other",
		Email:    "asha@example.com",
		Password: "another pass",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginMintsParsableToken(t *testing.T) {
	svc, repo, _ := newTestService(t)

	view := register(t, svc)
	repo.users[view.ID].Verified = true

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != view.ID {
		t.Fatalf("token carries user %s, want %s", claims.UserID, view.ID)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("token carries role %q", claims.Role)
	}
}

func TestLoginRejectsBadStates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	view := register(t, svc)

	// Unverified accounts cannot log in.
	_, err := svc.Login(context.Background(), LoginInput{Email: view.Email, Password: "correct horse"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("unverified login: expected forbidden, got %v", err)
	}

	repo.users[view.ID].Verified = true
	repo.users[view.ID].Blocked = true
	_, err = svc.Login(context.Background(), LoginInput{Email: view.Email, Password: "correct horse"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("blocked login: expected forbidden, got %v", err)
	}

	repo.users[view.ID].Blocked = false
	_, err = svc.Login(context.Background(), LoginInput{Email: view.Email, Password: "wrong"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("bad password: expected unauthorized, got %v", err)
	}
}

func TestOTPVerificationFlow(t *testing.T) {
	svc, repo, store := newTestService(t)
	view := register(t, svc)

	svc.(*service).makeCode = func(int) (string, error) { return "123456", nil }

	code, err := svc.RequestOTP(context.Background(), view.Email)
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if code != "123456" {
		t.Fatalf("unexpected code %q", code)
	}
	key := store.OTPKey(view.Email)
	if store.ttls[key] != 5*time.Minute {
		t.Fatalf("otp stored with ttl %s", store.ttls[key])
	}

	if err := svc.VerifyOTP(context.Background(), view.Email, "000000"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("wrong code: expected validation error, got %v", err)
	}
	if err := svc.VerifyOTP(context.Background(), view.Email, "123456"); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !repo.users[view.ID].Verified {
		t.Fatal("user not marked verified")
	}
	if _, ok := store.values[key]; ok {
		t.Fatal("consumed otp still present")
	}

	// A second verification attempt finds an already verified account.
	if err := svc.VerifyOTP(context.Background(), view.Email, "123456"); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	svc, _, _ := newTestService(t)
	view := register(t, svc)

	err := svc.VerifyOTP(context.Background(), view.Email, "123456")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing otp, got %v", err)
	}
}
