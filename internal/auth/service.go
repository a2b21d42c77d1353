package auth

import (
	"context"
	"crypto/rand"
	stdErrors "errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/arjunvnair/modakart-backend/pkg/auth"
	"github.com/arjunvnair/modakart-backend/pkg/config"
	"github.com/arjunvnair/modakart-backend/pkg/db"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
	"github.com/arjunvnair/modakart-backend/pkg/redis"
	"github.com/arjunvnair/modakart-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	minPasswordLength         = 8
)

// Service handles account registration, verification, and login.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserView, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) error
	Profile(ctx context.Context, userID uuid.UUID) (*UserView, error)
	SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool) error
}

type otpStore interface {
	OTPKey(email string) string
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Deps bundles the dependencies required to build an auth service.
type Deps struct {
	Repo        Repository
	OTPStore    otpStore
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
	OTPConfig   config.OTPConfig
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	otp         otpStore
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	otpCfg      config.OTPConfig
	logg        *logger.Logger

	now      func() time.Time
	makeCode func(digits int) (string, error)
}

// NewService constructs an auth service with the provided dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if deps.OTPStore == nil {
		return nil, fmt.Errorf("otp store required")
	}
	if deps.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		repo:        deps.Repo,
		otp:         deps.OTPStore,
		jwtCfg:      deps.JWTConfig,
		passwordCfg: deps.PasswordCfg,
		otpCfg:      deps.OTPConfig,
		logg:        deps.Logger,
		now:         time.Now,
		makeCode:    randomDigits,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*UserView, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	}
	view := newUserView(user)
	return &view, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if user.Blocked {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is blocked")
	}
	if !user.Verified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email is not verified")
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResult{
		AccessToken: token,
		User:        newUserView(user),
	}, nil
}

// RequestOTP issues a fresh verification code for the account and stores
// it with the configured TTL. The code is returned to the caller so the
// delivery channel stays outside this service.
func (s *service) RequestOTP(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user.Verified {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "account is already verified")
	}

	code, err := s.makeCode(s.digits())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	if err := s.otp.Set(ctx, s.otp.OTPKey(email), code, s.ttl()); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store otp")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "otp issued")
	}
	return code, nil
}

func (s *service) VerifyOTP(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "account is already verified")
	}

	key := s.otp.OTPKey(email)
	stored, err := s.otp.Get(ctx, key)
	if err != nil {
		if stdErrors.Is(err, redis.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "otp expired or never issued")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load otp")
	}
	if strings.TrimSpace(code) == "" || stored != strings.TrimSpace(code) {
		return pkgerrors.New(pkgerrors.CodeValidation, "otp does not match")
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
	}
	if err := s.otp.Del(ctx, key); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "delete consumed otp")
	}
	return nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	view := newUserView(user)
	return &view, nil
}

func (s *service) SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool) error {
	if err := s.repo.SetBlocked(ctx, userID, blocked); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func (s *service) digits() int {
	if s.otpCfg.Digits > 0 {
		return s.otpCfg.Digits
	}
	return 6
}

func (s *service) ttl() time.Duration {
	if s.otpCfg.TTL > 0 {
		return s.otpCfg.TTL
	}
	return 5 * time.Minute
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", digit.Int64())
	}
	return b.String(), nil
}
