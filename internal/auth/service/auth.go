package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/auth/repo"
	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/pkg/apperr"
	pkg_hash "github.com/lulocustoms/shop/pkg/hash"
	"github.com/lulocustoms/shop/pkg/logging"
)

var validate = validator.New()

// dummyHash keeps the unknown-email path as slow as a real password check.
var dummyHash = sync.OnceValue(func() string {
	h, _ := pkg_hash.HashPassword("lulo-not-a-password")
	return h
})

type AuthService struct {
	Repo        *repo.GormRepo
	Attempts    AttemptStore
	MaxAttempts int
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return MaxLoginAttempts
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AdminUser, error) {
	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	if validate.Var(email, "email") != nil {
		return nil, apperr.Validation("Invalid email format")
	}

	failures, err := s.Attempts.Failures(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	if failures >= s.maxAttempts() {
		l.Warn("login_rate_limited", "failures", failures)
		return nil, apperr.New(apperr.ErrRateLimited, "Too many login attempts. Try again later.")
	}

	admin, err := s.Repo.GetAdminByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load admin: %w", err)
	}

	hash := dummyHash()
	if admin != nil {
		hash = admin.PasswordHash
	}
	if !pkg_hash.CheckPassword(hash, password) || admin == nil {
		if err := s.Attempts.RecordFailure(ctx, email); err != nil {
			l.Error("record_attempt_failed", "error", err)
		}
		l.Warn("login_failed", "reason", "invalid credentials")
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if err := s.Attempts.Reset(ctx, email); err != nil {
		l.Error("reset_attempts_failed", "error", err)
	}
	return admin, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin")

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		l.Info("admin_bootstrap_skipped")
		return nil
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = s.Repo.CreateAdminIfNotExists(ctx, &models.AdminUser{Email: email, PasswordHash: pwHash})
	if errors.Is(err, repo.ErrAdminAlreadyExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	l.Info("admin_created", "email", email)
	return nil
}
