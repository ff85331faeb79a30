package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vhkhang/authcore/internal/audit"
	"github.com/vhkhang/authcore/internal/config"
	"github.com/vhkhang/authcore/internal/crypto"
	"github.com/vhkhang/authcore/internal/mail"
	"github.com/vhkhang/authcore/internal/tokens"
	"github.com/vhkhang/authcore/internal/twofactor"
	"github.com/vhkhang/authcore/internal/users"
	"github.com/vhkhang/authcore/model"
	"github.com/vhkhang/authcore/params"
)

type LoginRequest struct {
	Username      string
	Password      string
	TwoFactorCode string
	ClientIP      string
}

type UserProfile struct {
	ID       uint
	Username string
	FullName string
	Roles    []string
}

// LoginResult is the outcome of an authentication attempt. A result with
// RequiresTwoFactor set is not a failure: the caller should re-prompt for
// a code and retry.
type LoginResult struct {
	RequiresTwoFactor      bool
	RequiresPasswordChange bool
	Token                  *tokens.TokenPair
	User                   *UserProfile
}

// AuthService is the login/logout/password-change state machine. It owns
// no state of its own; every mutable record lives behind the composed
// services.
type AuthService struct {
	policy       config.PasswordPolicy
	userService  *users.UserService
	twoFactorSvc *twofactor.TwoFactorService
	tokenService *tokens.TokenService
	recorder     *audit.Recorder
	detector     *audit.ThreatDetector
	mailSender   mail.Sender
}

func profileOf(user *model.User) *UserProfile {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}
	return &UserProfile{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Roles:    roles,
	}
}

// Login runs the authentication sequence. Every failure branch both logs
// the specific internal reason and returns the generic
// ErrInvalidCredentials, so callers cannot enumerate accounts; only the
// lockout and 2FA-required outcomes are distinguishable.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	// Gate on the source IP before any credential work happens.
	suspicious, err := s.detector.IsSuspiciousIP(ctx, req.ClientIP)
	if err != nil {
		slog.Warn("Suspicious IP check failed, continuing", "ip", req.ClientIP, "error", err)
	}
	if suspicious {
		s.recorder.RecordLogin(ctx, audit.LoginRecord{
			Username: req.Username,
			IP:       req.ClientIP,
			Reason:   "suspicious source IP",
		})
		return nil, ErrInvalidCredentials
	}

	user, err := s.userService.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, users.ErrUserNotFound) {
		s.recorder.RecordLogin(ctx, audit.LoginRecord{
			Username: req.Username,
			IP:       req.ClientIP,
			Reason:   "unknown username",
		})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		s.recorder.RecordLogin(ctx, audit.LoginRecord{
			UserID:   user.ID,
			Username: user.Username,
			IP:       req.ClientIP,
			Reason:   "account disabled",
		})
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(now) {
		s.recorder.RecordLogin(ctx, audit.LoginRecord{
			UserID:   user.ID,
			Username: user.Username,
			IP:       req.ClientIP,
			Reason:   "account locked",
		})
		return nil, NewAccountLockedError(*user.LockedUntil)
	}

	ok, err := crypto.VerifyPassword(req.Password, user.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		locked, err := s.userService.RegisterFailedLogin(ctx, user.ID, s.policy.LockoutThreshold, s.policy.LockoutDuration)
		if err != nil {
			slog.Error("Failed to register failed login", "userId", user.ID, "error", err)
		}
		s.recorder.RecordLogin(ctx, audit.LoginRecord{
			UserID:   user.ID,
			Username: user.Username,
			IP:       req.ClientIP,
			Reason:   "password mismatch",
		})
		if locked {
			s.recorder.RecordAccountLocked(ctx, user.ID, user.Username, req.ClientIP)
		}
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			return &LoginResult{RequiresTwoFactor: true}, nil
		}
		ok, err := s.twoFactorSvc.VerifyCode(ctx, user.ID, req.TwoFactorCode)
		if err != nil && !errors.Is(err, twofactor.ErrNotEnrolled) {
			return nil, err
		}
		if !ok {
			s.recorder.RecordTwoFactor(ctx, audit.EventTypeTwoFactorFailure, user.ID, user.Username, req.ClientIP, false, "invalid code")
			return nil, ErrInvalidCredentials
		}
	}

	if err := s.userService.ResetFailedLogins(ctx, user.ID); err != nil {
		return nil, err
	}
	s.detector.ClearSuspicion(ctx, req.ClientIP)

	// Transparent upgrade of legacy hashes while the plaintext is at hand.
	if crypto.NeedsRehash(user.Password) {
		if newHash, err := crypto.HashPassword(req.Password); err == nil {
			if err := s.userService.UpgradePasswordHash(ctx, user.ID, newHash); err != nil {
				slog.Warn("Failed to upgrade password hash", "userId", user.ID, "error", err)
			}
		}
	}

	pair, err := s.tokenService.Issue(ctx, user, req.ClientIP)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordLogin(ctx, audit.LoginRecord{
		UserID:   user.ID,
		Username: user.Username,
		IP:       req.ClientIP,
		Success:  true,
	})

	return &LoginResult{
		RequiresPasswordChange: user.MustChangePassword,
		Token:                  pair,
		User:                   profileOf(user),
	}, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the
// presented value.
func (s *AuthService) Refresh(ctx context.Context, refreshValue string, clientIP string) (*tokens.TokenPair, error) {
	row, err := s.tokenService.LookupRefreshToken(ctx, refreshValue)
	if err != nil {
		return nil, err
	}
	user, err := s.userService.GetUserByID(ctx, row.UserID)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, tokens.ErrRefreshTokenInvalid
	}
	pair, err := s.tokenService.Refresh(ctx, refreshValue, user, clientIP)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTokenRefresh(ctx, user.ID, user.Username, clientIP, true, "")
	return pair, nil
}

// Logout blacklists the presented access token and revokes every active
// refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID uint, accessToken string, clientIP string) error {
	if err := s.tokenService.Revoke(ctx, accessToken); err != nil && !errors.Is(err, tokens.ErrTokenInvalid) {
		return err
	}
	if err := s.tokenService.RevokeUserTokens(ctx, userID); err != nil {
		return err
	}
	user, err := s.userService.GetUserByID(ctx, userID)
	if err == nil {
		s.recorder.RecordLogout(ctx, user.ID, user.Username, clientIP)
	}
	return nil
}

// ChangePassword verifies the current password, applies the configured
// policy and the reuse-history check, then persists the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string, clientIP string) error {
	user, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := crypto.VerifyPassword(currentPassword, user.Password)
	if err != nil {
		return err
	}
	if !ok {
		s.recorder.RecordPasswordChange(ctx, user.ID, user.Username, clientIP, false, "current password mismatch")
		return ErrInvalidCredentials
	}

	if err := ValidatePassword(newPassword, s.policy); err != nil {
		s.recorder.RecordPasswordChange(ctx, user.ID, user.Username, clientIP, false, "policy violation")
		return err
	}
	reused, err := s.userService.IsPasswordReused(ctx, user, newPassword, s.policy.HistoryCount)
	if err != nil {
		return err
	}
	if reused {
		s.recorder.RecordPasswordChange(ctx, user.ID, user.Username, clientIP, false, "password reused")
		return ErrPasswordReused
	}

	newHash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userService.UpdatePassword(ctx, userID, newHash, s.policy.HistoryCount); err != nil {
		return err
	}
	s.recorder.RecordPasswordChange(ctx, user.ID, user.Username, clientIP, true, "")
	return nil
}

// ResetPassword never reveals whether the email exists: it returns nil
// either way. On a match a temporary password is stored and handed to the
// notification sender; delivery failures are logged, never surfaced.
func (s *AuthService) ResetPassword(ctx context.Context, email string, clientIP string) error {
	user, err := s.userService.GetUserByEmail(ctx, email)
	if errors.Is(err, users.ErrUserNotFound) {
		s.recorder.RecordPasswordReset(ctx, email, clientIP, false)
		return nil
	}
	if err != nil {
		return err
	}

	tempPassword, err := crypto.GenerateSecret(params.TemporaryPasswordLength)
	if err != nil {
		return err
	}
	tempHash, err := crypto.HashPassword(tempPassword)
	if err != nil {
		return err
	}
	if err := s.userService.SetTemporaryPassword(ctx, user.ID, tempHash); err != nil {
		return err
	}
	if err := mail.SendTemporaryPassword(s.mailSender, user.Email, tempPassword); err != nil {
		slog.Error("Failed to deliver temporary password", "userId", user.ID, "error", err)
	}
	s.recorder.RecordPasswordReset(ctx, email, clientIP, true)
	return nil
}

func NewAuthService(policy config.PasswordPolicy, userService *users.UserService, twoFactorSvc *twofactor.TwoFactorService,
	tokenService *tokens.TokenService, recorder *audit.Recorder, detector *audit.ThreatDetector, mailSender mail.Sender) *AuthService {
	return &AuthService{
		policy:       policy,
		userService:  userService,
		twoFactorSvc: twoFactorSvc,
		tokenService: tokenService,
		recorder:     recorder,
		detector:     detector,
		mailSender:   mailSender,
	}
}
