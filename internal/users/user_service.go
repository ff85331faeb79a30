package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/vhkhang/authcore/internal/crypto"
	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

const (
	idxUserUsername = "idx_users_username"
	idxUserEmail    = "idx_users_email"
)

type CreateUserOptions struct {
	Username string
	FullName string
	Email    string
	Password string
	Roles    []model.Role
}

type UserService struct {
	userRepo    UserRepository
	historyRepo PasswordHistoryRepository
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) CreateUser(ctx context.Context, opts CreateUserOptions) (*model.User, error) {
	passwordHash, err := crypto.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}
	user := model.User{
		Username: opts.Username,
		FullName: opts.FullName,
		Email:    opts.Email,
		Password: passwordHash,
		Roles:    opts.Roles,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			switch {
			case strings.Contains(mysqlErr.Message, idxUserUsername):
				return nil, ErrUsernameTaken
			case strings.Contains(mysqlErr.Message, idxUserEmail):
				return nil, ErrEmailRegistered
			}
		}
		return nil, err
	}
	return &user, nil
}

// RegisterFailedLogin bumps the failed-attempt counter and reports whether
// the account got locked by this attempt.
func (s *UserService) RegisterFailedLogin(ctx context.Context, userID uint, threshold int, lockFor time.Duration) (bool, error) {
	return s.userRepo.RegisterFailedLogin(ctx, userID, threshold, lockFor)
}

// ResetFailedLogins clears the counter and any lockout. Called on
// successful login and by explicit admin unlock.
func (s *UserService) ResetFailedLogins(ctx context.Context, userID uint) error {
	_, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{
		"failed_attempts": 0,
		"locked_until":    nil,
	})
	return err
}

// UpdatePassword persists a new password hash and appends the previous one
// to the history, trimmed to historyCount entries.
func (s *UserService) UpdatePassword(ctx context.Context, userID uint, newHash string, historyCount int) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"password":             newHash,
		"must_change_password": false,
	}
	if _, err := s.userRepo.Updates(ctx, userID, updates); err != nil {
		return err
	}
	if err := s.historyRepo.Append(ctx, &model.PasswordHistory{UserID: userID, Password: user.Password}); err != nil {
		return err
	}
	return s.historyRepo.Trim(ctx, userID, historyCount)
}

// IsPasswordReused reports whether password matches the current hash or
// any of the last n history entries. Hashes are salted, so each candidate
// is verified rather than compared.
func (s *UserService) IsPasswordReused(ctx context.Context, user *model.User, password string, n int) (bool, error) {
	if ok, _ := crypto.VerifyPassword(password, user.Password); ok {
		return true, nil
	}
	entries, err := s.historyRepo.Latest(ctx, user.ID, n)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if ok, _ := crypto.VerifyPassword(password, entry.Password); ok {
			return true, nil
		}
	}
	return false, nil
}

// UpgradePasswordHash swaps a legacy hash for its modern equivalent after
// a successful verification. No history entry: the password is unchanged.
func (s *UserService) UpgradePasswordHash(ctx context.Context, userID uint, newHash string) error {
	_, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{
		"password": newHash,
	})
	return err
}

// SetTemporaryPassword stores the hash of a generated password and forces
// a change on next login.
func (s *UserService) SetTemporaryPassword(ctx context.Context, userID uint, tempHash string) error {
	_, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{
		"password":             tempHash,
		"must_change_password": true,
	})
	return err
}

func (s *UserService) SetTwoFactorEnabled(ctx context.Context, userID uint, enabled bool) error {
	_, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{
		"two_factor_enabled": enabled,
	})
	return err
}

func NewUserService(userRepo UserRepository, historyRepo PasswordHistoryRepository) *UserService {
	return &UserService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
	}
}
