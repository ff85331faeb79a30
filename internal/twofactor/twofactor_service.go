package twofactor

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/vhkhang/authcore/internal/crypto"
	"github.com/vhkhang/authcore/model"
	"github.com/vhkhang/authcore/params"
	"gorm.io/gorm"
)

// userUpdater mirrors the per-user enabled flag kept on the User record.
type userUpdater interface {
	SetTwoFactorEnabled(ctx context.Context, userID uint, enabled bool) error
}

// TwoFactorService manages the TOTP lifecycle: a generated secret stays
// pending until the user proves possession with one valid code, only then
// does it become the live secret. Secrets are encrypted at rest.
type TwoFactorService struct {
	issuer       string
	cipher       *crypto.Cipher
	settingsRepo SettingsRepository
	recoveryRepo RecoveryCodeRepository
	users        userUpdater
}

func (s *TwoFactorService) encryptSecret(secret string) (string, error) {
	sealed, err := s.cipher.Encrypt([]byte(secret))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *TwoFactorService) decryptSecret(stored string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", err
	}
	secret, err := s.cipher.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// BeginSetup provisions a pending secret and returns it with the
// otpauth:// enrollment URL. Calling it again replaces any previous
// pending secret; the live secret is untouched.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID uint, accountName string) (secret string, url string, err error) {
	settings, err := s.settingsRepo.Get(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", err
	}
	if settings != nil && settings.Enabled {
		return "", "", ErrAlreadyEnabled
	}

	secret, url, err = crypto.GenerateTOTPSecret(s.issuer, accountName)
	if err != nil {
		return "", "", err
	}
	sealed, err := s.encryptSecret(secret)
	if err != nil {
		return "", "", err
	}
	err = s.settingsRepo.Upsert(ctx, &model.UserTwoFactorSettings{
		UserID:        userID,
		PendingSecret: sealed,
	})
	if err != nil {
		return "", "", err
	}
	return secret, url, nil
}

// Enable verifies code against the pending secret, promotes it to the live
// secret and returns the plaintext recovery codes. The codes are shown
// exactly once; only their hashes are stored.
func (s *TwoFactorService) Enable(ctx context.Context, userID uint, code string) ([]string, error) {
	settings, err := s.settingsRepo.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSetupNotStarted
	}
	if err != nil {
		return nil, err
	}
	if settings.Enabled {
		return nil, ErrAlreadyEnabled
	}
	if settings.PendingSecret == "" {
		return nil, ErrSetupNotStarted
	}

	pending, err := s.decryptSecret(settings.PendingSecret)
	if err != nil {
		return nil, err
	}
	if !crypto.ValidateTOTPCode(code, pending, time.Now()) {
		return nil, ErrInvalidCode
	}

	now := time.Now()
	_, err = s.settingsRepo.Updates(ctx, userID, map[string]interface{}{
		"secret":         settings.PendingSecret,
		"pending_secret": "",
		"enabled":        true,
		"enabled_at":     now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTwoFactorEnabled(ctx, userID, true); err != nil {
		return nil, err
	}
	return s.RegenerateRecoveryCodes(ctx, userID)
}

// Disable clears the secret and all recovery codes.
func (s *TwoFactorService) Disable(ctx context.Context, userID uint) error {
	_, err := s.settingsRepo.Updates(ctx, userID, map[string]interface{}{
		"secret":         "",
		"pending_secret": "",
		"enabled":        false,
		"enabled_at":     nil,
	})
	if err != nil {
		return err
	}
	if err := s.recoveryRepo.DeleteAll(ctx, userID); err != nil {
		return err
	}
	return s.users.SetTwoFactorEnabled(ctx, userID, false)
}

// VerifyCode checks a login-time code: TOTP against the live secret first,
// then the single-use recovery codes. A matching recovery code is consumed.
func (s *TwoFactorService) VerifyCode(ctx context.Context, userID uint, code string) (bool, error) {
	settings, err := s.settingsRepo.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotEnrolled
	}
	if err != nil {
		return false, err
	}
	if !settings.Enabled || settings.Secret == "" {
		return false, ErrNotEnrolled
	}

	secret, err := s.decryptSecret(settings.Secret)
	if err != nil {
		return false, err
	}
	if crypto.ValidateTOTPCode(code, secret, time.Now()) {
		return true, nil
	}
	return s.recoveryRepo.Consume(ctx, userID, crypto.HashToken(code))
}

// RegenerateRecoveryCodes replaces the full code set, invalidating all
// previously issued codes.
func (s *TwoFactorService) RegenerateRecoveryCodes(ctx context.Context, userID uint) ([]string, error) {
	codes, err := crypto.GenerateRecoveryCodes(params.RecoveryCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, crypto.HashToken(code))
	}
	if err := s.recoveryRepo.ReplaceAll(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

func NewTwoFactorService(issuer string, cipher *crypto.Cipher, settingsRepo SettingsRepository, recoveryRepo RecoveryCodeRepository, users userUpdater) *TwoFactorService {
	return &TwoFactorService{
		issuer:       issuer,
		cipher:       cipher,
		settingsRepo: settingsRepo,
		recoveryRepo: recoveryRepo,
		users:        users,
	}
}
