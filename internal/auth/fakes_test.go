package auth

import (
	"context"
	"sync"
	"time"

	"github.com/vhkhang/authcore/internal/audit"
	"github.com/vhkhang/authcore/internal/mail"
	"github.com/vhkhang/authcore/internal/store"
	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	nextID uint
	users  map[uint]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*model.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID uint) (*model.User, error) {
	user, ok := r.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == 0 {
		r.nextID++
		user.ID = r.nextID
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error) {
	user, ok := r.users[userID]
	if !ok {
		return 0, nil
	}
	for column, value := range columns {
		switch column {
		case "password":
			user.Password = value.(string)
		case "failed_attempts":
			user.FailedAttempts = value.(int)
		case "locked_until":
			if value == nil {
				user.LockedUntil = nil
			} else {
				t := value.(time.Time)
				user.LockedUntil = &t
			}
		case "must_change_password":
			user.MustChangePassword = value.(bool)
		case "two_factor_enabled":
			user.TwoFactorEnabled = value.(bool)
		case "disabled":
			user.Disabled = value.(bool)
		}
	}
	return 1, nil
}

func (r *fakeUserRepo) RegisterFailedLogin(ctx context.Context, userID uint, threshold int, lockFor time.Duration) (bool, error) {
	user, ok := r.users[userID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	user.FailedAttempts++
	if user.FailedAttempts >= threshold {
		until := time.Now().Add(lockFor)
		user.LockedUntil = &until
		return true, nil
	}
	return false, nil
}

type fakeHistoryRepo struct {
	nextID  uint
	entries []*model.PasswordHistory
}

func (r *fakeHistoryRepo) Append(ctx context.Context, entry *model.PasswordHistory) error {
	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeHistoryRepo) Latest(ctx context.Context, userID uint, n int) ([]*model.PasswordHistory, error) {
	var latest []*model.PasswordHistory
	for i := len(r.entries) - 1; i >= 0 && len(latest) < n; i-- {
		if r.entries[i].UserID == userID {
			latest = append(latest, r.entries[i])
		}
	}
	return latest, nil
}

func (r *fakeHistoryRepo) Trim(ctx context.Context, userID uint, keep int) error {
	var kept []*model.PasswordHistory
	seen := 0
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.UserID != userID {
			kept = append([]*model.PasswordHistory{entry}, kept...)
			continue
		}
		if seen < keep {
			kept = append([]*model.PasswordHistory{entry}, kept...)
			seen++
		}
	}
	r.entries = kept
	return nil
}

type fakeSettingsRepo struct {
	nextID   uint
	settings map[uint]*model.UserTwoFactorSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[uint]*model.UserTwoFactorSettings)}
}

func (r *fakeSettingsRepo) Get(ctx context.Context, userID uint) (*model.UserTwoFactorSettings, error) {
	settings, ok := r.settings[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *settings
	return &copied, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, settings *model.UserTwoFactorSettings) error {
	if existing, ok := r.settings[settings.UserID]; ok {
		settings.ID = existing.ID
	} else {
		r.nextID++
		settings.ID = r.nextID
	}
	copied := *settings
	r.settings[settings.UserID] = &copied
	return nil
}

func (r *fakeSettingsRepo) Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error) {
	settings, ok := r.settings[userID]
	if !ok {
		return 0, nil
	}
	for column, value := range columns {
		switch column {
		case "secret":
			settings.Secret = value.(string)
		case "pending_secret":
			settings.PendingSecret = value.(string)
		case "enabled":
			settings.Enabled = value.(bool)
		case "enabled_at":
			if value == nil {
				settings.EnabledAt = nil
			} else {
				t := value.(time.Time)
				settings.EnabledAt = &t
			}
		}
	}
	return 1, nil
}

type fakeRecoveryRepo struct {
	hashes map[uint]map[string]struct{}
}

func newFakeRecoveryRepo() *fakeRecoveryRepo {
	return &fakeRecoveryRepo{hashes: make(map[uint]map[string]struct{})}
}

func (r *fakeRecoveryRepo) ReplaceAll(ctx context.Context, userID uint, codeHashes []string) error {
	set := make(map[string]struct{}, len(codeHashes))
	for _, hash := range codeHashes {
		set[hash] = struct{}{}
	}
	r.hashes[userID] = set
	return nil
}

func (r *fakeRecoveryRepo) Consume(ctx context.Context, userID uint, codeHash string) (bool, error) {
	set, ok := r.hashes[userID]
	if !ok {
		return false, nil
	}
	if _, ok := set[codeHash]; !ok {
		return false, nil
	}
	delete(set, codeHash)
	return true, nil
}

func (r *fakeRecoveryRepo) DeleteAll(ctx context.Context, userID uint) error {
	delete(r.hashes, userID)
	return nil
}

type fakeRefreshRepo struct {
	nextID uint
	rows   map[uint]*model.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{rows: make(map[uint]*model.RefreshToken)}
}

func (r *fakeRefreshRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	r.nextID++
	token.ID = r.nextID
	copied := *token
	r.rows[token.ID] = &copied
	return nil
}

func (r *fakeRefreshRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	for _, row := range r.rows {
		if row.Token == token {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRefreshRepo) Rotate(ctx context.Context, oldID uint, replacement *model.RefreshToken) error {
	row, ok := r.rows[oldID]
	if !ok || !row.Active {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	row.Active = false
	row.RevokedAt = &now
	return r.Create(ctx, replacement)
}

func (r *fakeRefreshRepo) RevokeAllForUser(ctx context.Context, userID uint) error {
	now := time.Now()
	for _, row := range r.rows {
		if row.UserID == userID && row.Active {
			row.Active = false
			row.RevokedAt = &now
		}
	}
	return nil
}

type fakeBlacklistRepo struct {
	entries map[string]*model.BlacklistedToken
}

func newFakeBlacklistRepo() *fakeBlacklistRepo {
	return &fakeBlacklistRepo{entries: make(map[string]*model.BlacklistedToken)}
}

func (r *fakeBlacklistRepo) Add(ctx context.Context, entry *model.BlacklistedToken) error {
	if _, ok := r.entries[entry.TokenHash]; ok {
		return nil
	}
	copied := *entry
	r.entries[entry.TokenHash] = &copied
	return nil
}

func (r *fakeBlacklistRepo) Exists(ctx context.Context, tokenHash string) (bool, error) {
	_, ok := r.entries[tokenHash]
	return ok, nil
}

func (r *fakeBlacklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for hash, entry := range r.entries {
		if !entry.ExpiresAt.After(now) {
			delete(r.entries, hash)
			deleted++
		}
	}
	return deleted, nil
}

type fakeEventRepo struct {
	events []*model.SecurityAuditEvent
}

func (r *fakeEventRepo) RecordEvent(ctx context.Context, event *model.SecurityAuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) CountFailedLoginsByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	for _, event := range r.events {
		if event.EventType == audit.EventTypeLoginFailure && event.IP == ip && !event.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeEventRepo) FailedLoginsByIP(ctx context.Context, since time.Time, min int64) ([]audit.IPCount, error) {
	return nil, nil
}

func (r *fakeEventRepo) DistinctUsernamesByIP(ctx context.Context, since time.Time, min int64) ([]audit.IPCount, error) {
	return nil, nil
}

func (r *fakeEventRepo) ActionsByUser(ctx context.Context, since time.Time, min int64) ([]audit.UserCount, error) {
	return nil, nil
}

func (r *fakeEventRepo) countType(eventType string) int {
	count := 0
	for _, event := range r.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

type fakeThreatRepo struct {
	nextID  uint
	threats []*model.SecurityThreat
}

func (r *fakeThreatRepo) Create(ctx context.Context, threat *model.SecurityThreat) error {
	r.nextID++
	threat.ID = r.nextID
	r.threats = append(r.threats, threat)
	return nil
}

func (r *fakeThreatRepo) Active(ctx context.Context) ([]*model.SecurityThreat, error) {
	var active []*model.SecurityThreat
	for _, threat := range r.threats {
		if !threat.Resolved {
			active = append(active, threat)
		}
	}
	return active, nil
}

func (r *fakeThreatRepo) HasUnresolved(ctx context.Context, threatType, sourceIP string, userID uint, since time.Time) (bool, error) {
	for _, threat := range r.threats {
		if threat.Type == threatType && !threat.Resolved {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeThreatRepo) Resolve(ctx context.Context, threatID uint, resolution string) (int64, error) {
	for _, threat := range r.threats {
		if threat.ID == threatID && !threat.Resolved {
			threat.Resolved = true
			threat.Resolution = resolution
			return 1, nil
		}
	}
	return 0, nil
}

type fakeStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string]string)}
}

func (s *fakeStorage) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return val, nil
}

func (s *fakeStorage) Set(ctx context.Context, key string, val string, expiresIn time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
	return nil
}

func (s *fakeStorage) SetNX(ctx context.Context, key string, val string, expiresIn time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = val
	return true, nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type captureSender struct {
	messages []*mail.Message
}

func (s *captureSender) Send(message *mail.Message) error {
	s.messages = append(s.messages, message)
	return nil
}
