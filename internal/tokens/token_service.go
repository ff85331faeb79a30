package tokens

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vhkhang/authcore/internal/crypto"
	"github.com/vhkhang/authcore/model"
	"github.com/vhkhang/authcore/params"
	"gorm.io/gorm"
)

type Config struct {
	SigningKey         []byte
	Issuer             string
	Audience           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type AccessClaims struct {
	Username string   `json:"username"`
	FullName string   `json:"name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as the internal user id.
func (c *AccessClaims) UserID() uint {
	id, _ := strconv.ParseUint(c.Subject, 10, 64)
	return uint(id)
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService mints, validates, rotates and revokes access/refresh token
// pairs. Access tokens are stateless HS256 JWTs; refresh tokens are opaque
// random values persisted per session.
type TokenService struct {
	config        Config
	refreshRepo   RefreshTokenRepository
	blacklistRepo BlacklistRepository
}

func (s *TokenService) signAccessToken(user *model.User, now time.Time) (string, time.Time, error) {
	accessExpiry := now.Add(s.config.AccessTokenExpiry)
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}
	claims := AccessClaims{
		Username: user.Username,
		FullName: user.FullName,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.config.Issuer,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
	return signed, accessExpiry, err
}

func (s *TokenService) Issue(ctx context.Context, user *model.User, clientIP string) (*TokenPair, error) {
	now := time.Now()
	accessToken, accessExpiry, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, err
	}

	refreshValue, err := crypto.GenerateRandomToken(params.RefreshTokenSize)
	if err != nil {
		return nil, err
	}
	refreshExpiry := now.Add(s.config.RefreshTokenExpiry)
	row := model.RefreshToken{
		Token:     refreshValue,
		UserID:    user.ID,
		IssuedIP:  clientIP,
		IssuedAt:  now,
		ExpiresAt: refreshExpiry,
		Active:    true,
	}
	if err := s.refreshRepo.Create(ctx, &row); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshValue,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// Refresh exchanges an active, unexpired refresh token for a new token
// pair. The presented value is rotated: it is revoked in the same
// transaction that persists its replacement, closing the replay window.
func (s *TokenService) Refresh(ctx context.Context, refreshValue string, user *model.User, clientIP string) (*TokenPair, error) {
	row, err := s.LookupRefreshToken(ctx, refreshValue)
	if err != nil {
		return nil, err
	}
	if row.UserID != user.ID {
		return nil, ErrRefreshTokenInvalid
	}

	now := time.Now()
	accessToken, accessExpiry, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, err
	}

	newValue, err := crypto.GenerateRandomToken(params.RefreshTokenSize)
	if err != nil {
		return nil, err
	}
	refreshExpiry := now.Add(s.config.RefreshTokenExpiry)
	replacement := model.RefreshToken{
		Token:     newValue,
		UserID:    user.ID,
		IssuedIP:  clientIP,
		IssuedAt:  now,
		ExpiresAt: refreshExpiry,
		Active:    true,
	}
	if err := s.refreshRepo.Rotate(ctx, row.ID, &replacement); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// lost a rotation race, the presented value is already dead
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     newValue,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// LookupRefreshToken resolves a presented refresh value to an active,
// unexpired stored row.
func (s *TokenService) LookupRefreshToken(ctx context.Context, refreshValue string) (*model.RefreshToken, error) {
	row, err := s.refreshRepo.GetByToken(ctx, refreshValue)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !row.Usable(time.Now()) {
		return nil, ErrRefreshTokenInvalid
	}
	return row, nil
}

// Validate checks the signature (HS256 only, so an alg downgrade fails),
// issuer, audience and expiry, then rejects blacklisted tokens by content
// hash. Expired, malformed and revoked tokens are distinguished for
// logging via the returned error.
func (s *TokenService) Validate(ctx context.Context, accessToken string) (*AccessClaims, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.config.SigningKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	revoked, err := s.blacklistRepo.Exists(ctx, crypto.HashToken(accessToken))
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return &claims, nil
}

// Revoke blacklists an access token by content hash. The entry carries the
// token's own expiry, so cleanup is implicit: no blacklist row outlives
// the token it shadows.
func (s *TokenService) Revoke(ctx context.Context, accessToken string) error {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.config.SigningKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ErrTokenInvalid
	}
	expiresAt := time.Now().Add(s.config.AccessTokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if !expiresAt.After(time.Now()) {
		// already expired, nothing to shadow
		return nil
	}
	return s.blacklistRepo.Add(ctx, &model.BlacklistedToken{
		TokenHash:     crypto.HashToken(accessToken),
		BlacklistedAt: time.Now(),
		ExpiresAt:     expiresAt,
	})
}

// RevokeUserTokens invalidates every active refresh token of a user.
func (s *TokenService) RevokeUserTokens(ctx context.Context, userID uint) error {
	return s.refreshRepo.RevokeAllForUser(ctx, userID)
}

// PruneExpired drops blacklist entries whose shadowed tokens have expired.
func (s *TokenService) PruneExpired(ctx context.Context) (int64, error) {
	return s.blacklistRepo.DeleteExpired(ctx, time.Now())
}

func NewTokenService(config Config, refreshRepo RefreshTokenRepository, blacklistRepo BlacklistRepository) *TokenService {
	return &TokenService{
		config:        config,
		refreshRepo:   refreshRepo,
		blacklistRepo: blacklistRepo,
	}
}
