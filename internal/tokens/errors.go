package tokens

import "errors"

var (
	ErrTokenExpired        = errors.New("token is expired")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
)
