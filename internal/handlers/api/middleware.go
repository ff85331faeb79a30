package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vhkhang/authcore/internal/tokens"
)

const claimsLocalKey = "accessClaims"

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(ctx *fiber.Ctx) string {
	header := ctx.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return token
}

// ClaimsFromContext returns the validated claims stored by RequireAuth.
func ClaimsFromContext(ctx *fiber.Ctx) *tokens.AccessClaims {
	claims, _ := ctx.Locals(claimsLocalKey).(*tokens.AccessClaims)
	return claims
}

// RequireAuth validates the bearer token offline and rejects expired,
// malformed and revoked tokens with distinct codes.
func RequireAuth(tokenService *tokens.TokenService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := BearerToken(ctx)
		if token == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse("TOKEN_MISSING", "Missing bearer token."))
		}
		claims, err := tokenService.Validate(ctx.Context(), token)
		if err != nil {
			code := "TOKEN_INVALID"
			switch {
			case errors.Is(err, tokens.ErrTokenExpired):
				code = "TOKEN_EXPIRED"
			case errors.Is(err, tokens.ErrTokenRevoked):
				code = "TOKEN_REVOKED"
			}
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse(code, "Invalid bearer token."))
		}
		ctx.Locals(claimsLocalKey, claims)
		return ctx.Next()
	}
}
