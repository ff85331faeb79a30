package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vhkhang/authcore/internal/auth"
	"github.com/vhkhang/authcore/internal/tokens"
)

type AuthHandler struct {
	authService *auth.AuthService
}

type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode,omitempty"`
}

type tokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type userInfoResponse struct {
	UserID   uint     `json:"userId"`
	Username string   `json:"username"`
	FullName string   `json:"fullName,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

type loginResponse struct {
	Success                bool              `json:"success"`
	RequiresTwoFactor      bool              `json:"requiresTwoFactor,omitempty"`
	RequiresPasswordChange bool              `json:"requiresPasswordChange,omitempty"`
	Token                  *tokenResponse    `json:"token,omitempty"`
	User                   *userInfoResponse `json:"user,omitempty"`
}

func newTokenResponse(pair *tokens.TokenPair) *tokenResponse {
	return &tokenResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func (h *AuthHandler) PostLogin(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := ctx.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Missing required parameters"))
	}

	result, err := h.authService.Login(ctx.Context(), auth.LoginRequest{
		Username:      req.Username,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		ClientIP:      ctx.IP(),
	})
	if err != nil {
		var lockedErr *auth.AccountLockedError
		switch {
		case errors.As(err, &lockedErr):
			return ctx.Status(fiber.StatusLocked).JSON(
				NewErrorResponse("ACCOUNT_LOCKED", "Account temporarily locked."))
		case errors.Is(err, auth.ErrInvalidCredentials):
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse("AUTHENTICATION_FAILED", "Authentication failed."))
		default:
			slog.Error("Login failed", "error", err)
			return fiber.ErrInternalServerError
		}
	}

	resp := loginResponse{
		RequiresTwoFactor:      result.RequiresTwoFactor,
		RequiresPasswordChange: result.RequiresPasswordChange,
	}
	if result.Token != nil {
		resp.Success = true
		resp.Token = newTokenResponse(result.Token)
		resp.User = &userInfoResponse{
			UserID:   result.User.ID,
			Username: result.User.Username,
			FullName: result.User.FullName,
			Roles:    result.User.Roles,
		}
	}
	return ctx.JSON(NewDataResponse(resp))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) PostRefresh(ctx *fiber.Ctx) error {
	var req refreshRequest
	if err := ctx.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Missing refresh token"))
	}
	pair, err := h.authService.Refresh(ctx.Context(), req.RefreshToken, ctx.IP())
	if err != nil {
		if errors.Is(err, tokens.ErrRefreshTokenInvalid) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse("TOKEN_INVALID", "Invalid refresh token."))
		}
		slog.Error("Token refresh failed", "error", err)
		return fiber.ErrInternalServerError
	}
	return ctx.JSON(NewDataResponse(newTokenResponse(pair)))
}

func (h *AuthHandler) PostLogout(ctx *fiber.Ctx) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	if err := h.authService.Logout(ctx.Context(), claims.UserID(), BearerToken(ctx), ctx.IP()); err != nil {
		slog.Error("Logout failed", "userId", claims.UserID(), "error", err)
		return fiber.ErrInternalServerError
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"loggedOut": true}))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) PostChangePassword(ctx *fiber.Ctx) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	var req changePasswordRequest
	if err := ctx.BodyParser(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Missing required parameters"))
	}
	err := h.authService.ChangePassword(ctx.Context(), claims.UserID(), req.CurrentPassword, req.NewPassword, ctx.IP())
	if err != nil {
		var policyErr *auth.PasswordPolicyError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse("AUTHENTICATION_FAILED", "Authentication failed."))
		case errors.As(err, &policyErr):
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(
				NewErrorResponse("PASSWORD_POLICY", policyErr.Reason))
		case errors.Is(err, auth.ErrPasswordReused):
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(
				NewErrorResponse("PASSWORD_REUSED", "Password was used recently."))
		default:
			slog.Error("Change password failed", "userId", claims.UserID(), "error", err)
			return fiber.ErrInternalServerError
		}
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"changed": true}))
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) PostResetPassword(ctx *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil || req.Email == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Missing email"))
	}
	if err := h.authService.ResetPassword(ctx.Context(), req.Email, ctx.IP()); err != nil {
		slog.Error("Password reset failed", "error", err)
	}
	// uniform response regardless of whether the email exists
	return ctx.JSON(NewDataResponse(fiber.Map{"accepted": true}))
}

func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}
