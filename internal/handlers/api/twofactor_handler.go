package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/vhkhang/authcore/internal/audit"
	"github.com/vhkhang/authcore/internal/twofactor"
)

type TwoFactorHandler struct {
	twoFactorService *twofactor.TwoFactorService
	recorder         *audit.Recorder
}

func (h *TwoFactorHandler) PostSetup(ctx *fiber.Ctx) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	secret, url, err := h.twoFactorService.BeginSetup(ctx.Context(), claims.UserID(), claims.Username)
	if err != nil {
		if errors.Is(err, twofactor.ErrAlreadyEnabled) {
			return ctx.Status(fiber.StatusConflict).JSON(
				NewErrorResponse("ALREADY_ENABLED", "Two-factor is already enabled."))
		}
		slog.Error("2FA setup failed", "userId", claims.UserID(), "error", err)
		return fiber.ErrInternalServerError
	}
	return ctx.JSON(NewDataResponse(fiber.Map{
		"secret":     secret,
		"otpauthUrl": url,
	}))
}

type enableTwoFactorRequest struct {
	Code string `json:"code"`
}

func (h *TwoFactorHandler) PostEnable(ctx *fiber.Ctx) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	var req enableTwoFactorRequest
	if err := ctx.BodyParser(&req); err != nil || req.Code == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Missing verification code"))
	}
	recoveryCodes, err := h.twoFactorService.Enable(ctx.Context(), claims.UserID(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, twofactor.ErrInvalidCode):
			h.recorder.RecordTwoFactor(ctx.Context(), audit.EventTypeTwoFactorFailure,
				claims.UserID(), claims.Username, ctx.IP(), false, "invalid enable code")
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse("INVALID_CODE", "Verification failed."))
		case errors.Is(err, twofactor.ErrSetupNotStarted):
			return ctx.Status(fiber.StatusConflict).JSON(
				NewErrorResponse("SETUP_NOT_STARTED", "Two-factor setup has not started."))
		case errors.Is(err, twofactor.ErrAlreadyEnabled):
			return ctx.Status(fiber.StatusConflict).JSON(
				NewErrorResponse("ALREADY_ENABLED", "Two-factor is already enabled."))
		default:
			slog.Error("2FA enable failed", "userId", claims.UserID(), "error", err)
			return fiber.ErrInternalServerError
		}
	}
	h.recorder.RecordTwoFactor(ctx.Context(), audit.EventTypeTwoFactorEnabled,
		claims.UserID(), claims.Username, ctx.IP(), true, "")
	return ctx.JSON(NewDataResponse(fiber.Map{
		"recoveryCodes": recoveryCodes,
	}))
}

func (h *TwoFactorHandler) PostDisable(ctx *fiber.Ctx) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	if err := h.twoFactorService.Disable(ctx.Context(), claims.UserID()); err != nil {
		slog.Error("2FA disable failed", "userId", claims.UserID(), "error", err)
		return fiber.ErrInternalServerError
	}
	h.recorder.RecordTwoFactor(ctx.Context(), audit.EventTypeTwoFactorDisabled,
		claims.UserID(), claims.Username, ctx.IP(), true, "")
	return ctx.JSON(NewDataResponse(fiber.Map{"disabled": true}))
}

func (h *TwoFactorHandler) PostRegenerateRecoveryCodes(ctx *fiber.Ctx) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	recoveryCodes, err := h.twoFactorService.RegenerateRecoveryCodes(ctx.Context(), claims.UserID())
	if err != nil {
		slog.Error("Recovery code regeneration failed", "userId", claims.UserID(), "error", err)
		return fiber.ErrInternalServerError
	}
	h.recorder.RecordTwoFactor(ctx.Context(), audit.EventTypeRecoveryCodesRegenerated,
		claims.UserID(), claims.Username, ctx.IP(), true, "")
	return ctx.JSON(NewDataResponse(fiber.Map{
		"recoveryCodes": recoveryCodes,
	}))
}

func NewTwoFactorHandler(twoFactorService *twofactor.TwoFactorService, recorder *audit.Recorder) *TwoFactorHandler {
	return &TwoFactorHandler{
		twoFactorService: twoFactorService,
		recorder:         recorder,
	}
}
