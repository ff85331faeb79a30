package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
	"github.com/vhkhang/authcore/internal/audit"
	"github.com/vhkhang/authcore/model"
)

type ThreatHandler struct {
	detector *audit.ThreatDetector
	recorder *audit.Recorder
}

type threatResponse struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	SourceIP    string    `json:"sourceIp,omitempty"`
	UserID      uint      `json:"userId,omitempty"`
	Username    string    `json:"username,omitempty"`
	Evidence    string    `json:"evidence,omitempty"`
	DetectedAt  time.Time `json:"detectedAt"`
}

func newThreatResponse(threat *model.SecurityThreat) threatResponse {
	return threatResponse{
		ID:          threat.ID,
		Type:        threat.Type,
		Severity:    threat.Severity,
		Description: threat.Description,
		SourceIP:    threat.SourceIP,
		UserID:      threat.UserID,
		Username:    threat.Username,
		Evidence:    threat.Evidence,
		DetectedAt:  threat.DetectedAt,
	}
}

func (h *ThreatHandler) GetActiveThreats(ctx *fiber.Ctx) error {
	threats, err := h.detector.ActiveThreats(ctx.Context())
	if err != nil {
		slog.Error("Failed to list active threats", "error", err)
		return fiber.ErrInternalServerError
	}
	resp := make([]threatResponse, 0, len(threats))
	for _, threat := range threats {
		resp = append(resp, newThreatResponse(threat))
	}
	return ctx.JSON(NewDataResponse(resp))
}

type resolveThreatRequest struct {
	Resolution string `json:"resolution"`
}

func (h *ThreatHandler) PostResolveThreat(ctx *fiber.Ctx) error {
	threatID := cast.ToUint(ctx.Params("id"))
	if threatID == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Invalid threat id"))
	}
	var req resolveThreatRequest
	if err := ctx.BodyParser(&req); err != nil || req.Resolution == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("BAD_REQUEST", "Missing resolution note"))
	}
	if err := h.detector.ResolveThreat(ctx.Context(), threatID, req.Resolution); err != nil {
		if errors.Is(err, audit.ErrThreatNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(
				NewErrorResponse("THREAT_NOT_FOUND", "Threat not found or already resolved."))
		}
		slog.Error("Failed to resolve threat", "threatId", threatID, "error", err)
		return fiber.ErrInternalServerError
	}
	if claims := ClaimsFromContext(ctx); claims != nil {
		h.recorder.RecordThreatResolved(ctx.Context(), claims.UserID(), claims.Username, ctx.IP(), threatID)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"resolved": true}))
}

func NewThreatHandler(detector *audit.ThreatDetector, recorder *audit.Recorder) *ThreatHandler {
	return &ThreatHandler{
		detector: detector,
		recorder: recorder,
	}
}
