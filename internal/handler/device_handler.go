package handler

import (
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// DeviceHandler registers push notification tokens.
type DeviceHandler struct {
	service service.DeviceService
	logger  zerolog.Logger
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(service service.DeviceService, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		service: service,
		logger:  logger.With().Str("handler", "device").Logger(),
	}
}

// Register handles POST /api/devices.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req model.RegisterDeviceRequest
	if derr := decode(r, &req); derr != nil {
		writeDomainError(w, derr, h.logger)
		return
	}

	device, err := h.service.Register(r.Context(), caller.UserID, req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, device)
}
