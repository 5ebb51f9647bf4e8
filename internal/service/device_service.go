package service

import (
	"context"
	"fmt"
	"strings"

	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
)

type deviceService struct {
	deviceRepo repository.DeviceRepository
	logger     zerolog.Logger
}

// NewDeviceService creates a new device service.
func NewDeviceService(deviceRepo repository.DeviceRepository, logger zerolog.Logger) DeviceService {
	return &deviceService{
		deviceRepo: deviceRepo,
		logger:     logger.With().Str("service", "device").Logger(),
	}
}

// Register upserts the caller's push token.
func (s *deviceService) Register(ctx context.Context, userID string, req model.RegisterDeviceRequest) (*model.DeviceToken, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, model.InvalidInput("token is required")
	}

	device := &model.DeviceToken{
		Token:    token,
		UserID:   userID,
		Platform: req.Platform,
	}

	if err := s.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	s.logger.Debug().Str("user_id", userID).Str("platform", device.Platform).Msg("device registered")
	return device, nil
}
