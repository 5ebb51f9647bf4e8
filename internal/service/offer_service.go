package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"shopfront/internal/media"
	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errOfferMissing = model.NewDomainError(model.ErrCodeOfferNotFound, "Offer not found")

// offerService implements OfferService.
type offerService struct {
	offerRepo   repository.OfferRepository
	deviceRepo  repository.DeviceRepository
	media       media.Store
	mediaFolder string
	notifier    Notifier
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOfferService creates a new offer service. store may be nil when image
// uploads are not configured.
func NewOfferService(
	offerRepo repository.OfferRepository,
	deviceRepo repository.DeviceRepository,
	store media.Store,
	mediaFolder string,
	notifier Notifier,
	clock func() time.Time,
	logger zerolog.Logger,
) OfferService {
	if clock == nil {
		clock = time.Now
	}
	return &offerService{
		offerRepo:   offerRepo,
		deviceRepo:  deviceRepo,
		media:       store,
		mediaFolder: mediaFolder,
		notifier:    notifier,
		now:         clock,
		logger:      logger.With().Str("service", "offer").Logger(),
	}
}

// normaliseCode trims code and maps blank to nil.
func normaliseCode(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*code)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func clearOfferFields(o *model.Offer, req model.UpdateOfferRequest) error {
	for _, field := range req.Clear {
		var set bool
		switch field {
		case model.OfferFieldCode:
			set, o.Code = req.Code != nil, nil
		case model.OfferFieldDescription:
			set, o.Description = req.Description != nil, nil
		case model.OfferFieldMinOrderAmount:
			set, o.MinOrderAmount = req.MinOrderAmount != nil, nil
		case model.OfferFieldMaxUses:
			set, o.MaxUses = req.MaxUses != nil, nil
		case model.OfferFieldEndDate:
			set, o.EndDate = req.EndDate != nil, nil
		case model.OfferFieldPosition:
			set, o.Position = req.Position != nil, nil
		default:
			return model.InvalidInput(fmt.Sprintf("field %q cannot be cleared", field))
		}
		if set {
			return model.InvalidInput(fmt.Sprintf("field %q cannot be both set and cleared", field))
		}
	}
	return nil
}

// validateOffer checks the rules every stored offer must satisfy.
func validateOffer(o *model.Offer) error {
	if strings.TrimSpace(o.Title) == "" {
		return model.InvalidInput("title is required")
	}
	if !o.Kind.Valid() {
		return model.InvalidInput(fmt.Sprintf("type must be one of DISCOUNT_CODE, BANNER, BOTH, got %q", o.Kind))
	}
	if !o.DiscountType.Valid() {
		return model.InvalidInput(fmt.Sprintf("discountType must be one of PERCENTAGE, FIXED_AMOUNT, FREE_SHIPPING, got %q", o.DiscountType))
	}
	if o.DiscountValue.IsNegative() {
		return model.InvalidInput("discountValue must not be negative")
	}
	if o.DiscountType == model.DiscountPercentage && o.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return model.InvalidInput("a percentage discount cannot exceed 100")
	}
	if o.MinOrderAmount != nil && o.MinOrderAmount.IsNegative() {
		return model.InvalidInput("minOrderAmount must not be negative")
	}
	if o.MaxUses != nil && *o.MaxUses < 0 {
		return model.InvalidInput("maxUses must not be negative")
	}
	if o.MaxUses != nil && *o.MaxUses < o.UsedCount {
		return model.InvalidInput(fmt.Sprintf("maxUses cannot be lower than the %d uses already redeemed", o.UsedCount))
	}
	if o.EndDate != nil && o.EndDate.Before(o.StartDate) {
		return model.InvalidInput("endDate must not be before startDate")
	}
	if o.Code != nil && strings.IndexFunc(*o.Code, unicode.IsSpace) >= 0 {
		return model.InvalidInput("code must not contain whitespace")
	}
	if o.Code == nil && o.Kind != model.OfferKindBanner {
		return model.InvalidInput("code is required for offers of type " + string(o.Kind))
	}
	return nil
}

// Create validates and stores a new offer, optionally announcing it to every
// registered device.
func (s *offerService) Create(ctx context.Context, req model.CreateOfferRequest) (*model.Offer, error) {
	if req.DiscountValue == nil {
		return nil, model.InvalidInput("discountValue is required")
	}
	if req.StartDate == nil {
		return nil, model.InvalidInput("startDate is required")
	}

	now := s.now()
	offer := &model.Offer{
		ID:             uuid.New(),
		Code:           normaliseCode(req.Code),
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Kind:           req.Kind,
		DiscountType:   req.DiscountType,
		DiscountValue:  *req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		StartDate:      *req.StartDate,
		EndDate:        req.EndDate,
		Priority:       req.Priority,
		Position:       req.Position,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.IsActive != nil {
		offer.IsActive = *req.IsActive
	}

	if err := validateOffer(offer); err != nil {
		return nil, err
	}

	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.Info().Str("offer_id", offer.ID.String()).Str("title", offer.Title).Msg("offer created")

	if req.NotifyUsers {
		s.announce(ctx, offer)
	}

	return offer, nil
}

func (s *offerService) announce(ctx context.Context, offer *model.Offer) {
	if s.notifier == nil {
		return
	}

	tokens, err := s.deviceRepo.AllTokens(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("offer_id", offer.ID.String()).Msg("could not load device tokens for offer announcement")
		return
	}

	body := offer.Title
	if offer.Description != nil && *offer.Description != "" {
		body = *offer.Description
	}
	if offer.Code != nil {
		body = fmt.Sprintf("%s Use code %s at checkout.", body, *offer.Code)
	}

	data := map[string]any{"type": "offer", "offerId": offer.ID.String()}
	if offer.Code != nil {
		data["code"] = *offer.Code
	}

	s.notifier.Go(tokens, notify.Message{Title: offer.Title, Body: body, Data: data})
}

// Get retrieves an offer by ID.
func (s *offerService) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := s.offerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	if offer == nil {
		return nil, errOfferMissing
	}
	return offer, nil
}

// List retrieves offers newest first.
func (s *offerService) List(ctx context.Context, limit, offset int) ([]model.Offer, error) {
	limit, offset = clampPage(limit, offset)

	offers, err := s.offerRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

// Update applies the non-nil fields of req, then resets the fields named in
// req.Clear to null. A code that trims to empty is rejected.
func (s *offerService) Update(ctx context.Context, id uuid.UUID, req model.UpdateOfferRequest) (*model.Offer, error) {
	if req.Code != nil && strings.TrimSpace(*req.Code) == "" {
		return nil, model.InvalidInput(`code must not be blank; list "code" in clear to remove it`)
	}

	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		offer.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		offer.Description = req.Description
	}
	if req.Code != nil {
		offer.Code = normaliseCode(req.Code)
	}
	if req.Kind != nil {
		offer.Kind = *req.Kind
	}
	if req.DiscountType != nil {
		offer.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		offer.DiscountValue = *req.DiscountValue
	}
	if req.MinOrderAmount != nil {
		offer.MinOrderAmount = req.MinOrderAmount
	}
	if req.MaxUses != nil {
		offer.MaxUses = req.MaxUses
	}
	if req.StartDate != nil {
		offer.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		offer.EndDate = req.EndDate
	}
	if req.Priority != nil {
		offer.Priority = *req.Priority
	}
	if req.Position != nil {
		offer.Position = req.Position
	}
	if req.IsActive != nil {
		offer.IsActive = *req.IsActive
	}
	if err := clearOfferFields(offer, req); err != nil {
		return nil, err
	}

	if err := validateOffer(offer); err != nil {
		return nil, err
	}

	offer.UpdatedAt = s.now()
	if err := s.offerRepo.Update(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.Info().Str("offer_id", offer.ID.String()).Msg("offer updated")
	return offer, nil
}

// Delete retires a redeemed offer so past discounts stay auditable, and
// removes an unused one together with its banner image.
func (s *offerService) Delete(ctx context.Context, id uuid.UUID) (*model.OfferDeletion, error) {
	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if offer.UsedCount > 0 {
		if err := s.offerRepo.Retire(ctx, id, s.now()); err != nil {
			return nil, err
		}
		s.logger.Info().Str("offer_id", id.String()).Int("used_count", offer.UsedCount).Msg("offer retired")
		return &model.OfferDeletion{ID: id, Retired: true}, nil
	}

	if err := s.offerRepo.Delete(ctx, id); err != nil {
		return nil, err
	}

	if offer.ImagePublicID != nil {
		s.deleteImage(ctx, *offer.ImagePublicID)
	}

	s.logger.Info().Str("offer_id", id.String()).Msg("offer deleted")
	return &model.OfferDeletion{ID: id}, nil
}

// UploadImage stores a banner image for the offer, replacing any previous one.
func (s *offerService) UploadImage(ctx context.Context, id uuid.UUID, r io.Reader, filename string) (*model.Offer, error) {
	if s.media == nil {
		return nil, model.ErrMediaDisabled
	}

	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	img, err := s.media.Upload(ctx, r, s.mediaFolder, filename)
	if err != nil {
		s.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to upload offer image")
		return nil, fmt.Errorf("failed to upload offer image: %w", err)
	}

	previous := offer.ImagePublicID
	offer.ImageURL = &img.URL
	offer.ImagePublicID = &img.PublicID
	offer.UpdatedAt = s.now()

	if err := s.offerRepo.Update(ctx, offer); err != nil {
		s.deleteImage(ctx, img.PublicID)
		return nil, err
	}

	if previous != nil && *previous != img.PublicID {
		s.deleteImage(ctx, *previous)
	}

	return offer, nil
}

func (s *offerService) deleteImage(ctx context.Context, publicID string) {
	if s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, publicID); err != nil {
		s.logger.Warn().Err(err).Str("public_id", publicID).Msg("failed to delete offer image")
	}
}
