package service

import (
	"context"
	"fmt"

	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
)

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// Get returns the user's cart, creating an empty one on first use.
func (s *cartService) Get(ctx context.Context, userID string) (*model.CartSnapshot, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	snapshot, err := s.cartRepo.Snapshot(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if snapshot == nil {
		return &model.CartSnapshot{Cart: *cart, Lines: []model.CartLine{}}, nil
	}

	return snapshot, nil
}

// AddItem adds quantity of a product to the user's cart.
func (s *cartService) AddItem(ctx context.Context, userID string, req model.AddCartItemRequest) (*model.CartSnapshot, error) {
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	item, err := s.cartRepo.AddItem(ctx, cart.ID, product, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("product_id", product.ID).
		Int("quantity", item.Quantity).
		Msg("cart item added")

	return s.Get(ctx, userID)
}
