package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"shopfront/internal/middleware"
	"shopfront/internal/model"
	"shopfront/internal/payment"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context, q model.ProductQuery) ([]model.Product, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) List(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) GetByNumber(ctx context.Context, userID, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, userID, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockEngine is a mock implementation of offer.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) ValidateDiscountCode(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.OfferValidation, error) {
	args := m.Called(ctx, code, orderAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OfferValidation), args.Error(1)
}

func (m *MockEngine) ActiveOffers(ctx context.Context, kind *model.OfferKind, position *string) ([]model.Offer, error) {
	args := m.Called(ctx, kind, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Offer), args.Error(1)
}

// MockOfferService is a mock implementation of OfferService.
type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) Create(ctx context.Context, req model.CreateOfferRequest) (*model.Offer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) List(ctx context.Context, limit, offset int) ([]model.Offer, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Offer), args.Error(1)
}

func (m *MockOfferService) Update(ctx context.Context, id uuid.UUID, req model.UpdateOfferRequest) (*model.Offer, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) Delete(ctx context.Context, id uuid.UUID) (*model.OfferDeletion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OfferDeletion), args.Error(1)
}

func (m *MockOfferService) UploadImage(ctx context.Context, id uuid.UUID, r io.Reader, filename string) (*model.Offer, error) {
	args := m.Called(ctx, id, r, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, userID string) (*model.CartSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartSnapshot), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID string, req model.AddCartItemRequest) (*model.CartSnapshot, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartSnapshot), args.Error(1)
}

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Quote(ctx context.Context, identity model.Identity, req model.QuoteRequest) (*model.Quote, error) {
	args := m.Called(ctx, identity, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quote), args.Error(1)
}

// MockReconciliationService is a mock implementation of ReconciliationService.
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) ReconcileSucceeded(ctx context.Context, event *payment.Event) (*service.ReconcileResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileResult), args.Error(1)
}

func (m *MockReconciliationService) ReconcileFailed(ctx context.Context, event *payment.Event) (*service.ReconcileResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileResult), args.Error(1)
}

// MockDeviceService is a mock implementation of DeviceService.
type MockDeviceService struct {
	mock.Mock
}

func (m *MockDeviceService) Register(ctx context.Context, userID string, req model.RegisterDeviceRequest) (*model.DeviceToken, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeviceToken), args.Error(1)
}

var testLogger = zerolog.Nop()

var shopper = model.Identity{
	UserID:    "user_2abc",
	Email:     "asha@example.com",
	FirstName: "Asha",
	LastName:  "Rao",
}

// asShopper attaches the test identity as the authentication middleware would.
func asShopper(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), shopper))
}

func decodeError(rec *httptest.ResponseRecorder) model.ErrorResponse {
	var resp model.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return resp
}
