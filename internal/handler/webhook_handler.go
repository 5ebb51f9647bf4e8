package handler

import (
	"errors"
	"io"
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/payment"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// WebhookResponse acknowledges a payment event.
type WebhookResponse struct {
	Received    bool   `json:"received"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	Skipped     string `json:"skipped,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// WebhookHandler receives signed payment processor events.
type WebhookHandler struct {
	verifier     *payment.Verifier
	service      service.ReconciliationService
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewWebhookHandler creates a new payment webhook handler.
func NewWebhookHandler(verifier *payment.Verifier, service service.ReconciliationService, maxBodyBytes int64, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:     verifier,
		service:      service,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With().Str("handler", "webhook").Logger(),
	}
}

// Handle handles POST /api/webhooks/payments. The signature is checked
// against the raw body before anything in it is trusted. Only persistence
// failures answer 5xx so that the processor redelivers.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidPayload, "unable to read request body", nil, h.logger)
		return
	}

	event, err := h.verifier.ConstructEvent(body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidPayload, "invalid signature", nil, h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidPayload, err.Error(), nil, h.logger)
		return
	}

	log := h.logger.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	var result *service.ReconcileResult
	switch event.Type {
	case payment.EventPaymentSucceeded:
		result, err = h.service.ReconcileSucceeded(r.Context(), event)
	case payment.EventPaymentFailed:
		result, err = h.service.ReconcileFailed(r.Context(), event)
	default:
		log.Debug().Msg("unhandled event type acknowledged")
		writeJSON(w, http.StatusOK, WebhookResponse{Received: true, Skipped: "unhandled event type"})
		return
	}

	if err != nil {
		if errors.Is(err, service.ErrMissingAttribution) || errors.Is(err, service.ErrCartNotFound) {
			writeJSON(w, http.StatusOK, WebhookResponse{Received: true, Skipped: err.Error()})
			return
		}
		log.Error().Err(err).Msg("failed to reconcile payment event")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to process event", nil, h.logger)
		return
	}

	resp := WebhookResponse{Received: true, Duplicate: result.Duplicate}
	if result.Order != nil {
		resp.OrderNumber = result.Order.OrderNumber
	}
	writeJSON(w, http.StatusOK, resp)
}
