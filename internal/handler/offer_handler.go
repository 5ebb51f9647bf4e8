package handler

import (
	"errors"
	"net/http"
	"strings"

	"shopfront/internal/model"
	"shopfront/internal/offer"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxImageBytes = 10 << 20

// OfferHandler serves the public offer endpoints.
type OfferHandler struct {
	engine offer.Engine
	logger zerolog.Logger
}

// NewOfferHandler creates a new public offer handler.
func NewOfferHandler(engine offer.Engine, logger zerolog.Logger) *OfferHandler {
	return &OfferHandler{
		engine: engine,
		logger: logger.With().Str("handler", "offer").Logger(),
	}
}

// Active handles GET /api/offers/active?kind=&position=.
func (h *OfferHandler) Active(w http.ResponseWriter, r *http.Request) {
	var kind *model.OfferKind
	if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
		k := model.OfferKind(strings.ToUpper(raw))
		if !k.Valid() {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid kind parameter", nil, h.logger)
			return
		}
		kind = &k
	}

	var position *string
	if raw := strings.TrimSpace(r.URL.Query().Get("position")); raw != "" {
		position = &raw
	}

	offers, err := h.engine.ActiveOffers(r.Context(), kind, position)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if offers == nil {
		offers = []model.Offer{}
	}

	writeJSON(w, http.StatusOK, offers)
}

// Validate handles POST /api/offers/validate.
func (h *OfferHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateCodeRequest
	if derr := decode(r, &req); derr != nil {
		writeDomainError(w, derr, h.logger)
		return
	}

	validation, err := h.engine.ValidateDiscountCode(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.ValidateCodeResponse{Valid: true, Offer: validation})
}

// AdminOfferHandler serves offer administration behind the API key.
type AdminOfferHandler struct {
	service service.OfferService
	logger  zerolog.Logger
}

// NewAdminOfferHandler creates a new offer administration handler.
func NewAdminOfferHandler(service service.OfferService, logger zerolog.Logger) *AdminOfferHandler {
	return &AdminOfferHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin-offer").Logger(),
	}
}

// fail reports a missing offer as 404 rather than the 400 used for code checks.
func (h *AdminOfferHandler) fail(w http.ResponseWriter, err error) {
	var de *model.DomainError
	if errors.As(err, &de) && de.Code == model.ErrCodeOfferNotFound {
		writeError(w, http.StatusNotFound, de.Code, de.Message, nil, h.logger)
		return
	}
	writeDomainError(w, err, h.logger)
}

func (h *AdminOfferHandler) offerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid offer ID format", nil, h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/admin/offers.
func (h *AdminOfferHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error(), nil, h.logger)
		return
	}

	offers, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, err)
		return
	}
	if offers == nil {
		offers = []model.Offer{}
	}

	writeJSON(w, http.StatusOK, offers)
}

// Create handles POST /api/admin/offers.
func (h *AdminOfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOfferRequest
	if derr := decode(r, &req); derr != nil {
		writeDomainError(w, derr, h.logger)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/admin/offers/{id}.
func (h *AdminOfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.offerID(w, r)
	if !ok {
		return
	}

	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// Update handles PATCH /api/admin/offers/{id}.
func (h *AdminOfferHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.offerID(w, r)
	if !ok {
		return
	}

	var req model.UpdateOfferRequest
	if derr := decode(r, &req); derr != nil {
		writeDomainError(w, derr, h.logger)
		return
	}

	updated, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/offers/{id}.
func (h *AdminOfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.offerID(w, r)
	if !ok {
		return
	}

	deletion, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deletion)
}

// UploadImage handles POST /api/admin/offers/{id}/image with a multipart
// "image" field.
func (h *AdminOfferHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.offerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidPayload, "invalid multipart form", nil, h.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidPayload, "image file is required", nil, h.logger)
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidPayload, "file must be an image", nil, h.logger)
		return
	}

	updated, err := h.service.UploadImage(r.Context(), id, file, header.Filename)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
