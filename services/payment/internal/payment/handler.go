package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/provider"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	MaxBodyBytes    = 1 << 20
	SignatureHeader = "Provider-Signature"
)

type Handler struct {
	service *Service
	webhook *saga.Listener
	secret  []byte
	logger  aqm.Logger
	tlm     *telemetry.HTTP
}

// NewHandler builds the payment routes. An empty secret disables webhook
// signature checks.
func NewHandler(service *Service, webhook *saga.Listener, secret string, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		service: service,
		webhook: webhook,
		secret:  []byte(secret),
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.CreatePayment)
		r.Post("/webhook", h.ProviderWebhook)
		r.Get("/{id}", h.GetPayment)
		r.Post("/{id}/cancel", h.CancelPayment)
		r.Post("/{id}/confirm", h.ConfirmPayment)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreatePayment")
	defer finish()
	log := h.log(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, log, "cannot create payment", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, p, aqm.RESTfulLinksFor(p)...)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetPayment")
	defer finish()
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot get payment", err)
		return
	}

	aqm.RespondSuccess(w, p, aqm.RESTfulLinksFor(p)...)
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelPayment")
	defer finish()
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	p, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot cancel payment", err)
		return
	}

	aqm.RespondSuccess(w, p, aqm.RESTfulLinksFor(p)...)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ConfirmPayment")
	defer finish()
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	p, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot confirm payment", err)
		return
	}

	aqm.RespondSuccess(w, p, aqm.RESTfulLinksFor(p)...)
}

func (h *Handler) ProviderWebhook(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ProviderWebhook")
	defer finish()
	log := h.log(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if !h.verify(body, r.Header.Get(SignatureHeader)) {
		log.Info("rejected provider webhook with bad signature")
		aqm.RespondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var evt ProviderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if evt.Type == "" {
		aqm.RespondError(w, http.StatusBadRequest, "type is required")
		return
	}

	env := &event.Envelope{
		ID:      evt.ID,
		Type:    evt.Type,
		Payload: body,
	}
	if err := h.webhook.Process(r.Context(), env); err != nil {
		h.respondError(w, log, "cannot apply provider event", err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]string{"status": "accepted"}, nil)
}

func (h *Handler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 {
		return true
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(h.secret, body))
}

// Sign returns the HMAC-SHA256 of body the provider sends in SignatureHeader.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func (h *Handler) respondError(w http.ResponseWriter, log aqm.Logger, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		aqm.RespondError(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, ErrInvalidPayment):
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotConfirmed):
		aqm.RespondError(w, http.StatusConflict, err.Error())
	case provider.IsRejection(err):
		log.Info(msg, "error", err)
		aqm.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		code := pkg.StatusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error(msg, "error", err)
		} else {
			log.Info(msg, "error", err)
		}
		aqm.RespondError(w, code, err.Error())
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, log aqm.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}
