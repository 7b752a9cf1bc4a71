package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	service *Service
	logger  aqm.Logger
	config  *aqm.Config
	tlm     *telemetry.HTTP
}

func NewHandler(service *Service, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		service: service,
		logger:  logger,
		config:  config,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/ready", h.MarkReady)
		r.Patch("/{id}/cancel", h.CancelOrder)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()
	log := h.log(r)

	var req PlaceRequest
	if !decodeBody(w, r, log, &req) {
		return
	}

	o, err := h.service.Place(r.Context(), req)
	if err != nil {
		h.respondError(w, log, "cannot place order", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, o, aqm.RESTfulLinksFor(o)...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot get order", err)
		return
	}

	aqm.RespondSuccess(w, o, aqm.RESTfulLinksFor(o)...)
}

func (h *Handler) MarkReady(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.MarkReady")
	defer finish()
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, err := h.service.MarkReady(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot mark order ready", err)
		return
	}

	aqm.RespondSuccess(w, o, aqm.RESTfulLinksFor(o)...)
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelOrder")
	defer finish()
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req CancelRequest
	if r.ContentLength != 0 && !decodeBody(w, r, log, &req) {
		return
	}

	o, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.respondError(w, log, "cannot cancel order", err)
		return
	}

	aqm.RespondSuccess(w, o, aqm.RESTfulLinksFor(o)...)
}

func (h *Handler) respondError(w http.ResponseWriter, log aqm.Logger, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, ErrInvalidOrder):
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
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

func decodeBody(w http.ResponseWriter, r *http.Request, log aqm.Logger, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Debug("failed to decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}
