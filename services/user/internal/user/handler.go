package user

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
	tlm     *telemetry.HTTP
}

func NewHandler(service *Service, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		service: service,
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}/addresses", func(r chi.Router) {
		r.Post("/", h.AddAddress)
		r.Get("/", h.ListAddresses)
		r.Get("/default", h.GetDefaultAddress)
		r.Put("/{id}/default", h.SetDefaultAddress)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddAddress")
	defer finish()
	log := h.log(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req AddRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	a, err := h.service.Add(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		h.respondError(w, log, "cannot add address", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, a, aqm.RESTfulLinksFor(a)...)
}

func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListAddresses")
	defer finish()
	log := h.log(r)

	addresses, err := h.service.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, log, "cannot list addresses", err)
		return
	}

	aqm.RespondSuccess(w, addresses)
}

func (h *Handler) GetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetDefaultAddress")
	defer finish()
	log := h.log(r)

	a, err := h.service.Default(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, log, "cannot get default address", err)
		return
	}

	aqm.RespondSuccess(w, a, aqm.RESTfulLinksFor(a)...)
}

func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetDefaultAddress")
	defer finish()
	log := h.log(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid address ID")
		return
	}

	a, err := h.service.SetDefault(r.Context(), chi.URLParam(r, "userID"), id)
	if err != nil {
		h.respondError(w, log, "cannot set default address", err)
		return
	}

	aqm.RespondSuccess(w, a, aqm.RESTfulLinksFor(a)...)
}

func (h *Handler) respondError(w http.ResponseWriter, log aqm.Logger, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		aqm.RespondError(w, http.StatusNotFound, "Address not found")
	case errors.Is(err, ErrInvalidAddress):
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
