package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	service *Service
	webhook *saga.Listener
	logger  aqm.Logger
	tlm     *telemetry.HTTP
}

func NewHandler(service *Service, webhook *saga.Listener, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		service: service,
		webhook: webhook,
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.FindByOrder)
		r.Post("/webhook", h.CourierWebhook)
		r.Get("/{id}", h.GetDelivery)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

func (h *Handler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetDelivery")
	defer finish()
	log := h.log(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid delivery ID")
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot get delivery", err)
		return
	}

	aqm.RespondSuccess(w, d, aqm.RESTfulLinksFor(d)...)
}

func (h *Handler) FindByOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.FindByOrder")
	defer finish()
	log := h.log(r)

	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		aqm.RespondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	d, err := h.service.FindByOrderID(r.Context(), orderID)
	if err != nil {
		h.respondError(w, log, "cannot find delivery", err)
		return
	}

	aqm.RespondSuccess(w, d, aqm.RESTfulLinksFor(d)...)
}

func (h *Handler) CourierWebhook(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CourierWebhook")
	defer finish()
	log := h.log(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var evt CourierEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if evt.JobID == "" || evt.Status == "" {
		aqm.RespondError(w, http.StatusBadRequest, "job_id and status are required")
		return
	}

	env := &event.Envelope{
		ID:      evt.EventID,
		Type:    "courier." + evt.Status,
		Payload: body,
	}
	if err := h.webhook.Process(r.Context(), env); err != nil {
		h.respondError(w, log, "cannot apply courier event", err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]string{"status": "accepted"}, nil)
}

func (h *Handler) respondError(w http.ResponseWriter, log aqm.Logger, msg string, err error) {
	if errors.Is(err, ErrNotFound) {
		aqm.RespondError(w, http.StatusNotFound, "Delivery not found")
		return
	}
	code := pkg.StatusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error(msg, "error", err)
	} else {
		log.Info(msg, "error", err)
	}
	aqm.RespondError(w, code, err.Error())
}
