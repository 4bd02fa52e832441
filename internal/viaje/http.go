package viaje

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	httpmiddleware "github.com/rutamoto/plataforma/internal/http/middleware"
)

type ServiceProvider interface {
	Detalle(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Detalle, error)
	MisViajes(ctx context.Context, usuarioID uuid.UUID) ([]Viaje, error)
	EnCamino(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error)
	Llegada(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error)
	Iniciar(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error)
	Completar(ctx context.Context, viajeID, usuarioID uuid.UUID, precioFinal string) (*Viaje, error)
	Cancelar(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error)
}

// Handler expone los endpoints REST del viaje.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.misViajes)
	r.Get("/{viajeID}", h.detalle)
	r.Post("/{viajeID}/en-camino", h.transicion(ServiceProvider.EnCamino))
	r.Post("/{viajeID}/llegada", h.transicion(ServiceProvider.Llegada))
	r.Post("/{viajeID}/iniciar", h.transicion(ServiceProvider.Iniciar))
	r.Post("/{viajeID}/completar", h.completar)
	r.Post("/{viajeID}/cancelar", h.transicion(ServiceProvider.Cancelar))
}

func viajeIDFromURL(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "viajeID"))
	return id, err == nil
}

func (h *Handler) misViajes(w http.ResponseWriter, r *http.Request) {
	viajes, err := h.service.MisViajes(r.Context(), httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"viajes": viajes, "total": len(viajes)})
}

func (h *Handler) detalle(w http.ResponseWriter, r *http.Request) {
	viajeID, ok := viajeIDFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id de viaje inválido", nil)
		return
	}

	detalle, err := h.service.Detalle(r.Context(), viajeID, httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detalle)
}

// transicion fabrica handlers para las transiciones sin payload.
func (h *Handler) transicion(op func(ServiceProvider, context.Context, uuid.UUID, uuid.UUID) (*Viaje, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viajeID, ok := viajeIDFromURL(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION", "id de viaje inválido", nil)
			return
		}

		v, err := op(h.service, r.Context(), viajeID, httpmiddleware.GetUsuarioID(r.Context()))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"viaje": v})
	}
}

func (h *Handler) completar(w http.ResponseWriter, r *http.Request) {
	viajeID, ok := viajeIDFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id de viaje inválido", nil)
		return
	}

	var payload struct {
		PrecioFinal json.Number `json:"precio_final"`
	}
	// payload opcional: sin cuerpo se mantiene el precio acordado
	_ = json.NewDecoder(r.Body).Decode(&payload)

	v, err := h.service.Completar(r.Context(), viajeID,
		httpmiddleware.GetUsuarioID(r.Context()), payload.PrecioFinal.String())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"viaje": v})
}

type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Data: nil,
		Error: &errorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func writeAppError(w http.ResponseWriter, err error) {
	if appErr, ok := apperrors.As(err); ok {
		writeError(w, apperrors.HTTPStatus(appErr.Code), string(appErr.Code), appErr.Message, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "INTERNAL", "error interno", nil)
}
