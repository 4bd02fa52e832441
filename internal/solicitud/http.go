package solicitud

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	httpmiddleware "github.com/rutamoto/plataforma/internal/http/middleware"
)

type ServiceProvider interface {
	Crear(ctx context.Context, pasajeroID uuid.UUID, input CrearInput) (*Solicitud, error)
	Disponibles(ctx context.Context, latStr, lngStr string, radioKM float64) ([]SolicitudCercana, error)
	Aceptar(ctx context.Context, solicitudID, conductorID uuid.UUID, motoID *uuid.UUID) (*AceptarResult, error)
	Cancelar(ctx context.Context, solicitudID, pasajeroID uuid.UUID) error
}

// Handler expone los endpoints REST de solicitudes.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.crear)
	r.Get("/disponibles", h.disponibles)
	r.Post("/{solicitudID}/aceptar", h.aceptar)
	r.Post("/{solicitudID}/cancelar", h.cancelar)
}

func (h *Handler) crear(w http.ResponseWriter, r *http.Request) {
	var input CrearInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	s, err := h.service.Crear(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"solicitud": s})
}

func (h *Handler) disponibles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radio, _ := strconv.ParseFloat(q.Get("radio"), 64)

	solicitudes, err := h.service.Disponibles(r.Context(), q.Get("lat"), q.Get("lng"), radio)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"solicitudes": solicitudes,
		"total":       len(solicitudes),
	})
}

func (h *Handler) aceptar(w http.ResponseWriter, r *http.Request) {
	solicitudID, err := uuid.Parse(chi.URLParam(r, "solicitudID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id de solicitud inválido", nil)
		return
	}

	var payload struct {
		MotoID *uuid.UUID `json:"moto_id"`
	}
	// payload opcional: la moto puede omitirse
	_ = json.NewDecoder(r.Body).Decode(&payload)

	result, err := h.service.Aceptar(r.Context(), solicitudID,
		httpmiddleware.GetUsuarioID(r.Context()), payload.MotoID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) cancelar(w http.ResponseWriter, r *http.Request) {
	solicitudID, err := uuid.Parse(chi.URLParam(r, "solicitudID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id de solicitud inválido", nil)
		return
	}

	if err := h.service.Cancelar(r.Context(), solicitudID, httpmiddleware.GetUsuarioID(r.Context())); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estado": EstadoCancelada})
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
