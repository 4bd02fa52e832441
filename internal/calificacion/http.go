package calificacion

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
	Calificar(ctx context.Context, calificadorID uuid.UUID, input CalificarInput) (*Calificacion, error)
	Recibidas(ctx context.Context, usuarioID uuid.UUID) (*Resumen, error)
	Dadas(ctx context.Context, usuarioID uuid.UUID) ([]Calificacion, error)
}

// Handler expone los endpoints REST de calificaciones.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.calificar)
	r.Get("/recibidas", h.recibidas)
	r.Get("/dadas", h.dadas)
}

func (h *Handler) calificar(w http.ResponseWriter, r *http.Request) {
	var input CalificarInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	c, err := h.service.Calificar(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"calificacion": c})
}

func (h *Handler) recibidas(w http.ResponseWriter, r *http.Request) {
	resumen, err := h.service.Recibidas(r.Context(), httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resumen)
}

func (h *Handler) dadas(w http.ResponseWriter, r *http.Request) {
	calificaciones, err := h.service.Dadas(r.Context(), httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"calificaciones": calificaciones,
		"total":          len(calificaciones),
	})
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
