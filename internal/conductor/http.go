package conductor

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
	Registro(ctx context.Context, usuarioID uuid.UUID, input RegistroInput) (*Conductor, error)
	Perfil(ctx context.Context, usuarioID uuid.UUID) (*Conductor, error)
	ActualizarPerfil(ctx context.Context, usuarioID uuid.UUID, cambios PerfilUpdate) (*Conductor, error)
	ActualizarUbicacion(ctx context.Context, usuarioID uuid.UUID, latStr, lngStr string) error
	CambiarEstado(ctx context.Context, usuarioID uuid.UUID, estado string) error
	VerificarDocumentos(ctx context.Context, conductorID uuid.UUID, verificado bool) error
	Disponibles(ctx context.Context, latStr, lngStr string, radioKM float64) ([]ConductorCercano, error)
	AltaMoto(ctx context.Context, conductorID uuid.UUID, input MotoInput) (*Moto, error)
	Motos(ctx context.Context, conductorID uuid.UUID) ([]Moto, error)
	ActivarMoto(ctx context.Context, conductorID, motoID uuid.UUID) error
}

// Handler expone los endpoints REST de conductores y motos.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registra las rutas bajo /conductores.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/registro", h.registro)
	r.Get("/perfil", h.perfil)
	r.Put("/perfil", h.actualizarPerfil)
	r.Post("/ubicacion", h.actualizarUbicacion)
	r.Post("/estado", h.cambiarEstado)
	r.Post("/documentos/verificar", h.verificarDocumentos)
	r.Get("/disponibles", h.disponibles)
}

// RegisterMotoRoutes registra las rutas bajo /motos.
func (h *Handler) RegisterMotoRoutes(r chi.Router) {
	r.Post("/", h.altaMoto)
	r.Get("/", h.listarMotos)
	r.Post("/{motoID}/activar", h.activarMoto)
}

func (h *Handler) registro(w http.ResponseWriter, r *http.Request) {
	usuarioID := httpmiddleware.GetUsuarioID(r.Context())

	var input RegistroInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	c, err := h.service.Registro(r.Context(), usuarioID, input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"conductor": c})
}

func (h *Handler) perfil(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Perfil(r.Context(), httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conductor": c})
}

func (h *Handler) actualizarPerfil(w http.ResponseWriter, r *http.Request) {
	var cambios PerfilUpdate
	if err := json.NewDecoder(r.Body).Decode(&cambios); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	c, err := h.service.ActualizarPerfil(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), cambios)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conductor": c})
}

func (h *Handler) actualizarUbicacion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Lat json.Number `json:"lat"`
		Lng json.Number `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	err := h.service.ActualizarUbicacion(r.Context(), httpmiddleware.GetUsuarioID(r.Context()),
		payload.Lat.String(), payload.Lng.String())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actualizado": true})
}

func (h *Handler) cambiarEstado(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Estado string `json:"estado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := h.service.CambiarEstado(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), payload.Estado); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estado": payload.Estado})
}

func (h *Handler) verificarDocumentos(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConductorID uuid.UUID `json:"conductor_id"`
		Verificado  bool      `json:"verificado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := h.service.VerificarDocumentos(r.Context(), payload.ConductorID, payload.Verificado); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verificado": payload.Verificado})
}

func (h *Handler) disponibles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radio, _ := strconv.ParseFloat(q.Get("radio"), 64)

	conductores, err := h.service.Disponibles(r.Context(), q.Get("lat"), q.Get("lng"), radio)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conductores": conductores,
		"total":       len(conductores),
	})
}

func (h *Handler) altaMoto(w http.ResponseWriter, r *http.Request) {
	var input MotoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	m, err := h.service.AltaMoto(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"moto": m})
}

func (h *Handler) listarMotos(w http.ResponseWriter, r *http.Request) {
	motos, err := h.service.Motos(r.Context(), httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"motos": motos})
}

func (h *Handler) activarMoto(w http.ResponseWriter, r *http.Request) {
	motoID, err := uuid.Parse(chi.URLParam(r, "motoID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id de moto inválido", nil)
		return
	}

	if err := h.service.ActivarMoto(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), motoID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activa": motoID})
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
