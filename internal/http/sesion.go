package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	httpmiddleware "github.com/rutamoto/plataforma/internal/http/middleware"
)

func (h *Handler) getSedes(w http.ResponseWriter, r *http.Request) {
	sedes, err := h.sessionService.ListSedes(r.Context(), httpmiddleware.GetUsuarioID(r.Context()))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sedes": sedes})
}

func (h *Handler) postSede(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SedeID uuid.UUID `json:"sede_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SedeID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "sede_id inválido", nil)
		return
	}

	cambio, err := h.sessionService.SetSede(r.Context(), httpmiddleware.GetUsuarioID(r.Context()), payload.SedeID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cambio)
}

func (h *Handler) getRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roles, err := h.sessionService.ListRoles(ctx, httpmiddleware.GetUsuarioID(ctx), httpmiddleware.GetSedeID(ctx))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) postRol(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RolID uuid.UUID `json:"rol_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.RolID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "rol_id inválido", nil)
		return
	}

	ctx := r.Context()
	cambio, err := h.sessionService.SetRol(ctx, httpmiddleware.GetUsuarioID(ctx), httpmiddleware.GetSedeID(ctx), payload.RolID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cambio)
}
