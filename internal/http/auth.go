package http

import (
	"encoding/json"
	"net/http"

	httpmiddleware "github.com/rutamoto/plataforma/internal/http/middleware"
)

func (h *Handler) postLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) postRefresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) postLogout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
		Todos        bool   `json:"todos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := h.authService.Logout(r.Context(), payload.RefreshToken, payload.Todos); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sesion_cerrada": true})
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuario, sedes, err := h.authService.Me(ctx, httpmiddleware.GetUsuarioID(ctx))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"usuario":  usuario,
		"sedes":    sedes,
		"sede_id":  httpmiddleware.GetSedeID(ctx),
		"rol_id":   httpmiddleware.GetRolID(ctx),
		"permisos": httpmiddleware.GetPermisos(ctx),
	})
}
