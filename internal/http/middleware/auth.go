package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/auth"
	"github.com/rutamoto/plataforma/internal/session"
)

type contextKey string

const (
	ContextKeyUsuario  contextKey = "usuario"
	ContextKeySede     contextKey = "sede"
	ContextKeyRol      contextKey = "rol"
	ContextKeyPermisos contextKey = "permisos"
	ContextKeyJTI      contextKey = "jti"
)

// Auth valida el JWT de acceso, reconcilia la sesión cacheada con los
// claims y inyecta el contexto activo (usuario, sede, rol, permisos).
// La cache nunca rechaza un token válido: si falta la sesión del jti
// el reconciliador la recrea desde los claims.
func Auth(jwtManager *auth.JWTManager, reconciler *session.Reconciler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeAuthError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			usuarioID, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "AUTH", "subject inválido")
				return
			}

			jti := claims.ID
			reg, err := reconciler.Reconcile(r.Context(), usuarioID, claims.SedeID, claims.RolID, jti)
			if err != nil {
				writeAuthError(w, http.StatusInternalServerError, "INTERNAL", "error interno")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUsuario, usuarioID)
			ctx = context.WithValue(ctx, ContextKeySede, reg.SedeID)
			ctx = context.WithValue(ctx, ContextKeyRol, reg.RolID)
			ctx = context.WithValue(ctx, ContextKeyPermisos, reg.Permisos)
			ctx = context.WithValue(ctx, ContextKeyJTI, jti)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsuarioID recupera el usuario autenticado del contexto.
func GetUsuarioID(ctx context.Context) uuid.UUID {
	val, _ := ctx.Value(ContextKeyUsuario).(uuid.UUID)
	return val
}

// GetSedeID recupera la sede activa (nil cuando no hay selección).
func GetSedeID(ctx context.Context) *uuid.UUID {
	val, _ := ctx.Value(ContextKeySede).(*uuid.UUID)
	return val
}

// GetRolID recupera el rol activo (nil cuando no hay selección).
func GetRolID(ctx context.Context) *uuid.UUID {
	val, _ := ctx.Value(ContextKeyRol).(*uuid.UUID)
	return val
}

// GetPermisos recupera la lista de permisos de la sesión.
func GetPermisos(ctx context.Context) []string {
	val, _ := ctx.Value(ContextKeyPermisos).([]string)
	return val
}

// GetJTI recupera el identificador del token vigente.
func GetJTI(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyJTI).(string)
	return val
}

// RequirePermiso exige un permiso concreto en la sesión activa.
func RequirePermiso(permiso string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range GetPermisos(r.Context()) {
				if strings.EqualFold(p, permiso) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "permiso insuficiente")
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
