package conductor

import "github.com/go-chi/chi/v5"

// Mount registra las rutas del módulo conductor.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

// MountMotos registra las rutas de motos.
func MountMotos(r chi.Router, handler *Handler) {
	handler.RegisterMotoRoutes(r)
}
