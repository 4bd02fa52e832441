package viaje

import "github.com/go-chi/chi/v5"

// Mount registra las rutas del módulo viaje.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}
