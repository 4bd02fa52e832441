package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rutamoto/plataforma/internal/auth"
	"github.com/rutamoto/plataforma/internal/calificacion"
	"github.com/rutamoto/plataforma/internal/conductor"
	"github.com/rutamoto/plataforma/internal/config"
	httpmiddleware "github.com/rutamoto/plataforma/internal/http/middleware"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/service"
	"github.com/rutamoto/plataforma/internal/session"
	"github.com/rutamoto/plataforma/internal/solicitud"
	"github.com/rutamoto/plataforma/internal/viaje"
)

// Handler agrupa las dependencias de los endpoints centrales.
type Handler struct {
	cfg            *config.Config
	pool           *pgxpool.Pool
	redis          *redis.Client
	authService    *service.AuthService
	sessionService *session.Service
}

// NewRouter arma el router con todos los módulos montados.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) http.Handler {
	usuarios := repo.NewUsuarioRepo(pool)
	tokens := repo.NewTokenRepo(pool)

	store := session.NewStore(redisClient, cfg.SessionTTL)
	reconciler := session.NewReconciler(store, usuarios)
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	authService := service.NewAuthService(usuarios, tokens, redisClient, jwtMgr, store, cfg.JWTRefreshTTL)
	sessionService := session.NewService(usuarios, store, jwtMgr)

	conductorRepo := conductor.NewRepository(pool)
	conductorService := conductor.NewService(conductorRepo, cfg.RadioKMDefault)
	conductorHandler := conductor.NewHandler(conductorService)

	solicitudRepo := solicitud.NewRepository(pool)
	solicitudService := solicitud.NewService(solicitudRepo, conductorRepo, cfg.SolicitudTTL, cfg.RadioKMDefault)
	solicitudHandler := solicitud.NewHandler(solicitudService)

	viajeRepo := viaje.NewRepository(pool)
	viajeService := viaje.NewService(viajeRepo)
	viajeHandler := viaje.NewHandler(viajeService)

	calificacionRepo := calificacion.NewRepository(pool)
	calificacionService := calificacion.NewService(calificacionRepo)
	calificacionHandler := calificacion.NewHandler(calificacionService)

	h := &Handler{
		cfg:            cfg,
		pool:           pool,
		redis:          redisClient,
		authService:    authService,
		sessionService: sessionService,
	}

	publicLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst)
	authLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	// rutas públicas
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.IPRateLimit(publicLimiter))

		r.Get("/health", h.getHealth)
		r.Get("/ready", h.getReady)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.postLogin)
			r.Post("/refresh", h.postRefresh)
			r.Post("/logout", h.postLogout)
		})
	})

	// rutas privadas: token + reconciliación de sesión
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Auth(jwtMgr, reconciler))
		r.Use(httpmiddleware.UserRateLimit(authLimiter))

		r.Get("/me", h.getMe)

		r.Route("/sesion", func(r chi.Router) {
			r.Get("/sedes", h.getSedes)
			r.Post("/sede", h.postSede)
			r.Get("/roles", h.getRoles)
			r.Post("/rol", h.postRol)
		})

		r.Route("/conductores", func(r chi.Router) {
			conductor.Mount(r, conductorHandler)
		})
		r.Route("/motos", func(r chi.Router) {
			conductor.MountMotos(r, conductorHandler)
		})
		r.Route("/solicitudes", func(r chi.Router) {
			solicitud.Mount(r, solicitudHandler)
		})
		r.Route("/viajes", func(r chi.Router) {
			viaje.Mount(r, viajeHandler)
		})
		r.Route("/calificaciones", func(r chi.Router) {
			calificacion.Mount(r, calificacionHandler)
		})
	})

	return r
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) getReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "base de datos no disponible", nil)
		return
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "cache no disponible", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
