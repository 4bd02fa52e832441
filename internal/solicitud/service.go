package solicitud

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/geo"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/util"
)

type solicitudRepository interface {
	Create(ctx context.Context, s Solicitud) (*Solicitud, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Solicitud, error)
	ListPendientes(ctx context.Context, now time.Time) ([]Solicitud, error)
	Aceptar(ctx context.Context, solicitudID, conductorID uuid.UUID, motoID *uuid.UUID, now time.Time) (*AceptarResult, error)
	Cancelar(ctx context.Context, solicitudID, pasajeroID uuid.UUID) error
}

type perfilConductor interface {
	EsConductorVerificado(ctx context.Context, usuarioID uuid.UUID) (bool, error)
}

// Service gestiona el ciclo de la solicitud: publicación, descubrimiento
// por conductores cercanos, aceptación y cancelación.
type Service struct {
	repo         solicitudRepository
	conductores  perfilConductor
	ttl          time.Duration
	radioDefault float64
}

func NewService(r solicitudRepository, conductores perfilConductor, ttl time.Duration, radioDefaultKM float64) *Service {
	return &Service{repo: r, conductores: conductores, ttl: ttl, radioDefault: radioDefaultKM}
}

// Crear publica una solicitud pendiente con expiración por defecto.
func (s *Service) Crear(ctx context.Context, pasajeroID uuid.UUID, input CrearInput) (*Solicitud, error) {
	origenLat, ok1 := util.ParseCoord(input.OrigenLat)
	origenLng, ok2 := util.ParseCoord(input.OrigenLng)
	destinoLat, ok3 := util.ParseCoord(input.DestinoLat)
	destinoLng, ok4 := util.ParseCoord(input.DestinoLng)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, apperrors.New(apperrors.CodeInvalidGeo, "coordenadas inválidas")
	}
	if input.PrecioOfrecido <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "precio ofrecido debe ser positivo")
	}
	if err := util.RequireString(input.MetodoPago, "metodo_pago"); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, err.Error())
	}

	now := util.Now()
	nueva := Solicitud{
		ID:               uuid.New(),
		PasajeroID:       pasajeroID,
		OrigenLat:        origenLat,
		OrigenLng:        origenLng,
		OrigenDireccion:  input.OrigenDireccion,
		DestinoLat:       destinoLat,
		DestinoLng:       destinoLng,
		DestinoDireccion: input.DestinoDireccion,
		PrecioOfrecido:   input.PrecioOfrecido,
		MetodoPago:       input.MetodoPago,
		Estado:           EstadoPendiente,
		FechaExpiracion:  now.Add(s.ttl),
	}
	return s.repo.Create(ctx, nueva)
}

// Disponibles lista solicitudes pendientes no expiradas. Con punto de
// referencia válido filtra por radio sobre el origen; coordenadas no
// interpretables degradan a la lista completa.
func (s *Service) Disponibles(ctx context.Context, latStr, lngStr string, radioKM float64) ([]SolicitudCercana, error) {
	if radioKM <= 0 {
		radioKM = s.radioDefault
	}

	pendientes, err := s.repo.ListPendientes(ctx, util.Now())
	if err != nil {
		return nil, err
	}

	lat, okLat := util.ParseCoord(latStr)
	lng, okLng := util.ParseCoord(lngStr)

	out := make([]SolicitudCercana, 0, len(pendientes))
	for _, sol := range pendientes {
		sc := SolicitudCercana{Solicitud: sol}
		if okLat && okLng {
			dist := geo.DistanceKM(lat, lng, sol.OrigenLat, sol.OrigenLng)
			if dist > radioKM {
				continue
			}
			sc.DistanciaKM = util.Round2(dist)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Aceptar toma la solicitud para el conductor autenticado. La
// concurrencia entre conductores se decide con el UPDATE condicional
// del repositorio: el perdedor recibe not found, sin efectos.
func (s *Service) Aceptar(ctx context.Context, solicitudID, conductorID uuid.UUID, motoID *uuid.UUID) (*AceptarResult, error) {
	verificado, err := s.conductores.EsConductorVerificado(ctx, conductorID)
	if err != nil {
		return nil, err
	}
	if !verificado {
		return nil, apperrors.New(apperrors.CodeForbidden, "solo conductores verificados pueden aceptar solicitudes")
	}

	result, err := s.repo.Aceptar(ctx, solicitudID, conductorID, motoID, util.Now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "solicitud no disponible")
		}
		return nil, err
	}
	return result, nil
}

// Cancelar anula una solicitud pendiente del propio pasajero.
func (s *Service) Cancelar(ctx context.Context, solicitudID, pasajeroID uuid.UUID) error {
	if err := s.repo.Cancelar(ctx, solicitudID, pasajeroID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "solicitud no disponible")
		}
		return err
	}
	return nil
}
