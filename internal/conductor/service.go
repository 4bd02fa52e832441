package conductor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/geo"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/util"
)

var (
	// ErrPerfilExiste indica que el usuario ya tiene perfil de conductor.
	ErrPerfilExiste = errors.New("el usuario ya es conductor")
	// ErrPlacaDuplicada indica placa ya registrada.
	ErrPlacaDuplicada = errors.New("placa ya registrada")
)

type conductorRepository interface {
	Create(ctx context.Context, usuarioID uuid.UUID, input RegistroInput) (*Conductor, error)
	GetByUsuario(ctx context.Context, usuarioID uuid.UUID) (*Conductor, error)
	UpdatePerfil(ctx context.Context, usuarioID uuid.UUID, cambios PerfilUpdate) error
	SetUbicacion(ctx context.Context, usuarioID uuid.UUID, lat, lng float64, at time.Time) error
	SetEstado(ctx context.Context, usuarioID uuid.UUID, estado string) error
	SetVerificado(ctx context.Context, usuarioID uuid.UUID, verificado bool) error
	ListDisponibles(ctx context.Context) ([]Conductor, error)
	CreateMoto(ctx context.Context, conductorID uuid.UUID, input MotoInput) (*Moto, error)
	ListMotos(ctx context.Context, conductorID uuid.UUID) ([]Moto, error)
	ActivarMoto(ctx context.Context, conductorID, motoID uuid.UUID) error
}

// Service aplica las reglas del registro de conductores.
type Service struct {
	repo         conductorRepository
	radioDefault float64
}

func NewService(r conductorRepository, radioDefaultKM float64) *Service {
	return &Service{repo: r, radioDefault: radioDefaultKM}
}

// Registro crea el perfil de conductor del usuario autenticado.
func (s *Service) Registro(ctx context.Context, usuarioID uuid.UUID, input RegistroInput) (*Conductor, error) {
	if err := util.RequireString(input.Licencia, "licencia"); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, err.Error())
	}
	if err := util.RequireString(input.Documento, "documento"); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, err.Error())
	}

	c, err := s.repo.Create(ctx, usuarioID, input)
	if err != nil {
		if errors.Is(err, ErrPerfilExiste) {
			return nil, apperrors.New(apperrors.CodeDuplicate, "el usuario ya es conductor")
		}
		return nil, err
	}
	return c, nil
}

// Perfil retorna el perfil del conductor autenticado.
func (s *Service) Perfil(ctx context.Context, usuarioID uuid.UUID) (*Conductor, error) {
	c, err := s.repo.GetByUsuario(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "conductor no encontrado")
		}
		return nil, err
	}
	return c, nil
}

// ActualizarPerfil aplica un update parcial con campos permitidos.
func (s *Service) ActualizarPerfil(ctx context.Context, usuarioID uuid.UUID, cambios PerfilUpdate) (*Conductor, error) {
	if cambios.Licencia != nil && strings.TrimSpace(*cambios.Licencia) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "licencia no puede ser vacía")
	}
	if cambios.Documento != nil && strings.TrimSpace(*cambios.Documento) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "documento no puede ser vacío")
	}
	if err := s.repo.UpdatePerfil(ctx, usuarioID, cambios); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "conductor no encontrado")
		}
		return nil, err
	}
	return s.repo.GetByUsuario(ctx, usuarioID)
}

// ActualizarUbicacion registra la posición reportada por el conductor.
// Las coordenadas llegan como string desde clientes móviles.
func (s *Service) ActualizarUbicacion(ctx context.Context, usuarioID uuid.UUID, latStr, lngStr string) error {
	lat, okLat := util.ParseCoord(latStr)
	lng, okLng := util.ParseCoord(lngStr)
	if !okLat || !okLng {
		return apperrors.New(apperrors.CodeInvalidGeo, "coordenadas inválidas")
	}
	if err := s.repo.SetUbicacion(ctx, usuarioID, lat, lng, util.Now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "conductor no encontrado")
		}
		return err
	}
	return nil
}

// CambiarEstado valida el nombre y aplica la transición. Cualquier
// estado puede pasar a cualquier otro.
func (s *Service) CambiarEstado(ctx context.Context, usuarioID uuid.UUID, estado string) error {
	estado = strings.TrimSpace(strings.ToLower(estado))
	if !EstadoValido(estado) {
		return apperrors.New(apperrors.CodeInvalidState,
			fmt.Sprintf("estado inválido: %s", estado))
	}
	if err := s.repo.SetEstado(ctx, usuarioID, estado); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "conductor no encontrado")
		}
		return err
	}
	return nil
}

// VerificarDocumentos marca al conductor como verificado.
func (s *Service) VerificarDocumentos(ctx context.Context, conductorID uuid.UUID, verificado bool) error {
	if err := s.repo.SetVerificado(ctx, conductorID, verificado); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "conductor no encontrado")
		}
		return err
	}
	return nil
}

// Disponibles lista conductores disponibles y verificados. Con punto de
// referencia válido filtra por radio e incluye la distancia; si las
// coordenadas no se pueden interpretar retorna la lista sin filtrar.
func (s *Service) Disponibles(ctx context.Context, latStr, lngStr string, radioKM float64) ([]ConductorCercano, error) {
	if radioKM <= 0 {
		radioKM = s.radioDefault
	}

	conductores, err := s.repo.ListDisponibles(ctx)
	if err != nil {
		return nil, err
	}

	lat, okLat := util.ParseCoord(latStr)
	lng, okLng := util.ParseCoord(lngStr)

	out := make([]ConductorCercano, 0, len(conductores))
	for _, c := range conductores {
		cc := ConductorCercano{Conductor: c}
		if okLat && okLng {
			// solo el filtro por radio exige ubicación conocida
			if c.Lat == nil || c.Lng == nil {
				continue
			}
			dist := geo.DistanceKM(lat, lng, *c.Lat, *c.Lng)
			if dist > radioKM {
				continue
			}
			cc.DistanciaKM = util.Round2(dist)
		}
		out = append(out, cc)
	}
	return out, nil
}

// AltaMoto registra una moto del conductor.
func (s *Service) AltaMoto(ctx context.Context, conductorID uuid.UUID, input MotoInput) (*Moto, error) {
	if err := util.RequireString(input.Placa, "placa"); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, err.Error())
	}
	if _, err := s.repo.GetByUsuario(ctx, conductorID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeForbidden, "solo conductores pueden registrar motos")
		}
		return nil, err
	}
	m, err := s.repo.CreateMoto(ctx, conductorID, input)
	if err != nil {
		if errors.Is(err, ErrPlacaDuplicada) {
			return nil, apperrors.New(apperrors.CodeDuplicate, "placa ya registrada")
		}
		return nil, err
	}
	return m, nil
}

// Motos lista las motos del conductor.
func (s *Service) Motos(ctx context.Context, conductorID uuid.UUID) ([]Moto, error) {
	return s.repo.ListMotos(ctx, conductorID)
}

// ActivarMoto deja una única moto activa para el conductor.
func (s *Service) ActivarMoto(ctx context.Context, conductorID, motoID uuid.UUID) error {
	if err := s.repo.ActivarMoto(ctx, conductorID, motoID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "moto no encontrada")
		}
		return err
	}
	return nil
}
