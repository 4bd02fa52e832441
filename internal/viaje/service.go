package viaje

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/util"
)

type viajeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Viaje, error)
	ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]Viaje, error)
	SetEstado(ctx context.Context, id uuid.UUID, estado string, inicio *time.Time) error
	Completar(ctx context.Context, id, conductorID uuid.UUID, precioFinal *float64, at time.Time) error
	Cancelar(ctx context.Context, id, conductorID uuid.UUID) error
	GetInfoConductor(ctx context.Context, conductorID uuid.UUID) (*InfoConductor, error)
	GetParticipante(ctx context.Context, usuarioID uuid.UUID) (*Participante, error)
}

// Service aplica la máquina de estados del viaje: qué transición puede
// ejecutar qué actor y desde qué estado.
type Service struct {
	repo viajeRepository
}

func NewService(r viajeRepository) *Service {
	return &Service{repo: r}
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*Viaje, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "viaje no encontrado")
		}
		return nil, err
	}
	return v, nil
}

func esParticipante(v *Viaje, usuarioID uuid.UUID) bool {
	return v.PasajeroID == usuarioID || v.ConductorID == usuarioID
}

// Detalle retorna el viaje con la información de la contraparte.
// Solo los participantes pueden consultarlo.
func (s *Service) Detalle(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Detalle, error) {
	v, err := s.get(ctx, viajeID)
	if err != nil {
		return nil, err
	}
	if !esParticipante(v, usuarioID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "no participa en el viaje")
	}

	detalle := &Detalle{Viaje: v}
	if usuarioID == v.PasajeroID {
		info, err := s.repo.GetInfoConductor(ctx, v.ConductorID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		detalle.Conductor = info
	} else {
		p, err := s.repo.GetParticipante(ctx, v.PasajeroID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		detalle.Pasajero = p
	}
	return detalle, nil
}

// MisViajes lista los viajes del usuario, los más recientes primero.
func (s *Service) MisViajes(ctx context.Context, usuarioID uuid.UUID) ([]Viaje, error) {
	return s.repo.ListByUsuario(ctx, usuarioID)
}

// EnCamino: el conductor asignado avisa que va hacia el origen.
func (s *Service) EnCamino(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error) {
	return s.avanzar(ctx, viajeID, usuarioID, []string{EstadoAceptado}, EstadoEnCaminoOrigen, false)
}

// Llegada: el conductor llegó al punto de origen.
func (s *Service) Llegada(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error) {
	return s.avanzar(ctx, viajeID, usuarioID, []string{EstadoEnCaminoOrigen}, EstadoLlegadoOrigen, false)
}

// Iniciar: el pasajero subió, empieza el recorrido. Sella fecha_inicio.
func (s *Service) Iniciar(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error) {
	return s.avanzar(ctx, viajeID, usuarioID, []string{EstadoLlegadoOrigen}, EstadoEnViaje, true)
}

func (s *Service) avanzar(ctx context.Context, viajeID, usuarioID uuid.UUID, desde []string, hacia string, sellaInicio bool) (*Viaje, error) {
	v, err := s.get(ctx, viajeID)
	if err != nil {
		return nil, err
	}
	if v.ConductorID != usuarioID {
		return nil, apperrors.New(apperrors.CodeForbidden, "solo el conductor asignado puede avanzar el viaje")
	}
	if !contiene(desde, v.Estado) {
		return nil, apperrors.New(apperrors.CodeInvalidState,
			"transición inválida desde "+v.Estado)
	}

	var inicio *time.Time
	if sellaInicio {
		now := util.Now()
		inicio = &now
	}
	if err := s.repo.SetEstado(ctx, viajeID, hacia, inicio); err != nil {
		return nil, err
	}
	v.Estado = hacia
	if inicio != nil {
		v.FechaInicio = inicio
	}
	return v, nil
}

// Completar cierra el viaje. Solo el conductor, desde en_viaje o
// llegado_origen. El precio final es opcional: si no interpreta como
// número positivo se mantiene el precio acordado, sin error.
func (s *Service) Completar(ctx context.Context, viajeID, usuarioID uuid.UUID, precioFinal string) (*Viaje, error) {
	v, err := s.get(ctx, viajeID)
	if err != nil {
		return nil, err
	}
	if v.ConductorID != usuarioID {
		return nil, apperrors.New(apperrors.CodeForbidden, "solo el conductor asignado puede completar el viaje")
	}
	if v.Estado != EstadoEnViaje && v.Estado != EstadoLlegadoOrigen {
		return nil, apperrors.New(apperrors.CodeInvalidState,
			"el viaje no puede completarse desde "+v.Estado)
	}

	var precio *float64
	if p, err := strconv.ParseFloat(strings.TrimSpace(precioFinal), 64); err == nil && p > 0 {
		precio = &p
	}

	now := util.Now()
	if err := s.repo.Completar(ctx, viajeID, v.ConductorID, precio, now); err != nil {
		return nil, err
	}

	v.Estado = EstadoCompletado
	v.FechaFin = &now
	if precio != nil {
		v.PrecioFinal = precio
	} else {
		acordado := v.PrecioAcordado
		v.PrecioFinal = &acordado
	}
	return v, nil
}

// Cancelar: cualquiera de los dos participantes, mientras el viaje no
// esté en estado terminal. Un viaje completado no puede cancelarse.
func (s *Service) Cancelar(ctx context.Context, viajeID, usuarioID uuid.UUID) (*Viaje, error) {
	v, err := s.get(ctx, viajeID)
	if err != nil {
		return nil, err
	}
	if !esParticipante(v, usuarioID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "no participa en el viaje")
	}
	if Terminal(v.Estado) {
		return nil, apperrors.New(apperrors.CodeInvalidState,
			"el viaje ya está "+v.Estado)
	}

	if err := s.repo.Cancelar(ctx, viajeID, v.ConductorID); err != nil {
		return nil, err
	}
	v.Estado = EstadoCancelado
	return v, nil
}

func contiene(lista []string, valor string) bool {
	for _, item := range lista {
		if item == valor {
			return true
		}
	}
	return false
}
