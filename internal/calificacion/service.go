package calificacion

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/util"
)

type calificacionRepository interface {
	ParticipantesViaje(ctx context.Context, viajeID uuid.UUID) (pasajeroID, conductorID uuid.UUID, err error)
	Crear(ctx context.Context, c Calificacion, alConductor bool) error
	ListRecibidas(ctx context.Context, usuarioID uuid.UUID) ([]Calificacion, error)
	ListDadas(ctx context.Context, usuarioID uuid.UUID) ([]Calificacion, error)
}

// Service aplica las reglas de las calificaciones cruzadas.
type Service struct {
	repo calificacionRepository
}

func NewService(r calificacionRepository) *Service {
	return &Service{repo: r}
}

// Calificar registra la valoración del calificador hacia su contraparte.
// Quien no participó del viaje no puede calificar; solo puede
// calificarse al otro participante; y cada participante califica un
// viaje una única vez.
func (s *Service) Calificar(ctx context.Context, calificadorID uuid.UUID, input CalificarInput) (*Calificacion, error) {
	if input.Puntuacion < 1 || input.Puntuacion > 5 {
		return nil, apperrors.New(apperrors.CodeValidation, "puntuación debe estar entre 1 y 5")
	}

	pasajeroID, conductorID, err := s.repo.ParticipantesViaje(ctx, input.ViajeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "viaje no encontrado")
		}
		return nil, err
	}

	if calificadorID != pasajeroID && calificadorID != conductorID {
		return nil, apperrors.New(apperrors.CodeForbidden, "no participa en el viaje")
	}

	var esperado uuid.UUID
	alConductor := false
	if calificadorID == pasajeroID {
		esperado = conductorID
		alConductor = true
	} else {
		esperado = pasajeroID
	}
	if input.CalificadoID != esperado {
		return nil, apperrors.New(apperrors.CodeMismatch, "el calificado no es la contraparte del viaje")
	}

	c := Calificacion{
		ID:            uuid.New(),
		ViajeID:       input.ViajeID,
		CalificadorID: calificadorID,
		CalificadoID:  input.CalificadoID,
		Puntuacion:    input.Puntuacion,
		Comentario:    input.Comentario,
		FechaCreacion: util.Now(),
	}
	if err := s.repo.Crear(ctx, c, alConductor); err != nil {
		if errors.Is(err, ErrDuplicada) {
			return nil, apperrors.New(apperrors.CodeDuplicate, "ya calificó este viaje")
		}
		return nil, err
	}
	return &c, nil
}

// Recibidas retorna las calificaciones recibidas con promedio y total.
// El promedio se calcula sobre todas las recibidas, redondeado a dos
// decimales.
func (s *Service) Recibidas(ctx context.Context, usuarioID uuid.UUID) (*Resumen, error) {
	calificaciones, err := s.repo.ListRecibidas(ctx, usuarioID)
	if err != nil {
		return nil, err
	}

	resumen := &Resumen{Calificaciones: calificaciones, Total: len(calificaciones)}
	if len(calificaciones) > 0 {
		var suma int
		for _, c := range calificaciones {
			suma += c.Puntuacion
		}
		resumen.Promedio = util.Round2(float64(suma) / float64(len(calificaciones)))
	}
	return resumen, nil
}

// Dadas retorna las calificaciones emitidas por el usuario.
func (s *Service) Dadas(ctx context.Context, usuarioID uuid.UUID) ([]Calificacion, error) {
	return s.repo.ListDadas(ctx, usuarioID)
}
