package viaje

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/repo"
)

type stubRepo struct {
	viajes            map[uuid.UUID]*Viaje
	conductorLiberado bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{viajes: make(map[uuid.UUID]*Viaje)}
}

func (s *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*Viaje, error) {
	v, ok := s.viajes[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copia := *v
	return &copia, nil
}

func (s *stubRepo) ListByUsuario(_ context.Context, usuarioID uuid.UUID) ([]Viaje, error) {
	var out []Viaje
	for _, v := range s.viajes {
		if v.PasajeroID == usuarioID || v.ConductorID == usuarioID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *stubRepo) SetEstado(_ context.Context, id uuid.UUID, estado string, inicio *time.Time) error {
	v, ok := s.viajes[id]
	if !ok {
		return repo.ErrNotFound
	}
	v.Estado = estado
	if inicio != nil {
		v.FechaInicio = inicio
	}
	return nil
}

func (s *stubRepo) Completar(_ context.Context, id, conductorID uuid.UUID, precioFinal *float64, at time.Time) error {
	v, ok := s.viajes[id]
	if !ok {
		return repo.ErrNotFound
	}
	v.Estado = EstadoCompletado
	v.FechaFin = &at
	if precioFinal != nil {
		v.PrecioFinal = precioFinal
	} else {
		acordado := v.PrecioAcordado
		v.PrecioFinal = &acordado
	}
	s.conductorLiberado = true
	return nil
}

func (s *stubRepo) Cancelar(_ context.Context, id, conductorID uuid.UUID) error {
	v, ok := s.viajes[id]
	if !ok {
		return repo.ErrNotFound
	}
	v.Estado = EstadoCancelado
	s.conductorLiberado = true
	return nil
}

func (s *stubRepo) GetInfoConductor(_ context.Context, conductorID uuid.UUID) (*InfoConductor, error) {
	return &InfoConductor{Participante: Participante{ID: conductorID, Nombre: "Conductor"}}, nil
}

func (s *stubRepo) GetParticipante(_ context.Context, usuarioID uuid.UUID) (*Participante, error) {
	return &Participante{ID: usuarioID, Nombre: "Pasajero"}, nil
}

func seedViaje(r *stubRepo, estado string) (*Viaje, uuid.UUID, uuid.UUID) {
	pasajero := uuid.New()
	conductor := uuid.New()
	v := &Viaje{
		ID:             uuid.New(),
		SolicitudID:    uuid.New(),
		PasajeroID:     pasajero,
		ConductorID:    conductor,
		PrecioAcordado: 15,
		Estado:         estado,
	}
	r.viajes[v.ID] = v
	return v, pasajero, conductor
}

func TestEnCaminoSoloConductorAsignado(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	v, pasajero, conductor := seedViaje(r, EstadoAceptado)
	ctx := context.Background()

	if _, err := svc.EnCamino(ctx, v.ID, pasajero); apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("el pasajero no avanza el viaje, got %v", err)
	}
	if _, err := svc.EnCamino(ctx, v.ID, uuid.New()); apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("un extraño no avanza el viaje, got %v", err)
	}

	out, err := svc.EnCamino(ctx, v.ID, conductor)
	if err != nil {
		t.Fatalf("en camino: %v", err)
	}
	if out.Estado != EstadoEnCaminoOrigen {
		t.Fatalf("estado esperado %s, got %s", EstadoEnCaminoOrigen, out.Estado)
	}
}

func TestTransicionDesdeEstadoInvalido(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	v, _, conductor := seedViaje(r, EstadoAceptado)

	// aceptado no permite iniciar: falta llegar al origen
	_, err := svc.Iniciar(context.Background(), v.ID, conductor)
	if apperrors.CodeOf(err) != apperrors.CodeInvalidState {
		t.Fatalf("esperaba INVALID_STATE, got %v", err)
	}
}

func TestIniciarSellaFechaInicio(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	v, _, conductor := seedViaje(r, EstadoLlegadoOrigen)

	out, err := svc.Iniciar(context.Background(), v.ID, conductor)
	if err != nil {
		t.Fatalf("iniciar: %v", err)
	}
	if out.Estado != EstadoEnViaje {
		t.Fatalf("estado esperado %s, got %s", EstadoEnViaje, out.Estado)
	}
	if out.FechaInicio == nil {
		t.Fatal("fecha_inicio debería sellarse al iniciar")
	}
}

func TestCompletarGating(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	ctx := context.Background()

	v, pasajero, conductor := seedViaje(r, EstadoEnViaje)

	if _, err := svc.Completar(ctx, v.ID, pasajero, ""); apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("el pasajero no completa el viaje, got %v", err)
	}

	v2, _, conductor2 := seedViaje(r, EstadoAceptado)
	if _, err := svc.Completar(ctx, v2.ID, conductor2, ""); apperrors.CodeOf(err) != apperrors.CodeInvalidState {
		t.Fatalf("aceptado no permite completar, got %v", err)
	}

	out, err := svc.Completar(ctx, v.ID, conductor, "")
	if err != nil {
		t.Fatalf("completar: %v", err)
	}
	if out.Estado != EstadoCompletado {
		t.Fatalf("estado esperado completado, got %s", out.Estado)
	}
	if !r.conductorLiberado {
		t.Fatal("el conductor debería volver a disponible")
	}
}

func TestCompletarDesdeLlegadoOrigen(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	v, _, conductor := seedViaje(r, EstadoLlegadoOrigen)

	// precondición relajada: también se permite desde llegado_origen
	if _, err := svc.Completar(context.Background(), v.ID, conductor, ""); err != nil {
		t.Fatalf("completar desde llegado_origen: %v", err)
	}
}

func TestCompletarPrecioFinal(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	ctx := context.Background()

	v, _, conductor := seedViaje(r, EstadoEnViaje)
	out, err := svc.Completar(ctx, v.ID, conductor, "22.50")
	if err != nil {
		t.Fatalf("completar: %v", err)
	}
	if out.PrecioFinal == nil || *out.PrecioFinal != 22.50 {
		t.Fatalf("precio final esperado 22.50, got %v", out.PrecioFinal)
	}

	// precio no interpretable: se mantiene el acordado sin error
	v2, _, conductor2 := seedViaje(r, EstadoEnViaje)
	out, err = svc.Completar(ctx, v2.ID, conductor2, "gratis")
	if err != nil {
		t.Fatalf("completar con precio inválido: %v", err)
	}
	if out.PrecioFinal == nil || *out.PrecioFinal != v2.PrecioAcordado {
		t.Fatalf("debería mantenerse el precio acordado, got %v", out.PrecioFinal)
	}

	// precio negativo: mismo tratamiento
	v3, _, conductor3 := seedViaje(r, EstadoEnViaje)
	out, err = svc.Completar(ctx, v3.ID, conductor3, "-5")
	if err != nil {
		t.Fatalf("completar con precio negativo: %v", err)
	}
	if out.PrecioFinal == nil || *out.PrecioFinal != v3.PrecioAcordado {
		t.Fatalf("debería mantenerse el precio acordado, got %v", out.PrecioFinal)
	}
}

func TestCancelarParticipantesYGuarda(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	ctx := context.Background()

	v, pasajero, _ := seedViaje(r, EstadoEnCaminoOrigen)
	if _, err := svc.Cancelar(ctx, v.ID, uuid.New()); apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("un extraño no cancela, got %v", err)
	}
	if _, err := svc.Cancelar(ctx, v.ID, pasajero); err != nil {
		t.Fatalf("el pasajero debería poder cancelar: %v", err)
	}

	// un viaje completado no puede cancelarse
	v2, _, conductor2 := seedViaje(r, EstadoCompletado)
	if _, err := svc.Cancelar(ctx, v2.ID, conductor2); apperrors.CodeOf(err) != apperrors.CodeInvalidState {
		t.Fatalf("completado no se cancela, got %v", err)
	}
}

func TestDetalleSoloParticipantes(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r)
	ctx := context.Background()

	v, pasajero, conductor := seedViaje(r, EstadoEnViaje)

	if _, err := svc.Detalle(ctx, v.ID, uuid.New()); apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("un extraño no ve el detalle, got %v", err)
	}

	d, err := svc.Detalle(ctx, v.ID, pasajero)
	if err != nil {
		t.Fatalf("detalle pasajero: %v", err)
	}
	if d.Conductor == nil || d.Pasajero != nil {
		t.Fatal("el pasajero debería ver la información del conductor")
	}

	d, err = svc.Detalle(ctx, v.ID, conductor)
	if err != nil {
		t.Fatalf("detalle conductor: %v", err)
	}
	if d.Pasajero == nil || d.Conductor != nil {
		t.Fatal("el conductor debería ver la información del pasajero")
	}
}
