package conductor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/repo"
)

type stubRepo struct {
	conductores map[uuid.UUID]*Conductor
	disponibles []Conductor
	motos       []Moto
	estado      string
	ubicaciones int
}

func newStubRepo() *stubRepo {
	return &stubRepo{conductores: make(map[uuid.UUID]*Conductor)}
}

func (s *stubRepo) Create(_ context.Context, usuarioID uuid.UUID, input RegistroInput) (*Conductor, error) {
	if _, ok := s.conductores[usuarioID]; ok {
		return nil, ErrPerfilExiste
	}
	c := &Conductor{
		UsuarioID:           usuarioID,
		Licencia:            input.Licencia,
		LicenciaVencimiento: input.LicenciaVencimiento,
		Documento:           input.Documento,
		Estado:              EstadoNoDisponible,
	}
	s.conductores[usuarioID] = c
	return c, nil
}

func (s *stubRepo) GetByUsuario(_ context.Context, usuarioID uuid.UUID) (*Conductor, error) {
	c, ok := s.conductores[usuarioID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return c, nil
}

func (s *stubRepo) UpdatePerfil(_ context.Context, usuarioID uuid.UUID, cambios PerfilUpdate) error {
	c, ok := s.conductores[usuarioID]
	if !ok {
		return repo.ErrNotFound
	}
	if cambios.Licencia != nil {
		c.Licencia = *cambios.Licencia
	}
	if cambios.LicenciaVencimiento != nil {
		c.LicenciaVencimiento = cambios.LicenciaVencimiento
	}
	if cambios.Documento != nil {
		c.Documento = *cambios.Documento
	}
	if cambios.Telefono != nil {
		c.Telefono = *cambios.Telefono
	}
	return nil
}

func (s *stubRepo) SetUbicacion(_ context.Context, usuarioID uuid.UUID, lat, lng float64, at time.Time) error {
	c, ok := s.conductores[usuarioID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Lat, c.Lng, c.UbicacionEn = &lat, &lng, &at
	s.ubicaciones++
	return nil
}

func (s *stubRepo) SetEstado(_ context.Context, usuarioID uuid.UUID, estado string) error {
	c, ok := s.conductores[usuarioID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Estado = estado
	s.estado = estado
	return nil
}

func (s *stubRepo) SetVerificado(_ context.Context, usuarioID uuid.UUID, verificado bool) error {
	c, ok := s.conductores[usuarioID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Verificado = verificado
	return nil
}

func (s *stubRepo) ListDisponibles(_ context.Context) ([]Conductor, error) {
	return s.disponibles, nil
}

func (s *stubRepo) CreateMoto(_ context.Context, conductorID uuid.UUID, input MotoInput) (*Moto, error) {
	for _, m := range s.motos {
		if m.Placa == input.Placa {
			return nil, ErrPlacaDuplicada
		}
	}
	m := Moto{ID: uuid.New(), ConductorID: conductorID, Placa: input.Placa}
	s.motos = append(s.motos, m)
	return &m, nil
}

func (s *stubRepo) ListMotos(_ context.Context, conductorID uuid.UUID) ([]Moto, error) {
	return s.motos, nil
}

func (s *stubRepo) ActivarMoto(_ context.Context, conductorID, motoID uuid.UUID) error {
	found := false
	for i := range s.motos {
		if s.motos[i].ID == motoID {
			s.motos[i].Activa = true
			found = true
		} else {
			s.motos[i].Activa = false
		}
	}
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

func TestCambiarEstadoNombreInvalido(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)

	id := uuid.New()
	r.conductores[id] = &Conductor{UsuarioID: id, Estado: EstadoDisponible}

	err := svc.CambiarEstado(context.Background(), id, "volando")
	if apperrors.CodeOf(err) != apperrors.CodeInvalidState {
		t.Fatalf("esperaba INVALID_STATE, got %v", err)
	}
}

func TestCambiarEstadoCualquierTransicion(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)
	ctx := context.Background()

	id := uuid.New()
	r.conductores[id] = &Conductor{UsuarioID: id, Estado: EstadoEnViaje}

	// en_viaje -> disponible directo (recuperación tras caída)
	if err := svc.CambiarEstado(ctx, id, EstadoDisponible); err != nil {
		t.Fatalf("cualquier transición debería permitirse: %v", err)
	}
	if r.estado != EstadoDisponible {
		t.Fatalf("estado esperado %s, got %s", EstadoDisponible, r.estado)
	}
}

func TestActualizarUbicacionCoordenadasInvalidas(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)

	id := uuid.New()
	r.conductores[id] = &Conductor{UsuarioID: id}

	err := svc.ActualizarUbicacion(context.Background(), id, "abc", "-74.1")
	if apperrors.CodeOf(err) != apperrors.CodeInvalidGeo {
		t.Fatalf("esperaba INVALID_COORDINATES, got %v", err)
	}
	if r.ubicaciones != 0 {
		t.Fatal("no debería registrarse ubicación con coordenadas inválidas")
	}
}

func TestDisponiblesFiltraPorRadio(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)

	// referencia: (4.6097, -74.0817); cercano ~0.5km, lejano ~50km
	cerca := Conductor{UsuarioID: uuid.New(), Estado: EstadoDisponible, Verificado: true}
	cercaLat, cercaLng := 4.6142, -74.0817
	cerca.Lat, cerca.Lng = &cercaLat, &cercaLng

	lejos := Conductor{UsuarioID: uuid.New(), Estado: EstadoDisponible, Verificado: true}
	lejosLat, lejosLng := 5.0594, -74.0817
	lejos.Lat, lejos.Lng = &lejosLat, &lejosLng

	r.disponibles = []Conductor{cerca, lejos}

	out, err := svc.Disponibles(context.Background(), "4.6097", "-74.0817", 5)
	if err != nil {
		t.Fatalf("disponibles: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("esperaba solo el conductor cercano, got %d", len(out))
	}
	if out[0].UsuarioID != cerca.UsuarioID {
		t.Fatalf("conductor inesperado: %s", out[0].UsuarioID)
	}
	if out[0].DistanciaKM <= 0 || out[0].DistanciaKM > 1 {
		t.Fatalf("distancia fuera de rango: %f", out[0].DistanciaKM)
	}
}

func TestDisponiblesDegradaSinCoordenadas(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)

	lat1, lng1 := 4.6142, -74.0817
	lat2, lng2 := 5.0594, -74.0817
	r.disponibles = []Conductor{
		{UsuarioID: uuid.New(), Estado: EstadoDisponible, Verificado: true, Lat: &lat1, Lng: &lng1},
		{UsuarioID: uuid.New(), Estado: EstadoDisponible, Verificado: true, Lat: &lat2, Lng: &lng2},
	}

	// coordenadas no numéricas: lista completa sin filtrar
	out, err := svc.Disponibles(context.Background(), "no-numerico", "", 5)
	if err != nil {
		t.Fatalf("disponibles: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("sin punto de referencia la lista no se filtra, got %d", len(out))
	}
}

func TestDisponiblesSinPuntoIncluyeSinUbicacion(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)
	ctx := context.Background()

	lat, lng := 4.6142, -74.0817
	conUbicacion := Conductor{UsuarioID: uuid.New(), Estado: EstadoDisponible, Verificado: true, Lat: &lat, Lng: &lng}
	sinUbicacion := Conductor{UsuarioID: uuid.New(), Estado: EstadoDisponible, Verificado: true}
	r.disponibles = []Conductor{conUbicacion, sinUbicacion}

	// sin punto de referencia la ubicación no forma parte del filtro
	out, err := svc.Disponibles(ctx, "", "", 5)
	if err != nil {
		t.Fatalf("disponibles: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("sin punto de referencia entran todos los disponibles, got %d", len(out))
	}

	// con punto de referencia solo se puede medir a quienes reportaron
	out, err = svc.Disponibles(ctx, "4.6097", "-74.0817", 5)
	if err != nil {
		t.Fatalf("disponibles filtrado: %v", err)
	}
	if len(out) != 1 || out[0].UsuarioID != conUbicacion.UsuarioID {
		t.Fatalf("el filtro por radio debería dejar solo al ubicado, got %d", len(out))
	}
}

func TestActualizarPerfilLicenciaVencimiento(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)
	ctx := context.Background()

	id := uuid.New()
	vence := time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Registro(ctx, id, RegistroInput{Licencia: "LIC-9", Documento: "DOC-9"}); err != nil {
		t.Fatalf("registro: %v", err)
	}

	c, err := svc.ActualizarPerfil(ctx, id, PerfilUpdate{LicenciaVencimiento: &vence})
	if err != nil {
		t.Fatalf("actualizar: %v", err)
	}
	if c.LicenciaVencimiento == nil || !c.LicenciaVencimiento.Equal(vence) {
		t.Fatalf("vencimiento esperado %s, got %v", vence, c.LicenciaVencimiento)
	}
	if c.Licencia != "LIC-9" {
		t.Fatalf("la licencia no debería cambiar, got %s", c.Licencia)
	}
}

func TestRegistroDuplicado(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)
	ctx := context.Background()

	id := uuid.New()
	input := RegistroInput{Licencia: "LIC-1", Documento: "DOC-1"}
	if _, err := svc.Registro(ctx, id, input); err != nil {
		t.Fatalf("registro: %v", err)
	}
	_, err := svc.Registro(ctx, id, input)
	if apperrors.CodeOf(err) != apperrors.CodeDuplicate {
		t.Fatalf("esperaba DUPLICATE, got %v", err)
	}
}

func TestActivarMotoDejaUnaSolaActiva(t *testing.T) {
	r := newStubRepo()
	svc := NewService(r, 5)
	ctx := context.Background()

	conductorID := uuid.New()
	r.conductores[conductorID] = &Conductor{UsuarioID: conductorID}

	m1, err := svc.AltaMoto(ctx, conductorID, MotoInput{Placa: "ABC123"})
	if err != nil {
		t.Fatalf("alta m1: %v", err)
	}
	m2, err := svc.AltaMoto(ctx, conductorID, MotoInput{Placa: "XYZ789"})
	if err != nil {
		t.Fatalf("alta m2: %v", err)
	}

	if err := svc.ActivarMoto(ctx, conductorID, m1.ID); err != nil {
		t.Fatalf("activar m1: %v", err)
	}
	if err := svc.ActivarMoto(ctx, conductorID, m2.ID); err != nil {
		t.Fatalf("activar m2: %v", err)
	}

	activas := 0
	for _, m := range r.motos {
		if m.Activa {
			activas++
			if m.ID != m2.ID {
				t.Fatalf("la activa debería ser %s, got %s", m2.ID, m.ID)
			}
		}
	}
	if activas != 1 {
		t.Fatalf("esperaba una sola moto activa, got %d", activas)
	}
}
