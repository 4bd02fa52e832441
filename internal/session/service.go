package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/auth"
	"github.com/rutamoto/plataforma/internal/repo"
)

type identityRepository interface {
	ListSedes(ctx context.Context, usuarioID uuid.UUID) ([]repo.Sede, error)
	ListRoles(ctx context.Context, usuarioID, sedeID uuid.UUID) ([]repo.Rol, error)
	GetAsignacion(ctx context.Context, usuarioID, sedeID, rolID uuid.UUID) (*repo.Asignacion, error)
	FirstAsignacion(ctx context.Context, usuarioID, sedeID uuid.UUID) (*repo.Asignacion, error)
	GetSede(ctx context.Context, id uuid.UUID) (*repo.Sede, error)
	GetRol(ctx context.Context, id uuid.UUID) (*repo.Rol, error)
}

// Service maneja la selección de contexto (sede y rol) de la sesión.
// Cada cambio de contexto emite un token nuevo con su propia sesión
// cacheada; los tokens anteriores siguen válidos con su contexto.
type Service struct {
	repo  identityRepository
	store *Store
	jwt   *auth.JWTManager
}

func NewService(r identityRepository, store *Store, jwtMgr *auth.JWTManager) *Service {
	return &Service{repo: r, store: store, jwt: jwtMgr}
}

// CambioContexto es el resultado de seleccionar sede o rol.
type CambioContexto struct {
	AccessToken string     `json:"access_token"`
	Sede        *repo.Sede `json:"sede,omitempty"`
	Rol         *repo.Rol  `json:"rol,omitempty"`
	Permisos    []string   `json:"permisos"`
}

// ListSedes retorna las sedes donde el usuario tiene asignación.
func (s *Service) ListSedes(ctx context.Context, usuarioID uuid.UUID) ([]repo.Sede, error) {
	return s.repo.ListSedes(ctx, usuarioID)
}

// ListRoles retorna los roles del usuario en la sede activa.
func (s *Service) ListRoles(ctx context.Context, usuarioID uuid.UUID, sedeID *uuid.UUID) ([]repo.Rol, error) {
	if sedeID == nil {
		return nil, apperrors.New(apperrors.CodeInvalidState, "seleccione una sede primero")
	}
	return s.repo.ListRoles(ctx, usuarioID, *sedeID)
}

// SetSede selecciona la sede activa. Si el usuario tiene varios roles
// en la sede se toma el primero como rol inicial; /sesion/rol permite
// cambiarlo después.
func (s *Service) SetSede(ctx context.Context, usuarioID, sedeID uuid.UUID) (*CambioContexto, error) {
	sede, err := s.repo.GetSede(ctx, sedeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "sede no encontrada")
		}
		return nil, err
	}
	if !sede.Activa {
		return nil, apperrors.New(apperrors.CodeForbidden, "sede inactiva")
	}

	asig, err := s.repo.FirstAsignacion(ctx, usuarioID, sedeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeForbidden, "el usuario no pertenece a la sede")
		}
		return nil, err
	}

	return s.switchContext(ctx, usuarioID, sede, asig)
}

// SetRol cambia el rol activo dentro de la sede ya seleccionada.
func (s *Service) SetRol(ctx context.Context, usuarioID uuid.UUID, sedeID *uuid.UUID, rolID uuid.UUID) (*CambioContexto, error) {
	if sedeID == nil {
		return nil, apperrors.New(apperrors.CodeInvalidState, "seleccione una sede primero")
	}

	sede, err := s.repo.GetSede(ctx, *sedeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "sede no encontrada")
		}
		return nil, err
	}

	asig, err := s.repo.GetAsignacion(ctx, usuarioID, *sedeID, rolID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeForbidden, "el usuario no tiene ese rol en la sede")
		}
		return nil, err
	}

	return s.switchContext(ctx, usuarioID, sede, asig)
}

func (s *Service) switchContext(ctx context.Context, usuarioID uuid.UUID, sede *repo.Sede, asig *repo.Asignacion) (*CambioContexto, error) {
	rol, err := s.repo.GetRol(ctx, asig.RolID)
	if err != nil {
		return nil, err
	}

	token, jti, err := s.jwt.GenerateAccessToken(usuarioID, &asig.SedeID, &asig.RolID)
	if err != nil {
		return nil, err
	}

	reg := Registro{
		UsuarioID: usuarioID,
		SedeID:    &asig.SedeID,
		RolID:     &asig.RolID,
		Permisos:  asig.Permisos,
		JTI:       jti,
	}
	if _, err := s.store.Create(ctx, reg); err != nil {
		return nil, err
	}

	return &CambioContexto{
		AccessToken: token,
		Sede:        sede,
		Rol:         rol,
		Permisos:    asig.Permisos,
	}, nil
}
