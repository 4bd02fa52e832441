package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PermisosLoader resuelve la lista de permisos de una asignación concreta.
type PermisosLoader interface {
	Permisos(ctx context.Context, usuarioID, sedeID, rolID uuid.UUID) ([]string, error)
}

// Reconciler alinea la sesión cacheada del token con sus claims.
// El token es la fuente de verdad: la cache se crea, recrea o extiende
// según coincida o no con lo que el token declara, y nunca motiva un
// rechazo por sí sola.
type Reconciler struct {
	store    *Store
	permisos PermisosLoader
}

func NewReconciler(store *Store, permisos PermisosLoader) *Reconciler {
	return &Reconciler{store: store, permisos: permisos}
}

// Reconcile retorna la sesión vigente para el token dado.
//
// Casos:
//   - sin sesión cacheada para el jti: se crea una nueva desde los claims
//   - sede o rol difieren de los claims: se elimina y recrea
//   - coinciden: se extiende el TTL
func (r *Reconciler) Reconcile(ctx context.Context, usuarioID uuid.UUID, sedeID, rolID *uuid.UUID, jti string) (*Registro, error) {
	reg, err := r.store.Get(ctx, jti)
	switch {
	case errors.Is(err, ErrNoSession):
		return r.recreate(ctx, usuarioID, sedeID, rolID, jti)
	case err != nil:
		return nil, err
	}

	if !uuidPtrEq(reg.SedeID, sedeID) || !uuidPtrEq(reg.RolID, rolID) {
		if err := r.store.Delete(ctx, reg); err != nil {
			return nil, err
		}
		return r.recreate(ctx, usuarioID, sedeID, rolID, jti)
	}

	if err := r.store.Extend(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Reconciler) recreate(ctx context.Context, usuarioID uuid.UUID, sedeID, rolID *uuid.UUID, jti string) (*Registro, error) {
	reg := Registro{
		UsuarioID: usuarioID,
		SedeID:    sedeID,
		RolID:     rolID,
		JTI:       jti,
		CreadoEn:  time.Now().UTC(),
	}
	if sedeID != nil && rolID != nil {
		permisos, err := r.permisos.Permisos(ctx, usuarioID, *sedeID, *rolID)
		if err != nil {
			return nil, err
		}
		reg.Permisos = permisos
	}
	return r.store.Create(ctx, reg)
}

func uuidPtrEq(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
