package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsuarioRepo agrupa las consultas de identidad.
type UsuarioRepo struct {
	pool *pgxpool.Pool
}

func NewUsuarioRepo(pool *pgxpool.Pool) *UsuarioRepo {
	return &UsuarioRepo{pool: pool}
}

const usuarioCols = `id, nombre, email, telefono, password_hash, activo, creado_en, ultimo_login`

func scanUsuario(row pgx.Row) (*Usuario, error) {
	var u Usuario
	err := row.Scan(&u.ID, &u.Nombre, &u.Email, &u.Telefono, &u.PasswordHash, &u.Activo, &u.CreadoEn, &u.UltimoLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail busca usuario activo por e-mail (lowercase).
func (r *UsuarioRepo) GetByEmail(ctx context.Context, email string) (*Usuario, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+usuarioCols+` FROM usuarios WHERE lower(email) = lower($1) AND activo`, email)
	return scanUsuario(row)
}

// GetByID busca usuario por id.
func (r *UsuarioRepo) GetByID(ctx context.Context, id uuid.UUID) (*Usuario, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+usuarioCols+` FROM usuarios WHERE id = $1`, id)
	return scanUsuario(row)
}

// TouchUltimoLogin registra el momento del último acceso.
func (r *UsuarioRepo) TouchUltimoLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE usuarios SET ultimo_login = $2 WHERE id = $1`, id, at)
	return err
}

// ListSedes retorna las sedes activas donde el usuario tiene asignación.
func (r *UsuarioRepo) ListSedes(ctx context.Context, usuarioID uuid.UUID) ([]Sede, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT s.id, s.nombre, s.ciudad, s.activa
		  FROM sedes s
		  JOIN asignaciones a ON a.sede_id = s.id
		 WHERE a.usuario_id = $1 AND s.activa
		 ORDER BY s.nombre`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sedes []Sede
	for rows.Next() {
		var s Sede
		if err := rows.Scan(&s.ID, &s.Nombre, &s.Ciudad, &s.Activa); err != nil {
			return nil, err
		}
		sedes = append(sedes, s)
	}
	return sedes, rows.Err()
}

// ListRoles retorna los roles del usuario dentro de una sede.
func (r *UsuarioRepo) ListRoles(ctx context.Context, usuarioID, sedeID uuid.UUID) ([]Rol, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ro.id, ro.nombre
		  FROM roles ro
		  JOIN asignaciones a ON a.rol_id = ro.id
		 WHERE a.usuario_id = $1 AND a.sede_id = $2
		 ORDER BY ro.nombre`, usuarioID, sedeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Rol
	for rows.Next() {
		var ro Rol
		if err := rows.Scan(&ro.ID, &ro.Nombre); err != nil {
			return nil, err
		}
		roles = append(roles, ro)
	}
	return roles, rows.Err()
}

// GetAsignacion retorna la asignación concreta usuario+sede+rol con permisos.
func (r *UsuarioRepo) GetAsignacion(ctx context.Context, usuarioID, sedeID, rolID uuid.UUID) (*Asignacion, error) {
	var a Asignacion
	err := r.pool.QueryRow(ctx, `
		SELECT a.sede_id, a.rol_id, COALESCE(a.permisos, '{}')
		  FROM asignaciones a
		 WHERE a.usuario_id = $1 AND a.sede_id = $2 AND a.rol_id = $3`,
		usuarioID, sedeID, rolID).Scan(&a.SedeID, &a.RolID, &a.Permisos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FirstAsignacion retorna cualquier asignación del usuario en la sede
// (se usa al seleccionar sede sin rol explícito).
func (r *UsuarioRepo) FirstAsignacion(ctx context.Context, usuarioID, sedeID uuid.UUID) (*Asignacion, error) {
	var a Asignacion
	err := r.pool.QueryRow(ctx, `
		SELECT a.sede_id, a.rol_id, COALESCE(a.permisos, '{}')
		  FROM asignaciones a
		  JOIN roles ro ON ro.id = a.rol_id
		 WHERE a.usuario_id = $1 AND a.sede_id = $2
		 ORDER BY ro.nombre
		 LIMIT 1`,
		usuarioID, sedeID).Scan(&a.SedeID, &a.RolID, &a.Permisos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Permisos resuelve la lista de permisos de la asignación; vacía si la
// asignación ya no existe (el token deja de otorgar permisos).
func (r *UsuarioRepo) Permisos(ctx context.Context, usuarioID, sedeID, rolID uuid.UUID) ([]string, error) {
	a, err := r.GetAsignacion(ctx, usuarioID, sedeID, rolID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	return a.Permisos, nil
}

// GetSede busca la sede por id.
func (r *UsuarioRepo) GetSede(ctx context.Context, id uuid.UUID) (*Sede, error) {
	var s Sede
	err := r.pool.QueryRow(ctx,
		`SELECT id, nombre, ciudad, activa FROM sedes WHERE id = $1`, id).
		Scan(&s.ID, &s.Nombre, &s.Ciudad, &s.Activa)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetRol busca el rol por id.
func (r *UsuarioRepo) GetRol(ctx context.Context, id uuid.UUID) (*Rol, error) {
	var ro Rol
	err := r.pool.QueryRow(ctx,
		`SELECT id, nombre FROM roles WHERE id = $1`, id).Scan(&ro.ID, &ro.Nombre)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ro, nil
}
