package conductor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rutamoto/plataforma/internal/db"
	"github.com/rutamoto/plataforma/internal/repo"
)

// Repository encapsula el acceso a conductores y motos.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conductorCols = `
	c.usuario_id, u.nombre, u.telefono, c.licencia, c.licencia_vencimiento,
	c.documento, c.estado, c.verificado, c.lat, c.lng, c.ubicacion_actualizada,
	c.calificacion_promedio, c.total_viajes, c.fecha_registro`

const conductorFrom = ` FROM conductores c JOIN usuarios u ON u.id = c.usuario_id`

func scanConductor(row pgx.Row) (*Conductor, error) {
	var c Conductor
	err := row.Scan(&c.UsuarioID, &c.Nombre, &c.Telefono, &c.Licencia, &c.LicenciaVencimiento,
		&c.Documento, &c.Estado, &c.Verificado, &c.Lat, &c.Lng, &c.UbicacionEn,
		&c.Promedio, &c.TotalViajes, &c.FechaRegistro)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserta el perfil del conductor (estado inicial no_disponible).
func (r *Repository) Create(ctx context.Context, usuarioID uuid.UUID, input RegistroInput) (*Conductor, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conductores (usuario_id, licencia, licencia_vencimiento, documento, estado)
		VALUES ($1, $2, $3, $4, $5)`,
		usuarioID, input.Licencia, input.LicenciaVencimiento, input.Documento, EstadoNoDisponible)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrPerfilExiste
		}
		return nil, err
	}
	return r.GetByUsuario(ctx, usuarioID)
}

// GetByUsuario retorna el perfil del conductor.
func (r *Repository) GetByUsuario(ctx context.Context, usuarioID uuid.UUID) (*Conductor, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+conductorCols+conductorFrom+` WHERE c.usuario_id = $1`, usuarioID)
	return scanConductor(row)
}

// UpdatePerfil aplica solo los campos presentes en el DTO.
func (r *Repository) UpdatePerfil(ctx context.Context, usuarioID uuid.UUID, cambios PerfilUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conductores SET
			licencia             = COALESCE($2, licencia),
			licencia_vencimiento = COALESCE($3, licencia_vencimiento),
			documento            = COALESCE($4, documento)
		WHERE usuario_id = $1`,
		usuarioID, cambios.Licencia, cambios.LicenciaVencimiento, cambios.Documento)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	if cambios.Telefono != nil {
		_, err = r.pool.Exec(ctx,
			`UPDATE usuarios SET telefono = $2 WHERE id = $1`, usuarioID, *cambios.Telefono)
	}
	return err
}

// SetUbicacion registra la última posición reportada.
func (r *Repository) SetUbicacion(ctx context.Context, usuarioID uuid.UUID, lat, lng float64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conductores
		   SET lat = $2, lng = $3, ubicacion_actualizada = $4
		 WHERE usuario_id = $1`,
		usuarioID, lat, lng, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// SetEstado cambia el estado operativo.
func (r *Repository) SetEstado(ctx context.Context, usuarioID uuid.UUID, estado string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conductores SET estado = $2 WHERE usuario_id = $1`, usuarioID, estado)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// SetVerificado marca los documentos como verificados (o no).
func (r *Repository) SetVerificado(ctx context.Context, usuarioID uuid.UUID, verificado bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conductores SET verificado = $2 WHERE usuario_id = $1`, usuarioID, verificado)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ListDisponibles retorna conductores disponibles y verificados,
// incluyendo los que aún no reportaron ubicación. El filtro por radio
// se hace en memoria.
func (r *Repository) ListDisponibles(ctx context.Context) ([]Conductor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conductorCols+conductorFrom+`
		 WHERE c.estado = $1 AND c.verificado
		 ORDER BY c.ubicacion_actualizada DESC NULLS LAST`,
		EstadoDisponible)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conductor
	for rows.Next() {
		var c Conductor
		if err := rows.Scan(&c.UsuarioID, &c.Nombre, &c.Telefono, &c.Licencia, &c.LicenciaVencimiento,
			&c.Documento, &c.Estado, &c.Verificado, &c.Lat, &c.Lng, &c.UbicacionEn,
			&c.Promedio, &c.TotalViajes, &c.FechaRegistro); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EsConductorVerificado indica si el usuario tiene perfil de conductor
// con documentos verificados.
func (r *Repository) EsConductorVerificado(ctx context.Context, usuarioID uuid.UUID) (bool, error) {
	var verificado bool
	err := r.pool.QueryRow(ctx,
		`SELECT verificado FROM conductores WHERE usuario_id = $1`, usuarioID).Scan(&verificado)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return verificado, nil
}

// CreateMoto da de alta una moto del conductor.
func (r *Repository) CreateMoto(ctx context.Context, conductorID uuid.UUID, input MotoInput) (*Moto, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO motos (id, conductor_id, placa, marca, modelo, anio, color, activa)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`,
		id, conductorID, strings.ToUpper(strings.TrimSpace(input.Placa)),
		input.Marca, input.Modelo, input.Anio, input.Color)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrPlacaDuplicada
		}
		return nil, err
	}
	return r.GetMoto(ctx, conductorID, id)
}

// GetMoto retorna una moto del conductor.
func (r *Repository) GetMoto(ctx context.Context, conductorID, motoID uuid.UUID) (*Moto, error) {
	var m Moto
	err := r.pool.QueryRow(ctx, `
		SELECT id, conductor_id, placa, marca, modelo, anio, color, activa, creada_en
		  FROM motos WHERE id = $1 AND conductor_id = $2`,
		motoID, conductorID).
		Scan(&m.ID, &m.ConductorID, &m.Placa, &m.Marca, &m.Modelo, &m.Anio, &m.Color, &m.Activa, &m.CreadaEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListMotos retorna todas las motos del conductor.
func (r *Repository) ListMotos(ctx context.Context, conductorID uuid.UUID) ([]Moto, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conductor_id, placa, marca, modelo, anio, color, activa, creada_en
		  FROM motos WHERE conductor_id = $1 ORDER BY creada_en DESC`, conductorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Moto
	for rows.Next() {
		var m Moto
		if err := rows.Scan(&m.ID, &m.ConductorID, &m.Placa, &m.Marca, &m.Modelo,
			&m.Anio, &m.Color, &m.Activa, &m.CreadaEn); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ActivarMoto activa una moto y desactiva las demás del conductor en
// la misma transacción: solo puede haber una activa.
func (r *Repository) ActivarMoto(ctx context.Context, conductorID, motoID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE motos SET activa = TRUE WHERE id = $1 AND conductor_id = $2`,
			motoID, conductorID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE motos SET activa = FALSE WHERE conductor_id = $1 AND id <> $2`,
			conductorID, motoID)
		return err
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
