package viaje

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rutamoto/plataforma/internal/conductor"
	"github.com/rutamoto/plataforma/internal/db"
	"github.com/rutamoto/plataforma/internal/repo"
)

// Repository encapsula el acceso a viajes.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const viajeCols = `
	id, solicitud_id, pasajero_id, conductor_id, moto_id,
	origen_lat, origen_lng, origen_direccion,
	destino_lat, destino_lng, destino_direccion,
	precio_acordado, precio_final, metodo_pago, estado,
	fecha_aceptacion, fecha_inicio, fecha_finalizacion,
	calificacion_al_conductor, comentario_al_conductor,
	calificacion_al_pasajero, comentario_al_pasajero`

func scanViaje(row pgx.Row) (*Viaje, error) {
	var v Viaje
	err := row.Scan(&v.ID, &v.SolicitudID, &v.PasajeroID, &v.ConductorID, &v.MotoID,
		&v.OrigenLat, &v.OrigenLng, &v.OrigenDireccion,
		&v.DestinoLat, &v.DestinoLng, &v.DestinoDireccion,
		&v.PrecioAcordado, &v.PrecioFinal, &v.MetodoPago, &v.Estado,
		&v.FechaAceptacion, &v.FechaInicio, &v.FechaFin,
		&v.CalificacionAlConductor, &v.ComentarioAlConductor,
		&v.CalificacionAlPasajero, &v.ComentarioAlPasajero)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// GetByID retorna el viaje.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Viaje, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+viajeCols+` FROM viajes WHERE id = $1`, id)
	return scanViaje(row)
}

// ListByUsuario retorna los viajes donde el usuario participa,
// los más recientes primero.
func (r *Repository) ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]Viaje, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+viajeCols+`
		  FROM viajes
		 WHERE pasajero_id = $1 OR conductor_id = $1
		 ORDER BY fecha_aceptacion DESC`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Viaje
	for rows.Next() {
		var v Viaje
		if err := rows.Scan(&v.ID, &v.SolicitudID, &v.PasajeroID, &v.ConductorID, &v.MotoID,
			&v.OrigenLat, &v.OrigenLng, &v.OrigenDireccion,
			&v.DestinoLat, &v.DestinoLng, &v.DestinoDireccion,
			&v.PrecioAcordado, &v.PrecioFinal, &v.MetodoPago, &v.Estado,
			&v.FechaAceptacion, &v.FechaInicio, &v.FechaFin,
			&v.CalificacionAlConductor, &v.ComentarioAlConductor,
			&v.CalificacionAlPasajero, &v.ComentarioAlPasajero); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetEstado aplica una transición simple, opcionalmente sellando
// fecha_inicio.
func (r *Repository) SetEstado(ctx context.Context, id uuid.UUID, estado string, inicio *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE viajes
		   SET estado = $2, fecha_inicio = COALESCE($3, fecha_inicio)
		 WHERE id = $1`, id, estado, inicio)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Completar cierra el viaje, libera al conductor y suma el viaje a su
// contador en una única transacción.
func (r *Repository) Completar(ctx context.Context, id, conductorID uuid.UUID, precioFinal *float64, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE viajes
			   SET estado = $2,
			       precio_final = COALESCE($3, precio_acordado),
			       fecha_finalizacion = $4
			 WHERE id = $1`, id, EstadoCompletado, precioFinal, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			UPDATE conductores
			   SET estado = $2, total_viajes = total_viajes + 1
			 WHERE usuario_id = $1`,
			conductorID, conductor.EstadoDisponible)
		return err
	})
}

// Cancelar marca el viaje cancelado y devuelve al conductor a
// disponible en la misma transacción.
func (r *Repository) Cancelar(ctx context.Context, id, conductorID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE viajes SET estado = $2 WHERE id = $1`, id, EstadoCancelado)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE conductores SET estado = $2 WHERE usuario_id = $1`,
			conductorID, conductor.EstadoDisponible)
		return err
	})
}

// GetInfoConductor arma la contraparte conductor para el detalle.
func (r *Repository) GetInfoConductor(ctx context.Context, conductorID uuid.UUID) (*InfoConductor, error) {
	var info InfoConductor
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.nombre, u.telefono,
		       c.calificacion_promedio, c.total_viajes, c.lat, c.lng,
		       (SELECT m.placa FROM motos m WHERE m.conductor_id = c.usuario_id AND m.activa LIMIT 1)
		  FROM conductores c
		  JOIN usuarios u ON u.id = c.usuario_id
		 WHERE c.usuario_id = $1`, conductorID).
		Scan(&info.ID, &info.Nombre, &info.Telefono, &info.Promedio, &info.TotalViajes, &info.Lat, &info.Lng, &info.PlacaActiva)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &info, nil
}

// GetParticipante arma la contraparte pasajero para el detalle.
func (r *Repository) GetParticipante(ctx context.Context, usuarioID uuid.UUID) (*Participante, error) {
	var p Participante
	err := r.pool.QueryRow(ctx,
		`SELECT id, nombre, telefono FROM usuarios WHERE id = $1`, usuarioID).
		Scan(&p.ID, &p.Nombre, &p.Telefono)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
