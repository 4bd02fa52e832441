package calificacion

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rutamoto/plataforma/internal/db"
	"github.com/rutamoto/plataforma/internal/repo"
)

// ErrDuplicada indica que el calificador ya valoró ese viaje.
var ErrDuplicada = errors.New("calificación duplicada")

// Repository encapsula el acceso a calificaciones.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ParticipantesViaje retorna pasajero y conductor del viaje.
func (r *Repository) ParticipantesViaje(ctx context.Context, viajeID uuid.UUID) (pasajeroID, conductorID uuid.UUID, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT pasajero_id, conductor_id FROM viajes WHERE id = $1`, viajeID).
		Scan(&pasajeroID, &conductorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = repo.ErrNotFound
		}
		return uuid.Nil, uuid.Nil, err
	}
	return pasajeroID, conductorID, nil
}

// Crear inserta la calificación, copia puntuación y comentario al campo
// direccional del viaje y recalcula el promedio del calificado sobre
// TODAS sus calificaciones recibidas, todo en una transacción.
func (r *Repository) Crear(ctx context.Context, c Calificacion, alConductor bool) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO calificaciones (id, viaje_id, calificador_id, calificado_id, puntuacion, comentario)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.ViajeID, c.CalificadorID, c.CalificadoID, c.Puntuacion, c.Comentario)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicada
			}
			return err
		}

		if alConductor {
			_, err = tx.Exec(ctx, `
				UPDATE viajes
				   SET calificacion_al_conductor = $2, comentario_al_conductor = $3
				 WHERE id = $1`, c.ViajeID, c.Puntuacion, c.Comentario)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE viajes
				   SET calificacion_al_pasajero = $2, comentario_al_pasajero = $3
				 WHERE id = $1`, c.ViajeID, c.Puntuacion, c.Comentario)
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE conductores
			   SET calificacion_promedio = ROUND((
			       SELECT AVG(puntuacion) FROM calificaciones WHERE calificado_id = $1
			   )::numeric, 2)
			 WHERE usuario_id = $1`, c.CalificadoID)
		return err
	})
}

func (r *Repository) list(ctx context.Context, query string, usuarioID uuid.UUID) ([]Calificacion, error) {
	rows, err := r.pool.Query(ctx, query, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calificacion
	for rows.Next() {
		var c Calificacion
		if err := rows.Scan(&c.ID, &c.ViajeID, &c.CalificadorID, &c.CalificadoID,
			&c.Puntuacion, &c.Comentario, &c.FechaCreacion); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListRecibidas retorna las calificaciones recibidas, recientes primero.
func (r *Repository) ListRecibidas(ctx context.Context, usuarioID uuid.UUID) ([]Calificacion, error) {
	return r.list(ctx, `
		SELECT id, viaje_id, calificador_id, calificado_id, puntuacion, comentario, fecha_creacion
		  FROM calificaciones WHERE calificado_id = $1 ORDER BY fecha_creacion DESC`, usuarioID)
}

// ListDadas retorna las calificaciones emitidas, recientes primero.
func (r *Repository) ListDadas(ctx context.Context, usuarioID uuid.UUID) ([]Calificacion, error) {
	return r.list(ctx, `
		SELECT id, viaje_id, calificador_id, calificado_id, puntuacion, comentario, fecha_creacion
		  FROM calificaciones WHERE calificador_id = $1 ORDER BY fecha_creacion DESC`, usuarioID)
}
