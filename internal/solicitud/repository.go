package solicitud

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
	"github.com/rutamoto/plataforma/internal/viaje"
)

// Repository encapsula el acceso a solicitudes de viaje.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const solicitudCols = `
	id, pasajero_id, origen_lat, origen_lng, origen_direccion,
	destino_lat, destino_lng, destino_direccion,
	precio_ofrecido, metodo_pago, estado, fecha_creacion, fecha_expiracion`

func scanSolicitud(row pgx.Row) (*Solicitud, error) {
	var s Solicitud
	err := row.Scan(&s.ID, &s.PasajeroID, &s.OrigenLat, &s.OrigenLng, &s.OrigenDireccion,
		&s.DestinoLat, &s.DestinoLng, &s.DestinoDireccion,
		&s.PrecioOfrecido, &s.MetodoPago, &s.Estado, &s.FechaCreacion, &s.FechaExpiracion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserta la solicitud pendiente.
func (r *Repository) Create(ctx context.Context, s Solicitud) (*Solicitud, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO solicitudes_viaje (
			id, pasajero_id, origen_lat, origen_lng, origen_direccion,
			destino_lat, destino_lng, destino_direccion,
			precio_ofrecido, metodo_pago, estado, fecha_expiracion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.PasajeroID, s.OrigenLat, s.OrigenLng, s.OrigenDireccion,
		s.DestinoLat, s.DestinoLng, s.DestinoDireccion,
		s.PrecioOfrecido, s.MetodoPago, s.Estado, s.FechaExpiracion)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, s.ID)
}

// GetByID retorna la solicitud.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Solicitud, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+solicitudCols+` FROM solicitudes_viaje WHERE id = $1`, id)
	return scanSolicitud(row)
}

// ListPendientes retorna solicitudes pendientes y no expiradas. La
// expiración se evalúa al leer, no hay barrido en segundo plano.
func (r *Repository) ListPendientes(ctx context.Context, now time.Time) ([]Solicitud, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+solicitudCols+`
		  FROM solicitudes_viaje
		 WHERE estado = $1 AND fecha_expiracion > $2
		 ORDER BY fecha_creacion DESC`, EstadoPendiente, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Solicitud
	for rows.Next() {
		var s Solicitud
		if err := rows.Scan(&s.ID, &s.PasajeroID, &s.OrigenLat, &s.OrigenLng, &s.OrigenDireccion,
			&s.DestinoLat, &s.DestinoLng, &s.DestinoDireccion,
			&s.PrecioOfrecido, &s.MetodoPago, &s.Estado, &s.FechaCreacion, &s.FechaExpiracion); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Aceptar resuelve la carrera entre conductores con un único UPDATE
// condicional: solo gana quien encuentre la solicitud aún pendiente.
// En la misma transacción crea el viaje con el snapshot de la
// solicitud y pasa al conductor a en_viaje. Cero filas afectadas
// significa que otro conductor ganó (o la solicitud no existe) y no
// deja ningún efecto.
func (r *Repository) Aceptar(ctx context.Context, solicitudID, conductorID uuid.UUID, motoID *uuid.UUID, now time.Time) (*AceptarResult, error) {
	var result *AceptarResult
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE solicitudes_viaje
			   SET estado = $2
			 WHERE id = $1 AND estado = $3 AND fecha_expiracion > $4`,
			solicitudID, EstadoAceptada, EstadoPendiente, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}

		row := tx.QueryRow(ctx,
			`SELECT `+solicitudCols+` FROM solicitudes_viaje WHERE id = $1`, solicitudID)
		s, err := scanSolicitud(row)
		if err != nil {
			return err
		}

		viajeID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO viajes (
				id, solicitud_id, pasajero_id, conductor_id, moto_id,
				origen_lat, origen_lng, origen_direccion,
				destino_lat, destino_lng, destino_direccion,
				precio_acordado, metodo_pago, estado, fecha_aceptacion)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			viajeID, s.ID, s.PasajeroID, conductorID, motoID,
			s.OrigenLat, s.OrigenLng, s.OrigenDireccion,
			s.DestinoLat, s.DestinoLng, s.DestinoDireccion,
			s.PrecioOfrecido, s.MetodoPago, viaje.EstadoAceptado, now)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE conductores SET estado = $2 WHERE usuario_id = $1`,
			conductorID, conductor.EstadoEnViaje)
		if err != nil {
			return err
		}

		result = &AceptarResult{ViajeID: viajeID, SolicitudID: s.ID, Estado: viaje.EstadoAceptado}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancelar marca como cancelada una solicitud pendiente del pasajero.
func (r *Repository) Cancelar(ctx context.Context, solicitudID, pasajeroID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE solicitudes_viaje
		   SET estado = $3
		 WHERE id = $1 AND pasajero_id = $2 AND estado = $4`,
		solicitudID, pasajeroID, EstadoCancelada, EstadoPendiente)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
