package solicitud

import (
	"time"

	"github.com/google/uuid"
)

// Estados de la solicitud de viaje.
const (
	EstadoPendiente = "pendiente"
	EstadoAceptada  = "aceptada"
	EstadoExpirada  = "expirada"
	EstadoCancelada = "cancelada"
)

// Solicitud es el pedido de viaje publicado por un pasajero.
type Solicitud struct {
	ID               uuid.UUID `json:"id"`
	PasajeroID       uuid.UUID `json:"pasajero_id"`
	OrigenLat        float64   `json:"origen_lat"`
	OrigenLng        float64   `json:"origen_lng"`
	OrigenDireccion  string    `json:"origen_direccion"`
	DestinoLat       float64   `json:"destino_lat"`
	DestinoLng       float64   `json:"destino_lng"`
	DestinoDireccion string    `json:"destino_direccion"`
	PrecioOfrecido   float64   `json:"precio_ofrecido"`
	MetodoPago       string    `json:"metodo_pago"`
	Estado           string    `json:"estado"`
	FechaCreacion    time.Time `json:"fecha_creacion"`
	FechaExpiracion  time.Time `json:"fecha_expiracion"`
}

// SolicitudCercana agrega la distancia al conductor que consulta.
type SolicitudCercana struct {
	Solicitud
	DistanciaKM float64 `json:"distancia_km"`
}

// CrearInput son los datos del pedido. Las coordenadas llegan como
// string desde los clientes móviles.
type CrearInput struct {
	OrigenLat        string  `json:"origen_lat"`
	OrigenLng        string  `json:"origen_lng"`
	OrigenDireccion  string  `json:"origen_direccion"`
	DestinoLat       string  `json:"destino_lat"`
	DestinoLng       string  `json:"destino_lng"`
	DestinoDireccion string  `json:"destino_direccion"`
	PrecioOfrecido   float64 `json:"precio_ofrecido"`
	MetodoPago       string  `json:"metodo_pago"`
}

// AceptarResult identifica el viaje creado al aceptar.
type AceptarResult struct {
	ViajeID     uuid.UUID `json:"viaje_id"`
	SolicitudID uuid.UUID `json:"solicitud_id"`
	Estado      string    `json:"estado"`
}
