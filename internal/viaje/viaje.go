package viaje

import (
	"time"

	"github.com/google/uuid"
)

// Estados del ciclo de vida del viaje.
const (
	EstadoSolicitado     = "solicitado"
	EstadoAceptado       = "aceptado"
	EstadoEnCaminoOrigen = "en_camino_origen"
	EstadoLlegadoOrigen  = "llegado_origen"
	EstadoEnViaje        = "en_viaje"
	EstadoCompletado     = "completado"
	EstadoCancelado      = "cancelado"
)

// Viaje es el contrato entre pasajero y conductor: snapshot de la
// solicitud aceptada más el avance del recorrido.
type Viaje struct {
	ID               uuid.UUID  `json:"id"`
	SolicitudID      uuid.UUID  `json:"solicitud_id"`
	PasajeroID       uuid.UUID  `json:"pasajero_id"`
	ConductorID      uuid.UUID  `json:"conductor_id"`
	MotoID           *uuid.UUID `json:"moto_id,omitempty"`
	OrigenLat        float64    `json:"origen_lat"`
	OrigenLng        float64    `json:"origen_lng"`
	OrigenDireccion  string     `json:"origen_direccion"`
	DestinoLat       float64    `json:"destino_lat"`
	DestinoLng       float64    `json:"destino_lng"`
	DestinoDireccion string     `json:"destino_direccion"`
	PrecioAcordado   float64    `json:"precio_acordado"`
	PrecioFinal      *float64   `json:"precio_final,omitempty"`
	MetodoPago       string     `json:"metodo_pago"`
	Estado           string     `json:"estado"`
	FechaAceptacion  time.Time  `json:"fecha_aceptacion"`
	FechaInicio      *time.Time `json:"fecha_inicio,omitempty"`
	FechaFin         *time.Time `json:"fecha_finalizacion,omitempty"`

	// calificaciones por dirección, llenadas al calificar
	CalificacionAlConductor *int    `json:"calificacion_al_conductor,omitempty"`
	ComentarioAlConductor   *string `json:"comentario_al_conductor,omitempty"`
	CalificacionAlPasajero  *int    `json:"calificacion_al_pasajero,omitempty"`
	ComentarioAlPasajero    *string `json:"comentario_al_pasajero,omitempty"`
}

// Terminal indica si el estado ya no admite transiciones.
func Terminal(estado string) bool {
	return estado == EstadoCompletado || estado == EstadoCancelado
}

// Participante es la información visible del otro lado del viaje.
type Participante struct {
	ID       uuid.UUID `json:"id"`
	Nombre   string    `json:"nombre"`
	Telefono string    `json:"telefono"`
}

// InfoConductor amplía el participante con datos operativos.
type InfoConductor struct {
	Participante
	Promedio    float64  `json:"calificacion_promedio"`
	TotalViajes int      `json:"total_viajes"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	PlacaActiva *string  `json:"placa,omitempty"`
}

// Detalle combina el viaje con la contraparte según quién consulta.
type Detalle struct {
	Viaje     *Viaje         `json:"viaje"`
	Conductor *InfoConductor `json:"conductor,omitempty"`
	Pasajero  *Participante  `json:"pasajero,omitempty"`
}
