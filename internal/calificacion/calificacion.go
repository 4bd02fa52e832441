package calificacion

import (
	"time"

	"github.com/google/uuid"
)

// Calificacion es la valoración de un participante al otro tras un viaje.
type Calificacion struct {
	ID            uuid.UUID `json:"id"`
	ViajeID       uuid.UUID `json:"viaje_id"`
	CalificadorID uuid.UUID `json:"calificador_id"`
	CalificadoID  uuid.UUID `json:"calificado_id"`
	Puntuacion    int       `json:"puntuacion"`
	Comentario    string    `json:"comentario"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

// CalificarInput es el payload de una calificación nueva.
type CalificarInput struct {
	ViajeID      uuid.UUID `json:"viaje_id"`
	CalificadoID uuid.UUID `json:"calificado_id"`
	Puntuacion   int       `json:"puntuacion"`
	Comentario   string    `json:"comentario"`
}

// Resumen acompaña las calificaciones recibidas.
type Resumen struct {
	Calificaciones []Calificacion `json:"calificaciones"`
	Promedio       float64        `json:"promedio"`
	Total          int            `json:"total"`
}
