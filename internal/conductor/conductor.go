package conductor

import (
	"time"

	"github.com/google/uuid"
)

// Estados operativos del conductor. Cualquier transición es válida:
// tras un reinicio del dispositivo el conductor debe poder volver a
// `disponible` desde cualquier estado.
const (
	EstadoDisponible   = "disponible"
	EstadoEnViaje      = "en_viaje"
	EstadoNoDisponible = "no_disponible"
)

// EstadoValido verifica que el nombre de estado exista.
func EstadoValido(estado string) bool {
	switch estado {
	case EstadoDisponible, EstadoEnViaje, EstadoNoDisponible:
		return true
	}
	return false
}

// Conductor es el perfil operativo asociado a un usuario.
type Conductor struct {
	UsuarioID           uuid.UUID  `json:"usuario_id"`
	Nombre              string     `json:"nombre"`
	Telefono            string     `json:"telefono"`
	Licencia            string     `json:"licencia"`
	LicenciaVencimiento *time.Time `json:"licencia_vencimiento,omitempty"`
	Documento           string     `json:"documento"`
	Estado              string     `json:"estado"`
	Verificado          bool       `json:"verificado"`
	Lat                 *float64   `json:"lat,omitempty"`
	Lng                 *float64   `json:"lng,omitempty"`
	UbicacionEn         *time.Time `json:"ubicacion_actualizada,omitempty"`
	Promedio            float64    `json:"calificacion_promedio"`
	TotalViajes         int        `json:"total_viajes"`
	FechaRegistro       time.Time  `json:"fecha_registro"`
}

// ConductorCercano agrega la distancia al punto consultado.
type ConductorCercano struct {
	Conductor
	DistanciaKM float64 `json:"distancia_km"`
}

// Moto es un vehículo registrado por el conductor.
type Moto struct {
	ID          uuid.UUID `json:"id"`
	ConductorID uuid.UUID `json:"conductor_id"`
	Placa       string    `json:"placa"`
	Marca       string    `json:"marca"`
	Modelo      string    `json:"modelo"`
	Anio        int       `json:"anio"`
	Color       string    `json:"color"`
	Activa      bool      `json:"activa"`
	CreadaEn    time.Time `json:"creada_en"`
}

// RegistroInput son los datos mínimos para crear el perfil.
type RegistroInput struct {
	Licencia            string     `json:"licencia"`
	LicenciaVencimiento *time.Time `json:"licencia_vencimiento,omitempty"`
	Documento           string     `json:"documento"`
}

// PerfilUpdate lleva solo los campos editables del perfil. Punteros
// nil significan "sin cambio".
type PerfilUpdate struct {
	Telefono            *string    `json:"telefono,omitempty"`
	Licencia            *string    `json:"licencia,omitempty"`
	LicenciaVencimiento *time.Time `json:"licencia_vencimiento,omitempty"`
	Documento           *string    `json:"documento,omitempty"`
}

// MotoInput son los datos de alta de una moto.
type MotoInput struct {
	Placa  string `json:"placa"`
	Marca  string `json:"marca"`
	Modelo string `json:"modelo"`
	Anio   int    `json:"anio"`
	Color  string `json:"color"`
}
