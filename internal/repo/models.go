package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario es la cuenta de acceso a la plataforma.
type Usuario struct {
	ID           uuid.UUID  `json:"id"`
	Nombre       string     `json:"nombre"`
	Email        string     `json:"email"`
	Telefono     string     `json:"telefono"`
	PasswordHash string     `json:"-"`
	Activo       bool       `json:"activo"`
	CreadoEn     time.Time  `json:"creado_en"`
	UltimoLogin  *time.Time `json:"ultimo_login,omitempty"`
}

// Sede es una sucursal/área de operación a la que el usuario pertenece.
type Sede struct {
	ID     uuid.UUID `json:"id"`
	Nombre string    `json:"nombre"`
	Ciudad string    `json:"ciudad"`
	Activa bool      `json:"activa"`
}

// Rol describe un papel asignable dentro de una sede.
type Rol struct {
	ID     uuid.UUID `json:"id"`
	Nombre string    `json:"nombre"`
}

// Asignacion vincula usuario, sede y rol con su lista de permisos.
type Asignacion struct {
	SedeID   uuid.UUID `json:"sede_id"`
	RolID    uuid.UUID `json:"rol_id"`
	Permisos []string  `json:"permisos"`
}

// TokenRefresh persiste el hash de un refresh token emitido.
type TokenRefresh struct {
	ID         uuid.UUID
	UsuarioID  uuid.UUID
	TokenHash  string
	ExpiraEn   time.Time
	RevocadoEn *time.Time
	CreadoEn   time.Time
}
