package repo

import "errors"

// ErrNotFound indica registro inexistente.
var ErrNotFound = errors.New("registro no encontrado")
