package util

import (
	"math"
	"time"
)

// Now retorna el reloj del servicio en UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Round2 redondea a dos decimales (promedios de calificación, precios).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
