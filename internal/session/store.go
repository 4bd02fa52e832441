package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession indica que no hay sesión cacheada para el token.
var ErrNoSession = errors.New("sesión inexistente")

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Registro es la sesión materializada en cache: el contexto activo
// (sede, rol, permisos) del token identificado por el jti. Cada token
// tiene su propia sesión; dos dispositivos del mismo usuario conviven
// sin pisarse.
type Registro struct {
	ID        uuid.UUID  `json:"id"`
	UsuarioID uuid.UUID  `json:"usuario_id"`
	SedeID    *uuid.UUID `json:"sede_id,omitempty"`
	RolID     *uuid.UUID `json:"rol_id,omitempty"`
	Permisos  []string   `json:"permisos"`
	JTI       string     `json:"jti"`
	CreadoEn  time.Time  `json:"creado_en"`
}

// Store guarda sesiones en Redis: session:{id} contiene el registro y
// token:{jti} apunta al id de sesión del token.
type Store struct {
	redis redisCommander
	ttl   time.Duration
}

func NewStore(redisClient redisCommander, ttl time.Duration) *Store {
	return &Store{redis: redisClient, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("session:%s", id)
}

func tokenKey(jti string) string {
	return fmt.Sprintf("token:%s", jti)
}

// Create materializa la sesión del token y deja token:{jti} apuntando
// a ella. Asigna el id de sesión si no viene puesto.
func (s *Store) Create(ctx context.Context, reg Registro) (*Registro, error) {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.CreadoEn.IsZero() {
		reg.CreadoEn = time.Now().UTC()
	}
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, sessionKey(reg.ID), payload, s.ttl).Err(); err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, tokenKey(reg.JTI), reg.ID.String(), s.ttl).Err(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Get resuelve la sesión del token: token:{jti} da el id y session:{id}
// el registro. Cualquier eslabón ausente o corrupto se trata como
// sesión inexistente para que el reconciliador la recree.
func (s *Store) Get(ctx context.Context, jti string) (*Registro, error) {
	rawID, err := s.redis.Get(ctx, tokenKey(jti)).Result()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrNoSession
	}

	raw, err := s.redis.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var reg Registro
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return nil, ErrNoSession
	}
	return &reg, nil
}

// Extend renueva el TTL de la sesión y del puntero del jti.
func (s *Store) Extend(ctx context.Context, reg *Registro) error {
	if err := s.redis.Expire(ctx, sessionKey(reg.ID), s.ttl).Err(); err != nil {
		return err
	}
	return s.redis.Expire(ctx, tokenKey(reg.JTI), s.ttl).Err()
}

// Delete elimina la sesión y el puntero de su jti.
func (s *Store) Delete(ctx context.Context, reg *Registro) error {
	keys := []string{sessionKey(reg.ID)}
	if reg.JTI != "" {
		keys = append(keys, tokenKey(reg.JTI))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
