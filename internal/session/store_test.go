package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func (s *stubRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	_, ok := s.store[key]
	cmd.SetVal(ok)
	return cmd
}

func toString(value any) string {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(value)
}

func TestStoreCreateGet(t *testing.T) {
	store := NewStore(&stubRedis{}, time.Hour)
	ctx := context.Background()

	usuarioID := uuid.New()
	sedeID := uuid.New()
	rolID := uuid.New()
	jti := uuid.NewString()

	creado, err := store.Create(ctx, Registro{
		UsuarioID: usuarioID,
		SedeID:    &sedeID,
		RolID:     &rolID,
		Permisos:  []string{"viajes.crear"},
		JTI:       jti,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if creado.ID == uuid.Nil {
		t.Fatal("create debe asignar el id de sesión")
	}

	got, err := store.Get(ctx, jti)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != creado.ID {
		t.Fatalf("id esperado %s, got %s", creado.ID, got.ID)
	}
	if got.UsuarioID != usuarioID {
		t.Fatalf("usuario esperado %s, got %s", usuarioID, got.UsuarioID)
	}
	if got.SedeID == nil || *got.SedeID != sedeID {
		t.Fatalf("sede esperada %s, got %v", sedeID, got.SedeID)
	}
	if got.RolID == nil || *got.RolID != rolID {
		t.Fatalf("rol esperado %s, got %v", rolID, got.RolID)
	}
	if len(got.Permisos) != 1 || got.Permisos[0] != "viajes.crear" {
		t.Fatalf("permisos inesperados: %v", got.Permisos)
	}
}

func TestStoreGetSinSesion(t *testing.T) {
	store := NewStore(&stubRedis{}, time.Hour)

	_, err := store.Get(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("esperaba ErrNoSession, got %v", err)
	}
}

func TestStoreUnaSesionPorToken(t *testing.T) {
	store := NewStore(&stubRedis{}, time.Hour)
	ctx := context.Background()

	// el mismo usuario con dos tokens: cada jti conserva su contexto
	usuarioID := uuid.New()
	sedeA := uuid.New()
	sedeB := uuid.New()
	jtiA := uuid.NewString()
	jtiB := uuid.NewString()

	if _, err := store.Create(ctx, Registro{UsuarioID: usuarioID, SedeID: &sedeA, JTI: jtiA}); err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := store.Create(ctx, Registro{UsuarioID: usuarioID, SedeID: &sedeB, JTI: jtiB}); err != nil {
		t.Fatalf("create B: %v", err)
	}

	regA, err := store.Get(ctx, jtiA)
	if err != nil {
		t.Fatalf("get A: %v", err)
	}
	regB, err := store.Get(ctx, jtiB)
	if err != nil {
		t.Fatalf("get B: %v", err)
	}
	if regA.SedeID == nil || *regA.SedeID != sedeA {
		t.Fatalf("la sesión de A debe conservar su sede: %v", regA.SedeID)
	}
	if regB.SedeID == nil || *regB.SedeID != sedeB {
		t.Fatalf("la sesión de B debe conservar su sede: %v", regB.SedeID)
	}
	if regA.ID == regB.ID {
		t.Fatal("cada token debe tener su propia sesión")
	}
}

func TestStoreDeleteEliminaSoloSuSesion(t *testing.T) {
	store := NewStore(&stubRedis{}, time.Hour)
	ctx := context.Background()

	usuarioID := uuid.New()
	jtiA := uuid.NewString()
	jtiB := uuid.NewString()
	if _, err := store.Create(ctx, Registro{UsuarioID: usuarioID, JTI: jtiA}); err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := store.Create(ctx, Registro{UsuarioID: usuarioID, JTI: jtiB}); err != nil {
		t.Fatalf("create B: %v", err)
	}

	regA, err := store.Get(ctx, jtiA)
	if err != nil {
		t.Fatalf("get A: %v", err)
	}
	if err := store.Delete(ctx, regA); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, jtiA); !errors.Is(err, ErrNoSession) {
		t.Fatalf("esperaba ErrNoSession tras delete, got %v", err)
	}
	if _, err := store.Get(ctx, jtiB); err != nil {
		t.Fatalf("la sesión del otro token no debe tocarse: %v", err)
	}
}

func TestStoreCacheCorruptaSeTrataComoInexistente(t *testing.T) {
	backend := &stubRedis{store: map[string]string{}}
	store := NewStore(backend, time.Hour)
	ctx := context.Background()

	// el puntero apunta a un registro ilegible
	id := uuid.New()
	jti := uuid.NewString()
	backend.store[tokenKey(jti)] = id.String()
	backend.store[sessionKey(id)] = "{no es json"

	if _, err := store.Get(ctx, jti); !errors.Is(err, ErrNoSession) {
		t.Fatalf("esperaba ErrNoSession para cache corrupta, got %v", err)
	}

	// el puntero apunta a una sesión ya expirada
	jtiHuerfano := uuid.NewString()
	backend.store[tokenKey(jtiHuerfano)] = uuid.New().String()

	if _, err := store.Get(ctx, jtiHuerfano); !errors.Is(err, ErrNoSession) {
		t.Fatalf("esperaba ErrNoSession para puntero huérfano, got %v", err)
	}
}
