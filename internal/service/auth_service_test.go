package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/auth"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/session"
)

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	if b, ok := value.([]byte); ok {
		s.store[key] = string(b)
	} else {
		s.store[key] = fmt.Sprint(value)
	}
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

type stubUsuarios struct {
	usuarios map[uuid.UUID]*repo.Usuario
	sedes    []repo.Sede
	touches  int
}

func (s *stubUsuarios) GetByEmail(_ context.Context, email string) (*repo.Usuario, error) {
	for _, u := range s.usuarios {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *stubUsuarios) GetByID(_ context.Context, id uuid.UUID) (*repo.Usuario, error) {
	u, ok := s.usuarios[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

func (s *stubUsuarios) TouchUltimoLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	s.touches++
	return nil
}

func (s *stubUsuarios) ListSedes(_ context.Context, _ uuid.UUID) ([]repo.Sede, error) {
	return s.sedes, nil
}

type stubTokens struct {
	tokens map[string]*repo.TokenRefresh
}

func (s *stubTokens) Insert(_ context.Context, usuarioID uuid.UUID, tokenHash string, expiraEn time.Time) error {
	if s.tokens == nil {
		s.tokens = make(map[string]*repo.TokenRefresh)
	}
	s.tokens[tokenHash] = &repo.TokenRefresh{
		ID:        uuid.New(),
		UsuarioID: usuarioID,
		TokenHash: tokenHash,
		ExpiraEn:  expiraEn,
	}
	return nil
}

func (s *stubTokens) GetActive(_ context.Context, tokenHash string) (*repo.TokenRefresh, error) {
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevocadoEn != nil || t.ExpiraEn.Before(time.Now().UTC()) {
		return nil, repo.ErrNotFound
	}
	return t, nil
}

func (s *stubTokens) Revoke(_ context.Context, id uuid.UUID) error {
	for _, t := range s.tokens {
		if t.ID == id {
			now := time.Now().UTC()
			t.RevocadoEn = &now
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *stubTokens) RevokeAllForUsuario(_ context.Context, usuarioID uuid.UUID) error {
	now := time.Now().UTC()
	for _, t := range s.tokens {
		if t.UsuarioID == usuarioID && t.RevocadoEn == nil {
			t.RevocadoEn = &now
		}
	}
	return nil
}

func (s *stubTokens) activos(usuarioID uuid.UUID) int {
	n := 0
	for _, t := range s.tokens {
		if t.UsuarioID == usuarioID && t.RevocadoEn == nil {
			n++
		}
	}
	return n
}

func seedUsuario(t *testing.T, usuarios *stubUsuarios, password string, activo bool) *repo.Usuario {
	t.Helper()
	hash, err := auth.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &repo.Usuario{
		ID:           uuid.New(),
		Nombre:       "Andrea Quispe",
		Email:        "andrea@rutamoto.pe",
		PasswordHash: hash,
		Activo:       activo,
	}
	if usuarios.usuarios == nil {
		usuarios.usuarios = make(map[uuid.UUID]*repo.Usuario)
	}
	usuarios.usuarios[u.ID] = u
	return u
}

func newAuthService(usuarios *stubUsuarios, tokens *stubTokens) (*AuthService, *session.Store) {
	rds := &stubRedis{}
	store := session.NewStore(rds, time.Hour)
	jwtMgr := auth.NewJWTManager("secreto-de-prueba", 15*time.Minute)
	return NewAuthService(usuarios, tokens, rds, jwtMgr, store, 24*time.Hour), store
}

func TestLoginOK(t *testing.T) {
	usuarios := &stubUsuarios{sedes: []repo.Sede{{ID: uuid.New(), Nombre: "Sede Centro"}}}
	tokens := &stubTokens{}
	svc, store := newAuthService(usuarios, tokens)

	u := seedUsuario(t, usuarios, "clave-segura", true)

	out, err := svc.Login(context.Background(), "Andrea@Rutamoto.pe", "clave-segura")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatal("login debería retornar access y refresh token")
	}
	if len(out.Sedes) != 1 {
		t.Fatalf("sedes esperadas 1, got %d", len(out.Sedes))
	}
	if usuarios.touches != 1 {
		t.Fatalf("ultimo_login debería registrarse una vez, got %d", usuarios.touches)
	}

	// el token inicial no lleva contexto de sede ni rol
	claims, err := svc.JWT().ParseAndValidate(out.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Fatalf("subject esperado %s, got %s", u.ID, claims.Subject)
	}
	if claims.SedeID != nil || claims.RolID != nil {
		t.Fatal("el token de login no debería llevar sede ni rol")
	}

	// la sesión del token quedó materializada
	reg, err := store.Get(context.Background(), claims.ID)
	if err != nil {
		t.Fatalf("sesión: %v", err)
	}
	if reg.UsuarioID != u.ID {
		t.Fatalf("usuario de sesión %s no coincide con %s", reg.UsuarioID, u.ID)
	}
}

func TestLoginCredencialesInvalidas(t *testing.T) {
	usuarios := &stubUsuarios{}
	svc, _ := newAuthService(usuarios, &stubTokens{})
	seedUsuario(t, usuarios, "clave-segura", true)
	ctx := context.Background()

	_, err := svc.Login(ctx, "andrea@rutamoto.pe", "otra-clave")
	if apperrors.CodeOf(err) != apperrors.CodeAuth {
		t.Fatalf("contraseña incorrecta debería dar AUTH, got %v", err)
	}

	// email desconocido produce el mismo código, sin filtrar existencia
	_, err = svc.Login(ctx, "nadie@rutamoto.pe", "clave-segura")
	if apperrors.CodeOf(err) != apperrors.CodeAuth {
		t.Fatalf("email desconocido debería dar AUTH, got %v", err)
	}
}

func TestLoginCuentaDesactivada(t *testing.T) {
	usuarios := &stubUsuarios{}
	svc, _ := newAuthService(usuarios, &stubTokens{})
	seedUsuario(t, usuarios, "clave-segura", false)

	_, err := svc.Login(context.Background(), "andrea@rutamoto.pe", "clave-segura")
	if apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("cuenta inactiva debería dar FORBIDDEN, got %v", err)
	}
}

func TestRefreshRotaToken(t *testing.T) {
	usuarios := &stubUsuarios{}
	tokens := &stubTokens{}
	svc, _ := newAuthService(usuarios, tokens)
	u := seedUsuario(t, usuarios, "clave-segura", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, "andrea@rutamoto.pe", "clave-segura")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("el refresh token debería rotarse")
	}
	if tokens.activos(u.ID) != 1 {
		t.Fatalf("tras rotar debería quedar un solo token activo, got %d", tokens.activos(u.ID))
	}

	// el token anterior queda inservible
	if _, err := svc.Refresh(ctx, login.RefreshToken); apperrors.CodeOf(err) != apperrors.CodeAuth {
		t.Fatalf("el refresh anterior debería rechazarse con AUTH, got %v", err)
	}
}

func TestRefreshEmiteTokenSinContexto(t *testing.T) {
	usuarios := &stubUsuarios{}
	tokens := &stubTokens{}
	svc, store := newAuthService(usuarios, tokens)
	u := seedUsuario(t, usuarios, "clave-segura", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, "andrea@rutamoto.pe", "clave-segura")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// el token reemitido sale como el de login: sin sede ni rol
	claims, err := svc.JWT().ParseAndValidate(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SedeID != nil || claims.RolID != nil {
		t.Fatal("el token reemitido no debería llevar sede ni rol")
	}

	reg, err := store.Get(ctx, claims.ID)
	if err != nil {
		t.Fatalf("sesión del token nuevo: %v", err)
	}
	if reg.UsuarioID != u.ID {
		t.Fatalf("usuario de sesión %s no coincide con %s", reg.UsuarioID, u.ID)
	}
}

func TestRefreshInvalido(t *testing.T) {
	svc, _ := newAuthService(&stubUsuarios{}, &stubTokens{})

	_, err := svc.Refresh(context.Background(), "token-que-no-existe")
	if apperrors.CodeOf(err) != apperrors.CodeAuth {
		t.Fatalf("esperaba AUTH, got %v", err)
	}
}

func TestLogoutRevocaYEsIdempotente(t *testing.T) {
	usuarios := &stubUsuarios{}
	tokens := &stubTokens{}
	svc, store := newAuthService(usuarios, tokens)
	u := seedUsuario(t, usuarios, "clave-segura", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, "andrea@rutamoto.pe", "clave-segura")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	otro, err := svc.Login(ctx, "andrea@rutamoto.pe", "clave-segura")
	if err != nil {
		t.Fatalf("login 2: %v", err)
	}

	if err := svc.Logout(ctx, login.RefreshToken, false); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if tokens.activos(u.ID) != 1 {
		t.Fatalf("solo el refresh token cerrado debería revocarse, activos=%d", tokens.activos(u.ID))
	}

	// la sesión del otro dispositivo no se ve afectada
	otrosClaims, err := svc.JWT().ParseAndValidate(otro.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := store.Get(ctx, otrosClaims.ID); err != nil {
		t.Fatalf("la sesión del otro dispositivo debería seguir viva: %v", err)
	}

	// repetir el logout con el mismo token no produce error
	if err := svc.Logout(ctx, login.RefreshToken, false); err != nil {
		t.Fatalf("logout repetido: %v", err)
	}
}

func TestLogoutTodosLosDispositivos(t *testing.T) {
	usuarios := &stubUsuarios{}
	tokens := &stubTokens{}
	svc, _ := newAuthService(usuarios, tokens)
	u := seedUsuario(t, usuarios, "clave-segura", true)
	ctx := context.Background()

	primero, err := svc.Login(ctx, "andrea@rutamoto.pe", "clave-segura")
	if err != nil {
		t.Fatalf("login 1: %v", err)
	}
	if _, err := svc.Login(ctx, "andrea@rutamoto.pe", "clave-segura"); err != nil {
		t.Fatalf("login 2: %v", err)
	}
	if tokens.activos(u.ID) != 2 {
		t.Fatalf("esperaba dos tokens activos, got %d", tokens.activos(u.ID))
	}

	if err := svc.Logout(ctx, primero.RefreshToken, true); err != nil {
		t.Fatalf("logout todos: %v", err)
	}
	if tokens.activos(u.ID) != 0 {
		t.Fatalf("todos los tokens deberían revocarse, activos=%d", tokens.activos(u.ID))
	}
}
