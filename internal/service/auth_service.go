package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rutamoto/plataforma/internal/apperrors"
	"github.com/rutamoto/plataforma/internal/auth"
	"github.com/rutamoto/plataforma/internal/repo"
	"github.com/rutamoto/plataforma/internal/session"
	"github.com/rutamoto/plataforma/internal/util"
)

type usuarioRepository interface {
	GetByEmail(ctx context.Context, email string) (*repo.Usuario, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repo.Usuario, error)
	TouchUltimoLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ListSedes(ctx context.Context, usuarioID uuid.UUID) ([]repo.Sede, error)
}

type tokenRepository interface {
	Insert(ctx context.Context, usuarioID uuid.UUID, tokenHash string, expiraEn time.Time) error
	GetActive(ctx context.Context, tokenHash string) (*repo.TokenRefresh, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUsuario(ctx context.Context, usuarioID uuid.UUID) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra autenticación: login con Argon2id, rotación de
// refresh tokens y cierre de sesión.
type AuthService struct {
	usuarios   usuarioRepository
	tokens     tokenRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	store      *session.Store
	refreshTTL time.Duration
}

func NewAuthService(usuarios usuarioRepository, tokens tokenRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, store *session.Store, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		usuarios:   usuarios,
		tokens:     tokens,
		redis:      redisClient,
		jwt:        jwtMgr,
		store:      store,
		refreshTTL: refreshTTL,
	}
}

// JWT expone el gerenciador de JWT (útil en middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult es el retorno estándar de autenticaciones.
type LoginResult struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Usuario      *repo.Usuario `json:"usuario"`
	Sedes        []repo.Sede   `json:"sedes"`
}

// Login autentica por e-mail y contraseña. El token emitido no lleva
// sede ni rol: el cliente selecciona contexto vía /sesion/sede.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := util.ValidateEmail(email); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, err.Error())
	}
	if password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "contraseña obligatoria")
	}

	usuario, err := s.usuarios.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeAuth, "credenciales inválidas")
		}
		return nil, err
	}

	ok, err := auth.Verify(password, usuario.PasswordHash)
	if err != nil || !ok {
		return nil, apperrors.New(apperrors.CodeAuth, "credenciales inválidas")
	}
	if !usuario.Activo {
		return nil, apperrors.New(apperrors.CodeForbidden, "cuenta desactivada")
	}

	accessToken, jti, err := s.jwt.GenerateAccessToken(usuario.ID, nil, nil)
	if err != nil {
		return nil, err
	}

	rawRefresh, err := s.issueRefresh(ctx, usuario.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Create(ctx, session.Registro{UsuarioID: usuario.ID, JTI: jti}); err != nil {
		return nil, err
	}

	if err := s.usuarios.TouchUltimoLogin(ctx, usuario.ID, util.Now()); err != nil {
		log.Warn().Err(err).Str("usuario", usuario.ID.String()).Msg("no se pudo registrar ultimo_login")
	}

	sedes, err := s.usuarios.ListSedes(ctx, usuario.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		Usuario:      usuario,
		Sedes:        sedes,
	}, nil
}

// Refresh rota el refresh token: revoca el anterior, emite uno nuevo y
// reemite el access token. El token nuevo sale sin sede ni rol, como
// en el login; el cliente reselecciona contexto vía /sesion/sede.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	if rawRefresh == "" {
		return nil, apperrors.New(apperrors.CodeAuth, "refresh token inválido")
	}

	hash := auth.HashRefreshToken(rawRefresh)
	token, err := s.tokens.GetActive(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeAuth, "refresh token inválido")
		}
		return nil, err
	}

	usuario, err := s.usuarios.GetByID(ctx, token.UsuarioID)
	if err != nil {
		return nil, err
	}
	if !usuario.Activo {
		return nil, apperrors.New(apperrors.CodeForbidden, "cuenta desactivada")
	}

	accessToken, jti, err := s.jwt.GenerateAccessToken(usuario.ID, nil, nil)
	if err != nil {
		return nil, err
	}

	// revoca el token anterior (DB + Redis)
	if err := s.tokens.Revoke(ctx, token.ID); err != nil {
		return nil, err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	rawNew, err := s.issueRefresh(ctx, usuario.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Create(ctx, session.Registro{UsuarioID: usuario.ID, JTI: jti}); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: rawNew,
		Usuario:      usuario,
	}, nil
}

// Logout revoca el refresh token; con todos=true revoca todos los
// refresh tokens vigentes del usuario (cierre de sesión en todos los
// dispositivos). Las sesiones cacheadas expiran solas por TTL junto
// con sus access tokens. Es idempotente: un token ya revocado o
// desconocido no produce error.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string, todos bool) error {
	if rawRefresh == "" {
		return apperrors.New(apperrors.CodeValidation, "refresh token obligatorio")
	}

	hash := auth.HashRefreshToken(rawRefresh)
	token, err := s.tokens.GetActive(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}

	if todos {
		if err := s.tokens.RevokeAllForUsuario(ctx, token.UsuarioID); err != nil {
			return err
		}
	} else if err := s.tokens.Revoke(ctx, token.ID); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// Me retorna el perfil del usuario autenticado con sus sedes.
func (s *AuthService) Me(ctx context.Context, usuarioID uuid.UUID) (*repo.Usuario, []repo.Sede, error) {
	usuario, err := s.usuarios.GetByID(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, apperrors.New(apperrors.CodeNotFound, "usuario no encontrado")
		}
		return nil, nil, err
	}
	sedes, err := s.usuarios.ListSedes(ctx, usuarioID)
	if err != nil {
		return nil, nil, err
	}
	return usuario, sedes, nil
}

func (s *AuthService) issueRefresh(ctx context.Context, usuarioID uuid.UUID) (string, error) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return "", err
	}
	expira := util.Now().Add(s.refreshTTL)
	if err := s.tokens.Insert(ctx, usuarioID, hash, expira); err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, auth.RefreshRedisKey(hash), "activo", s.refreshTTL).Err(); err != nil {
		return "", err
	}
	return raw, nil
}
