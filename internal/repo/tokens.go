package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepo persiste refresh tokens (solo el hash).
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// Insert guarda un refresh token recién emitido.
func (r *TokenRepo) Insert(ctx context.Context, usuarioID uuid.UUID, tokenHash string, expiraEn time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tokens_refresh (id, usuario_id, token_hash, expira_en)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), usuarioID, tokenHash, expiraEn)
	return err
}

// GetActive busca un token vigente (no revocado, no expirado) por hash.
func (r *TokenRepo) GetActive(ctx context.Context, tokenHash string) (*TokenRefresh, error) {
	var t TokenRefresh
	err := r.pool.QueryRow(ctx, `
		SELECT id, usuario_id, token_hash, expira_en, revocado_en, creado_en
		  FROM tokens_refresh
		 WHERE token_hash = $1 AND revocado_en IS NULL AND expira_en > now()`,
		tokenHash).Scan(&t.ID, &t.UsuarioID, &t.TokenHash, &t.ExpiraEn, &t.RevocadoEn, &t.CreadoEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Revoke marca un token como revocado.
func (r *TokenRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tokens_refresh SET revocado_en = now() WHERE id = $1 AND revocado_en IS NULL`, id)
	return err
}

// RevokeAllForUsuario revoca todos los tokens vigentes del usuario (logout global).
func (r *TokenRepo) RevokeAllForUsuario(ctx context.Context, usuarioID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tokens_refresh SET revocado_en = now() WHERE usuario_id = $1 AND revocado_en IS NULL`, usuarioID)
	return err
}
