package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/iam/user"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/ptrx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresUserRepository implementa user.Repository sobre PostgreSQL
type PostgresUserRepository struct {
	db         *sqlx.DB
	now        func() time.Time
	refreshTTL time.Duration
}

type Option func(*PostgresUserRepository)

func WithClock(now func() time.Time) Option {
	return func(r *PostgresUserRepository) { r.now = now }
}

func WithRefreshTTL(ttl time.Duration) Option {
	return func(r *PostgresUserRepository) {
		if ttl > 0 {
			r.refreshTTL = ttl
		}
	}
}

// NewPostgresUserRepository crea una nueva instancia del repositorio
func NewPostgresUserRepository(db *sqlx.DB, opts ...Option) *PostgresUserRepository {
	r := &PostgresUserRepository{
		db:         db,
		now:        time.Now,
		refreshTTL: user.RefreshTokenTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ user.Repository = (*PostgresUserRepository)(nil)

// userRow es la proyección de t_usuarios + t_roles
type userRow struct {
	ID            int64      `db:"id_usuario"`
	Cuil          string     `db:"cuil"`
	Nombre        string     `db:"nombre"`
	Apellido      string     `db:"apellido"`
	Activo        *bool      `db:"activo"`
	FechaCreacion *time.Time `db:"fecha_creacion"`
	FechaBaja     *time.Time `db:"fecha_baja"`
	IdRol         *int64     `db:"id_rol"`
	Rol           *string    `db:"rol"`
}

func (r userRow) toDomain() user.LocalUser {
	return user.LocalUser{
		ID:            r.ID,
		Cuil:          kernel.Cuil(r.Cuil),
		Nombre:        r.Nombre,
		Apellido:      r.Apellido,
		Activo:        ptrx.ValueOr(r.Activo, true),
		FechaCreacion: r.FechaCreacion,
		FechaBaja:     r.FechaBaja,
		RoleID:        r.IdRol,
		Rol:           kernel.NormalizeRole(ptrx.Value(r.Rol)),
	}
}

const selectUsers = `
	SELECT u.id_usuario, u.cuil, u.nombre, u.apellido, u.activo,
	       u.fecha_creacion, u.fecha_baja, u.id_rol, r.rol
	FROM t_usuarios u
	LEFT JOIN t_roles r ON r.id_rol = u.id_rol`

// FindByCuil busca un usuario con su rol. No encontrado no es error.
func (r *PostgresUserRepository) FindByCuil(ctx context.Context, cuil kernel.Cuil) (*user.LocalUser, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, selectUsers+` WHERE u.cuil = $1`, cuil.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, user.ErrQueryFailed(err).WithDetail("cuil", cuil.String())
	}
	u := row.toDomain()
	return &u, nil
}

// ListAll devuelve todos los usuarios registrados con su rol
func (r *PostgresUserRepository) ListAll(ctx context.Context) ([]user.LocalUser, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, selectUsers+` ORDER BY u.id_usuario`); err != nil {
		return nil, user.ErrQueryFailed(err)
	}

	users := make([]user.LocalUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

const (
	provisionUser = `
		INSERT INTO t_usuarios (cuil, nombre, apellido, activo, fecha_creacion, id_rol)
		VALUES ($1, '', '', TRUE, $2, (SELECT id_rol FROM t_roles WHERE rol = $3))
		ON CONFLICT (cuil) DO NOTHING`

	upsertRefreshToken = `
		INSERT INTO t_refresh_tokens (cuil, refresh_token, expiration)
		VALUES ($1, $2, $3)
		ON CONFLICT (cuil) DO UPDATE
		SET refresh_token = EXCLUDED.refresh_token, expiration = EXCLUDED.expiration`
)

// SaveRefreshToken da de alta al usuario si hace falta y reemplaza su refresh
// token. Cualquier falla hace rollback y se devuelve.
func (r *PostgresUserRepository) SaveRefreshToken(ctx context.Context, cuil kernel.Cuil, token string) (err error) {
	if cuil.IsEmpty() {
		return user.ErrInvalidCuil()
	}

	now := r.now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.ErrTransactionFailed(err).WithDetail("stage", "begin")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logx.WithError(rbErr).WithField("cuil", cuil.String()).Error("rollback de refresh token falló")
			}
		}
	}()

	res, err := tx.ExecContext(ctx, provisionUser, cuil.String(), now, kernel.DefaultRole.String())
	if err != nil {
		return user.ErrTransactionFailed(err).WithDetail("stage", "provision").WithDetail("pg_code", pgCode(err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logx.WithField("cuil", cuil.String()).Infof("Usuario registrado automáticamente con rol %s", kernel.DefaultRole)
	}

	if _, err = tx.ExecContext(ctx, upsertRefreshToken, cuil.String(), token, now.Add(r.refreshTTL)); err != nil {
		return user.ErrTransactionFailed(err).WithDetail("stage", "upsert_refresh_token").WithDetail("pg_code", pgCode(err))
	}

	if err = tx.Commit(); err != nil {
		return user.ErrTransactionFailed(err).WithDetail("stage", "commit")
	}
	return nil
}

// ValidateRefreshToken devuelve el CUIL dueño de un token vigente
func (r *PostgresUserRepository) ValidateRefreshToken(ctx context.Context, token string) (kernel.Cuil, error) {
	if token == "" {
		return "", nil
	}

	var rt user.RefreshToken
	query := `
		SELECT id, cuil, refresh_token, expiration
		FROM t_refresh_tokens
		WHERE refresh_token = $1 AND expiration > $2`
	if err := r.db.GetContext(ctx, &rt, query, token, r.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", user.ErrQueryFailed(err)
	}
	if rt.IsExpiredAt(r.now()) {
		return "", nil
	}
	return rt.Cuil, nil
}

// DeleteRefreshToken borra el token; si no existe no pasa nada
func (r *PostgresUserRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM t_refresh_tokens WHERE refresh_token = $1`, token); err != nil {
		return user.ErrQueryFailed(err)
	}
	return nil
}

// DeleteExpiredRefreshTokens limpia tokens vencidos y devuelve cuántos borró
func (r *PostgresUserRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM t_refresh_tokens WHERE expiration <= $1`, r.now())
	if err != nil {
		return 0, user.ErrQueryFailed(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, user.ErrQueryFailed(err)
	}
	return n, nil
}

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
