package userinfra_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/user"
	"github.com/Abraxas-365/cidigate/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*userinfra.PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := userinfra.NewPostgresUserRepository(
		sqlx.NewDb(db, "sqlmock"),
		userinfra.WithClock(func() time.Time { return fixedNow }),
	)
	return repo, mock
}

var userColumns = []string{"id_usuario", "cuil", "nombre", "apellido", "activo", "fecha_creacion", "fecha_baja", "id_rol", "rol"}

func TestFindByCuil_ReturnsUserWithRole(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.cuil = $1")).
		WithArgs("20123456789").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(1), "20123456789", "Ana", "Gomez", true, fixedNow, nil, int64(3), "admin"))

	u, err := repo.FindByCuil(context.Background(), "20123456789")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, kernel.Cuil("20123456789"), u.Cuil)
	assert.Equal(t, kernel.RoleAdmin, u.Rol)
	assert.True(t, u.Activo)
	require.NotNil(t, u.RoleID)
	assert.EqualValues(t, 3, *u.RoleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByCuil_NoRoleDefaultsToUsuario(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.cuil = $1")).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(2), "20111111112", "", "", nil, nil, nil, nil, nil))

	u, err := repo.FindByCuil(context.Background(), "20111111112")
	require.NoError(t, err)
	assert.Equal(t, kernel.RoleUsuario, u.Rol)
	assert.True(t, u.Activo)
}

func TestFindByCuil_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.cuil = $1")).
		WillReturnError(sql.ErrNoRows)

	u, err := repo.FindByCuil(context.Background(), "20999999990")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestFindByCuil_QueryError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.cuil = $1")).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByCuil(context.Background(), "20999999990")
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, user.CodeQueryFailed))
}

func TestListAll(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.id_usuario")).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(1), "20123456789", "Ana", "Gomez", true, fixedNow, nil, int64(3), "ADMIN").
			AddRow(int64(2), "27222222223", "", "", true, fixedNow, nil, int64(2), "Empresa"))

	users, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, kernel.RoleAdmin, users[0].Rol)
	assert.Equal(t, kernel.RoleEmpresa, users[1].Rol)
}

func TestSaveRefreshToken_ProvisionsAndUpserts(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t_usuarios")).
		WithArgs("20123456789", fixedNow, "USUARIO").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t_refresh_tokens")).
		WithArgs("20123456789", "tok-1", fixedNow.Add(user.RefreshTokenTTL)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.SaveRefreshToken(context.Background(), "20123456789", "tok-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRefreshToken_ExistingUserIsNotDuplicated(t *testing.T) {
	repo, mock := newRepo(t)

	// ON CONFLICT DO NOTHING: cero filas afectadas, igual se guarda el token
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (cuil) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (cuil) DO UPDATE")).
		WithArgs("20123456789", "tok-2", fixedNow.Add(user.RefreshTokenTTL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveRefreshToken(context.Background(), "20123456789", "tok-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRefreshToken_RollsBackAndReturnsError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t_usuarios")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t_refresh_tokens")).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.SaveRefreshToken(context.Background(), "20123456789", "tok-3")
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, user.CodeTransactionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRefreshToken_BeginFails(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := repo.SaveRefreshToken(context.Background(), "20123456789", "tok-4")
	assert.True(t, errx.HasCode(err, user.CodeTransactionFailed))
}

func TestSaveRefreshToken_EmptyCuil(t *testing.T) {
	repo, _ := newRepo(t)

	err := repo.SaveRefreshToken(context.Background(), "", "tok")
	assert.True(t, errx.HasCode(err, user.CodeInvalidCuil))
}

func TestValidateRefreshToken_Valid(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE refresh_token = $1 AND expiration > $2")).
		WithArgs("tok-1", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cuil", "refresh_token", "expiration"}).
			AddRow(int64(9), "20123456789", "tok-1", fixedNow.Add(time.Hour)))

	cuil, err := repo.ValidateRefreshToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, kernel.Cuil("20123456789"), cuil)
}

func TestValidateRefreshToken_ExpiredOrUnknown(t *testing.T) {
	repo, mock := newRepo(t)

	// la fila puede existir, pero el filtro por expiración no la devuelve
	mock.ExpectQuery(regexp.QuoteMeta("expiration > $2")).
		WithArgs("tok-viejo", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cuil", "refresh_token", "expiration"}))

	cuil, err := repo.ValidateRefreshToken(context.Background(), "tok-viejo")
	require.NoError(t, err)
	assert.True(t, cuil.IsEmpty())
}

func TestValidateRefreshToken_ExpiresAtNow(t *testing.T) {
	repo, mock := newRepo(t)

	// expiration == now ya no es vigente
	mock.ExpectQuery(regexp.QuoteMeta("expiration > $2")).
		WithArgs("tok-borde", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cuil", "refresh_token", "expiration"}).
			AddRow(int64(3), "20123456789", "tok-borde", fixedNow))

	cuil, err := repo.ValidateRefreshToken(context.Background(), "tok-borde")
	require.NoError(t, err)
	assert.True(t, cuil.IsEmpty())
}

func TestValidateRefreshToken_EmptyTokenSkipsQuery(t *testing.T) {
	repo, mock := newRepo(t)

	cuil, err := repo.ValidateRefreshToken(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, cuil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRefreshToken_Idempotent(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM t_refresh_tokens WHERE refresh_token = $1")).
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM t_refresh_tokens WHERE refresh_token = $1")).
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteRefreshToken(context.Background(), "tok-1"))
	require.NoError(t, repo.DeleteRefreshToken(context.Background(), "tok-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredRefreshTokens(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE expiration <= $1")).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpiredRefreshTokens(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
