package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `^INSERT INTO tags \(name\) VALUES \(\$1\) RETURNING id$`

	mock.ExpectQuery(q).WithArgs("math").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))
	tag, err := repo.Create(context.Background(), "math")
	require.NoError(t, err)
	assert.Equal(t, "t1", tag.ID)

	mock.ExpectQuery(q).WithArgs("math").WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = repo.Create(context.Background(), "math")
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT id, name FROM tags ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("t1", "art").AddRow("t2", "math"))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "math", got[1].Name)
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `^DELETE FROM tags WHERE id = \$1$`

	mock.ExpectExec(q).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "t1"))

	mock.ExpectExec(q).WithArgs("t9").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "t9"), common.ErrorNotFound))

	mock.ExpectExec(q).WithArgs("t2").WillReturnError(errors.New("boom"))
	assert.ErrorContains(t, repo.Delete(context.Background(), "t2"), "db error")
}
