package announcements

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/server/models"
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

var annCols = []string{"id", "slug", "title", "content", "organization_id", "posted_at", "tags"}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO announcements \(slug, title, content, organization_id\)`).
		WithArgs("open-day", "Open day", "Come by", "o1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "posted_at"}).AddRow("a1", now))
	mock.ExpectExec(`INSERT INTO announcement_tags`).WithArgs("a1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.Announcement{Slug: "open-day", Title: "Open day", Content: "Come by", OrganizationID: "o1"}
	got, err := repo.Create(context.Background(), a, []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, now, got.PostedAt)
}

func TestCreate_Errors(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO announcements`).WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err := repo.Create(context.Background(), &models.Announcement{}, nil)
	assert.True(t, errors.Is(err, common.ErrConflict))

	mock.ExpectQuery(`INSERT INTO announcements`).WillReturnError(&pgconn.PgError{Code: "23503"})
	_, err = repo.Create(context.Background(), &models.Announcement{OrganizationID: "missing"}, nil)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestGetBySlug_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)FROM announcements a WHERE a.slug = \$1`).WithArgs("x").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySlug(context.Background(), "x")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestListForUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	newer := time.Now()
	older := newer.Add(-time.Hour)

	mock.ExpectQuery(`(?s)FROM announcements a\s+WHERE a.organization_id IN .*user_organization_subscriptions.*user_tag_subscriptions.*ORDER BY a.posted_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("u1", 20, 0).
		WillReturnRows(sqlmock.NewRows(annCols).
			AddRow("a2", "b", "B", "", "o1", newer, []byte(`[]`)).
			AddRow("a1", "a", "A", "", "o2", older, []byte(`[{"id":"t1","name":"math"}]`)))

	got, err := repo.ListForUser(context.Background(), "u1", models.Page{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "math", got[1].Tags[0].Name)
}

func TestList_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`ORDER BY a.posted_at DESC`).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background(), models.Page{})
	assert.ErrorContains(t, err, "db error: boom")
}
