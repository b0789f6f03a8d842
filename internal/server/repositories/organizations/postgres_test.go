package organizations

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

var orgCols = []string{"id", "name", "slug", "category", "event_type", "created_at", "tags"}

func TestCreate_WithTags(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO organizations \(name, slug, category, event_type\)`).
		WithArgs("Chess Club", "chess-club", "Club", "tournament").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("o1", now))
	mock.ExpectExec(`INSERT INTO organization_tags`).WithArgs("o1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	org := &models.Organization{Name: "Chess Club", Slug: "chess-club", Category: "Club", EventType: "tournament"}
	got, err := repo.Create(context.Background(), org, []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_SlugTaken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`INSERT INTO organizations`).WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.Organization{Slug: "x"}, nil)
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestGetBySlug(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)SELECT o.id, .*FROM organizations o WHERE o.slug = \$1`

	mock.ExpectQuery(q).WithArgs("chess-club").WillReturnRows(sqlmock.NewRows(orgCols).
		AddRow("o1", "Chess Club", "chess-club", "Club", "", time.Now(), []byte(`[{"id":"t1","name":"games"}]`)))
	org, err := repo.GetBySlug(context.Background(), "chess-club")
	require.NoError(t, err)
	assert.Equal(t, []models.Tag{{ID: "t1", Name: "games"}}, org.Tags)

	mock.ExpectQuery(q).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetBySlug(context.Background(), "nope")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)FROM organizations o ORDER BY o.name LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows(orgCols).
			AddRow("o1", "A", "a", "Club", "", time.Now(), []byte(`[]`)).
			AddRow("o2", "B", "b", "Business", "", time.Now(), []byte(`[]`)))

	got, err := repo.List(context.Background(), models.Page{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSlugs(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT slug FROM organizations WHERE slug = \$1 OR slug LIKE \$1`).
		WithArgs("chess-club").
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("chess-club").AddRow("chess-club-2"))

	got, err := repo.Slugs(context.Background(), "chess-club")
	require.NoError(t, err)
	assert.Equal(t, []string{"chess-club", "chess-club-2"}, got)
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`DELETE FROM organizations WHERE id = \$1`).WithArgs("o9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "o9"), common.ErrorNotFound))
}

func TestAttachDetach(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO organization_contacts \(organization_id, contact_id\) VALUES \(\$1, \$2\) ON CONFLICT DO NOTHING`).
		WithArgs("o1", "c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO organization_resources \(organization_id, resource_id\)`).
		WithArgs("o1", "r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM organization_contacts WHERE organization_id = \$1 AND contact_id = \$2`).
		WithArgs("o1", "c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM organization_resources WHERE organization_id = \$1 AND resource_id = \$2`).
		WithArgs("o1", "r1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AttachContact(ctx, "o1", "c1"))
	require.NoError(t, repo.AttachResource(ctx, "o1", "r1"))
	require.NoError(t, repo.DetachContact(ctx, "o1", "c1"))
	require.NoError(t, repo.DetachResource(ctx, "o1", "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttach_Errors(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO organization_contacts`).WillReturnError(&pgconn.PgError{Code: "23503"})
	assert.True(t, errors.Is(repo.AttachContact(ctx, "o9", "c1"), common.ErrorNotFound))

	mock.ExpectExec(`INSERT INTO organization_resources`).WillReturnError(errors.New("boom"))
	assert.ErrorContains(t, repo.AttachResource(ctx, "o1", "r1"), "db error: boom")

	mock.ExpectExec(`DELETE FROM organization_contacts`).WillReturnError(errors.New("boom"))
	assert.ErrorContains(t, repo.DetachContact(ctx, "o1", "c1"), "db error: boom")
}
