package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var firstSeen = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(external_user_id,\s*first_seen_at\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*first_seen_at\s*$`

	rows := sqlmock.NewRows([]string{"id", "first_seen_at"}).AddRow("u-1", firstSeen)
	mock.ExpectQuery(q).
		WithArgs(int64(42), firstSeen).
		WillReturnRows(rows)

	got, err := repo.Create(context.Background(), &models.User{ExternalID: 42, FirstSeenAt: firstSeen})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.ExternalID != 42 {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WithArgs(int64(42), firstSeen).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ExternalID: 42, FirstSeenAt: firstSeen})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByExternalID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*external_user_id,\s*first_seen_at\s+FROM\s+users\s+WHERE\s+external_user_id\s*=\s*\$1\s*$`

	rows := sqlmock.NewRows([]string{"id", "external_user_id", "first_seen_at"}).
		AddRow("u-1", int64(42), firstSeen)
	mock.ExpectQuery(q).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	got, err := repo.GetByExternalID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByExternalID error: %v", err)
	}
	if got.ID != "u-1" || got.ExternalID != 42 || !got.FirstSeenAt.Equal(firstSeen) {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByExternalID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*external_user_id`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByExternalID(context.Background(), 7)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSetFirstSeen(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+first_seen_at\s*=\s*\$2\s+WHERE\s+external_user_id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).
		WithArgs(int64(42), firstSeen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SetFirstSeen(context.Background(), 42, firstSeen)
	if err != nil || !ok {
		t.Fatalf("SetFirstSeen: (%v, %v)", ok, err)
	}

	mock.ExpectExec(q).
		WithArgs(int64(7), firstSeen).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.SetFirstSeen(context.Background(), 7, firstSeen)
	if err != nil || ok {
		t.Fatalf("unknown user must report false, got (%v, %v)", ok, err)
	}
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*external_user_id,\s*first_seen_at\s+FROM\s+users\s+ORDER\s+BY\s+first_seen_at\s*$`

	rows := sqlmock.NewRows([]string{"id", "external_user_id", "first_seen_at"}).
		AddRow("u-1", int64(1), firstSeen).
		AddRow("u-2", int64(2), firstSeen.Add(time.Hour))
	mock.ExpectQuery(q).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].ExternalID != 1 || got[1].ExternalID != 2 {
		t.Fatalf("unexpected users: %+v", got)
	}
}
