package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

func newKnowledgeRepoWithMock(t *testing.T) (*KnowledgeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &KnowledgeRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestUpsertEntriesCommitsTransaction(t *testing.T) {
	repo, mock, done := newKnowledgeRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO faq_entries").
		WithArgs("f1", "¿Cuánto cuesta?", "Diez salarios.", "costos", sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpsertEntries(context.Background(), []domain.KnowledgeEntry{{
		ID:       "f1",
		Question: "¿Cuánto cuesta?",
		Answer:   "Diez salarios.",
		Category: "costos",
		Keywords: []string{"costos", "matrícula"},
		IsActive: true,
	}})
	if err != nil {
		t.Fatalf("UpsertEntries() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertEntriesRollsBackOnFailure(t *testing.T) {
	repo, mock, done := newKnowledgeRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO faq_entries").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.UpsertEntries(context.Background(), []domain.KnowledgeEntry{{ID: "f1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertEntriesEmptyIsNoop(t *testing.T) {
	repo, mock, done := newKnowledgeRepoWithMock(t)
	defer done()

	if err := repo.UpsertEntries(context.Background(), nil); err != nil {
		t.Fatalf("UpsertEntries(nil) error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountActive(t *testing.T) {
	repo, mock, done := newKnowledgeRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountActive(context.Background())
	if err != nil {
		t.Fatalf("CountActive() error = %v", err)
	}
	if count != 42 {
		t.Fatalf("count = %d, want 42", count)
	}
}
