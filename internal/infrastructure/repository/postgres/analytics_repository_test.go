package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

func newAnalyticsRepoWithMock(t *testing.T) (*AnalyticsRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &AnalyticsRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestInsertEvent(t *testing.T) {
	repo, mock, done := newAnalyticsRepoWithMock(t)
	defer done()

	createdAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO query_events").
		WithArgs("e1", "cuánto cuesta", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(120), "s1", "cost", false, createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertEvent(context.Background(), domain.AnalyticsEvent{
		ID:               "e1",
		Query:            "cuánto cuesta",
		MatchedIDs:       []string{"f1"},
		SimilarityScores: []float64{0.91},
		LatencyMs:        120,
		SessionID:        "s1",
		QueryType:        domain.QueryCost,
		CreatedAt:        createdAt,
	})
	if err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertEventDuplicateIsSilent(t *testing.T) {
	repo, mock, done := newAnalyticsRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO query_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.InsertEvent(context.Background(), domain.AnalyticsEvent{ID: "e1", Query: "q"})
	if err != nil {
		t.Fatalf("InsertEvent() duplicate error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
