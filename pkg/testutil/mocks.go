package testutil

import (
	"context"
	"database/sql/driver"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medflow/medflow-dispensary/pkg/messaging"
)

// MockDB is a sqlmock-backed pool whose expectations match SQL literally.
//
//	mockDB := testutil.NewMockDB(t)
//	mockDB.ExpectExec("INSERT INTO threshold_audit").WillReturnResult(...)
//	repo := repository.NewAuditRepository(database.Wrap(mockDB.DB, log))
type MockDB struct {
	DB   *sqlx.DB
	mock sqlmock.Sqlmock
}

// NewMockDB opens a mock pool that is closed when t ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() { _ = db.Close() })
	return &MockDB{DB: db, mock: mock}
}

func (m *MockDB) ExpectQuery(sql string) *sqlmock.ExpectedQuery {
	return m.mock.ExpectQuery(regexp.QuoteMeta(sql))
}

func (m *MockDB) ExpectExec(sql string) *sqlmock.ExpectedExec {
	return m.mock.ExpectExec(regexp.QuoteMeta(sql))
}

func (m *MockDB) ExpectBegin() *sqlmock.ExpectedBegin   { return m.mock.ExpectBegin() }
func (m *MockDB) ExpectCommit() *sqlmock.ExpectedCommit { return m.mock.ExpectCommit() }

// ExpectationsWereMet fails t for any statement that was expected but not run.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("audit store: %v", err)
	}
}

// MockRows starts a result set with the given columns.
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

// AnyUUID matches an audit entry ID minted by the repository.
type AnyUUID struct{}

func (AnyUUID) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// PublishedEvent is one call recorded by MockPublisher.
type PublishedEvent struct {
	Type          string
	Payload       any
	CorrelationID string
}

// MockPublisher records threshold events instead of sending them. Err, when
// set, fails every publish after recording it.
type MockPublisher struct {
	Err error

	mu     sync.Mutex
	events []PublishedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{
		Type:          eventType,
		Payload:       payload,
		CorrelationID: messaging.CorrelationID(ctx),
	})
	return m.Err
}

// Events returns the recorded calls in order.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// AssertEventPublished fails t unless an eventType event was recorded.
func (m *MockPublisher) AssertEventPublished(t *testing.T, eventType string) {
	t.Helper()
	for _, e := range m.Events() {
		if e.Type == eventType {
			return
		}
	}
	t.Errorf("no %s event published", eventType)
}

func (m *MockPublisher) AssertNoEventsPublished(t *testing.T) {
	t.Helper()
	if n := len(m.Events()); n > 0 {
		t.Errorf("expected no events, %d published", n)
	}
}
