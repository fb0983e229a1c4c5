// Package testutil holds test doubles for the dispensary dashboard: a
// throwaway PostgreSQL for the audit store, sqlmock helpers, a recording
// event publisher and a scriptable fake of the inventory API.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medflow/medflow-dispensary/pkg/config"
)

const (
	auditImage    = "postgres:15-alpine"
	auditDatabase = "medflow_audit_test"
)

// AuditPostgres is a disposable audit database.
type AuditPostgres struct {
	container *postgres.PostgresContainer
	// Config points database.New at the container.
	Config config.DatabaseConfig
}

func startAuditPostgres(ctx context.Context) (*AuditPostgres, error) {
	c, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(auditImage),
		postgres.WithDatabase(auditDatabase),
		postgres.WithUsername("audit"),
		postgres.WithPassword("audit"),
		testcontainers.WithWaitStrategy(
			// postgres logs readiness once for the init run and once for real
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", auditImage, err)
	}

	url, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("audit container address: %w", err)
	}

	return &AuditPostgres{
		container: c,
		Config: config.DatabaseConfig{
			Enabled:         true,
			URL:             url,
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
	}, nil
}

var shared struct {
	once sync.Once
	pg   *AuditPostgres
	err  error
}

// SharedPostgres starts one audit database per test binary. TestMain should
// call TerminateShared after m.Run.
func SharedPostgres(ctx context.Context) (*AuditPostgres, error) {
	shared.once.Do(func() {
		shared.pg, shared.err = startAuditPostgres(ctx)
	})
	return shared.pg, shared.err
}

// TerminateShared removes the container SharedPostgres started, if any.
func TerminateShared(ctx context.Context) {
	if shared.pg != nil {
		_ = shared.pg.container.Terminate(ctx)
	}
}
