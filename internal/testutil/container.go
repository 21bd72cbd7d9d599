package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgresContainer starts a disposable postgres container and returns
// its connection string. The container is terminated when the test finishes.
// Skips the test when Docker is not available.
func startPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	// testcontainers panics (rather than returning an error) when no Docker
	// host can be resolved; convert that into the documented skip.
	ctr, err := func() (ctr *tcpostgres.PostgresContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("postforge_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			tcpostgres.BasicWaitStrategies(),
		)
	}()
	if err != nil {
		t.Skipf("pgtest: could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("pgtest: container connection string: %v", err)
	}
	return dsn
}
