package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("todos"),
		postgres.WithUsername("todo"),
		postgres.WithPassword("todo"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctr.Terminate(ctx)
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return Config{
		Host:     host,
		Port:     port.Port(),
		User:     "todo",
		Password: "todo",
		Database: "todos",
		LogLevel: "silent",
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "u", Password: "p", Database: "d"}
	assert.Equal(t, "host=db user=u password=p dbname=d port=5432 sslmode=disable", cfg.DSN())

	cfg.Schema = "todo"
	cfg.SSLMode = "require"
	assert.Equal(t, "host=db user=u password=p dbname=d port=5432 sslmode=require search_path=todo", cfg.DSN())
}

func TestHealthAgainstPostgres(t *testing.T) {
	svc, err := New(startPostgres(t))
	require.NoError(t, err)

	stats := svc.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.Contains(t, stats, "open_connections")

	require.NoError(t, svc.Close())
	stats = svc.Health(context.Background())
	assert.Equal(t, "down", stats["status"])
}
