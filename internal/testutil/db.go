// Package testutil sobe um Postgres para os testes de integração: usa
// DATABASE_URL quando definida; senão, um container descartável.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/consultorio/backend/internal/db"
	"github.com/consultorio/backend/internal/migrate"
	"github.com/consultorio/backend/migrations"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresUser  = "consultorio"
	postgresPass  = "consultorio"
	postgresDB    = "consultorio_test"
)

// Open devolve um banco migrado. Sem DATABASE_URL e sem Docker, o teste é pulado.
func Open(t *testing.T) *db.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integração desligada em -short")
	}
	ctx := context.Background()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		var err error
		url, err = startPostgres(ctx, t)
		if err != nil {
			t.Skipf("postgres indisponível: %v", err)
		}
	}
	d, err := db.Open(ctx, url, db.Options{MaxConns: 5}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(d.Close)
	if _, err := migrate.Run(ctx, d.Gorm, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func startPostgres(ctx context.Context, t *testing.T) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPass,
			"POSTGRES_DB":       postgresDB,
		},
		// o entrypoint reinicia o servidor uma vez antes de ficar pronto
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPass, host, port.Port(), postgresDB), nil
}
