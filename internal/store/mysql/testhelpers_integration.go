//go:build integration

package mysql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

const (
	testDatabase = "notifybell_test"
	testUser     = "notifybell"
	testPassword = "notifybell"
)

// setupMySQLContainer starts MySQL 8, applies db/schema.sql and returns a
// connected handle.
func setupMySQLContainer(t require.TestingT, ctx context.Context) (*sqlx.DB, func()) {
	container, err := mysql.RunContainer(ctx,
		testcontainers.WithImage("mysql:8.0"),
		mysql.WithDatabase(testDatabase),
		mysql.WithUsername(testUser),
		mysql.WithPassword(testPassword),
	)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("3306/tcp"))
	require.NoError(t, err)

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&multiStatements=true",
		testUser, testPassword, host, port.Port(), testDatabase)
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	require.NoError(t, err)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "db", "schema.sql"))
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	return db, func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	}
}
