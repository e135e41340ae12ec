//go:build integration

package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/gabisonia/go-clausenav/stores"
	_ "github.com/microsoft/go-mssqldb"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	integrationMSSQLUser     = "sa"
	integrationMSSQLPassword = "YourStrong!Passw0rd"
	integrationMSSQLDatabase = "clausenav_test"
)

var (
	schemaSeq            atomic.Uint64
	integrationDSN       string
	integrationContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dsn := strings.TrimSpace(os.Getenv("MSSQL_TEST_DSN"))
	if dsn == "" {
		container, generatedDSN, err := startMSSQLContainer(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start integration container: %v\n", err)
			os.Exit(1)
		}
		integrationContainer = container
		integrationDSN = generatedDSN
	} else {
		integrationDSN = dsn
	}

	exitCode := m.Run()

	if integrationContainer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := integrationContainer.Terminate(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate integration container: %v\n", err)
			if exitCode == 0 {
				exitCode = 1
			}
		}
	}

	os.Exit(exitCode)
}

func startMSSQLContainer(ctx context.Context) (testcontainers.Container, string, error) {
	request := testcontainers.ContainerRequest{
		Image:        "mcr.microsoft.com/mssql/server:2022-latest",
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": integrationMSSQLPassword,
			"MSSQL_PID":         "Developer",
		},
		WaitingFor: wait.ForLog("SQL Server is now ready for client connections").
			WithStartupTimeout(4 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: request,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start sql server container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", fmt.Errorf("resolve container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "1433/tcp")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", fmt.Errorf("resolve container port: %w", err)
	}

	masterDSN := buildMSSQLDSN(host, mappedPort.Port(), "master")
	if err := waitForDatabase(ctx, masterDSN); err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", err
	}
	if err := ensureDatabase(ctx, masterDSN, integrationMSSQLDatabase); err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", err
	}

	dsn := buildMSSQLDSN(host, mappedPort.Port(), integrationMSSQLDatabase)
	if err := waitForDatabase(ctx, dsn); err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", err
	}

	return container, dsn, nil
}

func buildMSSQLDSN(host string, port string, database string) string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(integrationMSSQLUser, integrationMSSQLPassword),
		Host:   net.JoinHostPort(host, port),
	}

	query := u.Query()
	query.Set("database", database)
	query.Set("encrypt", "disable")
	u.RawQuery = query.Encode()

	return u.String()
}

func waitForDatabase(parent context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	for {
		db, err := sql.Open("sqlserver", dsn)
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 4*time.Second)
			pingErr := db.PingContext(pingCtx)
			pingCancel()
			_ = db.Close()
			if pingErr == nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("connect integration database: %w", err)
			}
			return fmt.Errorf("wait for integration database: %w", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func ensureDatabase(ctx context.Context, dsn string, database string) error {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return fmt.Errorf("connect master database: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("IF DB_ID(N'%s') IS NULL CREATE DATABASE %s", escapeSQLString(database), quoteIdent(database))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure integration database: %w", err)
	}

	return nil
}

func integrationDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := strings.TrimSpace(integrationDSN)
	if dsn == "" {
		t.Fatal("integration DSN is not initialized")
	}

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("ping db: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newTestCatalog(t *testing.T, db *sql.DB) *MSSQLCatalog {
	t.Helper()

	seq := schemaSeq.Add(1)
	schema := fmt.Sprintf("it_%d_%d", time.Now().UnixNano(), seq)
	schema = strings.ReplaceAll(schema, "-", "_")

	catalog, err := NewCatalog(db, StoreOptions{
		Schema:          schema,
		Table:           "clause_values",
		StrictByDefault: true,
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		cleanupQuery := fmt.Sprintf(`
			DECLARE @schema SYSNAME = N'%s';
			DECLARE @dropSql NVARCHAR(MAX) = N'';
			SELECT @dropSql = @dropSql + N'DROP TABLE ' + QUOTENAME(SCHEMA_NAME(schema_id)) + N'.' + QUOTENAME(name) + N';'
			FROM sys.tables
			WHERE schema_id = SCHEMA_ID(@schema);

			IF LEN(@dropSql) > 0
			BEGIN
				EXEC sp_executesql @dropSql;
			END

			IF SCHEMA_ID(@schema) IS NOT NULL
			BEGIN
				EXEC(N'DROP SCHEMA ' + QUOTENAME(@schema));
			END
		`, escapeSQLString(schema))
		_, _ = db.ExecContext(ctx, cleanupQuery)
	})

	return catalog
}

func TestIntegrationEnsureSchema(t *testing.T) {
	db := integrationDB(t)
	catalog := newTestCatalog(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := catalog.EnsureSchema(ctx, stores.EnsureStrict); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := catalog.EnsureSchema(ctx, stores.EnsureStrict); err != nil {
		t.Fatalf("EnsureSchema on existing table: %v", err)
	}

	exists, err := catalog.tableExists(ctx)
	if err != nil {
		t.Fatalf("tableExists: %v", err)
	}
	if !exists {
		t.Fatalf("expected catalog table to exist")
	}
}

func TestIntegrationEnsureSchemaMissingName(t *testing.T) {
	db := integrationDB(t)
	catalog := newTestCatalog(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := catalog.ensureBaseSchema(ctx); err != nil {
		t.Fatalf("ensureBaseSchema: %v", err)
	}
	legacy := fmt.Sprintf("CREATE TABLE %s ([field] NVARCHAR(255) NOT NULL, [id] BIGINT NOT NULL, PRIMARY KEY ([field], [id]))", catalog.tableName())
	if _, err := db.ExecContext(ctx, legacy); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}

	strictErr := catalog.EnsureSchema(ctx, stores.EnsureStrict)
	if !errors.Is(strictErr, stores.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", strictErr)
	}
	if err := catalog.EnsureSchema(ctx, stores.EnsureAutoMigrate); err != nil {
		t.Fatalf("EnsureSchema auto migrate: %v", err)
	}
}

func TestIntegrationLookups(t *testing.T) {
	db := integrationDB(t)
	catalog := newTestCatalog(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := catalog.EnsureSchema(ctx, ""); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	err := catalog.Put(ctx, []resolvers.Entry{
		{Field: "fixVersion", ID: 10, Name: "1.0"},
		{Field: "fixVersion", ID: 11, Name: "1.0"},
		{Field: "fixVersion", ID: 42, Name: "Answer"},
		{Field: "component", ID: 10, Name: "ui"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	versions := catalog.Field("FixVersion")

	byName, err := versions.IndexedValues(ctx, "1.0")
	if err != nil {
		t.Fatalf("IndexedValues: %v", err)
	}
	if !reflect.DeepEqual(byName, []string{"10", "11"}) {
		t.Fatalf("unexpected name lookup: %#v", byName)
	}

	byCase, err := versions.IndexedValues(ctx, "ANSWER")
	if err != nil {
		t.Fatalf("IndexedValues: %v", err)
	}
	if !reflect.DeepEqual(byCase, []string{"42"}) {
		t.Fatalf("unexpected case-insensitive lookup: %#v", byCase)
	}

	byID, err := versions.IndexedValuesForID(ctx, 42)
	if err != nil {
		t.Fatalf("IndexedValuesForID: %v", err)
	}
	if !reflect.DeepEqual(byID, []string{"42"}) {
		t.Fatalf("unexpected id lookup: %#v", byID)
	}

	name, found, err := catalog.NameForID(ctx, "component", 10)
	if err != nil {
		t.Fatalf("NameForID: %v", err)
	}
	if !found || name != "ui" {
		t.Fatalf("unexpected name %q found=%v", name, found)
	}
}

func TestIntegrationPutUpdatesAndDelete(t *testing.T) {
	db := integrationDB(t)
	catalog := newTestCatalog(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := catalog.EnsureSchema(ctx, ""); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := catalog.Put(ctx, []resolvers.Entry{{Field: "component", ID: 1, Name: "ui"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := catalog.Put(ctx, []resolvers.Entry{{Field: "component", ID: 1, Name: "frontend"}}); err != nil {
		t.Fatalf("Put second call: %v", err)
	}

	renamed, _, err := catalog.NameForID(ctx, "component", 1)
	if err != nil {
		t.Fatalf("NameForID: %v", err)
	}
	if renamed != "frontend" {
		t.Fatalf("expected renamed entry, got %q", renamed)
	}

	if err := catalog.Delete(ctx, "Component", 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, err := catalog.NameForID(ctx, "component", 1)
	if err != nil {
		t.Fatalf("NameForID after delete: %v", err)
	}
	if found {
		t.Fatalf("expected entry to be deleted")
	}
}
