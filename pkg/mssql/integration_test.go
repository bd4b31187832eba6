package mssql

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// integrationConfig builds a config from TAP_MSSQL_TEST_* variables,
// skipping the test when they are not set:
//
//	TAP_MSSQL_TEST_HOST=localhost
//	TAP_MSSQL_TEST_PORT=1433
//	TAP_MSSQL_TEST_USER=sa
//	TAP_MSSQL_TEST_PASSWORD=...
//	TAP_MSSQL_TEST_DATABASE=master
func integrationConfig(t *testing.T) *config.Config {
	t.Helper()

	host := os.Getenv("TAP_MSSQL_TEST_HOST")
	if host == "" {
		t.Skip("TAP_MSSQL_TEST_HOST not set; skipping integration test")
	}

	port := 1433
	if p := os.Getenv("TAP_MSSQL_TEST_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("bad TAP_MSSQL_TEST_PORT: %v", err)
		}
		port = n
	}

	cfg := &config.Config{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TAP_MSSQL_TEST_USER"),
		Password: os.Getenv("TAP_MSSQL_TEST_PASSWORD"),
		Database: os.Getenv("TAP_MSSQL_TEST_DATABASE"),
		ConnectionOptions: map[string]string{
			"TrustServerCertificate": "true",
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("incomplete TAP_MSSQL_TEST_* environment: %v", err)
	}
	return cfg
}

func TestIntegrationConnect(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()

	conn, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
	if conn.ServerVersion() == "" {
		t.Error("ServerVersion() empty")
	}
}

func TestIntegrationDiscovery(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()

	conn, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer conn.Close()

	tables, err := conn.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error: %v", err)
	}

	for _, tbl := range tables {
		cols, err := conn.TableColumns(ctx, tbl.Schema, tbl.Name)
		if err != nil {
			t.Errorf("TableColumns(%s) error: %v", tbl.ID(), err)
			continue
		}
		for _, col := range cols {
			if col.DataType == "" {
				t.Errorf("%s.%s has empty data type", tbl.ID(), col.Name)
			}
			// Every column must map to a schema without panicking
			if s := col.JSONSchema(true); len(s.Type) == 0 {
				t.Errorf("%s.%s mapped to empty schema", tbl.ID(), col.Name)
			}
		}
	}
}
