package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // MS SQL Server TDS driver

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// Connector owns the database session for one tap run. A single
// connection is used for discovery and extraction; the tap reads
// streams sequentially so no pooling coordination is needed.
type Connector struct {
	db  *sql.DB
	cfg *config.Config

	serverVersion    int    // major version: 11=2012, 13=2016, 15=2019, 16=2022
	serverVersionStr string // full version string
	compatLevel      int    // database compatibility level
}

// Connect opens the session and performs version detection.
func Connect(ctx context.Context, cfg *config.Config) (*Connector, error) {
	driver := "mssql"
	if cfg.DriverType == config.DriverODBC {
		driver = "odbc"
	}

	db, err := sql.Open(driver, cfg.BuildDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &Connector{db: db, cfg: cfg}

	if err := c.detectVersion(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to detect server version: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (c *Connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB exposes the underlying handle for query execution.
func (c *Connector) DB() *sql.DB {
	return c.db
}

// ServerVersion returns a human-readable server description.
func (c *Connector) ServerVersion() string {
	return fmt.Sprintf("%s %s (compatibility level %d)",
		c.serverVersionName(), c.serverVersionStr, c.compatLevel)
}

// detectVersion reads the server product version and the database
// compatibility level.
func (c *Connector) detectVersion(ctx context.Context) error {
	var version string
	err := c.db.QueryRowContext(ctx, "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get server version: %w", err)
	}

	c.serverVersionStr = version
	c.serverVersion = parseServerVersion(version)

	err = c.db.QueryRowContext(ctx, `
		SELECT compatibility_level
		FROM sys.databases
		WHERE name = DB_NAME()
	`).Scan(&c.compatLevel)
	if err != nil {
		return fmt.Errorf("failed to get compatibility level: %w", err)
	}

	return nil
}

// parseServerVersion parses a SQL Server version string to the major
// version number.
// Examples:
//   - "11.0.2100.60" → 11 (SQL Server 2012)
//   - "15.0.2000.5"  → 15 (SQL Server 2019)
func parseServerVersion(version string) int {
	parts := strings.Split(version, ".")
	if len(parts) == 0 {
		return 0
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}

	return major
}

// serverVersionName returns a human-readable product name.
func (c *Connector) serverVersionName() string {
	switch c.serverVersion {
	case 11:
		return "SQL Server 2012"
	case 12:
		return "SQL Server 2014"
	case 13:
		return "SQL Server 2016"
	case 14:
		return "SQL Server 2017"
	case 15:
		return "SQL Server 2019"
	case 16:
		return "SQL Server 2022"
	default:
		return fmt.Sprintf("SQL Server (version %d)", c.serverVersion)
	}
}
