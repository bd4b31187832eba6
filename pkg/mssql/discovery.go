package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Table identifies one discoverable relation.
type Table struct {
	Schema   string
	Name     string
	IsView   bool
	RowCount int64 // approximate, from sys.partitions; 0 for views
}

// ID returns the tap_stream_id for the table: "<schema>-<table>".
func (t Table) ID() string {
	return t.Schema + "-" + t.Name
}

// QualifiedName returns the bracket-quoted name for use in queries.
func (t Table) QualifiedName() string {
	return fmt.Sprintf("[%s].[%s]", t.Schema, t.Name)
}

// ListTables returns base tables and views visible to the session,
// restricted by the config filter when one is set.
func (c *Connector) ListTables(ctx context.Context) ([]Table, error) {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME, 0 AS IS_VIEW
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		UNION ALL
		SELECT TABLE_SCHEMA, TABLE_NAME, 1 AS IS_VIEW
		FROM INFORMATION_SCHEMA.VIEWS
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		var isView int
		if err := rows.Scan(&t.Schema, &t.Name, &isView); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		t.IsView = isView == 1

		if !c.included(t) {
			continue
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	for i := range tables {
		if tables[i].IsView {
			continue
		}
		count, err := c.approxRowCount(ctx, tables[i].Schema, tables[i].Name)
		if err != nil {
			// Row counts are advisory discovery metadata only
			continue
		}
		tables[i].RowCount = count
	}

	return tables, nil
}

// included applies the config filter to a discovered table.
func (c *Connector) included(t Table) bool {
	f := c.cfg.Filter

	if len(f.Schemas) > 0 {
		found := false
		for _, s := range f.Schemas {
			if strings.EqualFold(s, t.Schema) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Tables) > 0 {
		found := false
		for _, name := range f.Tables {
			if strings.EqualFold(name, t.Name) || strings.EqualFold(name, t.Schema+"."+t.Name) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// TableColumns reads column metadata for one table, in ordinal order,
// with primary-key membership resolved through the constraint views.
func (c *Connector) TableColumns(ctx context.Context, schemaName, tableName string) ([]Column, error) {
	query := `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			c.IS_NULLABLE,
			CASE
				WHEN pk.COLUMN_NAME IS NOT NULL THEN 1
				ELSE 0
			END AS IS_PRIMARY_KEY
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
				ON tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
				AND tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
				AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
				AND tc.TABLE_NAME = ku.TABLE_NAME
		) pk ON c.TABLE_SCHEMA = pk.TABLE_SCHEMA
			AND c.TABLE_NAME = pk.TABLE_NAME
			AND c.COLUMN_NAME = pk.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = ? AND c.TABLE_NAME = ?
		ORDER BY c.ORDINAL_POSITION
	`

	rows, err := c.db.QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query table columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			col       Column
			length    sql.NullInt64
			precision sql.NullInt64
			scale     sql.NullInt64
			nullable  string
			isPK      int
		)

		err := rows.Scan(&col.Name, &col.DataType, &length, &precision, &scale, &nullable, &isPK)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		col.DataType = strings.ToLower(col.DataType)
		if length.Valid {
			col.Length = int(length.Int64)
		}
		if precision.Valid {
			col.Precision = int(precision.Int64)
		}
		if scale.Valid {
			col.Scale = int(scale.Int64)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		col.IsPrimaryKey = isPK == 1

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no columns", schemaName, tableName)
	}

	return columns, nil
}

// approxRowCount reads the partition statistics for a table. Cheap
// compared to COUNT(*) and close enough for discovery metadata.
func (c *Connector) approxRowCount(ctx context.Context, schemaName, tableName string) (int64, error) {
	query := `
		SELECT SUM(p.rows)
		FROM sys.tables t
		INNER JOIN sys.schemas s ON t.schema_id = s.schema_id
		INNER JOIN sys.partitions p ON t.object_id = p.object_id
		WHERE s.name = ?
			AND t.name = ?
			AND p.index_id IN (0, 1)
	`

	var count sql.NullInt64
	err := c.db.QueryRowContext(ctx, query, schemaName, tableName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get row count: %w", err)
	}

	if !count.Valid {
		return 0, nil
	}

	return count.Int64, nil
}
