package tap

import (
	"context"
	"fmt"

	"github.com/queuebridge/tap-mssql/pkg/catalog"
	"github.com/queuebridge/tap-mssql/pkg/config"
	"github.com/queuebridge/tap-mssql/pkg/mssql"
	"github.com/queuebridge/tap-mssql/pkg/singer"
)

// Discover builds the catalog from INFORMATION_SCHEMA metadata. The
// result is what --discover prints and what operators annotate with
// selection and replication keys before a sync.
func Discover(ctx context.Context, conn *mssql.Connector, cfg *config.Config) (*catalog.Catalog, error) {
	tables, err := conn.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	cat := &catalog.Catalog{}
	for _, t := range tables {
		stream, err := discoverStream(ctx, conn, cfg, t)
		if err != nil {
			return nil, fmt.Errorf("failed to discover %s: %w", t.QualifiedName(), err)
		}
		cat.Streams = append(cat.Streams, stream)
	}

	return cat, nil
}

func discoverStream(ctx context.Context, conn *mssql.Connector, cfg *config.Config, t mssql.Table) (*catalog.Stream, error) {
	columns, err := conn.TableColumns(ctx, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}

	properties := make(map[string]*singer.Schema, len(columns))
	var keyProperties []string
	metadata := make([]catalog.Entry, 0, len(columns)+1)

	for _, col := range columns {
		properties[col.Name] = col.JSONSchema(cfg.HDJSONSchemaTypes)

		inclusion := "available"
		if col.IsPrimaryKey {
			keyProperties = append(keyProperties, col.Name)
			inclusion = "automatic"
		}

		metadata = append(metadata, catalog.Entry{
			Breadcrumb: []string{"properties", col.Name},
			Metadata: map[string]any{
				"inclusion":           inclusion,
				"selected-by-default": true,
				"sql-datatype":        col.SQLDatatype(),
			},
		})
	}

	streamMD := map[string]any{
		"inclusion":            "available",
		"selected-by-default":  false,
		"replication-method":   catalog.ReplicationFullTable,
		"schema-name":          t.Schema,
		"database-name":        cfg.Database,
		"is-view":              t.IsView,
		"table-key-properties": keyProperties,
	}
	if !t.IsView {
		streamMD["row-count"] = t.RowCount
	}

	metadata = append([]catalog.Entry{{
		Breadcrumb: []string{},
		Metadata:   streamMD,
	}}, metadata...)

	return &catalog.Stream{
		TapStreamID: t.ID(),
		Stream:      t.ID(),
		TableName:   t.Name,
		Schema:      singer.ObjectSchema(properties),
		Metadata:    metadata,
	}, nil
}
