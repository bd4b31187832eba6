package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/queuebridge/tap-mssql/pkg/batch"
	"github.com/queuebridge/tap-mssql/pkg/catalog"
	"github.com/queuebridge/tap-mssql/pkg/config"
	"github.com/queuebridge/tap-mssql/pkg/mssql"
	"github.com/queuebridge/tap-mssql/pkg/singer"
	"github.com/queuebridge/tap-mssql/pkg/state"
)

// Runner extracts selected streams sequentially over one connection
// and emits SCHEMA/RECORD/STATE (or BATCH) messages.
type Runner struct {
	cfg    *config.Config
	conn   *mssql.Connector
	writer *singer.Writer
	state  *state.Manager
	log    *zap.Logger

	storage batch.Storage // nil when batch mode is off

	// Run totals for the result log
	StreamsSynced   int
	RecordsExported int64
}

// NewRunner wires a sync run together. Batch storage is initialized
// up front so a bad storage root fails before any rows move.
func NewRunner(ctx context.Context, cfg *config.Config, conn *mssql.Connector, writer *singer.Writer, st *state.Manager, log *zap.Logger) (*Runner, error) {
	r := &Runner{
		cfg:    cfg,
		conn:   conn,
		writer: writer,
		state:  st,
		log:    log,
	}

	if cfg.Batch != nil {
		storage, err := batch.NewStorage(ctx, cfg.Batch.Storage.Root)
		if err != nil {
			return nil, err
		}
		r.storage = storage
	}

	return r, nil
}

// Sync extracts every selected stream in catalog order and finishes
// with a final STATE message.
func (r *Runner) Sync(ctx context.Context, cat *catalog.Catalog) error {
	selected := cat.SelectedStreams()
	if len(selected) == 0 {
		r.log.Warn("no streams selected; nothing to sync")
	}

	for _, stream := range selected {
		if err := r.syncStream(ctx, stream); err != nil {
			return fmt.Errorf("stream %s: %w", stream.TapStreamID, err)
		}
		r.StreamsSynced++
	}

	r.state.SetCurrentlySyncing("")
	return r.emitState()
}

// syncStream runs one stream end to end: SCHEMA, rows, bookmarks.
func (r *Runner) syncStream(ctx context.Context, stream *catalog.Stream) error {
	started := time.Now()

	schemaName := stream.SchemaName()
	if schemaName == "" {
		schemaName = "dbo"
	}

	replicationKey := stream.ReplicationKey()
	columns := r.streamColumns(stream, replicationKey)
	if len(columns) == 0 {
		return fmt.Errorf("no columns to extract")
	}

	var bookmarkProps []string
	if replicationKey != "" {
		bookmarkProps = []string{replicationKey}
	}
	if err := r.writer.Write(singer.NewSchemaMessage(
		stream.TapStreamID, stream.Schema, stream.KeyProperties(), bookmarkProps,
	)); err != nil {
		return err
	}

	r.state.SetCurrentlySyncing(stream.TapStreamID)
	if err := r.emitState(); err != nil {
		return err
	}

	bookmark := r.resolveBookmark(stream.TapStreamID, replicationKey)

	query, args := buildSelect(schemaName, stream.TableName, names(columns), replicationKey,
		typedBookmark(columns, replicationKey, bookmark))
	r.log.Debug("extraction query", zap.String("stream", stream.TapStreamID), zap.String("query", query))

	rows, err := r.conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute extraction query: %w", err)
	}
	defer rows.Close()

	var (
		count       int64
		lastKeySeen string
	)

	var batchWriter *batch.Writer
	if r.storage != nil {
		encoding := singer.BatchEncoding{
			Format:      r.cfg.Batch.Encoding.Format,
			Compression: r.cfg.Batch.Encoding.Compression,
		}
		batchWriter = batch.NewWriter(r.cfg.Batch, r.storage, stream.TapStreamID, r.log, func(manifest []string) error {
			return r.flushCheckpoint(stream.TapStreamID, replicationKey, encoding, manifest, lastKeySeen)
		})
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col.Name] = mssql.ConvertValue(values[i], col)
		}

		if replicationKey != "" {
			if v, ok := record[replicationKey]; ok && v != nil {
				lastKeySeen = bookmarkString(v)
			}
		}

		if batchWriter != nil {
			if err := batchWriter.Add(ctx, record); err != nil {
				return err
			}
		} else {
			msg := singer.NewRecordMessage(stream.TapStreamID, record, time.Now().UTC().Format(time.RFC3339Nano))
			if err := r.writer.Write(msg); err != nil {
				return err
			}
		}

		count++
		// In batch mode checkpoints happen per flushed chunk, never
		// ahead of rows still buffered in an open chunk
		if batchWriter == nil && replicationKey != "" && count%int64(r.cfg.StateInterval) == 0 {
			r.state.SetBookmark(stream.TapStreamID, replicationKey, lastKeySeen)
			if err := r.emitState(); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error reading rows: %w", err)
	}

	if batchWriter != nil {
		if err := batchWriter.Close(ctx); err != nil {
			return err
		}
	}

	if replicationKey != "" && lastKeySeen != "" {
		r.state.SetBookmark(stream.TapStreamID, replicationKey, lastKeySeen)
	}
	if err := r.emitState(); err != nil {
		return err
	}

	r.RecordsExported += count
	r.log.Info("metric",
		zap.String("metric_type", "counter"),
		zap.String("metric", "record_count"),
		zap.String("stream", stream.TapStreamID),
		zap.Int64("value", count),
	)
	r.log.Info("metric",
		zap.String("metric_type", "timer"),
		zap.String("metric", "sync_duration"),
		zap.String("stream", stream.TapStreamID),
		zap.Duration("value", time.Since(started)),
	)

	return nil
}

// streamColumns resolves the extraction column list from the catalog:
// schema properties filtered by selection, with sql-datatype metadata
// parsed back into column descriptors for value conversion. Property
// order is not defined in a catalog document, so columns are sorted
// by name with key properties first.
func (r *Runner) streamColumns(stream *catalog.Stream, replicationKey string) []mssql.Column {
	if stream.Schema == nil || len(stream.Schema.Properties) == 0 {
		return nil
	}

	ordered := make([]string, 0, len(stream.Schema.Properties))
	for name := range stream.Schema.Properties {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	keySet := make(map[string]bool)
	for _, k := range stream.KeyProperties() {
		keySet[k] = true
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return keySet[ordered[i]] && !keySet[ordered[j]]
	})

	selected := stream.SelectedColumns(ordered)

	// The replication key must be present regardless of selection
	if replicationKey != "" {
		found := false
		for _, name := range selected {
			if name == replicationKey {
				found = true
				break
			}
		}
		if !found {
			selected = append(selected, replicationKey)
		}
	}

	columns := make([]mssql.Column, 0, len(selected))
	for _, name := range selected {
		col := mssql.ParseSQLDatatype(stream.ColumnSQLDatatype(name))
		col.Name = name
		columns = append(columns, col)
	}
	return columns
}

// flushCheckpoint emits the BATCH message for a finished chunk and
// only then advances the bookmark. Rows still buffered in an open
// chunk are never covered by a STATE message, so a resume cannot skip
// past records that never reached storage.
func (r *Runner) flushCheckpoint(tapStreamID, replicationKey string, encoding singer.BatchEncoding, manifest []string, lastKey string) error {
	if err := r.writer.Write(singer.NewBatchMessage(tapStreamID, encoding, manifest)); err != nil {
		return err
	}

	if replicationKey != "" && lastKey != "" {
		r.state.SetBookmark(tapStreamID, replicationKey, lastKey)
		return r.emitState()
	}
	return nil
}

// resolveBookmark returns the incremental lower bound: the stored
// bookmark when one exists, otherwise the configured start_date.
func (r *Runner) resolveBookmark(tapStreamID, replicationKey string) string {
	if replicationKey == "" {
		return ""
	}

	bm := r.state.Get(tapStreamID)
	if bm.ReplicationKeyValue != "" {
		if bm.ReplicationKey != "" && bm.ReplicationKey != replicationKey {
			// Catalog changed replication key; old bookmark is unusable
			r.log.Warn("replication key changed, ignoring stored bookmark",
				zap.String("stream", tapStreamID),
				zap.String("old", bm.ReplicationKey),
				zap.String("new", replicationKey),
			)
			return r.cfg.StartDate
		}
		return bm.ReplicationKeyValue
	}

	return r.cfg.StartDate
}

func (r *Runner) emitState() error {
	return r.writer.Write(singer.NewStateMessage(r.state.Snapshot()))
}

// typedBookmark binds the bookmark to the replication-key column's
// driver type. Returns nil when there is no lower bound.
func typedBookmark(columns []mssql.Column, replicationKey, bookmark string) any {
	if replicationKey == "" || bookmark == "" {
		return nil
	}
	for _, col := range columns {
		if col.Name == replicationKey {
			return mssql.BookmarkValue(bookmark, col)
		}
	}
	return bookmark
}

func names(columns []mssql.Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Name
	}
	return out
}

// bookmarkString renders a converted record value for bookmark
// storage and query parameters.
func bookmarkString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
