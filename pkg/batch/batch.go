// Package batch writes record chunks as gzip-compressed JSONL files
// and reports the uploaded file URLs, one manifest per chunk. Used
// when the tap runs with a batch_config instead of emitting RECORD
// messages inline.
package batch

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// OnBatch receives the manifest of a finished chunk. The tap runner
// turns it into a BATCH message.
type OnBatch func(manifest []string) error

// Writer accumulates records for one stream and flushes them in
// chunks of batch_size.
type Writer struct {
	cfg     *config.BatchConfig
	storage Storage
	stream  string
	syncID  string
	log     *zap.Logger
	onBatch OnBatch

	buf   bytes.Buffer
	gz    *gzip.Writer
	count int
	seq   int
}

// NewWriter creates a batch writer for a stream. The sync id makes
// filenames unique across runs: <tap>--<stream>-<uuid>.
func NewWriter(cfg *config.BatchConfig, storage Storage, stream string, log *zap.Logger, onBatch OnBatch) *Writer {
	w := &Writer{
		cfg:     cfg,
		storage: storage,
		stream:  stream,
		syncID:  fmt.Sprintf("tap-mssql--%s-%s", stream, uuid.NewString()),
		log:     log,
		onBatch: onBatch,
	}
	w.reset()
	return w
}

func (w *Writer) reset() {
	w.buf.Reset()
	w.gz, _ = gzip.NewWriterLevel(&w.buf, gzip.DefaultCompression)
	w.count = 0
}

// Add appends one record. A full chunk is flushed immediately.
func (w *Writer) Add(ctx context.Context, record map[string]any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode batch record: %w", err)
	}

	if _, err := w.gz.Write(line); err != nil {
		return fmt.Errorf("failed to compress batch record: %w", err)
	}
	if _, err := w.gz.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("failed to compress batch record: %w", err)
	}

	w.count++
	if w.count >= w.cfg.BatchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush uploads the current chunk, if any, and reports its manifest.
func (w *Writer) Flush(ctx context.Context) error {
	if w.count == 0 {
		return nil
	}

	if err := w.gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize batch file: %w", err)
	}

	w.seq++
	filename := fmt.Sprintf("%s%s-%d.json.gz", w.cfg.Storage.Prefix, w.syncID, w.seq)
	data := w.buf.Bytes()

	fileURL, err := w.storage.Put(ctx, filename, data)
	if err != nil {
		return err
	}

	w.log.Info("batch file written",
		zap.String("stream", w.stream),
		zap.String("file", fileURL),
		zap.Int("records", w.count),
		zap.Int("bytes", len(data)),
		zap.String("checksum", fmt.Sprintf("%016x", xxh3.Hash(data))),
	)

	w.reset()

	return w.onBatch([]string{fileURL})
}

// Close flushes the trailing partial chunk.
func (w *Writer) Close(ctx context.Context) error {
	return w.Flush(ctx)
}
