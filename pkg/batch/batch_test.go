package batch

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// memStorage captures uploads in memory.
type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) Put(_ context.Context, filename string, data []byte) (string, error) {
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[filename] = stored
	return "mem://" + filename, nil
}

func batchCfg(size int) *config.BatchConfig {
	return &config.BatchConfig{
		Encoding:  config.BatchEncodingConfig{Format: "jsonl", Compression: "gzip"},
		Storage:   config.BatchStorageConfig{Root: "file:///ignored", Prefix: "test-"},
		BatchSize: size,
	}
}

func TestWriterChunking(t *testing.T) {
	storage := newMemStorage()
	var manifests [][]string

	w := NewWriter(batchCfg(2), storage, "dbo-orders", zap.NewNop(), func(manifest []string) error {
		manifests = append(manifests, manifest)
		return nil
	})

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := w.Add(ctx, map[string]any{"id": i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		t.Fatal(err)
	}

	// 5 records at batch size 2: two full chunks plus the trailing one
	if len(manifests) != 3 {
		t.Fatalf("manifests = %d, want 3", len(manifests))
	}
	if len(storage.files) != 3 {
		t.Fatalf("files = %d, want 3", len(storage.files))
	}

	for filename := range storage.files {
		if !strings.HasPrefix(filename, "test-tap-mssql--dbo-orders-") {
			t.Errorf("filename = %s, missing prefix and sync id", filename)
		}
		if !strings.HasSuffix(filename, ".json.gz") {
			t.Errorf("filename = %s, missing extension", filename)
		}
	}
}

func TestWriterFileContents(t *testing.T) {
	storage := newMemStorage()
	w := NewWriter(batchCfg(10), storage, "dbo-orders", zap.NewNop(), func([]string) error { return nil })

	ctx := context.Background()
	records := []map[string]any{
		{"id": 1, "name": "first"},
		{"id": 2, "name": "second"},
	}
	for _, rec := range records {
		if err := w.Add(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if len(storage.files) != 1 {
		t.Fatalf("files = %d, want 1", len(storage.files))
	}

	for _, data := range storage.files {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("file is not gzip: %v", err)
		}

		var lines []map[string]any
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			var rec map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				t.Fatalf("line is not JSON: %v", err)
			}
			lines = append(lines, rec)
		}
		if err := scanner.Err(); err != nil {
			t.Fatal(err)
		}

		if len(lines) != 2 {
			t.Fatalf("lines = %d, want 2", len(lines))
		}
		if lines[0]["name"] != "first" || lines[1]["name"] != "second" {
			t.Errorf("records out of order: %v", lines)
		}
	}
}

func TestWriterCloseWithoutRecords(t *testing.T) {
	storage := newMemStorage()
	called := false
	w := NewWriter(batchCfg(10), storage, "dbo-orders", zap.NewNop(), func([]string) error {
		called = true
		return nil
	})

	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if called || len(storage.files) != 0 {
		t.Error("empty writer produced a batch")
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(context.Background(), "file://"+dir)
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}

	url, err := storage.Put(context.Background(), "chunk-1.json.gz", []byte("payload"))
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("url = %s", url)
	}

	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("contents = %q", data)
	}
}

func TestNewStorageRejectsUnknownScheme(t *testing.T) {
	_, err := NewStorage(context.Background(), "ftp://host/dir")
	if err == nil || !strings.Contains(err.Error(), "unsupported storage scheme") {
		t.Errorf("err = %v", err)
	}
}
