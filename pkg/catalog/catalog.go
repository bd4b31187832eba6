package catalog

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/queuebridge/tap-mssql/pkg/singer"
)

// Catalog is the Singer catalog document: every discoverable stream
// with its JSON schema and metadata map. Discovery writes it,
// operators edit it (selection, replication keys), sync reads it.
type Catalog struct {
	Streams []*Stream `json:"streams"`
}

// Stream describes one table or view.
type Stream struct {
	TapStreamID string         `json:"tap_stream_id"`
	Stream      string         `json:"stream"`
	TableName   string         `json:"table_name"`
	Schema      *singer.Schema `json:"schema"`
	Metadata    []Entry        `json:"metadata"`
}

// Load reads a catalog file.
func Load(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return &cat, nil
}

// Encode serializes the catalog for --discover output.
func (c *Catalog) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

// GetStream finds a stream by tap_stream_id.
func (c *Catalog) GetStream(tapStreamID string) *Stream {
	for _, s := range c.Streams {
		if s.TapStreamID == tapStreamID {
			return s
		}
	}
	return nil
}

// SelectedStreams returns streams chosen for extraction, in catalog
// order.
func (c *Catalog) SelectedStreams() []*Stream {
	var selected []*Stream
	for _, s := range c.Streams {
		if s.IsSelected() {
			selected = append(selected, s)
		}
	}
	return selected
}
