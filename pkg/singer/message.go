package singer

// Singer message types emitted on stdout as newline-delimited JSON.
//
// Message Type   Purpose
// ────────────────────────────────────────────────────────────
// SCHEMA         JSON Schema for a stream, sent before records
// RECORD         One extracted row
// STATE          Bookmark checkpoint for resumable extraction
// BATCH          Manifest of record files written out-of-band

const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
	TypeBatch  = "BATCH"
)

// SchemaMessage describes the shape of the records that follow it.
type SchemaMessage struct {
	Type               string   `json:"type"`
	Stream             string   `json:"stream"`
	Schema             *Schema  `json:"schema"`
	KeyProperties      []string `json:"key_properties"`
	BookmarkProperties []string `json:"bookmark_properties,omitempty"`
}

// NewSchemaMessage builds a SCHEMA message for a stream.
func NewSchemaMessage(stream string, schema *Schema, keyProperties, bookmarkProperties []string) *SchemaMessage {
	if keyProperties == nil {
		// Singer requires the field to be present, even when empty
		keyProperties = []string{}
	}
	return &SchemaMessage{
		Type:               TypeSchema,
		Stream:             stream,
		Schema:             schema,
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	}
}

// RecordMessage carries a single extracted row.
type RecordMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Record        map[string]any `json:"record"`
	Version       int64          `json:"version,omitempty"`
	TimeExtracted string         `json:"time_extracted,omitempty"`
}

// NewRecordMessage builds a RECORD message.
func NewRecordMessage(stream string, record map[string]any, timeExtracted string) *RecordMessage {
	return &RecordMessage{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        record,
		TimeExtracted: timeExtracted,
	}
}

// StateMessage carries the full state document. Targets echo the most
// recently processed STATE back to the orchestrator.
type StateMessage struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// NewStateMessage wraps a state document in a STATE message.
func NewStateMessage(value any) *StateMessage {
	return &StateMessage{Type: TypeState, Value: value}
}

// BatchEncoding describes how a batch file is serialized.
type BatchEncoding struct {
	Format      string `json:"format"`
	Compression string `json:"compression,omitempty"`
}

// BatchMessage points consumers at record files written out-of-band.
// Manifest entries are URLs (file:// or s3://).
type BatchMessage struct {
	Type     string        `json:"type"`
	Stream   string        `json:"stream"`
	Encoding BatchEncoding `json:"encoding"`
	Manifest []string      `json:"manifest"`
}

// NewBatchMessage builds a BATCH message for a set of uploaded files.
func NewBatchMessage(stream string, encoding BatchEncoding, manifest []string) *BatchMessage {
	return &BatchMessage{
		Type:     TypeBatch,
		Stream:   stream,
		Encoding: encoding,
		Manifest: manifest,
	}
}
