package catalog

// Singer metadata conventions. Stream-level metadata lives under the
// empty breadcrumb, column-level metadata under ["properties", name].
//
// Key                  Level    Meaning
// ───────────────────────────────────────────────────────────────
// selected             stream   operator opted the stream in
// selected-by-default  both     fallback when selected is absent
// replication-method   stream   FULL_TABLE or INCREMENTAL
// replication-key      stream   bookmark column for INCREMENTAL
// table-key-properties stream   primary-key column names
// schema-name          stream   source schema (e.g. dbo)
// is-view              stream   relation is a view
// row-count            stream   approximate source row count
// inclusion            column   available | automatic | unsupported
// sql-datatype         column   original database type

const (
	ReplicationFullTable   = "FULL_TABLE"
	ReplicationIncremental = "INCREMENTAL"
)

// Entry is one metadata record.
type Entry struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// streamEntry finds the stream-level metadata map.
func (s *Stream) streamEntry() map[string]any {
	for _, e := range s.Metadata {
		if len(e.Breadcrumb) == 0 {
			return e.Metadata
		}
	}
	return nil
}

// columnEntry finds the metadata map for one column.
func (s *Stream) columnEntry(column string) map[string]any {
	for _, e := range s.Metadata {
		if len(e.Breadcrumb) == 2 && e.Breadcrumb[0] == "properties" && e.Breadcrumb[1] == column {
			return e.Metadata
		}
	}
	return nil
}

// IsSelected reports whether the stream should be extracted:
// the explicit selected flag wins, selected-by-default is the
// fallback.
func (s *Stream) IsSelected() bool {
	md := s.streamEntry()
	if md == nil {
		return false
	}
	if v, ok := md["selected"].(bool); ok {
		return v
	}
	if v, ok := md["selected-by-default"].(bool); ok {
		return v
	}
	return false
}

// ReplicationMethod returns INCREMENTAL when a replication key is
// set, otherwise the declared method, defaulting to FULL_TABLE.
func (s *Stream) ReplicationMethod() string {
	md := s.streamEntry()
	if md == nil {
		return ReplicationFullTable
	}
	if s.ReplicationKey() != "" {
		return ReplicationIncremental
	}
	if v, ok := md["replication-method"].(string); ok && v != "" {
		return v
	}
	return ReplicationFullTable
}

// ReplicationKey returns the bookmark column name, if any.
func (s *Stream) ReplicationKey() string {
	md := s.streamEntry()
	if md == nil {
		return ""
	}
	v, _ := md["replication-key"].(string)
	return v
}

// KeyProperties returns the primary-key column names.
func (s *Stream) KeyProperties() []string {
	md := s.streamEntry()
	if md == nil {
		return nil
	}
	return toStringSlice(md["table-key-properties"])
}

// SchemaName returns the source schema (e.g. "dbo").
func (s *Stream) SchemaName() string {
	md := s.streamEntry()
	if md == nil {
		return ""
	}
	v, _ := md["schema-name"].(string)
	return v
}

// IsView reports whether the relation is a view.
func (s *Stream) IsView() bool {
	md := s.streamEntry()
	if md == nil {
		return false
	}
	v, _ := md["is-view"].(bool)
	return v
}

// ColumnSQLDatatype returns the recorded sql-datatype for a column.
func (s *Stream) ColumnSQLDatatype(column string) string {
	md := s.columnEntry(column)
	if md == nil {
		return ""
	}
	v, _ := md["sql-datatype"].(string)
	return v
}

// SelectedColumns returns columns to extract, in schema property
// iteration-independent order: the declared property list is filtered
// by per-column selection, with automatic columns always kept.
func (s *Stream) SelectedColumns(ordered []string) []string {
	var out []string
	for _, name := range ordered {
		md := s.columnEntry(name)
		if md == nil {
			out = append(out, name)
			continue
		}

		if inclusion, _ := md["inclusion"].(string); inclusion == "automatic" {
			out = append(out, name)
			continue
		}
		if inclusion, _ := md["inclusion"].(string); inclusion == "unsupported" {
			continue
		}

		if v, ok := md["selected"].(bool); ok {
			if v {
				out = append(out, name)
			}
			continue
		}
		if v, ok := md["selected-by-default"].(bool); ok {
			if v {
				out = append(out, name)
			}
			continue
		}
		out = append(out, name)
	}
	return out
}

// SetStreamMetadata sets one stream-level metadata key, creating the
// entry if needed.
func (s *Stream) SetStreamMetadata(key string, value any) {
	md := s.streamEntry()
	if md == nil {
		md = make(map[string]any)
		s.Metadata = append(s.Metadata, Entry{Breadcrumb: []string{}, Metadata: md})
	}
	md[key] = value
}

func toStringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
