package state

import (
	"fmt"
	"os"
	"sync"

	json "github.com/goccy/go-json"
)

// Bookmark is the incremental position for one stream.
type Bookmark struct {
	ReplicationKey      string `json:"replication_key,omitempty"`
	ReplicationKeyValue string `json:"replication_key_value,omitempty"`
}

// Document is the Singer state value: bookmarks keyed by
// tap_stream_id plus the stream currently being synced.
type Document struct {
	Bookmarks        map[string]Bookmark `json:"bookmarks"`
	CurrentlySyncing string              `json:"currently_syncing,omitempty"`
}

// Manager guards the state document behind a lock so callers can
// treat it as safe from any goroutine; the tap itself updates it
// sequentially.
type Manager struct {
	mu  sync.RWMutex
	doc Document
}

// NewManager returns a manager with an empty document.
func NewManager() *Manager {
	return &Manager{
		doc: Document{Bookmarks: make(map[string]Bookmark)},
	}
}

// LoadFile reads a state file produced by a previous run. A missing
// bookmarks map is tolerated (targets sometimes echo bare objects).
func LoadFile(filename string) (*Manager, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if doc.Bookmarks == nil {
		doc.Bookmarks = make(map[string]Bookmark)
	}

	return &Manager{doc: doc}, nil
}

// Get returns the bookmark for a stream, zero-valued when none exists.
func (m *Manager) Get(tapStreamID string) Bookmark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Bookmarks[tapStreamID]
}

// SetBookmark records the latest replication-key value for a stream.
func (m *Manager) SetBookmark(tapStreamID, replicationKey, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.Bookmarks[tapStreamID] = Bookmark{
		ReplicationKey:      replicationKey,
		ReplicationKeyValue: value,
	}
}

// SetCurrentlySyncing marks the in-flight stream; pass "" when the
// run completes.
func (m *Manager) SetCurrentlySyncing(tapStreamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.CurrentlySyncing = tapStreamID
}

// Reset drops the bookmark for one stream (full re-sync).
func (m *Manager) Reset(tapStreamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.doc.Bookmarks, tapStreamID)
}

// Snapshot returns a deep copy suitable for a STATE message.
func (m *Manager) Snapshot() Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	copied := Document{
		Bookmarks:        make(map[string]Bookmark, len(m.doc.Bookmarks)),
		CurrentlySyncing: m.doc.CurrentlySyncing,
	}
	for k, v := range m.doc.Bookmarks {
		copied.Bookmarks[k] = v
	}
	return copied
}
