package tap

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildSelect(t *testing.T) {
	datetimeBookmark := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	rowversionBookmark := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0xD2}

	tests := []struct {
		name           string
		columns        []string
		replicationKey string
		bookmark       any
		wantQuery      string
		wantArgs       []any
	}{
		{
			name:      "full table",
			columns:   []string{"id", "name"},
			wantQuery: "SELECT [id], [name] FROM [dbo].[orders]",
		},
		{
			name:           "incremental first run",
			columns:        []string{"id", "updated_at"},
			replicationKey: "updated_at",
			wantQuery:      "SELECT [id], [updated_at] FROM [dbo].[orders] ORDER BY [updated_at]",
		},
		{
			name:           "incremental with datetime bookmark",
			columns:        []string{"id", "updated_at"},
			replicationKey: "updated_at",
			bookmark:       datetimeBookmark,
			wantQuery:      "SELECT [id], [updated_at] FROM [dbo].[orders] WHERE [updated_at] >= ? ORDER BY [updated_at]",
			wantArgs:       []any{datetimeBookmark},
		},
		{
			name:           "incremental with rowversion bookmark",
			columns:        []string{"id", "rv"},
			replicationKey: "rv",
			bookmark:       rowversionBookmark,
			wantQuery:      "SELECT [id], [rv] FROM [dbo].[orders] WHERE [rv] >= ? ORDER BY [rv]",
			wantArgs:       []any{rowversionBookmark},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildSelect("dbo", "orders", tt.columns, tt.replicationKey, tt.bookmark)

			if query != tt.wantQuery {
				t.Errorf("query = %s\nwant    %s", query, tt.wantQuery)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

// Bracket quoting keeps reserved words and spaced identifiers usable.
func TestBuildSelectQuotesIdentifiers(t *testing.T) {
	query, _ := buildSelect("dbo", "Order Details", []string{"Unit Price"}, "", nil)
	want := "SELECT [Unit Price] FROM [dbo].[Order Details]"
	if query != want {
		t.Errorf("query = %s, want %s", query, want)
	}
}
