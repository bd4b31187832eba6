package tap

import (
	"fmt"
	"strings"
)

// buildSelect constructs the extraction query for one stream.
//
// FULL_TABLE:  SELECT [a], [b] FROM [dbo].[t]
// INCREMENTAL: SELECT [a], [b] FROM [dbo].[t]
//              [WHERE [rk] >= ?] ORDER BY [rk]
//
// The >= comparison re-reads the boundary row after a resume; targets
// deduplicate on key properties, which is the standard trade against
// missing rows that share the bookmark value.
//
// The bookmark is a typed argument (time.Time, []byte, int64 or
// string) matching the replication-key column, so the driver binds
// the right parameter type instead of leaning on server-side
// conversion from nvarchar.
func buildSelect(schemaName, tableName string, columns []string, replicationKey string, bookmark any) (string, []any) {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = "[" + col + "]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM [%s].[%s]",
		strings.Join(quoted, ", "), schemaName, tableName)

	var args []any
	if replicationKey != "" {
		if bookmark != nil {
			fmt.Fprintf(&b, " WHERE [%s] >= ?", replicationKey)
			args = append(args, bookmark)
		}
		fmt.Fprintf(&b, " ORDER BY [%s]", replicationKey)
	}

	return b.String(), args
}
