//go:build cgo || windows

package mssql

import (
	_ "github.com/alexbrainman/odbc" // ODBC driver manager bridge
)
