package main

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

const version = "1.2.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("tap-mssql version %s\n", version)
	fmt.Println("Singer tap for Microsoft SQL Server")
}

// PrintHelp prints usage information
func PrintHelp() {
	fmt.Println("tap-mssql - Singer tap for Microsoft SQL Server")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  tap-mssql --config <file> [--discover | --catalog <file> [--state <file>]]")
	fmt.Println()

	fmt.Println("MODES:")
	fmt.Println("  --discover                 Discover tables and print the catalog to stdout")
	fmt.Println("  (default)                  Sync selected streams as SCHEMA/RECORD/STATE messages")
	fmt.Println("  --about                    Print connector capabilities as JSON")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println("  --config <file>            Connection and extraction settings (required)")
	fmt.Println("  --catalog <file>           Catalog with stream selection and replication keys")
	fmt.Println("  --properties <file>        Legacy alias for --catalog")
	fmt.Println("  --state <file>             Bookmarks from a previous run")
	fmt.Println("  --create-config <file>     Write a sample config and exit")
	fmt.Println("  --version                  Print version")
	fmt.Println("  --help                     Print this help")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  tap-mssql --config config.json --discover > catalog.json")
	fmt.Println("  tap-mssql --config config.json --catalog catalog.json")
	fmt.Println("  tap-mssql --config config.json --catalog catalog.json --state state.json")
}

// PrintAbout prints the connector description as JSON
func PrintAbout() error {
	about := map[string]any{
		"name":    "tap-mssql",
		"version": version,
		"capabilities": []string{
			"catalog",
			"discover",
			"properties",
			"state",
			"batch",
		},
		"settings": []string{
			"host", "port", "user", "password", "database",
			"driver_type", "odbc_driver", "connection_options",
			"filter", "start_date", "hd_jsonschema_types",
			"state_interval", "batch_config", "message_broker",
			"result_log",
		},
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(about)
}
