package main

import "flag"

// Flags holds all command-line flags
type Flags struct {
	// Modes
	Discover *bool
	About    *bool

	// Inputs
	Config  *string
	Catalog *string
	State   *string

	// Config Creation
	CreateConfig *string

	// Misc
	Version *bool
	Help    *bool
}

// ParseFlags defines and parses all flags
func ParseFlags() *Flags {
	flags := &Flags{
		Discover: flag.Bool("discover", false, "Run discovery and print the catalog"),
		About:    flag.Bool("about", false, "Print connector capabilities and settings"),

		Config:  flag.String("config", "", "Path to config file (required)"),
		Catalog: flag.String("catalog", "", "Path to catalog file"),
		State:   flag.String("state", "", "Path to state file from a previous run"),

		CreateConfig: flag.String("create-config", "", "Write a sample config to the given path"),

		Version: flag.Bool("version", false, "Print version"),
		Help:    flag.Bool("help", false, "Print help"),
	}

	// --properties is the legacy alias for --catalog
	flag.StringVar(flags.Catalog, "properties", *flags.Catalog, "Alias for --catalog")

	flag.Parse()
	return flags
}
