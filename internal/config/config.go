// Package config loads the compiler's TOML configuration file, overridable
// by CLI flags, following the same toml.Unmarshal-onto-tagged-struct
// pattern used elsewhere in this codebase.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full set of compile-time options, loadable from a TOML
// file and overridable by the command line.
type Config struct {
	ArcType         string   `toml:"arc_type"`
	Indir           []string `toml:"indir"`
	Outdir          string   `toml:"outdir"`
	SaveSymbols     bool     `toml:"save_symbols"`
	AlwaysExport    bool     `toml:"always_export"`
	OptimizeAllFsts bool     `toml:"optimize_all_fsts"`
	EmitAstOnly     bool     `toml:"emit_ast_only"`
	LineNumbersInAst bool    `toml:"line_numbers_in_ast"`
	PrintRules      bool     `toml:"print_rules"`
}

// Default returns the configuration used when no file is given: tropical
// arc weights, the current directory as both input and output, nothing
// else turned on.
func Default() Config {
	return Config{
		ArcType: "standard",
		Indir:   []string{"."},
		Outdir:  ".",
	}
}

// Load reads and parses a TOML configuration file at path, starting from
// Default() so a partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
