package kubescript

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings of a Manager.
type Config struct {
	// DebugInfo enables verbose diagnostics: derived recipe constructors are
	// logged and loaded recipe documents keep a snapshot of their source.
	DebugInfo bool `env:"KUBESCRIPT_DEBUG_INFO" envDefault:"false"`
	// HideServerScriptErrors stops server script errors from being shown to
	// players when they join.
	HideServerScriptErrors bool `env:"KUBESCRIPT_HIDE_SERVER_SCRIPT_ERRORS" envDefault:"false"`
	// ScriptDir holds startup/ and server/ directories of .lua scripts.
	// Empty disables loading scripts from disk.
	ScriptDir string `env:"KUBESCRIPT_SCRIPT_DIR"`
	// DataDir holds <namespace>/recipes/<path>.json recipe documents.
	// Empty disables loading documents from disk.
	DataDir string `env:"KUBESCRIPT_DATA_DIR"`
}

// LoadConfig reads a Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
