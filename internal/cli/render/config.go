package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// ConfigRenderer renders config-related output
type ConfigRenderer struct {
	out io.Writer
}

// NewConfigRenderer creates a new config renderer
func NewConfigRenderer(out io.Writer) *ConfigRenderer {
	return &ConfigRenderer{
		out: out,
	}
}

// getRelativePath returns the relative path from current directory
func getRelativePath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}

	return relPath
}

// RenderConfig renders the configuration display
func (r *ConfigRenderer) RenderConfig(result *usecase.ShowConfigResult) error {
	if !result.Exists {
		fmt.Fprintln(r.out, FormatWarning("No .catapult/config.local.json file found, using built-in defaults"))
		return nil
	}

	fmt.Fprintln(r.out, headerStyle.Sprint("Current config:"))
	for _, key := range config.ValidConfigKeys() {
		value := result.Config.Get(key)
		if value == "" {
			value = mutedStyle.Sprint("(not set)")
		}
		fmt.Fprintf(r.out, "  %-8s %s\n", titleCase.String(string(key))+":", value)
	}
	fmt.Fprintf(r.out, "\n%s %s\n", labelStyle.Sprint("Config file:"), getRelativePath(result.ConfigPath))

	return nil
}

// RenderSet renders the result of setting a configuration value
func (r *ConfigRenderer) RenderSet(result *usecase.SetConfigResult) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Set %s to: %s", result.Key, result.Value)))
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Sprint("Config saved to:"), getRelativePath(result.ConfigPath))
	return nil
}

// RenderRemove renders the result of removing a configuration value
func (r *ConfigRenderer) RenderRemove(result *usecase.SetConfigResult) error {
	switch result.Key {
	case config.ConfigKeyNetwork:
		fmt.Fprintln(r.out, FormatSuccess("Removed network from config (defaults to local)"))
	case config.ConfigKeyStore:
		fmt.Fprintln(r.out, FormatSuccess("Removed store from config (uses catapult.toml or file)"))
	}

	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Sprint("Config saved to:"), getRelativePath(result.ConfigPath))
	return nil
}
