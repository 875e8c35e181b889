package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/picseq/pkg/fileseq"
	"gopkg.in/yaml.v3"
)

const configHeader = `# picseq Configuration File
#
# Values can be overridden with PICSEQ_* environment variables, for example:
#   PICSEQ_NAVIGATION_STRATEGY=traverse-tree-by-time
#   PICSEQ_LOGGING_LEVEL=DEBUG
#
# Navigation strategies:
%s
`

// InitConfig writes a configuration file with default values to the default
// location. It fails if the file exists unless force is set.
// Returns the path of the written file.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a configuration file with default values to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	data, err := GenerateConfig(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateConfig renders cfg as a commented YAML document.
func GenerateConfig(cfg *Config) ([]byte, error) {
	var strategies strings.Builder
	for _, s := range fileseq.Strategies() {
		fmt.Fprintf(&strategies, "#   - %s\n", s)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, configHeader, strings.TrimSuffix(strategies.String(), "\n"))

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}
