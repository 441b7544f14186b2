package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"bazaar/internal/config"
)

// LoadConfig reads a YAML file over the built-in defaults and then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*config.Config, error) {
	cfg := config.Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return config.Load(cfg)
}
