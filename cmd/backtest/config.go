package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// buildConfig reads the YAML config at path (if any) and replaces the keys in
// overrides. The result is the config document handed to the engine.
func buildConfig(path string, overrides map[string]any) (string, error) {
	values := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config: %w", err)
		}

		if err := yaml.Unmarshal(data, &values); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}

	for key, value := range overrides {
		values[key] = value
	}

	if len(values) == 0 {
		return "", nil
	}

	out, err := yaml.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	return string(out), nil
}
