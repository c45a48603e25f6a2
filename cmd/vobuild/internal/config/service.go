package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// ServicePath returns where a service's YAML file lives inside a context.
// ServicePath("dev", "providers") resolves to ".../contexts/dev/providers.yaml".
func (c *Config) ServicePath(context, service string) string {
	return filepath.Join(c.ContextDir(context), service+".yaml")
}

// LoadService decodes one service's YAML file from a context directory into
// the typed config struct for that service (ProvidersConfig, RealtimeConfig,
// or PackagerConfig).
func LoadService[T any](contextDir, service string) (*T, error) {
	path := filepath.Join(contextDir, service+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s.yaml in this context; create it at %s", service, path)
		}
		return nil, fmt.Errorf("read %s config: %w", service, err)
	}

	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}

// SaveService encodes a service config and writes it into the context
// directory, creating the directory if needed.
func SaveService[T any](contextDir, service string, v *T) error {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s config: %w", service, err)
	}

	path := filepath.Join(contextDir, service+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s config: %w", service, err)
	}
	return nil
}

// ListServices names the services that have a YAML file in the context
// directory. A context with no directory has no services.
func ListServices(contextDir string) ([]string, error) {
	entries, err := os.ReadDir(contextDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read context dir: %w", err)
	}

	var services []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch ext := filepath.Ext(e.Name()); ext {
		case ".yaml", ".yml":
			services = append(services, e.Name()[:len(e.Name())-len(ext)])
		}
	}
	return services, nil
}
