// Package config manages the vobuild CLI's on-disk state: named contexts
// holding per-service YAML files, plus the session archive.
//
// Everything lives under os.UserConfigDir()/vobuild/:
//
//	vobuild/
//	├── current-context          # plain text: name of current context
//	├── sessions/                # badger session archive
//	└── contexts/
//	    ├── default/
//	    │   ├── providers.yaml
//	    │   ├── realtime.yaml
//	    │   └── packager.yaml
//	    └── staging/
//	        └── ...
//
// A context bundles the credentials and endpoints for one deployment, so
// switching between, say, a personal and a work setup is one command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDir             = "vobuild"
	currentContextFile = "current-context"
	contextsDir        = "contexts"
	sessionsDir        = "sessions"
)

// Config is the root of the CLI's on-disk state.
type Config struct {
	// Dir is the root configuration directory.
	Dir string

	// CurrentContext names the active context, or is empty when none is
	// selected yet.
	CurrentContext string
}

// Load locates the configuration under the user's config directory.
func Load() (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom reads the configuration rooted at dir. A missing current-context
// file is not an error; the CLI simply has no active context yet.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}
	if data, err := os.ReadFile(filepath.Join(dir, currentContextFile)); err == nil {
		cfg.CurrentContext = strings.TrimSpace(string(data))
	}
	return cfg, nil
}

// SessionsDir returns the path of the session archive directory.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.Dir, sessionsDir)
}

// ContextsDir returns the directory holding all contexts.
func (c *Config) ContextsDir() string {
	return filepath.Join(c.Dir, contextsDir)
}

// ContextDir returns the directory of a named context.
func (c *Config) ContextDir(name string) string {
	return filepath.Join(c.Dir, contextsDir, name)
}

// CurrentContextDir returns the active context's directory, or an error
// when no context is selected.
func (c *Config) CurrentContextDir() (string, error) {
	if c.CurrentContext == "" {
		return "", fmt.Errorf("no current context set; use 'vobuild config use-context <name>'")
	}
	return c.ContextDir(c.CurrentContext), nil
}

// ResolveContext returns the directory for name, falling back to the active
// context when name is empty.
func (c *Config) ResolveContext(name string) (string, error) {
	if name == "" {
		return c.CurrentContextDir()
	}
	if !c.contextExists(name) {
		return "", fmt.Errorf("no context named %q", name)
	}
	return c.ContextDir(name), nil
}

// ListContexts returns the names of all contexts, one per directory.
func (c *Config) ListContexts() ([]string, error) {
	entries, err := os.ReadDir(c.ContextsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// AddContext creates an empty context directory.
func (c *Config) AddContext(name string) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}
	if c.contextExists(name) {
		return fmt.Errorf("a context named %q already exists", name)
	}
	if err := os.MkdirAll(c.ContextDir(name), 0755); err != nil {
		return fmt.Errorf("create context %q: %w", name, err)
	}
	return nil
}

// DeleteContext removes a context and every service config inside it. When
// the deleted context was active, the selection is cleared.
func (c *Config) DeleteContext(name string) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}
	if !c.contextExists(name) {
		return fmt.Errorf("no context named %q", name)
	}
	if err := os.RemoveAll(c.ContextDir(name)); err != nil {
		return fmt.Errorf("delete context %q: %w", name, err)
	}
	if c.CurrentContext == name {
		c.CurrentContext = ""
		return c.saveCurrentContext()
	}
	return nil
}

// UseContext makes name the active context and persists the selection.
func (c *Config) UseContext(name string) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}
	if !c.contextExists(name) {
		return fmt.Errorf("no context named %q", name)
	}
	c.CurrentContext = name
	return c.saveCurrentContext()
}

func (c *Config) contextExists(name string) bool {
	_, err := os.Stat(c.ContextDir(name))
	return err == nil
}

func (c *Config) saveCurrentContext() error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(c.Dir, currentContextFile)
	return os.WriteFile(path, []byte(c.CurrentContext+"\n"), 0644)
}
